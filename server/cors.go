package server

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// newCORS allows cross-origin requests from the configured origins. "*"
// allows every origin; with credentials enabled the request origin is
// echoed instead, since browsers reject a literal "*" there. An empty list
// disables CORS and returns a nil handler.
func newCORS(origins []string, credentials bool) (gin.HandlerFunc, error) {
	if len(origins) == 0 {
		return nil, nil
	}

	cfg := cors.Config{
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodHead, http.MethodOptions,
		},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: credentials,
		MaxAge:           10 * time.Minute,
	}

	switch {
	case slices.Contains(origins, "*") && credentials:
		cfg.AllowOriginFunc = func(string) bool { return true }
	case slices.Contains(origins, "*"):
		cfg.AllowAllOrigins = true
	default:
		cfg.AllowOrigins = origins
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cors: %w", err)
	}

	return cors.New(cfg), nil
}
