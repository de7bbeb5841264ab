package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/psmgo"
	"github.com/hupe1980/psmgo/propensity"
	"github.com/hupe1980/psmgo/resource"
)

// Options configures a Server.
type Options struct {
	// MaxRows caps the records in a /api/psm response. Default: 100.
	MaxRows int
	// MaxUploadBytes bounds the request body of /api/psm. 0 means unlimited.
	MaxUploadBytes int64
	// AllowedOrigins lists CORS origins; "*" allows all and an empty list
	// disables CORS. Origins must carry an http:// or https:// scheme.
	// Default: ["*"].
	AllowedOrigins []string
	// AllowCredentials sets Access-Control-Allow-Credentials. Default: true.
	AllowCredentials bool
	// Estimator is the classifier configuration used for every request.
	Estimator propensity.Config
	// Limits bounds concurrent jobs, request rate and upload IO.
	Limits resource.Config
	// Logger receives request logs. Default: no logging.
	Logger *psmgo.Logger
	// Metrics is the Prometheus collector. Default: a fresh collector.
	Metrics *PrometheusCollector
}

// DefaultOptions returns the default server options.
func DefaultOptions() Options {
	return Options{
		MaxRows:          100,
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
		Estimator:        propensity.DefaultConfig(),
		Limits:           resource.Config{MaxConcurrentJobs: 4},
	}
}

// Server is the psm HTTP service.
type Server struct {
	opts    Options
	engine  *gin.Engine
	ctrl    *resource.Controller
	metrics *PrometheusCollector
	logger  *psmgo.Logger
}

// New creates a Server.
func New(optFns ...func(o *Options)) (*Server, error) {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxRows < 0 {
		return nil, fmt.Errorf("server: MaxRows must be >= 0, got %d", opts.MaxRows)
	}
	if err := opts.Estimator.Validate(); err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	corsHandler, err := newCORS(opts.AllowedOrigins, opts.AllowCredentials)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = psmgo.NoopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewPrometheusCollector()
	}

	s := &Server{
		opts:    opts,
		ctrl:    resource.NewController(opts.Limits),
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
	s.engine = s.routes(corsHandler)
	return s, nil
}

func (s *Server) routes(corsHandler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.metrics.middleware())
	if corsHandler != nil {
		r.Use(corsHandler)
	}

	r.GET("/", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api")
	api.Use(s.rateLimit())
	api.POST("/psm", s.handleMatch)

	return r
}

// Handler returns the HTTP handler of the service.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ServeConfig holds listener settings for ListenAndServe.
type ServeConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, cfg ServeConfig) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("psm server listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info("psm server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.ctrl.AllowRequest() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "rate limit exceeded",
				Code:  CodeRateLimited,
			})
			return
		}
		c.Next()
	}
}
