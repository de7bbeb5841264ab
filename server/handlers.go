package server

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/psmgo"
	"github.com/hupe1980/psmgo/codec"
	"github.com/hupe1980/psmgo/dataset"
	"github.com/hupe1980/psmgo/resource"
	"github.com/hupe1980/psmgo/table"
)

// HealthResponse is the body of GET /.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleMatch handles POST /api/psm.
//
// Response:
//
//	200 OK: dataset.Records
//	400 Bad Request: missing file, malformed CSV or form field, schema or feature error
//	413 Request Entity Too Large: upload exceeds MaxUploadBytes
//	503 Service Unavailable: no job slot before the request was cancelled
//	500 Internal Server Error: matching failed
func (s *Server) handleMatch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := s.logger.WithRequest(requestID, "handleMatch")
	ctx := c.Request.Context()

	if s.opts.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	}

	var optFns []psmgo.Option

	columns, err := parseColumns(c.PostForm("columns"))
	if err != nil {
		s.fail(c, logger, http.StatusBadRequest, CodeInvalidColumns, err)
		return
	}
	if columns != nil {
		optFns = append(optFns, psmgo.WithFeatureColumns(columns...))
	}

	if v := c.PostForm("n_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.fail(c, logger, http.StatusBadRequest, CodeInvalidNResults, fmt.Errorf("n_results must be an integer: %q", v))
			return
		}
		optFns = append(optFns, psmgo.WithNResults(n))
	}

	experiment, control, err := s.decodeUploads(ctx, c)
	if err != nil {
		code, errCode := classify(err)
		s.fail(c, logger, code, errCode, err)
		return
	}

	if !experiment.SameSchema(control) {
		s.fail(c, logger, http.StatusBadRequest, CodeSchemaMismatch, psmgo.ErrSchemaMismatch)
		return
	}

	if err := s.ctrl.AcquireJob(ctx); err != nil {
		s.fail(c, logger, http.StatusServiceUnavailable, CodeBusy, fmt.Errorf("no matching slot available: %w", err))
		return
	}
	defer s.ctrl.ReleaseJob()

	optFns = append(optFns,
		psmgo.WithEstimatorConfig(s.opts.Estimator),
		psmgo.WithMetricsCollector(s.metrics),
		psmgo.WithLogger(logger),
	)

	res, err := psmgo.Run(ctx, experiment, control, optFns...)
	if err != nil {
		code, errCode := classify(err)
		s.fail(c, logger, code, errCode, err)
		return
	}

	logger.WithCount(res.Table.Len()).Info("match served", "distinct_controls", res.DistinctControls)
	c.JSON(http.StatusOK, dataset.ToRecords(res.Table, s.opts.MaxRows))
}

func (s *Server) fail(c *gin.Context, logger *psmgo.Logger, code int, errCode string, err error) {
	if code >= http.StatusInternalServerError {
		logger.Error("request failed", "code", errCode, "error", err)
	} else {
		logger.Warn("request rejected", "code", errCode, "error", err)
	}
	c.JSON(code, ErrorResponse{
		Error: err.Error(),
		Code:  errCode,
	})
}

// parseColumns decodes the optional "columns" form field. An empty field or
// JSON null selects every column.
func parseColumns(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var columns []string
	if err := codec.Default.Unmarshal([]byte(raw), &columns); err != nil {
		return nil, fmt.Errorf("columns must be a JSON array of strings: %w", err)
	}
	if columns == nil {
		return nil, nil
	}
	return columns, nil
}

// decodeUploads decodes both uploaded files concurrently.
func (s *Server) decodeUploads(ctx context.Context, c *gin.Context) (*table.Table, *table.Table, error) {
	expFile, err := c.FormFile("experiment")
	if err != nil {
		return nil, nil, fmt.Errorf("experiment file: %w", err)
	}
	ctrlFile, err := c.FormFile("control")
	if err != nil {
		return nil, nil, fmt.Errorf("control file: %w", err)
	}

	var experiment, control *table.Table
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.decodeUpload(gctx, "experiment", expFile)
		experiment = t
		return err
	})
	g.Go(func() error {
		t, err := s.decodeUpload(gctx, "control", ctrlFile)
		control = t
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return experiment, control, nil
}

func (s *Server) decodeUpload(ctx context.Context, name string, fh *multipart.FileHeader) (*table.Table, error) {
	if err := s.ctrl.AcquireMemory(ctx, fh.Size); err != nil {
		return nil, err
	}
	defer s.ctrl.ReleaseMemory(fh.Size)

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%s file: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	return dataset.Decode(resource.NewRateLimitedReader(ctx, f, s.ctrl), func(o *dataset.Options) {
		o.Name = name
	})
}

func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
