package psmgo

import (
	"log/slog"
	"slices"

	"github.com/hupe1980/psmgo/propensity"
)

type options struct {
	features         []string
	nResults         int
	limitResults     bool
	estimator        propensity.Config
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures a Run.
type Option func(*options)

// WithFeatureColumns restricts the propensity model to the named columns.
//
// Without this option every column is a feature. Names must exist in the
// shared schema; repeats are ignored. Calling it with no names selects no
// features, which Run rejects with ErrInsufficientData.
func WithFeatureColumns(columns ...string) Option {
	return func(o *options) {
		if columns == nil {
			columns = []string{}
		}
		o.features = slices.Clone(columns)
	}
}

// WithNResults ranks matches by ascending score distance and keeps the
// first n.
//
// Without this option the result holds one row per experiment row, in
// experiment order. n <= 0 yields an empty result.
func WithNResults(n int) Option {
	return func(o *options) {
		o.nResults = n
		o.limitResults = true
	}
}

// WithEstimatorConfig sets the classifier hyperparameters.
// The default is propensity.DefaultConfig().
func WithEstimatorConfig(cfg propensity.Config) Option {
	return func(o *options) {
		o.estimator = cfg
	}
}

// WithMetricsCollector configures a metrics collector for monitoring runs.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &psmgo.BasicMetricsCollector{}
//	res, _ := psmgo.Run(ctx, exp, ctrl, psmgo.WithMetricsCollector(metrics))
//	stats := metrics.GetStats()
//	fmt.Printf("Fits: %d, Avg latency: %dns\n", stats.FitCount, stats.FitAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for runs.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := psmgo.NewJSONLogger(slog.LevelInfo)
//	res, _ := psmgo.Run(ctx, exp, ctrl, psmgo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		estimator:        propensity.DefaultConfig(),
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
