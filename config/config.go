// Package config loads the psm service and CLI configuration from YAML.
//
// Values are resolved with priority: environment > file > defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/psmgo/propensity"
	"github.com/hupe1980/psmgo/resource"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid config")

// Config is the top-level configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	CORS      CORSConfig      `yaml:"cors"`
	Storage   StorageConfig   `yaml:"storage"`
	Estimator EstimatorConfig `yaml:"estimator"`
	Limits    LimitsConfig    `yaml:"limits"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// MaxRows caps the records returned by /api/psm.
	MaxRows         int           `yaml:"max_rows"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CORSConfig configures cross-origin access.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
}

// StorageConfig selects the blob store used by the CLI.
type StorageConfig struct {
	// URI is file://dir, a bare directory, mem://, s3://bucket/prefix or
	// minio://bucket/prefix.
	URI          string `yaml:"uri"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
	// CommitTable enables DynamoDB commits of CURRENT for s3:// stores.
	CommitTable string `yaml:"commit_table"`
	AccessKey   string `yaml:"access_key"`
	SecretKey   string `yaml:"secret_key"`
	Secure      bool   `yaml:"secure"`
}

// EstimatorConfig mirrors propensity.Config with a textual solver.
type EstimatorConfig struct {
	Solver       string  `yaml:"solver"`
	MaxIter      int     `yaml:"max_iter"`
	Tol          float64 `yaml:"tol"`
	C            float64 `yaml:"c"`
	FitIntercept bool    `yaml:"fit_intercept"`
	LearningRate float64 `yaml:"learning_rate"`
}

// LimitsConfig mirrors resource.Config.
type LimitsConfig struct {
	MaxConcurrentJobs int64   `yaml:"max_concurrent_jobs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	MaxUploadBytes    int64   `yaml:"max_upload_bytes"`
	UploadBytesPerSec int64   `yaml:"upload_bytes_per_sec"`
	MaxBufferedBytes  int64   `yaml:"max_buffered_upload_bytes"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the default configuration.
func Default() Config {
	est := propensity.DefaultConfig()
	return Config{
		Server: ServerConfig{
			Addr:            ":8000",
			MaxRows:         100,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins:   []string{"*"},
			AllowCredentials: true,
		},
		Storage: StorageConfig{
			URI:    ".",
			Secure: true,
		},
		Estimator: EstimatorConfig{
			Solver:       est.Solver.String(),
			MaxIter:      est.MaxIter,
			Tol:          est.Tol,
			C:            est.C,
			FitIntercept: est.FitIntercept,
			LearningRate: est.LearningRate,
		},
		Limits: LimitsConfig{
			MaxConcurrentJobs: 4,
			MaxUploadBytes:    64 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path (if non-empty), applies PSM_* environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := Decode(bytes.NewReader(data), &cfg); err != nil {
			return cfg, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg, os.Getenv)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode merges YAML from r into cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("PSM_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := getenv("PSM_MAX_ROWS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Server.MaxRows = i
		}
	}
	if v := getenv("PSM_CORS_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = splitList(v)
	}
	if v := getenv("PSM_STORE"); v != "" {
		cfg.Storage.URI = v
	}
	if v := getenv("PSM_MAX_CONCURRENT_JOBS"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Limits.MaxConcurrentJobs = i
		}
	}
	if v := getenv("PSM_REQUESTS_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Limits.RequestsPerSecond = f
		}
	}
	if v := getenv("PSM_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv("PSM_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr must not be empty", ErrInvalid)
	}
	if c.Server.MaxRows < 0 {
		return fmt.Errorf("%w: server.max_rows must be >= 0", ErrInvalid)
	}
	if c.Limits.MaxConcurrentJobs < 1 {
		return fmt.Errorf("%w: limits.max_concurrent_jobs must be >= 1", ErrInvalid)
	}
	if c.Limits.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: limits.requests_per_second must be >= 0", ErrInvalid)
	}
	if c.Limits.MaxUploadBytes < 0 {
		return fmt.Errorf("%w: limits.max_upload_bytes must be >= 0", ErrInvalid)
	}
	if _, err := c.Estimator.Propensity(); err != nil {
		return fmt.Errorf("%w: estimator: %v", ErrInvalid, err)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

// Propensity converts to a validated propensity.Config.
func (e EstimatorConfig) Propensity() (propensity.Config, error) {
	solver, err := propensity.ParseSolver(e.Solver)
	if err != nil {
		return propensity.Config{}, err
	}
	cfg := propensity.Config{
		Solver:       solver,
		MaxIter:      e.MaxIter,
		Tol:          e.Tol,
		C:            e.C,
		FitIntercept: e.FitIntercept,
		LearningRate: e.LearningRate,
	}
	if err := cfg.Validate(); err != nil {
		return propensity.Config{}, err
	}
	return cfg, nil
}

// Resource converts to a resource.Config.
func (l LimitsConfig) Resource() resource.Config {
	return resource.Config{
		MaxConcurrentJobs:  l.MaxConcurrentJobs,
		RequestsPerSecond:  l.RequestsPerSecond,
		Burst:              l.Burst,
		MemoryLimitBytes:   l.MaxBufferedBytes,
		IOLimitBytesPerSec: l.UploadBytesPerSec,
	}
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, err
	}
	return level, nil
}
