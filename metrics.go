package psmgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// The server package ships a Prometheus implementation.
type MetricsCollector interface {
	// RecordFit is called after each propensity model fit.
	// rows is the combined experiment and control row count, features the
	// number of covariates, err is nil if successful.
	RecordFit(rows, features int, duration time.Duration, err error)

	// RecordMatch is called after each matching stage.
	// matches is the number of experiment rows matched, returned the number
	// of rows kept after ranking.
	RecordMatch(matches, returned int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordFit(int, int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordMatch(int, int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	FitCount        atomic.Int64
	FitErrors       atomic.Int64
	FitRows         atomic.Int64
	FitTotalNanos   atomic.Int64
	MatchCount      atomic.Int64
	MatchErrors     atomic.Int64
	MatchedRows     atomic.Int64
	ReturnedRows    atomic.Int64
	MatchTotalNanos atomic.Int64
}

// RecordFit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFit(rows, features int, duration time.Duration, err error) {
	b.FitCount.Add(1)
	b.FitTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FitErrors.Add(1)
		return
	}
	b.FitRows.Add(int64(rows))
}

// RecordMatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMatch(matches, returned int, duration time.Duration, err error) {
	b.MatchCount.Add(1)
	b.MatchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.MatchErrors.Add(1)
		return
	}
	b.MatchedRows.Add(int64(matches))
	b.ReturnedRows.Add(int64(returned))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		FitCount:      b.FitCount.Load(),
		FitErrors:     b.FitErrors.Load(),
		FitRows:       b.FitRows.Load(),
		FitAvgNanos:   avg(b.FitTotalNanos.Load(), b.FitCount.Load()),
		MatchCount:    b.MatchCount.Load(),
		MatchErrors:   b.MatchErrors.Load(),
		MatchedRows:   b.MatchedRows.Load(),
		ReturnedRows:  b.ReturnedRows.Load(),
		MatchAvgNanos: avg(b.MatchTotalNanos.Load(), b.MatchCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	FitCount      int64
	FitErrors     int64
	FitRows       int64
	FitAvgNanos   int64
	MatchCount    int64
	MatchErrors   int64
	MatchedRows   int64
	ReturnedRows  int64
	MatchAvgNanos int64
}
