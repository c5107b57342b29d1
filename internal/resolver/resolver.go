// Package resolver answers range queries for one metric, preferring the data
// service and falling back to the local readings cache.
package resolver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/metrics"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/models"
)

// Limit caps the number of points asked from the data service
const Limit = 500

// Window is a lookback in hours
type Window int

// Week is the widest selectable window
const Week Window = 168

// Windows are the selectable lookbacks
var Windows = []Window{1, 6, 24, Week}

// ParseWindow accepts 1 to 168 hours
func ParseWindow(hours int) (Window, error) {
	if hours < 1 || hours > int(Week) {
		return 0, fmt.Errorf("window must be between 1 and %d hours, got %d", Week, hours)
	}
	return Window(hours), nil
}

func (w Window) Duration() time.Duration {
	return time.Duration(w) * time.Hour
}

// Label is the chart subtitle for the window
func (w Window) Label() string {
	switch {
	case w >= Week:
		return "Last 7 days"
	case w > 1:
		return fmt.Sprintf("Last %d hours", int(w))
	default:
		return fmt.Sprintf("Last %d hour", int(w))
	}
}

// Source names where a series came from
type Source string

const (
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
	SourceNone   Source = "none"
)

// RangeSource is the remote time-ranged query
type RangeSource interface {
	Series(ctx context.Context, key models.SensorKey, hours, limit int) ([]models.Point, error)
}

// Cache is the local fallback
type Cache interface {
	QueryRange(key models.SensorKey, since time.Time) []models.Point
}

// Result is the outcome of one range query. An empty series is reported with
// SourceNone and nil Stats.
type Result struct {
	Key    models.SensorKey `json:"key"`
	Window Window           `json:"hours"`
	Label  string           `json:"label"`
	Source Source           `json:"source"`
	Points []models.Point   `json:"points"`
	Stats  *Stats           `json:"stats"`
}

// NoData reports the "no data for range" outcome
func (r Result) NoData() bool {
	return r.Source == SourceNone
}

type Config struct {
	Remote  RangeSource
	Cache   Cache
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

type Resolver struct {
	remote  RangeSource
	cache   Cache
	logger  *zap.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

func New(cfg Config) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		remote:  cfg.Remote,
		cache:   cfg.Cache,
		logger:  logger.With(zap.String("component", "resolver")),
		metrics: cfg.Metrics,
		now:     time.Now,
	}
}

// Resolve never fails: remote errors fall back to the cache and an empty
// outcome is a result.
func (r *Resolver) Resolve(ctx context.Context, key models.SensorKey, window Window) Result {
	res := Result{Key: key, Window: window, Label: window.Label()}
	defer func() {
		if r.metrics != nil {
			r.metrics.RangeQueries.WithLabelValues(string(res.Source)).Inc()
		}
	}()

	if r.remote != nil {
		points, err := r.remote.Series(ctx, key, int(window), Limit)
		switch {
		case err != nil:
			r.logger.Warn("Range query failed, using cache",
				zap.String("sensor", string(key)),
				zap.Int("hours", int(window)),
				zap.Error(err),
			)
		case len(points) > 0:
			res.Source, res.Points = SourceRemote, points
			res.Stats = ComputeStats(points)
			return res
		default:
			r.logger.Debug("Range query returned nothing, using cache", zap.String("sensor", string(key)))
		}
	}

	if r.cache != nil {
		if points := r.cache.QueryRange(key, r.now().Add(-window.Duration())); len(points) > 0 {
			res.Source, res.Points = SourceCache, points
			res.Stats = ComputeStats(points)
			return res
		}
	}

	r.logger.Info("No data available for range",
		zap.String("sensor", string(key)),
		zap.Int("hours", int(window)),
	)
	res.Source, res.Points = SourceNone, []models.Point{}
	return res
}
