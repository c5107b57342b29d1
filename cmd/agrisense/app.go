package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/auth"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/config"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/metrics"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/remote"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/repository/influxdb"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/resolver"
)

// upstreamSubject is the subject of tokens minted for the data service
const upstreamSubject = "agrisense-monitor"

// app carries what every command builds from the configuration
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Collector

	upstreamToken func() (string, error)
	remote        *remote.Client
	influx        *influxdb.Repository
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := initLogger(cfg.Logging)
	if cfg.EnvFile != "" {
		logger.Info("Loaded environment file", zap.String("path", cfg.EnvFile))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  metrics.New(registry),
	}
	if cfg.Upstream.TokenSecret != "" {
		a.upstreamToken = auth.NewJWTManager(cfg.Upstream.TokenSecret, time.Hour).TokenFunc(upstreamSubject)
	}
	a.remote = remote.New(remote.Config{
		BaseURL: cfg.Upstream.APIURL(),
		Timeout: cfg.Upstream.RequestTimeout,
		Token:   a.upstreamToken,
		Logger:  logger,
		Metrics: a.metrics,
	})
	return a, nil
}

// openHistory connects the archive when range queries should go there first
func (a *app) openHistory(ctx context.Context) error {
	if a.cfg.History.Backend != config.BackendInflux {
		return nil
	}
	repo, err := influxdb.NewRepository(ctx, influxdb.Config{
		URL:         a.cfg.Influx.URL,
		Token:       a.cfg.Influx.Token,
		Org:         a.cfg.Influx.Org,
		Bucket:      a.cfg.Influx.Bucket,
		Measurement: a.cfg.Influx.Measurement,
	}, a.logger)
	if err != nil {
		return err
	}
	a.influx = repo
	return nil
}

// rangeSource is the remote tier of the resolver
func (a *app) rangeSource() resolver.RangeSource {
	if a.influx != nil {
		return a.influx
	}
	return a.remote
}

func (a *app) close() {
	if a.influx != nil {
		a.influx.Close()
	}
	a.logger.Sync()
}
