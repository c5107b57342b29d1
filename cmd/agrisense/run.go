package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/auth"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/handler"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/middleware"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/proxy"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/readings"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/resolver"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/session"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/stream"
)

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	port := fs.String("port", "", "status API port (overrides server.port)")
	quiet := fs.Bool("quiet", false, "do not ring the terminal bell on alerts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	cfg, logger := a.cfg, a.logger
	if *port != "" {
		cfg.Server.Port = *port
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.openHistory(ctx); err != nil {
		return err
	}

	cache := readings.NewCache(readings.DefaultCapacity)
	res := resolver.New(resolver.Config{
		Remote:  a.rangeSource(),
		Cache:   cache,
		Logger:  logger,
		Metrics: a.metrics,
	})

	sessionCfg := session.Config{
		Cache:       cache,
		Resolver:    res,
		Presenter:   session.LogPresenter{Logger: logger},
		Preferences: session.Preferences{Sound: cfg.Preferences.Sound},
		Logger:      logger,
		Metrics:     a.metrics,
	}
	if !*quiet {
		sessionCfg.Chime = &session.BellChime{W: os.Stdout}
	}
	if a.influx != nil {
		sessionCfg.Recorder = a.influx
	}
	sess := session.New(sessionCfg)

	manager := stream.NewManager(stream.Config{
		URL:       cfg.Upstream.WebsocketURL(),
		Backoff:   stream.Backoff{Base: cfg.Stream.BaseDelay, Max: cfg.Stream.MaxDelay},
		OnMessage: sess.Dispatch,
		OnState:   sess.SetConnectionState,
		Logger:    logger,
		Metrics:   a.metrics,
	})

	upstream, err := proxy.NewUpstreamProxy(cfg.Upstream.APIURL(), cfg.Upstream.RequestTimeout, a.upstreamToken, logger)
	if err != nil {
		return err
	}

	router := mux.NewRouter()
	router.Use(middleware.NewLoggingMiddleware(logger).LogRequest)
	router.Use(middleware.NewMetricsMiddleware(a.registry).CollectMetrics)
	var jwtManager *auth.JWTManager
	if cfg.JWT.SecretKey != "" {
		jwtManager = auth.NewJWTManager(cfg.JWT.SecretKey, time.Duration(cfg.JWT.ExpirationMinutes)*time.Minute)
	} else {
		logger.Warn("No JWT secret configured, status API is open")
	}
	authz := auth.NewAuthMiddleware(jwtManager, logger)
	router.Use(authz.Authenticate)

	router.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
	handler.NewDashboardHandler(sess, authz, logger).RegisterRoutes(router)
	handler.NewRangeHandler(res, logger).RegisterRoutes(router)
	handler.NewUpstreamHandler(upstream, logger).RegisterRoutes(router)

	var h http.Handler = middleware.NewCORSMiddleware(cfg.Server.AllowedOrigins, logger).EnableCORS(router)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(logger)),
		handlers.PrintRecoveryStack(true),
	)(h)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	// live samples that arrive first are kept; the initial load fills in behind them
	go func() {
		defer wg.Done()
		sess.Bootstrap(ctx, a.remote)
	}()
	go func() {
		defer wg.Done()
		if err := manager.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Stream manager stopped", zap.Error(err))
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting status API",
			zap.String("port", cfg.Server.Port),
			zap.String("upstream", cfg.Upstream.Host),
			zap.String("history_backend", cfg.History.Backend),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		stop()
		wg.Wait()
		return err
	}
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	wg.Wait()

	logger.Info("Server exited properly")
	return nil
}
