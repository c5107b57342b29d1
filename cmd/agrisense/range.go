package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/models"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/readings"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/report"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/resolver"
)

func rangeCommand(args []string) error {
	fs := flag.NewFlagSet("range", flag.ExitOnError)
	sensor := fs.String("sensor", string(models.Temperature), "sensor key (TP, HM, UV, RN, MO, HI, Pump)")
	hours := fs.Int("hours", 24, "time window in hours (1, 6, 24 or 168)")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	key, err := models.ParseSensorKey(*sensor)
	if err != nil {
		return err
	}
	window, err := resolver.ParseWindow(*hours)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	if err := a.openHistory(ctx); err != nil {
		return err
	}

	// a one-shot run has no live feed, so the fallback tier holds the
	// most recent readings instead
	cache := readings.NewCache(readings.DefaultCapacity)
	if recent, err := a.remote.RecentReadings(ctx, readings.DefaultCapacity); err != nil {
		a.logger.Warn("Could not load recent readings", zap.Error(err))
	} else {
		cache.Replace(recent)
	}

	res := resolver.New(resolver.Config{
		Remote:  a.rangeSource(),
		Cache:   cache,
		Logger:  a.logger,
		Metrics: a.metrics,
	}).Resolve(ctx, key, window)

	if *asJSON {
		return writeJSON(os.Stdout, res)
	}
	if err := report.Render(os.Stdout, res); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
