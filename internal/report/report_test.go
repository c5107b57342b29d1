package report

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/models"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/resolver"
)

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 7}, 10); got != "▁█" {
		t.Errorf("Sparkline = %q", got)
	}
	if got := Sparkline([]float64{3, 3, 3}, 10); got != "▅▅▅" {
		t.Errorf("flat Sparkline = %q", got)
	}
	long := make([]float64, 500)
	for i := range long {
		long[i] = float64(i)
	}
	got := Sparkline(long, 48)
	if n := utf8.RuneCountInString(got); n != 48 {
		t.Errorf("width = %d, want 48", n)
	}
	if !strings.HasPrefix(got, "▁") || !strings.HasSuffix(got, "█") {
		t.Errorf("downsampled Sparkline = %q", got)
	}
	if Sparkline(nil, 10) != "" {
		t.Error("empty series should draw nothing")
	}
}

func TestFormatNoData(t *testing.T) {
	out := Format(resolver.Result{Key: models.Moisture, Window: 24, Label: "Last 24 hours", Source: resolver.SourceNone})
	for _, want := range []string{"Soil Moisture", "Last 24 hours", "No data available for this time range"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatSeries(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	points := []models.Point{
		{Timestamp: base, Value: 20, Time: "10:00:00"},
		{Timestamp: base.Add(time.Minute), Value: 24, Time: "10:01:00"},
	}
	out := Format(resolver.Result{
		Key:    models.Temperature,
		Window: resolver.Week,
		Label:  resolver.Week.Label(),
		Source: resolver.SourceCache,
		Points: points,
		Stats:  resolver.ComputeStats(points),
	})
	for _, want := range []string{"Temperature", "Last 7 days", "22.0°C", "24.0°C", "2 points from cache", "10:01:00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
