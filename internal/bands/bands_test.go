package bands

import (
	"testing"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/models"
)

func TestStatusBoundaries(t *testing.T) {
	cases := []struct {
		name string
		fn   func(float64) Status
		v    float64
		want string
	}{
		{"temp cool edge", TemperatureStatus, 20, "Cool"},
		{"temp optimal", TemperatureStatus, 20.1, "Optimal"},
		{"temp warm edge", TemperatureStatus, 35, "Warm"},
		{"temp hot", TemperatureStatus, 35.5, "Hot"},
		{"hum dry", HumidityStatus, 30, "Dry"},
		{"hum humid", HumidityStatus, 80, "Humid"},
		{"hum very humid", HumidityStatus, 81, "Very Humid"},
		{"rain light", RainStatus, 50, "Light"},
		{"rain heavy", RainStatus, 90, "Heavy"},
		{"moist dry", MoistureStatus, 10, "Dry"},
		{"moist optimal", MoistureStatus, 70, "Optimal"},
		{"moist wet", MoistureStatus, 70.5, "Wet"},
	}
	for _, tc := range cases {
		if got := tc.fn(tc.v).Label; got != tc.want {
			t.Errorf("%s: %v -> %q, want %q", tc.name, tc.v, got, tc.want)
		}
	}
}

func TestUVStatus(t *testing.T) {
	g := UVStatus(6)
	if g.Label != "HIGH" || g.Color != Orange || g.Badge != BadgeWarning || !g.Alert {
		t.Fatalf("unexpected gauge for 6: %+v", g)
	}
	if g := UVStatus(5); g.Alert {
		t.Fatalf("uv 5 must not flag the card")
	}
	if g := UVStatus(22); g.Fill != 1 || g.Badge != BadgeDanger {
		t.Fatalf("expected capped fill and danger badge, got %+v", g)
	}
	if g := UVStatus(0); g.Label != "LOW" || g.Fill != 0 {
		t.Fatalf("unexpected gauge for 0: %+v", g)
	}
}

func TestHeatIndexAngle(t *testing.T) {
	for _, tc := range []struct{ hi, want float64 }{
		{10, -90}, {20, -90}, {35, 0}, {50, 90}, {60, 90},
	} {
		if got := HeatIndexAngle(tc.hi); got != tc.want {
			t.Errorf("HeatIndexAngle(%v) = %v, want %v", tc.hi, got, tc.want)
		}
	}
}

func TestForSampleSkipsAbsentMetrics(t *testing.T) {
	tp, uv := 30.0, 3.0
	readings := ForSample(models.Sample{Temperature: &tp, UVIndex: &uv})
	if len(readings) != 3 {
		t.Fatalf("expected TP, UV and pump readings, got %d", len(readings))
	}
	if readings[0].Key != models.Temperature || *readings[0].Percent != 50 {
		t.Fatalf("unexpected temperature reading %+v", readings[0])
	}
	if readings[1].UV == nil || readings[1].UV.Label != "MODERATE" {
		t.Fatalf("unexpected uv reading %+v", readings[1])
	}
	if p := readings[2]; p.Key != models.Pump || *p.PumpOn {
		t.Fatalf("expected pump off, got %+v", p)
	}
}
