// Package bands maps raw sensor values onto the labels, colors and gauge
// geometry the dashboard shows.
package bands

import (
	"math"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/models"
)

// Palette
const (
	Green  = "#3fb950"
	Blue   = "#58a6ff"
	Amber  = "#d29922"
	Orange = "#db6d28"
	Red    = "#f85149"
)

// Status is a named band with its display color
type Status struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

type threshold struct {
	upTo float64
	Status
}

// classify returns the first band whose upper bound holds v, or last
func classify(v float64, bands []threshold, last Status) Status {
	for _, b := range bands {
		if v <= b.upTo {
			return b.Status
		}
	}
	return last
}

func TemperatureStatus(v float64) Status {
	return classify(v, []threshold{
		{20, Status{"Cool", Blue}},
		{30, Status{"Optimal", Green}},
		{35, Status{"Warm", Amber}},
	}, Status{"Hot", Red})
}

func HumidityStatus(v float64) Status {
	return classify(v, []threshold{
		{30, Status{"Dry", Amber}},
		{60, Status{"Optimal", Green}},
		{80, Status{"Humid", Amber}},
	}, Status{"Very Humid", Red})
}

func RainStatus(v float64) Status {
	return classify(v, []threshold{
		{20, Status{"Dry", Green}},
		{50, Status{"Light", Blue}},
		{80, Status{"Raining", Amber}},
	}, Status{"Heavy", Red})
}

func MoistureStatus(v float64) Status {
	return classify(v, []threshold{
		{30, Status{"Dry", Red}},
		{50, Status{"Low", Amber}},
		{70, Status{"Optimal", Green}},
	}, Status{"Wet", Blue})
}

// Badge severities for the UV card
const (
	BadgeNone    = ""
	BadgeWarning = "warning"
	BadgeDanger  = "danger"
)

const maxUV = 11

// UVGauge is the ring gauge state for a UV reading
type UVGauge struct {
	Status
	Badge string  `json:"badge"`
	Fill  float64 `json:"fill"` // 0..1 share of the ring
	Alert bool    `json:"alert"`
}

func UVStatus(uv float64) UVGauge {
	var g UVGauge
	switch {
	case uv <= 2:
		g.Status, g.Badge = Status{"LOW", Green}, BadgeNone
	case uv <= 5:
		g.Status, g.Badge = Status{"MODERATE", Amber}, BadgeWarning
	case uv <= 7:
		g.Status, g.Badge = Status{"HIGH", Orange}, BadgeWarning
	default:
		g.Status, g.Badge = Status{"VERY HIGH", Red}, BadgeDanger
	}
	g.Fill = math.Min(uv/maxUV, 1)
	g.Alert = uv > 5
	return g
}

const (
	minHeatIndex = 20.0
	maxHeatIndex = 50.0
)

// HeatIndexAngle is the needle rotation in degrees, -90 at 20°C and below,
// +90 at 50°C and above.
func HeatIndexAngle(hi float64) float64 {
	clamped := math.Max(minHeatIndex, math.Min(maxHeatIndex, hi))
	return -90 + (clamped-minHeatIndex)/(maxHeatIndex-minHeatIndex)*180
}

// BarPercent is the fill of a metric bar, capped at 100
func BarPercent(v, limit float64) float64 {
	return math.Min(v/limit*100, 100)
}

// Scale maxima for the metric bars
var barMax = map[models.SensorKey]float64{
	models.Temperature: 60,
	models.Humidity:    100,
	models.Rainfall:    100,
	models.Moisture:    100,
}

// Reading is the derived display state of one metric
type Reading struct {
	Key     models.SensorKey `json:"key"`
	Value   float64          `json:"value"`
	Status  *Status          `json:"status,omitempty"`
	Percent *float64         `json:"percent,omitempty"`
	UV      *UVGauge         `json:"uv,omitempty"`
	Angle   *float64         `json:"angle,omitempty"`
	PumpOn  *bool            `json:"pump_on,omitempty"`
}

// ForSample derives the display state of every metric present in s. The
// pump always yields a reading, an absent flag shows as off.
func ForSample(s models.Sample) []Reading {
	var out []Reading
	for _, key := range models.NumericKeys {
		v, ok := s.Value(key)
		if !ok {
			continue
		}
		out = append(out, forValue(key, v))
	}
	on := s.PumpOn()
	pump := Reading{Key: models.Pump, PumpOn: &on}
	if on {
		pump.Value = 1
	}
	return append(out, pump)
}

func forValue(key models.SensorKey, v float64) Reading {
	r := Reading{Key: key, Value: v}
	var st Status
	switch key {
	case models.Temperature:
		st = TemperatureStatus(v)
	case models.Humidity:
		st = HumidityStatus(v)
	case models.Rainfall:
		st = RainStatus(v)
	case models.Moisture:
		st = MoistureStatus(v)
	case models.UVIndex:
		g := UVStatus(v)
		r.UV = &g
		return r
	case models.HeatIndex:
		a := HeatIndexAngle(v)
		r.Angle = &a
		return r
	}
	p := BarPercent(v, barMax[key])
	r.Status, r.Percent = &st, &p
	return r
}
