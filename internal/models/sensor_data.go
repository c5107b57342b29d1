package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SensorKey is the short code a metric travels under on the wire
type SensorKey string

const (
	Temperature SensorKey = "TP"
	Humidity    SensorKey = "HM"
	UVIndex     SensorKey = "UV"
	Rainfall    SensorKey = "RN"
	Moisture    SensorKey = "MO"
	HeatIndex   SensorKey = "HI"
	Pump        SensorKey = "Pump"
)

// NumericKeys lists the float metrics of a Sample in display order
var NumericKeys = []SensorKey{Temperature, Humidity, UVIndex, Rainfall, Moisture, HeatIndex}

// ParseSensorKey validates a key coming from a URL or a flag
func ParseSensorKey(s string) (SensorKey, error) {
	switch k := SensorKey(s); k {
	case Temperature, Humidity, UVIndex, Rainfall, Moisture, HeatIndex, Pump:
		return k, nil
	}
	return "", fmt.Errorf("unknown sensor key %q", s)
}

// Sample is one snapshot of the field station. Metrics the station did not
// report are nil.
type Sample struct {
	Temperature *float64  `json:"TP,omitempty"`
	Humidity    *float64  `json:"HM,omitempty"`
	UVIndex     *float64  `json:"UV,omitempty"`
	Rainfall    *float64  `json:"RN,omitempty"`
	Moisture    *float64  `json:"MO,omitempty"`
	HeatIndex   *float64  `json:"HI,omitempty"`
	Pump        *int      `json:"Pump,omitempty"`
	Time        string    `json:"Time,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Value returns the metric stored under key, if the sample carries it
func (s Sample) Value(key SensorKey) (float64, bool) {
	var p *float64
	switch key {
	case Temperature:
		p = s.Temperature
	case Humidity:
		p = s.Humidity
	case UVIndex:
		p = s.UVIndex
	case Rainfall:
		p = s.Rainfall
	case Moisture:
		p = s.Moisture
	case HeatIndex:
		p = s.HeatIndex
	case Pump:
		if s.Pump == nil {
			return 0, false
		}
		return float64(*s.Pump), true
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// PumpOn reports whether the irrigation pump was running
func (s Sample) PumpOn() bool {
	return s.Pump != nil && *s.Pump == 1
}

// Normalize fills in the ingestion time when the station sent no timestamp
func (s Sample) Normalize(now time.Time) Sample {
	if s.Timestamp.IsZero() {
		s.Timestamp = now
	}
	return s
}

// UnmarshalJSON accepts the loose timestamp formats and boolean pump flags
// some firmware revisions send.
func (s *Sample) UnmarshalJSON(b []byte) error {
	type plain Sample
	var aux struct {
		plain
		Pump      json.RawMessage `json:"Pump,omitempty"`
		Timestamp json.RawMessage `json:"timestamp,omitempty"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*s = Sample(aux.plain)

	ts, err := ParseTimestamp(aux.Timestamp)
	if err != nil {
		return err
	}
	s.Timestamp = ts

	pump, err := parsePump(aux.Pump)
	if err != nil {
		return err
	}
	s.Pump = pump
	return nil
}

func parsePump(raw json.RawMessage) (*int, error) {
	if isNull(raw) {
		return nil, nil
	}
	var on bool
	if err := json.Unmarshal(raw, &on); err == nil {
		v := 0
		if on {
			v = 1
		}
		return &v, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("pump: %w", err)
	}
	v := int(n)
	return &v, nil
}

// Alert is a threshold notification pushed by the data service
type Alert struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	AlertUVHigh = "uv_high"
	AlertUVSafe = "uv_safe"
)

// Warning reports whether the alert signals a threshold being exceeded
// (as opposed to cleared)
func (a Alert) Warning() bool {
	return a.Type == AlertUVHigh
}

func (a *Alert) UnmarshalJSON(b []byte) error {
	type plain Alert
	var aux struct {
		plain
		Timestamp json.RawMessage `json:"timestamp,omitempty"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*a = Alert(aux.plain)
	ts, err := ParseTimestamp(aux.Timestamp)
	if err != nil {
		return err
	}
	a.Timestamp = ts
	return nil
}

// Point is one element of a single-metric series
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Time      string    `json:"time,omitempty"`
}

// rawPoint keeps value nullable so gaps in the upstream series can be dropped
type rawPoint struct {
	Timestamp json.RawMessage `json:"timestamp"`
	Value     *float64        `json:"value"`
	Time      string          `json:"time"`
}

// DecodeSeries decodes an upstream single-metric series, skipping points
// without a value.
func DecodeSeries(b []byte) ([]Point, error) {
	var raw []rawPoint
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	points := make([]Point, 0, len(raw))
	for _, r := range raw {
		if r.Value == nil {
			continue
		}
		ts, err := ParseTimestamp(r.Timestamp)
		if err != nil {
			return nil, err
		}
		points = append(points, Point{Timestamp: ts, Value: *r.Value, Time: r.Time})
	}
	return points, nil
}
