package resolver

import "github.com/canxphung/DA_CNPM_242/agrisense/internal/models"

// Stats summarise a resolved series
type Stats struct {
	Current float64 `json:"current"`
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// ComputeStats returns nil for an empty series
func ComputeStats(points []models.Point) *Stats {
	if len(points) == 0 {
		return nil
	}
	s := Stats{
		Current: points[len(points)-1].Value,
		Min:     points[0].Value,
		Max:     points[0].Value,
	}
	var sum float64
	for _, p := range points {
		sum += p.Value
		s.Min = min(s.Min, p.Value)
		s.Max = max(s.Max, p.Value)
	}
	s.Average = sum / float64(len(points))
	return &s
}
