// Package report renders range query results for the terminal.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/models"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/resolver"
)

type metric struct {
	Title string
	Unit  string
}

var metrics = map[models.SensorKey]metric{
	models.Temperature: {"Temperature", "°C"},
	models.Humidity:    {"Humidity", "%"},
	models.UVIndex:     {"UV Index", ""},
	models.Rainfall:    {"Rainfall", "%"},
	models.Moisture:    {"Soil Moisture", "%"},
	models.HeatIndex:   {"Heat Index", "°C"},
	models.Pump:        {"Pump", ""},
}

var (
	borderColor = lipgloss.AdaptiveColor{Light: "#555", Dark: "#555"}
	accent      = lipgloss.AdaptiveColor{Light: "#1f6feb", Dark: "#58a6ff"}
	muted       = lipgloss.AdaptiveColor{Light: "#6e7781", Dark: "#8b949e"}

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	mutedStyle = lipgloss.NewStyle().Foreground(muted)
	boxStyle   = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)
	statLabel = lipgloss.NewStyle().Foreground(muted).Width(8)
	statValue = lipgloss.NewStyle().Bold(true).Width(10).Align(lipgloss.Right)
)

const (
	sparkWidth = 48
	tableRows  = 10
)

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

// Render writes a styled summary of res to w
func Render(w io.Writer, res resolver.Result) error {
	_, err := io.WriteString(w, Format(res)+"\n")
	return err
}

// Format lays out the chart title, statistics, a sparkline and the most
// recent points
func Format(res resolver.Result) string {
	m, ok := metrics[res.Key]
	if !ok {
		m = metric{Title: string(res.Key)}
	}
	header := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(m.Title),
		mutedStyle.Render(res.Label),
	)

	if res.NoData() {
		return lipgloss.JoinVertical(lipgloss.Left,
			header,
			boxStyle.Render("No data available for this time range"),
		)
	}

	stats := lipgloss.JoinVertical(lipgloss.Left,
		statRow("Current", res.Stats.Current, m.Unit),
		statRow("Average", res.Stats.Average, m.Unit),
		statRow("Min", res.Stats.Min, m.Unit),
		statRow("Max", res.Stats.Max, m.Unit),
	)
	chart := lipgloss.JoinVertical(lipgloss.Left,
		Sparkline(values(res.Points), sparkWidth),
		mutedStyle.Render(fmt.Sprintf("%d points from %s", len(res.Points), res.Source)),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, boxStyle.Render(stats), boxStyle.Render(chart)),
		table(res.Points, m.Unit),
	)
}

func statRow(label string, v float64, unit string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		statLabel.Render(label),
		statValue.Render(fmt.Sprintf("%.1f%s", v, unit)),
	)
}

func table(points []models.Point, unit string) string {
	start := max(len(points)-tableRows, 0)
	var b strings.Builder
	for i := len(points) - 1; i >= start; i-- {
		p := points[i]
		label := p.Time
		if label == "" {
			label = p.Timestamp.Local().Format("Jan 02 15:04:05")
		}
		fmt.Fprintf(&b, "%-16s %8.1f%s\n", label, p.Value, unit)
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func values(points []models.Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// Sparkline draws vs as block characters, averaging buckets down to width
func Sparkline(vs []float64, width int) string {
	if len(vs) == 0 || width < 1 {
		return ""
	}
	if len(vs) > width {
		vs = downsample(vs, width)
	}
	lo, hi := vs[0], vs[0]
	for _, v := range vs {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	out := make([]rune, len(vs))
	for i, v := range vs {
		idx := len(sparkTicks) / 2
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkTicks)-1))
		}
		out[i] = sparkTicks[idx]
	}
	return string(out)
}

func downsample(vs []float64, width int) []float64 {
	out := make([]float64, width)
	for i := range out {
		from := i * len(vs) / width
		to := max((i+1)*len(vs)/width, from+1)
		var sum float64
		for _, v := range vs[from:to] {
			sum += v
		}
		out[i] = sum / float64(to-from)
	}
	return out
}
