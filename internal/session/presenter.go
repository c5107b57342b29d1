package session

import (
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/bands"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/models"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/resolver"
)

// Presenter receives every visible change of the session
type Presenter interface {
	ShowReading(sample models.Sample, readings []bands.Reading)
	ShowToast(t Toast)
	HideToast(id string)
	ShowStatus(status string)
	ShowChart(res resolver.Result)
}

// Chime plays the audible alert cue
type Chime interface {
	Play(warning bool)
}

type nopPresenter struct{}

func (nopPresenter) ShowReading(models.Sample, []bands.Reading) {}
func (nopPresenter) ShowToast(Toast)                            {}
func (nopPresenter) HideToast(string)                           {}
func (nopPresenter) ShowStatus(string)                          {}
func (nopPresenter) ShowChart(resolver.Result)                  {}

type nopChime struct{}

func (nopChime) Play(bool) {}

// LogPresenter renders session changes as structured log lines
type LogPresenter struct {
	Logger *zap.Logger
}

func (p LogPresenter) ShowReading(sample models.Sample, readings []bands.Reading) {
	fields := []zap.Field{zap.Time("timestamp", sample.Timestamp)}
	for _, r := range readings {
		switch {
		case r.Status != nil:
			fields = append(fields, zap.String(string(r.Key), r.Status.Label))
		case r.UV != nil:
			fields = append(fields, zap.String(string(r.Key), r.UV.Label))
		case r.PumpOn != nil:
			fields = append(fields, zap.Bool("pump_on", *r.PumpOn))
		default:
			fields = append(fields, zap.Float64(string(r.Key), r.Value))
		}
	}
	p.Logger.Info("Reading", fields...)
}

func (p LogPresenter) ShowToast(t Toast) {
	log := p.Logger.Info
	if t.Warning {
		log = p.Logger.Warn
	}
	log(t.Title,
		zap.String("toast_id", t.ID),
		zap.String("message", t.Alert.Message),
		zap.Time("timestamp", t.Alert.Timestamp),
	)
}

func (p LogPresenter) HideToast(id string) {
	p.Logger.Debug("Toast hidden", zap.String("toast_id", id))
}

func (p LogPresenter) ShowStatus(status string) {
	p.Logger.Info("Connection status", zap.String("status", status))
}

func (p LogPresenter) ShowChart(res resolver.Result) {
	fields := []zap.Field{
		zap.String("sensor", string(res.Key)),
		zap.String("range", res.Label),
		zap.String("source", string(res.Source)),
		zap.Int("points", len(res.Points)),
	}
	if res.Stats != nil {
		fields = append(fields,
			zap.Float64("current", res.Stats.Current),
			zap.Float64("average", res.Stats.Average),
			zap.Float64("min", res.Stats.Min),
			zap.Float64("max", res.Stats.Max),
		)
	}
	if res.NoData() {
		p.Logger.Info("No data available for this time range", fields...)
		return
	}
	p.Logger.Info("Chart", fields...)
}

// BellChime rings the terminal bell, twice for a warning
type BellChime struct {
	mu sync.Mutex
	W  io.Writer
}

func (c *BellChime) Play(warning bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cue := "\a"
	if warning {
		cue = "\a\a"
	}
	io.WriteString(c.W, cue)
}
