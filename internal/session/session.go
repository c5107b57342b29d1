// Package session owns the live state of one dashboard and routes push
// channel messages into it.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/bands"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/metrics"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/models"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/readings"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/resolver"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/ringbuffer"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/stream"
)

const (
	SparklinePoints = 20
	HistorySize     = 15
	AlertListSize   = 10
	ToastDuration   = 10 * time.Second

	// ChartWindow is the lookback a chart opens with
	ChartWindow resolver.Window = 24

	// initial load sizes
	bootstrapReadings = 200
	bootstrapAlerts   = 10
)

// SparklineKeys are the metrics that get a trend line
var SparklineKeys = []models.SensorKey{models.Temperature, models.Humidity, models.Moisture}

// Source serves the initial load
type Source interface {
	RecentReadings(ctx context.Context, limit int) ([]models.Sample, error)
	RecentAlerts(ctx context.Context, limit int) ([]models.Alert, error)
}

// Recorder archives live samples
type Recorder interface {
	WriteSample(models.Sample)
}

// Preferences are the user toggles the session honours
type Preferences struct {
	Sound bool
}

type Config struct {
	Cache         *readings.Cache
	// Resolver answers chart loads. Without one, charts come from Cache only.
	Resolver      *resolver.Resolver
	Presenter     Presenter
	Chime         Chime
	Recorder      Recorder
	Preferences   Preferences
	ToastDuration time.Duration
	Logger        *zap.Logger
	Metrics       *metrics.Collector
}

// Session holds every piece of dashboard state. All mutations run under one
// lock, so a message is fully applied before the next one starts. Presenter
// and Chime callbacks run under that lock too and must not call back into
// the Session.
type Session struct {
	mu sync.Mutex

	cache      *readings.Cache
	sparklines map[models.SensorKey]*ringbuffer.Ring[float64]
	history    *ringbuffer.Ring[models.Sample]
	alerts     *ringbuffer.Ring[models.Alert]
	toasts     []*toast
	chart      *resolver.View
	latest     *models.Sample
	status     string
	prefs      Preferences

	presenter Presenter
	chime     Chime
	recorder  Recorder
	toastTTL  time.Duration
	logger    *zap.Logger
	metrics   *metrics.Collector

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) stopper
}

func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := cfg.Cache
	if cache == nil {
		cache = readings.NewCache(readings.DefaultCapacity)
	}
	presenter := cfg.Presenter
	if presenter == nil {
		presenter = nopPresenter{}
	}
	chime := cfg.Chime
	if chime == nil {
		chime = nopChime{}
	}
	ttl := cfg.ToastDuration
	if ttl <= 0 {
		ttl = ToastDuration
	}

	s := &Session{
		cache:      cache,
		sparklines: make(map[models.SensorKey]*ringbuffer.Ring[float64], len(SparklineKeys)),
		history:    ringbuffer.New[models.Sample](HistorySize, ringbuffer.NewestFirst),
		alerts:     ringbuffer.New[models.Alert](AlertListSize, ringbuffer.NewestFirst),
		status:     stream.Disconnected.String(),
		prefs:      cfg.Preferences,
		presenter:  presenter,
		chime:      chime,
		recorder:   cfg.Recorder,
		toastTTL:   ttl,
		logger:     logger.With(zap.String("component", "session")),
		metrics:    cfg.Metrics,
		now:        time.Now,
		afterFunc:  afterFunc,
	}
	for _, key := range SparklineKeys {
		s.sparklines[key] = ringbuffer.New[float64](SparklinePoints, ringbuffer.OldestFirst)
	}

	res := cfg.Resolver
	if res == nil {
		res = resolver.New(resolver.Config{Cache: cache, Logger: logger, Metrics: cfg.Metrics})
	}
	s.chart = resolver.NewView(res, ChartWindow, s.showChart)
	return s
}

// Dispatch applies one classified message. It is the stream manager's
// message callback.
func (s *Session) Dispatch(msg stream.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch msg.Kind {
	case stream.KindSensor:
		if msg.Sample != nil {
			s.applySample(*msg.Sample)
		}
	case stream.KindAlert:
		if msg.Alert != nil {
			s.applyAlert(*msg.Alert)
		}
	case stream.KindAlertBacklog:
		// delivered newest first; replayed oldest first so the newest ends on top
		for i := len(msg.Backlog) - 1; i >= 0; i-- {
			s.alerts.Push(msg.Backlog[i])
		}
		s.logger.Debug("Alert backlog replayed", zap.Int("count", len(msg.Backlog)))
	}
}

func (s *Session) applySample(sample models.Sample) {
	sample = sample.Normalize(s.now())
	s.show(sample)
	s.pushSparklines(sample)
	s.history.Push(sample)
	s.cache.Append(sample)
	s.setCacheSize()
	if s.recorder != nil {
		s.recorder.WriteSample(sample)
	}
}

func (s *Session) show(sample models.Sample) {
	s.latest = &sample
	s.presenter.ShowReading(sample, bands.ForSample(sample))
}

func (s *Session) pushSparklines(sample models.Sample) {
	for key, ring := range s.sparklines {
		if v, ok := sample.Value(key); ok {
			ring.Push(v)
		}
	}
}

func (s *Session) applyAlert(alert models.Alert) {
	s.showToast(alert)
	s.alerts.Push(alert)
	if s.prefs.Sound {
		s.chime.Play(alert.Warning())
	}
}

// Bootstrap performs the initial load. Failures are logged and leave the
// session as it was; live updates work without it.
func (s *Session) Bootstrap(ctx context.Context, src Source) {
	samples, err := src.RecentReadings(ctx, bootstrapReadings)
	if err != nil {
		s.logger.Warn("Could not fetch initial readings", zap.Error(err))
	} else if len(samples) > 0 {
		s.seedReadings(samples)
		s.logger.Info("Loaded readings into cache", zap.Int("count", len(samples)))
	}

	alerts, err := src.RecentAlerts(ctx, bootstrapAlerts)
	if err != nil {
		s.logger.Warn("Could not fetch recent alerts", zap.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(alerts) - 1; i >= 0; i-- {
		s.alerts.Push(alerts[i])
	}
}

// seedReadings takes a chronological batch. When live samples arrived first
// they stay in place and on display; only older seeded samples are kept,
// ahead of them in the cache.
func (s *Session) seedReadings(samples []models.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for i := range samples {
		samples[i] = samples[i].Normalize(now)
	}

	if live := s.cache.Snapshot(); len(live) > 0 {
		merged := make([]models.Sample, 0, len(samples)+len(live))
		for _, sample := range samples {
			if sample.Timestamp.Before(live[0].Timestamp) {
				merged = append(merged, sample)
			}
		}
		s.cache.Replace(append(merged, live...))
		s.setCacheSize()
		s.logger.Debug("Initial readings merged behind live samples",
			zap.Int("seeded", len(merged)),
			zap.Int("live", len(live)),
		)
		return
	}

	s.cache.Replace(samples)
	s.setCacheSize()

	for _, sample := range tail(samples, HistorySize) {
		s.history.Push(sample)
	}
	for _, sample := range tail(samples, SparklinePoints) {
		s.pushSparklines(sample)
	}
	s.show(samples[len(samples)-1])
}

func (s *Session) setCacheSize() {
	if s.metrics != nil {
		s.metrics.CacheSize.Set(float64(s.cache.Len()))
	}
}

func afterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

func tail[T any](items []T, n int) []T {
	if len(items) > n {
		return items[len(items)-n:]
	}
	return items
}

// SetConnectionState records the status indicator. It is the stream
// manager's state callback.
func (s *Session) SetConnectionState(state stream.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = state.String()
	s.presenter.ShowStatus(s.status)
}

// SetSound toggles the audible alert cue
func (s *Session) SetSound(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.Sound = on
}

func (s *Session) Preferences() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// Cache exposes the readings cache for range query fallback
func (s *Session) Cache() *readings.Cache {
	return s.cache
}

// Sparklines returns the trend values per metric, oldest first
func (s *Session) Sparklines() map[models.SensorKey][]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[models.SensorKey][]float64, len(s.sparklines))
	for key, ring := range s.sparklines {
		out[key] = ring.Slice()
	}
	return out
}

// History returns the recent samples, newest first
func (s *Session) History() []models.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Slice()
}

// Alerts returns the visible alert list, newest first
func (s *Session) Alerts() []models.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alerts.Slice()
}

// Latest returns the sample currently on display
func (s *Session) Latest() (models.Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return models.Sample{}, false
	}
	return *s.latest, true
}

func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// OpenChart loads key over the chart's current window
func (s *Session) OpenChart(ctx context.Context, key models.SensorKey) (resolver.Result, bool) {
	return s.chart.Open(ctx, key)
}

// SelectChart shows key over w. It reports false when the selection was
// already on display or a newer selection superseded this load; Chart then
// holds what is shown.
func (s *Session) SelectChart(ctx context.Context, key models.SensorKey, w resolver.Window) (resolver.Result, bool) {
	return s.chart.Select(ctx, key, w)
}

// Chart returns the result on display, if a chart was opened
func (s *Session) Chart() (resolver.Result, bool) {
	return s.chart.Current()
}

// ChartSelection is the open metric and window
func (s *Session) ChartSelection() (models.SensorKey, resolver.Window) {
	return s.chart.Key(), s.chart.Window()
}

func (s *Session) showChart(res resolver.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presenter.ShowChart(res)
}
