package session

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/bands"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/models"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/resolver"
	"github.com/canxphung/DA_CNPM_242/agrisense/internal/stream"
)

func f(v float64) *float64 { return &v }

type recordingPresenter struct {
	mu       sync.Mutex
	readings []models.Sample
	shown    []Toast
	hidden   []string
	statuses []string
	charts   []resolver.Result
}

func (p *recordingPresenter) ShowReading(s models.Sample, _ []bands.Reading) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readings = append(p.readings, s)
}

func (p *recordingPresenter) ShowToast(t Toast) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown = append(p.shown, t)
}

func (p *recordingPresenter) HideToast(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hidden = append(p.hidden, id)
}

func (p *recordingPresenter) ShowStatus(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, s)
}

func (p *recordingPresenter) ShowChart(res resolver.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.charts = append(p.charts, res)
}

type countingChime struct {
	warnings, successes int
}

func (c *countingChime) Play(warning bool) {
	if warning {
		c.warnings++
	} else {
		c.successes++
	}
}

// fakeTimer captures the scheduled dismissal so tests can fire it
type fakeTimer struct {
	fire    func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func newTestSession(p Presenter, c Chime, sound bool) (*Session, *[]*fakeTimer) {
	s := New(Config{Presenter: p, Chime: c, Preferences: Preferences{Sound: sound}})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	timers := &[]*fakeTimer{}
	s.afterFunc = func(d time.Duration, fn func()) stopper {
		t := &fakeTimer{fire: fn}
		*timers = append(*timers, t)
		return t
	}
	return s, timers
}

func sensor(sample models.Sample) stream.Message {
	return stream.Message{Kind: stream.KindSensor, Sample: &sample}
}

func alert(typ, message string) stream.Message {
	return stream.Message{Kind: stream.KindAlert, Alert: &models.Alert{Type: typ, Message: message}}
}

func TestDispatchSensorUpdatesEveryView(t *testing.T) {
	p := &recordingPresenter{}
	s, _ := newTestSession(p, nil, false)

	s.Dispatch(sensor(models.Sample{Temperature: f(24), Moisture: f(41)}))

	latest, ok := s.Latest()
	if !ok || *latest.Temperature != 24 {
		t.Fatalf("latest not set: %+v", latest)
	}
	if latest.Timestamp.IsZero() {
		t.Error("missing timestamp was not defaulted")
	}
	if len(p.readings) != 1 {
		t.Errorf("presenter saw %d readings, want 1", len(p.readings))
	}

	spark := s.Sparklines()
	if len(spark[models.Temperature]) != 1 || len(spark[models.Moisture]) != 1 {
		t.Errorf("TP/MO sparklines not updated: %v", spark)
	}
	if len(spark[models.Humidity]) != 0 {
		t.Errorf("absent HM must leave its sparkline untouched: %v", spark[models.Humidity])
	}
	if got := len(s.History()); got != 1 {
		t.Errorf("history length = %d, want 1", got)
	}
	if got := s.Cache().Len(); got != 1 {
		t.Errorf("cache length = %d, want 1", got)
	}
}

func TestRingsStayBounded(t *testing.T) {
	s, _ := newTestSession(nil, nil, false)
	for i := 0; i < 40; i++ {
		s.Dispatch(sensor(models.Sample{Temperature: f(float64(i)), Humidity: f(50)}))
	}
	tp := s.Sparklines()[models.Temperature]
	if len(tp) != SparklinePoints || tp[0] != 20 || tp[len(tp)-1] != 39 {
		t.Fatalf("sparkline = %v", tp)
	}
	hist := s.History()
	if len(hist) != HistorySize || *hist[0].Temperature != 39 {
		t.Fatalf("history not newest first and capped: len %d", len(hist))
	}
}

func TestDispatchAlertShowsToastAndPlaysSound(t *testing.T) {
	p := &recordingPresenter{}
	c := &countingChime{}
	s, timers := newTestSession(p, c, true)

	s.Dispatch(alert(models.AlertUVHigh, "UV above 6"))
	s.Dispatch(alert(models.AlertUVSafe, "UV back to normal"))

	if c.warnings != 1 || c.successes != 1 {
		t.Errorf("chime = %+v, want one warning and one success", c)
	}
	toasts := s.Toasts()
	if len(toasts) != 2 || toasts[0].Title != "UV HIGH ALERT" || toasts[1].Title != "UV SAFE" {
		t.Fatalf("toasts = %+v", toasts)
	}
	alerts := s.Alerts()
	if len(alerts) != 2 || alerts[0].Message != "UV back to normal" {
		t.Fatalf("alert list not newest first: %+v", alerts)
	}

	// expiry removes the first toast
	(*timers)[0].fire()
	if got := s.Toasts(); len(got) != 1 || got[0].ID != toasts[1].ID {
		t.Fatalf("after expiry toasts = %+v", got)
	}

	// explicit dismissal stops the timer
	if !s.DismissToast(toasts[1].ID) {
		t.Fatal("dismiss reported toast missing")
	}
	if !(*timers)[1].stopped {
		t.Error("timer not stopped on dismiss")
	}
	if s.DismissToast(toasts[1].ID) {
		t.Error("second dismiss should report false")
	}
	if len(p.hidden) != 2 {
		t.Errorf("presenter hid %d toasts, want 2", len(p.hidden))
	}
}

func TestSoundPreferenceGatesChime(t *testing.T) {
	c := &countingChime{}
	s, _ := newTestSession(nil, c, false)
	s.Dispatch(alert(models.AlertUVHigh, "x"))
	if c.warnings != 0 {
		t.Fatal("chime played with sound disabled")
	}
	s.SetSound(true)
	s.Dispatch(alert(models.AlertUVHigh, "y"))
	if c.warnings != 1 {
		t.Fatal("chime not played after enabling sound")
	}
}

func TestAlertListKeepsTen(t *testing.T) {
	s, _ := newTestSession(nil, nil, false)
	for i := 0; i < 13; i++ {
		s.Dispatch(alert(models.AlertUVSafe, string(rune('a'+i))))
	}
	alerts := s.Alerts()
	if len(alerts) != AlertListSize || alerts[0].Message != "m" || alerts[9].Message != "d" {
		t.Fatalf("alerts = %+v", alerts)
	}
}

func TestBacklogReplaysOldestFirstWithoutToasts(t *testing.T) {
	p := &recordingPresenter{}
	c := &countingChime{}
	s, _ := newTestSession(p, c, true)

	s.Dispatch(stream.Message{Kind: stream.KindAlertBacklog, Backlog: []models.Alert{
		{Type: models.AlertUVHigh, Message: "newest"},
		{Type: models.AlertUVSafe, Message: "middle"},
		{Type: models.AlertUVHigh, Message: "oldest"},
	}})

	alerts := s.Alerts()
	if len(alerts) != 3 || alerts[0].Message != "newest" || alerts[2].Message != "oldest" {
		t.Fatalf("alerts = %+v", alerts)
	}
	if len(p.shown) != 0 || c.warnings+c.successes != 0 {
		t.Error("backlog must not toast or chime")
	}
}

func TestMalformedAndUnknownLeaveStateUntouched(t *testing.T) {
	s, _ := newTestSession(nil, nil, false)
	s.Dispatch(stream.Message{Kind: stream.KindMalformed, Err: errors.New("bad")})
	s.Dispatch(stream.Message{Kind: stream.KindUnknown, Type: "heartbeat"})
	if _, ok := s.Latest(); ok {
		t.Error("latest set by a non-sensor message")
	}
	if len(s.Alerts()) != 0 || s.Cache().Len() != 0 {
		t.Error("state changed by a non-actionable message")
	}
}

func TestSetConnectionState(t *testing.T) {
	p := &recordingPresenter{}
	s, _ := newTestSession(p, nil, false)
	if s.Status() != "Disconnected" {
		t.Fatalf("initial status = %q", s.Status())
	}
	s.SetConnectionState(stream.Connected)
	s.SetConnectionState(stream.Errored)
	if s.Status() != "Error" {
		t.Errorf("status = %q, want Error", s.Status())
	}
	if len(p.statuses) != 2 || p.statuses[0] != "Connected" {
		t.Errorf("presenter statuses = %v", p.statuses)
	}
}

type stubSource struct {
	samples    []models.Sample
	alerts     []models.Alert
	readingErr error
	limits     []int
}

func (s *stubSource) RecentReadings(_ context.Context, limit int) ([]models.Sample, error) {
	s.limits = append(s.limits, limit)
	return s.samples, s.readingErr
}

func (s *stubSource) RecentAlerts(_ context.Context, limit int) ([]models.Alert, error) {
	s.limits = append(s.limits, limit)
	return s.alerts, nil
}

func TestBootstrapSeedsSession(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var samples []models.Sample
	for i := 0; i < 30; i++ {
		samples = append(samples, models.Sample{
			Temperature: f(float64(i)),
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		})
	}
	src := &stubSource{
		samples: samples,
		alerts: []models.Alert{
			{Type: models.AlertUVSafe, Message: "newest"},
			{Type: models.AlertUVHigh, Message: "oldest"},
		},
	}
	p := &recordingPresenter{}
	s, _ := newTestSession(p, nil, false)
	s.Bootstrap(context.Background(), src)

	if len(src.limits) != 2 || src.limits[0] != 200 || src.limits[1] != 10 {
		t.Errorf("limits = %v, want [200 10]", src.limits)
	}
	if got := s.Cache().Len(); got != 30 {
		t.Errorf("cache length = %d, want 30", got)
	}
	hist := s.History()
	if len(hist) != HistorySize || *hist[0].Temperature != 29 || *hist[14].Temperature != 15 {
		t.Errorf("history not seeded newest first")
	}
	if tp := s.Sparklines()[models.Temperature]; len(tp) != 20 || tp[0] != 10 {
		t.Errorf("sparkline = %v", tp)
	}
	if latest, _ := s.Latest(); *latest.Temperature != 29 {
		t.Errorf("latest = %v, want 29", *latest.Temperature)
	}
	if alerts := s.Alerts(); len(alerts) != 2 || alerts[0].Message != "newest" {
		t.Errorf("alerts = %+v", alerts)
	}
}

func TestBootstrapFailureIsNotFatal(t *testing.T) {
	s, _ := newTestSession(nil, nil, false)
	s.Bootstrap(context.Background(), &stubSource{readingErr: errors.New("unreachable")})
	if s.Cache().Len() != 0 {
		t.Error("cache seeded despite failure")
	}
}

func TestBellChime(t *testing.T) {
	var buf bytes.Buffer
	c := &BellChime{W: &buf}
	c.Play(true)
	c.Play(false)
	if buf.String() != "\a\a\a" {
		t.Fatalf("bell output = %q", buf.String())
	}
}

type sliceRecorder struct{ samples []models.Sample }

func (r *sliceRecorder) WriteSample(s models.Sample) { r.samples = append(r.samples, s) }

func TestLiveSamplesAreArchived(t *testing.T) {
	rec := &sliceRecorder{}
	s := New(Config{Recorder: rec})
	s.Dispatch(sensor(models.Sample{Rainfall: f(12)}))
	s.Bootstrap(context.Background(), &stubSource{samples: []models.Sample{{Rainfall: f(3)}}})
	if len(rec.samples) != 1 || *rec.samples[0].Rainfall != 12 {
		t.Fatalf("archived %+v, want only the live sample", rec.samples)
	}
}

func TestBootstrapKeepsLiveSamples(t *testing.T) {
	p := &recordingPresenter{}
	s, _ := newTestSession(p, nil, false)
	s.Dispatch(sensor(models.Sample{Temperature: f(99)}))

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var samples []models.Sample
	for i := 0; i < 30; i++ {
		samples = append(samples, models.Sample{
			Temperature: f(float64(i)),
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		})
	}
	// stamped after the live sample, so already superseded by it
	samples = append(samples, models.Sample{Temperature: f(-1), Timestamp: base.Add(13 * time.Hour)})
	s.Bootstrap(context.Background(), &stubSource{samples: samples})

	cached := s.Cache().Snapshot()
	if len(cached) != 31 || *cached[30].Temperature != 99 || *cached[0].Temperature != 0 {
		t.Fatalf("cache holds %d samples, last %v", len(cached), *cached[len(cached)-1].Temperature)
	}
	if latest, _ := s.Latest(); *latest.Temperature != 99 {
		t.Errorf("latest = %v, want the live 99", *latest.Temperature)
	}
	if hist := s.History(); len(hist) != 1 {
		t.Errorf("history has %d entries, want only the live one", len(hist))
	}
	if len(p.readings) != 1 {
		t.Errorf("presenter shown %d readings, want 1", len(p.readings))
	}
}

func TestChartFallsBackToCacheAndIsPresented(t *testing.T) {
	p := &recordingPresenter{}
	s := New(Config{Presenter: p})
	s.Dispatch(sensor(models.Sample{Humidity: f(64), Timestamp: time.Now().Add(-2 * time.Hour)}))

	if key, w := s.ChartSelection(); key != "" || w != ChartWindow {
		t.Fatalf("initial selection = %q/%d", key, w)
	}
	if _, ok := s.Chart(); ok {
		t.Fatal("chart shown before opening")
	}

	res, ok := s.OpenChart(context.Background(), models.Humidity)
	if !ok || res.Source != resolver.SourceCache || len(res.Points) != 1 {
		t.Fatalf("open = %+v, applied %v", res, ok)
	}
	res, ok = s.SelectChart(context.Background(), models.Humidity, 1)
	if !ok || !res.NoData() || res.Stats != nil {
		t.Fatalf("1h window = %+v, applied %v", res, ok)
	}
	if _, ok := s.SelectChart(context.Background(), models.Humidity, 1); ok {
		t.Error("same selection reloaded")
	}

	if len(p.charts) != 2 || p.charts[1].Label != "Last 1 hour" {
		t.Errorf("presenter charts = %+v", p.charts)
	}
	if cur, _ := s.Chart(); cur.Window != 1 {
		t.Errorf("chart window = %d", cur.Window)
	}
}
