package session

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/models"
)

// Toast is a transient alert notification
type Toast struct {
	ID      string       `json:"id"`
	Title   string       `json:"title"`
	Warning bool         `json:"warning"`
	Alert   models.Alert `json:"alert"`
	Shown   time.Time    `json:"shown"`
}

type stopper interface {
	Stop() bool
}

type toast struct {
	Toast
	timer stopper
}

func toastTitle(a models.Alert) string {
	if a.Warning() {
		return "UV HIGH ALERT"
	}
	return "UV SAFE"
}

// showToast must be called with s.mu held
func (s *Session) showToast(alert models.Alert) {
	t := &toast{Toast: Toast{
		ID:      uuid.New().String(),
		Title:   toastTitle(alert),
		Warning: alert.Warning(),
		Alert:   alert,
		Shown:   s.now(),
	}}
	id := t.ID
	t.timer = s.afterFunc(s.toastTTL, func() { s.DismissToast(id) })
	s.toasts = append(s.toasts, t)
	s.presenter.ShowToast(t.Toast)
	s.trackToasts()
}

// DismissToast removes a toast before or at its expiry. It reports whether
// the toast was still showing.
func (s *Session) DismissToast(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.toasts {
		if t.ID != id {
			continue
		}
		t.timer.Stop()
		s.toasts = append(s.toasts[:i], s.toasts[i+1:]...)
		s.presenter.HideToast(id)
		s.trackToasts()
		s.logger.Debug("Toast dismissed", zap.String("id", id))
		return true
	}
	return false
}

// Toasts returns the toasts on screen, oldest first
func (s *Session) Toasts() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Toast, len(s.toasts))
	for i, t := range s.toasts {
		out[i] = t.Toast
	}
	return out
}

func (s *Session) trackToasts() {
	if s.metrics != nil {
		s.metrics.ActiveToasts.Set(float64(len(s.toasts)))
	}
}
