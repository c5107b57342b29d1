package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetStateIsExclusive(t *testing.T) {
	c := New(prometheus.NewRegistry())
	all := []string{"Disconnected", "Connecting", "Connected", "Error"}

	c.SetState("Connecting", all)
	c.SetState("Connected", all)

	for _, s := range all {
		want := 0.0
		if s == "Connected" {
			want = 1
		}
		if got := testutil.ToFloat64(c.ConnectionState.WithLabelValues(s)); got != want {
			t.Errorf("state %s = %v, want %v", s, got, want)
		}
	}
}

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	defer func() {
		if recover() == nil {
			t.Fatal("registering twice on one registry should panic")
		}
	}()
	New(reg)
}
