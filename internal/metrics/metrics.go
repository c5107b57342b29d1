package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "agrisense"

// Collector groups the session level instruments
type Collector struct {
	MessagesTotal    *prometheus.CounterVec
	ReconnectsTotal  prometheus.Counter
	ReconnectDelay   prometheus.Histogram
	ConnectionState  *prometheus.GaugeVec
	RangeQueries     *prometheus.CounterVec
	RemoteQueryError *prometheus.CounterVec
	CacheSize        prometheus.Gauge
	ActiveToasts     prometheus.Gauge
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		MessagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_messages_total",
				Help:      "Inbound push channel messages by classified kind",
			},
			[]string{"kind"},
		),
		ReconnectsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_reconnects_total",
			Help:      "Reconnect attempts scheduled after a lost connection",
		}),
		ReconnectDelay: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stream_reconnect_delay_seconds",
			Help:      "Backoff delay applied before each reconnect",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		}),
		ConnectionState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stream_connection_state",
				Help:      "1 for the current push channel state, 0 otherwise",
			},
			[]string{"state"},
		),
		RangeQueries: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "range_queries_total",
				Help:      "Resolved range queries by the source that answered",
			},
			[]string{"source"},
		),
		RemoteQueryError: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_query_errors_total",
				Help:      "Failed calls to the remote data service by endpoint",
			},
			[]string{"endpoint"},
		),
		CacheSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "readings_cache_size",
			Help:      "Samples held in the local readings cache",
		}),
		ActiveToasts: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_toasts",
			Help:      "Alert notifications currently on screen",
		}),
	}
}

// SetState marks current as the only active connection state
func (c *Collector) SetState(current string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		c.ConnectionState.WithLabelValues(s).Set(v)
	}
}
