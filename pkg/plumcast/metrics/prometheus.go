package metrics

import "github.com/prometheus/client_golang/prometheus"

// PrometheusRecorder implements Recorder with real Prometheus
// instrumentation, generalized from the teacher's go.mod dependency on
// prometheus/common (which the teacher itself never got around to
// wiring up — see DESIGN.md).
type PrometheusRecorder struct {
	activeView *prometheus.GaugeVec
	delivered  *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	inboxDrops *prometheus.CounterVec
	queueDepth *prometheus.GaugeVec
}

// NewPrometheusRecorder registers a family of plumcast_* metrics with reg
// and returns a Recorder backed by them.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		activeView: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "plumcast_active_view_size",
			Help: "Current HyParView active view size, by node.",
		}, []string{"node"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plumcast_messages_delivered_total",
			Help: "Broadcast messages delivered to the application, by node.",
		}, []string{"node"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plumcast_duplicate_gossip_total",
			Help: "Duplicate GOSSIP messages dropped, by node.",
		}, []string{"node"}),
		inboxDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plumcast_inbox_dropped_total",
			Help: "Inbound RPCs dropped due to a full inbox, by node.",
		}, []string{"node"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "plumcast_inbox_depth",
			Help: "Current per-node inbox queue depth.",
		}, []string{"node"}),
	}

	for _, c := range []prometheus.Collector{r.activeView, r.delivered, r.duplicates, r.inboxDrops, r.queueDepth} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *PrometheusRecorder) ActiveViewSize(node string, size int) {
	r.activeView.WithLabelValues(node).Set(float64(size))
}

func (r *PrometheusRecorder) MessageDelivered(node string) {
	r.delivered.WithLabelValues(node).Inc()
}

func (r *PrometheusRecorder) DuplicateDropped(node string) {
	r.duplicates.WithLabelValues(node).Inc()
}

func (r *PrometheusRecorder) InboxDropped(node string) {
	r.inboxDrops.WithLabelValues(node).Inc()
}

func (r *PrometheusRecorder) QueueDepth(node string, depth int) {
	r.queueDepth.WithLabelValues(node).Set(float64(depth))
}
