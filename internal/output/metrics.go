package output

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts interpreter activity. A nil *Metrics records nothing.
type Metrics struct {
	chunks prometheus.Counter
	lines  *prometheus.CounterVec
}

// NewMetrics creates the interpreter counters.
func NewMetrics() *Metrics {
	return &Metrics{
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "devspace_output_chunks_total",
			Help: "Output chunks received from the remote program",
		}),
		lines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devspace_output_lines_total",
			Help: "Output lines by result (applied, ignored, failed)",
		}, []string{"result"}),
	}
}

// Collectors returns the collectors to register.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.chunks, m.lines}
}

func (m *Metrics) observeChunk() {
	if m == nil {
		return
	}
	m.chunks.Inc()
}

func (m *Metrics) observeLine(r Result) {
	if m == nil {
		return
	}
	m.lines.WithLabelValues(string(r)).Inc()
}
