package compose

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the compositor's Prometheus collectors. Collectors always
// exist; they are only exported when a registerer is supplied.
type metrics struct {
	frames           prometheus.Counter
	frameDuration    prometheus.Histogram
	nodesCulled      prometheus.Gauge
	nodesDrawn       prometheus.Gauge
	texturesResident prometheus.Gauge
	decodes          prometheus.Counter
	decodeFailures   prometheus.Counter
	syncBatches      prometheus.Counter
	nodeFailures     prometheus.Counter
}

func newMetrics() *metrics {
	return &metrics{
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "compose_frames_total",
			Help: "Frames rendered.",
		}),
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "compose_frame_duration_seconds",
			Help:    "Time spent in RenderFrame.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		nodesCulled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "compose_nodes_culled",
			Help: "Ready nodes outside the viewport in the last frame.",
		}),
		nodesDrawn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "compose_nodes_drawn",
			Help: "Nodes drawn in the last frame.",
		}),
		texturesResident: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "compose_textures_resident",
			Help: "Shared symbol textures held by the cache.",
		}),
		decodes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "compose_texture_decodes_total",
			Help: "Texture decodes finished.",
		}),
		decodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "compose_texture_decode_failures_total",
			Help: "Texture decodes that failed.",
		}),
		syncBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "compose_sync_batches_total",
			Help: "Change batches applied.",
		}),
		nodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "compose_node_failures_total",
			Help: "Nodes skipped or left unrenderable because of an error.",
		}),
	}
}

func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.frames, m.frameDuration, m.nodesCulled, m.nodesDrawn, m.texturesResident,
		m.decodes, m.decodeFailures, m.syncBatches, m.nodeFailures,
	}
}

// register exports the collectors on reg. On failure the collectors
// registered so far are removed again.
func (m *metrics) register(reg prometheus.Registerer) error {
	if reg == nil {
		return nil
	}
	for i, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			for _, done := range m.collectors()[:i] {
				reg.Unregister(done)
			}
			return fmt.Errorf("register metrics: %w", err)
		}
	}
	return nil
}

// unregister removes the collectors from reg.
func (m *metrics) unregister(reg prometheus.Registerer) {
	if reg == nil {
		return
	}
	for _, c := range m.collectors() {
		reg.Unregister(c)
	}
}

// observeDecode is the texture cache completion hook.
func (m *metrics) observeDecode(err error) {
	m.decodes.Inc()
	if err != nil {
		m.decodeFailures.Inc()
	}
}
