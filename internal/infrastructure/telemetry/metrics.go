package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Generation stages observed by GenerationMetrics
const (
	StageResolve = "resolve"
	StageEncode  = "encode"
	StageStore   = "store"
	StageMirror  = "mirror"
)

const metricsNamespace = "docgen"

// GenerationMetrics counts documents and times the generation pipeline.
// A nil *GenerationMetrics records nothing.
type GenerationMetrics struct {
	documents      *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	documentBytes  prometheus.Counter
	assetsEmbedded prometheus.Counter
	assetsMissing  prometheus.Counter
}

// NewGenerationMetrics creates the collectors and registers them on reg.
func NewGenerationMetrics(reg prometheus.Registerer) (*GenerationMetrics, error) {
	m := &GenerationMetrics{
		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "documents_total",
				Help:      "Documents generated, by document type and outcome.",
			},
			[]string{"document_type", "outcome"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each generation stage in seconds.",
				Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),
		documentBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "document_bytes_total",
			Help:      "Bytes of encoded documents written to storage.",
		}),
		assetsEmbedded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "assets_embedded_total",
			Help:      "Assets inlined into rendered documents.",
		}),
		assetsMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "assets_missing_total",
			Help:      "Asset records whose file could not be read.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.documents, m.stageDuration, m.documentBytes, m.assetsEmbedded, m.assetsMissing,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveDocument counts one generation attempt. An empty document type is
// recorded as "unknown".
func (m *GenerationMetrics) ObserveDocument(documentType string, success bool, size int) {
	if m == nil {
		return
	}
	if documentType == "" {
		documentType = "unknown"
	}
	outcome := "failure"
	if success {
		outcome = "success"
		m.documentBytes.Add(float64(size))
	}
	m.documents.WithLabelValues(documentType, outcome).Inc()
}

// ObserveStage records how long a stage took
func (m *GenerationMetrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// AddAssets records how many assets were inlined and how many were missing
func (m *GenerationMetrics) AddAssets(embedded, missing int) {
	if m == nil {
		return
	}
	m.assetsEmbedded.Add(float64(embedded))
	m.assetsMissing.Add(float64(missing))
}

// WriteTextfile dumps everything g gathers in the node-exporter textfile format.
// Used by the CLI, which exits before any scrape could happen.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
