package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docqa_query_duration_seconds",
			Help:    "Query processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"mode"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docqa_query_total",
			Help: "Total number of queries processed",
		},
		[]string{"status"},
	)

	RetrievalCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docqa_retrieval_candidates",
			Help:    "Number of above-threshold candidates per query",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		},
	)

	ProviderFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docqa_provider_fallbacks_total",
			Help: "Total generation fallbacks between providers",
		},
		[]string{"from", "to"},
	)

	ProviderAnswers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docqa_provider_answers_total",
			Help: "Answers produced per provider",
		},
		[]string{"provider"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docqa_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docqa_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	DocumentsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docqa_documents_ingested_total",
			Help: "Total documents ingested",
		},
		[]string{"format", "status"},
	)

	SegmentsStored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "docqa_segments_stored_total",
			Help: "Total segments written to the vector store",
		},
	)

	IngestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docqa_ingest_duration_seconds",
			Help:    "Document ingestion duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"format"},
	)
)

func Init() {
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryTotal)
	prometheus.MustRegister(RetrievalCandidates)
	prometheus.MustRegister(ProviderFallbacks)
	prometheus.MustRegister(ProviderAnswers)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(DocumentsIngested)
	prometheus.MustRegister(SegmentsStored)
	prometheus.MustRegister(IngestDuration)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
