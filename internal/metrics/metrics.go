// Package metrics provides Prometheus metrics collection for the
// motor-imagery feature pipeline. It counts pipeline progress (epochs
// loaded, spectra computed) and the data-quality events the analysis
// cares about: trials without a detectable alpha peak, spectral fits
// that failed to converge and feature computation errors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Data ingest
	EpochsLoaded prometheus.Counter // Epochs read from the store
	TablesStored prometheus.Counter // Feature tables persisted

	// Feature extraction
	PSDCalculations prometheus.Counter   // Welch PSD computations performed
	NoPeaksTotal    prometheus.Counter   // Trials/channels with no alpha peak (zero fallback)
	FitFailures     prometheus.Counter   // Spectral fits that failed to converge
	FeatureErrors   prometheus.Counter   // Feature computation errors
	FitDuration     prometheus.Histogram // Spectral fit duration in seconds

	// Training
	ModelsTrained prometheus.Counter // Classifier training runs completed
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		EpochsLoaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "epochs_loaded_total",
			Help: "Total number of trial epochs loaded from the store",
		}),
		TablesStored: factory.NewCounter(prometheus.CounterOpts{
			Name: "feature_tables_stored_total",
			Help: "Total number of feature tables persisted",
		}),
		PSDCalculations: factory.NewCounter(prometheus.CounterOpts{
			Name: "psd_calculations_total",
			Help: "Total number of Welch PSD computations performed",
		}),
		NoPeaksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "no_alpha_peak_total",
			Help: "Total number of trial/channel fits with no peak in the alpha band",
		}),
		FitFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "fit_failures_total",
			Help: "Total number of spectral fits that failed to converge",
		}),
		FeatureErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "feature_errors_total",
			Help: "Total number of feature calculation errors",
		}),
		FitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fit_duration_seconds",
			Help:    "Spectral decomposition fit duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		ModelsTrained: factory.NewCounter(prometheus.CounterOpts{
			Name: "models_trained_total",
			Help: "Total number of classifier training runs completed",
		}),
	}
}
