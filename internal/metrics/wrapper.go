package metrics

// BuilderMetrics adapts Metrics to the counter interface the feature
// builder consumes.
type BuilderMetrics struct {
	m *Metrics
}

func NewBuilderMetrics(m *Metrics) *BuilderMetrics {
	return &BuilderMetrics{m: m}
}

func (b *BuilderMetrics) PSDCalculationsInc() { b.m.PSDCalculations.Inc() }

func (b *BuilderMetrics) NoPeaksInc() { b.m.NoPeaksTotal.Inc() }

func (b *BuilderMetrics) FitFailuresInc() { b.m.FitFailures.Inc() }

func (b *BuilderMetrics) FeatureErrorsInc() { b.m.FeatureErrors.Inc() }

func (b *BuilderMetrics) FitDurationObserve(v float64) { b.m.FitDuration.Observe(v) }
