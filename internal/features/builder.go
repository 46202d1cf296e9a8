// Package features turns trial epochs into scalar spectral features.
// For every (trial, channel) pair it computes the median alpha-band
// amplitude envelope and the parameters of the alpha peak found by the
// periodic/aperiodic spectral decomposition.
package features

import (
	"fmt"
	"time"

	"eeg-pipeline/internal/cfg"
	"eeg-pipeline/internal/dsp"
	"eeg-pipeline/internal/epochs"
	"eeg-pipeline/internal/specfit"
	"eeg-pipeline/internal/table"

	"github.com/rs/zerolog/log"
)

// Kind identifies one scalar feature type.
type Kind string

const (
	AlphaMedian Kind = "alpha_med" // median of the alpha-band amplitude envelope
	PeakCF      Kind = "peak_cf"   // alpha peak center frequency, Hz
	PeakPower   Kind = "peak_pw"   // alpha peak height over the aperiodic fit
	PeakBW      Kind = "peak_bw"   // alpha peak bandwidth, Hz
)

// Kinds lists every feature kind in column order.
var Kinds = []Kind{AlphaMedian, PeakCF, PeakPower, PeakBW}

// LabelColumn is the name of the class-label column in feature tables.
const LabelColumn = "label"

// ColumnName derives the table column name for a (channel, kind) pair.
func ColumnName(channel string, kind Kind) string {
	return channel + "_" + string(kind)
}

// MetricsInterface defines the counters the builder reports into.
type MetricsInterface interface {
	PSDCalculationsInc()
	NoPeaksInc()
	FitFailuresInc()
	FeatureErrorsInc()
	FitDurationObserve(float64)
}

// ChannelFeatures is the scalar feature record for one (trial, channel)
// pair. When no alpha peak is detected the peak triple is all zeros; a
// zero center frequency therefore means "no peak", not an oscillation at
// 0 Hz. This mirrors the upstream analysis and is tracked by the no-peak
// counter so the ambiguity stays visible.
type ChannelFeatures struct {
	Channel     string
	AlphaMedian float64
	PeakCF      float64
	PeakPower   float64
	PeakBW      float64
}

// Value returns the record field for a feature kind.
func (c ChannelFeatures) Value(kind Kind) float64 {
	switch kind {
	case AlphaMedian:
		return c.AlphaMedian
	case PeakCF:
		return c.PeakCF
	case PeakPower:
		return c.PeakPower
	case PeakBW:
		return c.PeakBW
	default:
		return 0
	}
}

// Builder computes spectral features under a fixed configuration.
type Builder struct {
	sampleRate float64
	segLen     int
	alpha      cfg.Band
	fit        specfit.Options
	metrics    MetricsInterface
}

// NewBuilder creates a builder from pipeline settings. metrics may be nil.
func NewBuilder(s cfg.Settings, metrics MetricsInterface) *Builder {
	return &Builder{
		sampleRate: s.SampleRate,
		segLen:     int(2 * s.SampleRate),
		alpha:      s.AlphaBand,
		fit: specfit.Options{
			Low:           s.FitRange.Low,
			High:          s.FitRange.High,
			PeakWidthMin:  s.PeakWidthMin,
			PeakWidthMax:  s.PeakWidthMax,
			MaxPeaks:      s.MaxPeaks,
			MinPeakHeight: s.MinPeakHeight,
		},
		metrics: metrics,
	}
}

// Extract computes the feature record for one channel of one epoch.
// It is a pure function of its inputs; the only side effects are metric
// counters and log output.
//
// A spectral fit that fails to converge yields the zero peak triple and
// increments the fit-failure counter instead of aborting the run.
func (b *Builder) Extract(e *epochs.Epoch, channel string) (ChannelFeatures, error) {
	series, err := e.Channel(channel)
	if err != nil {
		b.featureError()
		return ChannelFeatures{}, err
	}

	out := ChannelFeatures{Channel: channel}

	env, err := dsp.BandEnvelope(series, b.sampleRate, b.alpha.Low, b.alpha.High)
	if err != nil {
		b.featureError()
		return ChannelFeatures{}, fmt.Errorf("alpha envelope for %s/%d %s: %w", e.Patient, e.Trial, channel, err)
	}
	out.AlphaMedian = dsp.Median(env)

	psd, err := dsp.Welch(series, b.sampleRate, b.segLen)
	if err != nil {
		b.featureError()
		return ChannelFeatures{}, fmt.Errorf("psd for %s/%d %s: %w", e.Patient, e.Trial, channel, err)
	}
	if b.metrics != nil {
		b.metrics.PSDCalculationsInc()
	}

	started := time.Now()
	model, err := specfit.Fit(psd, b.fit)
	if b.metrics != nil {
		b.metrics.FitDurationObserve(time.Since(started).Seconds())
	}
	if err != nil {
		if b.metrics != nil {
			b.metrics.FitFailuresInc()
		}
		log.Warn().Err(err).
			Str("patient", e.Patient).
			Int("trial", e.Trial).
			Str("channel", channel).
			Msg("spectral fit failed, emitting zero peak")
		return out, nil
	}

	cf, pw, bw, found := b.alphaPeak(model.Peaks)
	if !found {
		if b.metrics != nil {
			b.metrics.NoPeaksInc()
		}
		return out, nil
	}
	out.PeakCF, out.PeakPower, out.PeakBW = cf, pw, bw
	return out, nil
}

// alphaPeak selects the fitted peaks whose center frequency lies strictly
// inside the alpha band and averages their parameters element-wise.
func (b *Builder) alphaPeak(peaks []specfit.Peak) (cf, pw, bw float64, found bool) {
	var n float64
	for _, p := range peaks {
		if p.CF > b.alpha.Low && p.CF < b.alpha.High {
			cf += p.CF
			pw += p.Height
			bw += p.Bandwidth
			n++
		}
	}
	if n == 0 {
		return 0, 0, 0, false
	}
	return cf / n, pw / n, bw / n, true
}

// BuildTable runs Extract over every epoch and channel and assembles the
// records into a feature table. Rows follow the epoch order; the label
// column is appended last.
func (b *Builder) BuildTable(eps []epochs.Epoch, channels []string) (*table.Table, error) {
	if len(eps) == 0 {
		return nil, fmt.Errorf("no epochs to extract features from")
	}

	records := make([][]ChannelFeatures, len(eps))
	for i := range eps {
		records[i] = make([]ChannelFeatures, len(channels))
		for j, ch := range channels {
			rec, err := b.Extract(&eps[i], ch)
			if err != nil {
				return nil, err
			}
			records[i][j] = rec
		}
	}

	t := table.New()
	for j, ch := range channels {
		for _, kind := range Kinds {
			col := make([]float64, len(eps))
			for i := range eps {
				col[i] = records[i][j].Value(kind)
			}
			if err := t.AddColumn(ColumnName(ch, kind), col); err != nil {
				return nil, err
			}
		}
	}

	labels := make([]float64, len(eps))
	for i := range eps {
		labels[i] = float64(eps[i].Label)
	}
	if err := t.AddColumn(LabelColumn, labels); err != nil {
		return nil, err
	}
	return t, nil
}

func (b *Builder) featureError() {
	if b.metrics != nil {
		b.metrics.FeatureErrorsInc()
	}
}
