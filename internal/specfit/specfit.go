// Package specfit decomposes a power spectrum into a smooth aperiodic
// background and a small set of Gaussian oscillatory peaks, in the manner
// of spectral parameterization tools used for EEG analysis.
//
// The fit works in log10 power. The aperiodic component is a line in
// log-log space (offset and exponent). Peaks are extracted iteratively
// from the flattened spectrum and then refined jointly with a
// derivative-free minimizer.
package specfit

import (
	"fmt"
	"math"
	"sort"

	"eeg-pipeline/internal/dsp"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// Options constrains the decomposition.
type Options struct {
	Low, High     float64 // fit range in Hz
	PeakWidthMin  float64 // minimum peak FWHM in Hz
	PeakWidthMax  float64 // maximum peak FWHM in Hz
	MaxPeaks      int     // maximum number of extracted peaks
	MinPeakHeight float64 // minimum height over the aperiodic fit, log10 units
}

// Peak is one fitted oscillation.
type Peak struct {
	CF        float64 // center frequency, Hz
	Height    float64 // height over the aperiodic component, log10 power
	Bandwidth float64 // 2x the Gaussian standard deviation, Hz
}

// Aperiodic is the background component: offset - exponent*log10(f).
type Aperiodic struct {
	Offset   float64
	Exponent float64
}

func (a Aperiodic) at(logFreq float64) float64 {
	return a.Offset - a.Exponent*logFreq
}

// Model is a fitted decomposition. Peaks are ordered by center frequency.
type Model struct {
	Aperiodic Aperiodic
	Peaks     []Peak
	RSquared  float64
	Error     float64 // mean absolute error in log10 power
}

// aperiodic percentile threshold for the robust refit, matching the
// conventional 0.025 used by spectral parameterization implementations.
const apPercentile = 0.025

// Fit decomposes psd restricted to [opts.Low, opts.High].
// A fit that cannot be brought to convergence returns an error; the caller
// decides the fallback policy.
func Fit(psd *dsp.PSD, opts Options) (*Model, error) {
	if opts.High <= opts.Low {
		return nil, fmt.Errorf("specfit: invalid range [%f, %f]", opts.Low, opts.High)
	}

	band := psd.Band(opts.Low, opts.High)
	var logF, logP []float64
	var freqs []float64
	for i, f := range band.Freqs {
		if band.Power[i] <= 0 {
			continue // log-power undefined; skip dead bins
		}
		freqs = append(freqs, f)
		logF = append(logF, math.Log10(f))
		logP = append(logP, math.Log10(band.Power[i]))
	}
	if len(freqs) < 4 {
		return nil, fmt.Errorf("specfit: only %d usable bins in [%f, %f]", len(freqs), opts.Low, opts.High)
	}

	ap := fitAperiodicRobust(logF, logP)

	flat := make([]float64, len(logP))
	for i := range logP {
		flat[i] = logP[i] - ap.at(logF[i])
	}

	guesses := extractPeaks(freqs, flat, opts)
	peaks, err := refinePeaks(freqs, flat, guesses, opts)
	if err != nil {
		return nil, err
	}

	// Refit the aperiodic component on the peak-removed spectrum; the
	// initial fit is biased upward wherever peaks sit on it.
	peakless := make([]float64, len(logP))
	for i := range logP {
		peakless[i] = logP[i] - gaussSum(freqs[i], peaks)
	}
	ap = fitAperiodic(logF, peakless, nil)

	model := &Model{Aperiodic: ap, Peaks: peaks}
	model.score(logF, logP, freqs)
	return model, nil
}

func (m *Model) score(logF, logP, freqs []float64) {
	var sse, sae float64
	mean := stat.Mean(logP, nil)
	var sst float64
	for i := range logP {
		fit := m.Aperiodic.at(logF[i]) + gaussSum(freqs[i], m.Peaks)
		r := logP[i] - fit
		sse += r * r
		sae += math.Abs(r)
		d := logP[i] - mean
		sst += d * d
	}
	m.Error = sae / float64(len(logP))
	if sst > 0 {
		m.RSquared = 1 - sse/sst
	}
}

func gaussSum(f float64, peaks []Peak) float64 {
	var sum float64
	for _, p := range peaks {
		sigma := p.Bandwidth / 2
		if sigma <= 0 {
			continue
		}
		d := (f - p.CF) / sigma
		sum += p.Height * math.Exp(-d*d/2)
	}
	return sum
}

// fitAperiodic fits offset - exponent*log10(f) by least squares over the
// masked points (nil mask means all points).
func fitAperiodic(logF, logP []float64, mask []bool) Aperiodic {
	var xs, ys []float64
	if mask == nil {
		xs, ys = logF, logP
	} else {
		for i := range logF {
			if mask[i] {
				xs = append(xs, logF[i])
				ys = append(ys, logP[i])
			}
		}
		if len(xs) < 2 {
			xs, ys = logF, logP
		}
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return Aperiodic{Offset: alpha, Exponent: -beta}
}

// fitAperiodicRobust performs an initial fit, then refits using only the
// points that sit close to the background, so large peaks do not drag the
// line upward.
func fitAperiodicRobust(logF, logP []float64) Aperiodic {
	ap := fitAperiodic(logF, logP, nil)

	resid := make([]float64, len(logP))
	for i := range logP {
		r := logP[i] - ap.at(logF[i])
		if r < 0 {
			r = 0
		}
		resid[i] = r
	}
	sorted := make([]float64, len(resid))
	copy(sorted, resid)
	sort.Float64s(sorted)
	thresh := stat.Quantile(apPercentile, stat.Empirical, sorted, nil)

	mask := make([]bool, len(logP))
	for i := range resid {
		mask[i] = resid[i] <= thresh
	}
	return fitAperiodic(logF, logP, mask)
}

// extractPeaks pulls peak guesses off the flattened spectrum one at a
// time: take the maximum, estimate a Gaussian from its half-height width,
// subtract it and repeat until the next maximum drops below the height
// threshold or the peak budget is exhausted.
func extractPeaks(freqs, flat []float64, opts Options) []Peak {
	work := make([]float64, len(flat))
	copy(work, flat)

	sigmaMin := opts.PeakWidthMin / 2
	sigmaMax := opts.PeakWidthMax / 2

	var guesses []Peak
	for len(guesses) < opts.MaxPeaks {
		imax := 0
		for i := range work {
			if work[i] > work[imax] {
				imax = i
			}
		}
		height := work[imax]
		if height < opts.MinPeakHeight {
			break
		}

		sigma := halfHeightSigma(freqs, work, imax)
		if sigma < sigmaMin {
			sigma = sigmaMin
		}
		if sigma > sigmaMax {
			sigma = sigmaMax
		}

		p := Peak{CF: freqs[imax], Height: height, Bandwidth: 2 * sigma}
		guesses = append(guesses, p)

		for i := range work {
			d := (freqs[i] - p.CF) / sigma
			work[i] -= height * math.Exp(-d*d/2)
		}
	}
	return guesses
}

// halfHeightSigma estimates a Gaussian standard deviation from the
// distance between the half-height crossings around index imax. A side
// that never crosses half height is mirrored from the other.
func halfHeightSigma(freqs, flat []float64, imax int) float64 {
	half := flat[imax] / 2

	left, right := math.NaN(), math.NaN()
	for i := imax; i >= 0; i-- {
		if flat[i] < half {
			left = freqs[imax] - freqs[i]
			break
		}
	}
	for i := imax; i < len(flat); i++ {
		if flat[i] < half {
			right = freqs[i] - freqs[imax]
			break
		}
	}

	var fwhm float64
	switch {
	case !math.IsNaN(left) && !math.IsNaN(right):
		fwhm = left + right
	case !math.IsNaN(left):
		fwhm = 2 * left
	case !math.IsNaN(right):
		fwhm = 2 * right
	default:
		return 0
	}
	// FWHM of a Gaussian is 2*sqrt(2 ln 2)*sigma.
	return fwhm / 2.3548200450309493
}

// refinePeaks jointly refines the guessed Gaussians against the flattened
// spectrum with a derivative-free simplex search. Out-of-bound parameters
// are pushed back by a quadratic penalty.
func refinePeaks(freqs, flat []float64, guesses []Peak, opts Options) ([]Peak, error) {
	if len(guesses) == 0 {
		return nil, nil
	}

	sigmaMin := opts.PeakWidthMin / 2
	sigmaMax := opts.PeakWidthMax / 2

	x0 := make([]float64, 0, 3*len(guesses))
	for _, g := range guesses {
		x0 = append(x0, g.CF, g.Height, g.Bandwidth/2)
	}

	objective := func(x []float64) float64 {
		var penalty float64
		peaks := decodeParams(x)
		for _, p := range peaks {
			sigma := p.Bandwidth / 2
			penalty += boundPenalty(p.CF, opts.Low, opts.High)
			penalty += boundPenalty(sigma, sigmaMin, sigmaMax)
			if p.Height < 0 {
				penalty += p.Height * p.Height
			}
		}

		var sse float64
		for i := range freqs {
			r := flat[i] - gaussSum(freqs[i], peaks)
			sse += r * r
		}
		return sse + 100*penalty
	}

	problem := optimize.Problem{Func: objective}
	result, err := optimize.Minimize(problem, x0, &optimize.Settings{
		MajorIterations: 2000,
	}, &optimize.NelderMead{})
	if err != nil {
		return nil, fmt.Errorf("peak refinement did not converge: %w", err)
	}
	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("peak refinement produced a non-finite parameter")
		}
	}

	peaks := decodeParams(result.X)

	// Refinement can shrink a guess below the height threshold or push it
	// to the range edge; such peaks are artifacts of the joint fit.
	kept := peaks[:0]
	for _, p := range peaks {
		if p.Height >= opts.MinPeakHeight && p.CF > opts.Low && p.CF < opts.High {
			kept = append(kept, p)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].CF < kept[j].CF })
	return kept, nil
}

func decodeParams(x []float64) []Peak {
	peaks := make([]Peak, 0, len(x)/3)
	for i := 0; i+2 < len(x); i += 3 {
		peaks = append(peaks, Peak{CF: x[i], Height: x[i+1], Bandwidth: 2 * x[i+2]})
	}
	return peaks
}

func boundPenalty(v, low, high float64) float64 {
	if v < low {
		d := low - v
		return d * d
	}
	if v > high {
		d := v - high
		return d * d
	}
	return 0
}
