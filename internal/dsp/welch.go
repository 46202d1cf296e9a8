// Package dsp implements the spectral-estimation primitives used by the
// feature builder: Welch power-spectral-density estimation and the
// band-limited analytic amplitude envelope.
package dsp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// PSD is a one-sided power spectral density estimate. Freqs and Power
// always have equal length.
type PSD struct {
	Freqs []float64 // Hz
	Power []float64 // power per Hz
}

// Band returns the subset of the PSD with Low <= freq <= High.
func (p *PSD) Band(low, high float64) *PSD {
	out := &PSD{}
	for i, f := range p.Freqs {
		if f >= low && f <= high {
			out.Freqs = append(out.Freqs, f)
			out.Power = append(out.Power, p.Power[i])
		}
	}
	return out
}

// Welch estimates the PSD of x by averaging modified periodograms of
// Hann-windowed segments with 50% overlap. Averaging across overlapping
// windows trades frequency resolution for variance reduction, which keeps
// the downstream spectral fit stable on short trials.
//
// segLen is the segment length in samples; the feature builder passes
// 2x the sample rate, giving 0.5 Hz bins. When x is shorter than segLen
// a single full-length segment is used.
func Welch(x []float64, fs float64, segLen int) (*PSD, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("welch: empty input")
	}
	if fs <= 0 {
		return nil, fmt.Errorf("welch: sample rate must be positive, got %f", fs)
	}
	if segLen <= 0 {
		return nil, fmt.Errorf("welch: segment length must be positive, got %d", segLen)
	}
	if segLen > len(x) {
		segLen = len(x)
	}

	window := hann(segLen)
	var windowPower float64
	for _, w := range window {
		windowPower += w * w
	}

	fft := fourier.NewFFT(segLen)
	nBins := segLen/2 + 1
	psd := &PSD{
		Freqs: make([]float64, nBins),
		Power: make([]float64, nBins),
	}
	for i := range psd.Freqs {
		psd.Freqs[i] = fft.Freq(i) * fs
	}

	step := segLen / 2 // 50% overlap
	segment := make([]float64, segLen)
	coeffs := make([]complex128, nBins)
	var segments int

	for start := 0; start+segLen <= len(x); start += step {
		copy(segment, x[start:start+segLen])

		// Remove the segment mean so DC leakage does not swamp the
		// low-frequency bins.
		mean := floats.Sum(segment) / float64(segLen)
		for i := range segment {
			segment[i] = (segment[i] - mean) * window[i]
		}

		fft.Coefficients(coeffs, segment)
		for i, c := range coeffs {
			p := real(c)*real(c) + imag(c)*imag(c)
			// One-sided spectrum: double everything except DC and Nyquist.
			if i != 0 && i != nBins-1 {
				p *= 2
			}
			psd.Power[i] += p / (fs * windowPower)
		}
		segments++
	}

	if segments == 0 {
		return nil, fmt.Errorf("welch: input of %d samples yields no %d-sample segment", len(x), segLen)
	}
	for i := range psd.Power {
		psd.Power[i] /= float64(segments)
	}
	return psd, nil
}

func hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}
