package dsp

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// BandEnvelope band-passes x to [low, high] Hz and returns the
// instantaneous amplitude envelope of the band-limited signal.
//
// Both steps happen in one FFT pass: retaining only the positive-frequency
// bins inside the band (doubled) and zeroing the rest yields the analytic
// signal of the band-passed waveform, whose magnitude is the envelope.
func BandEnvelope(x []float64, fs, low, high float64) ([]float64, error) {
	n := len(x)
	if n == 0 {
		return nil, fmt.Errorf("band envelope: empty input")
	}
	if fs <= 0 {
		return nil, fmt.Errorf("band envelope: sample rate must be positive, got %f", fs)
	}
	if low <= 0 || high <= low {
		return nil, fmt.Errorf("band envelope: band must satisfy 0 < low < high, got [%f, %f]", low, high)
	}
	if high >= fs/2 {
		return nil, fmt.Errorf("band envelope: band edge %f at or above Nyquist %f", high, fs/2)
	}

	fft := fourier.NewCmplxFFT(n)
	seq := make([]complex128, n)
	for i, v := range x {
		seq[i] = complex(v, 0)
	}

	coeffs := make([]complex128, n)
	fft.Coefficients(coeffs, seq)

	binHz := fs / float64(n)
	for i := range coeffs {
		// Standard FFT ordering: indices above n/2 hold negative
		// frequencies, which the analytic signal discards entirely.
		if i > n/2 {
			coeffs[i] = 0
			continue
		}
		f := float64(i) * binHz
		switch {
		case f < low || f > high:
			coeffs[i] = 0
		case i != 0 && i != n/2:
			coeffs[i] *= 2
		}
	}

	analytic := make([]complex128, n)
	fft.Sequence(analytic, coeffs)

	env := make([]float64, n)
	scale := 1 / float64(n) // Sequence is unnormalized
	for i, c := range analytic {
		env[i] = math.Hypot(real(c)*scale, imag(c)*scale)
	}
	return env, nil
}

// Median returns the sample median. The median is preferred over the mean
// for envelope summaries because transient artifacts inflate the mean.
func Median(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
