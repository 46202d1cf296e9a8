package specfit

import (
	"math"
	"testing"

	"eeg-pipeline/internal/dsp"
)

func defaultOptions() Options {
	return Options{
		Low:           1,
		High:          40,
		PeakWidthMin:  1,
		PeakWidthMax:  8,
		MaxPeaks:      6,
		MinPeakHeight: 0.4,
	}
}

// syntheticPSD builds a spectrum from known parameters: a 1/f^exponent
// background with Gaussian bumps in log10 power, on 0.5 Hz bins.
func syntheticPSD(offset, exponent float64, peaks []Peak) *dsp.PSD {
	psd := &dsp.PSD{}
	for f := 0.5; f <= 45; f += 0.5 {
		logP := offset - exponent*math.Log10(f)
		for _, p := range peaks {
			sigma := p.Bandwidth / 2
			d := (f - p.CF) / sigma
			logP += p.Height * math.Exp(-d*d/2)
		}
		psd.Freqs = append(psd.Freqs, f)
		psd.Power = append(psd.Power, math.Pow(10, logP))
	}
	return psd
}

func TestFitRecoversAlphaPeak(t *testing.T) {
	t.Parallel()

	truth := Peak{CF: 10, Height: 0.8, Bandwidth: 2.4}
	psd := syntheticPSD(-1, 1.2, []Peak{truth})

	model, err := Fit(psd, defaultOptions())
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if len(model.Peaks) == 0 {
		t.Fatal("expected at least one fitted peak")
	}

	// Find the fitted peak closest to 10 Hz.
	best := model.Peaks[0]
	for _, p := range model.Peaks {
		if math.Abs(p.CF-truth.CF) < math.Abs(best.CF-truth.CF) {
			best = p
		}
	}

	if math.Abs(best.CF-truth.CF) > 0.5 {
		t.Errorf("expected peak near %f Hz, got %f Hz", truth.CF, best.CF)
	}
	if math.Abs(best.Height-truth.Height) > 0.3 {
		t.Errorf("expected peak height near %f, got %f", truth.Height, best.Height)
	}
	if best.Bandwidth < 1 || best.Bandwidth > 8 {
		t.Errorf("fitted bandwidth %f outside configured bounds [1, 8]", best.Bandwidth)
	}

	if math.Abs(model.Aperiodic.Exponent-1.2) > 0.3 {
		t.Errorf("expected aperiodic exponent near 1.2, got %f", model.Aperiodic.Exponent)
	}
	if model.RSquared < 0.95 {
		t.Errorf("expected near-perfect fit on synthetic data, R^2 = %f", model.RSquared)
	}
}

func TestFitNoPeaks(t *testing.T) {
	t.Parallel()

	psd := syntheticPSD(-0.5, 1.0, nil)

	model, err := Fit(psd, defaultOptions())
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if len(model.Peaks) != 0 {
		t.Errorf("expected no peaks on a pure aperiodic spectrum, got %d", len(model.Peaks))
	}
	if math.Abs(model.Aperiodic.Exponent-1.0) > 0.1 {
		t.Errorf("expected aperiodic exponent near 1.0, got %f", model.Aperiodic.Exponent)
	}
	if math.Abs(model.Aperiodic.Offset+0.5) > 0.1 {
		t.Errorf("expected aperiodic offset near -0.5, got %f", model.Aperiodic.Offset)
	}
}

func TestFitIgnoresSubthresholdPeak(t *testing.T) {
	t.Parallel()

	// A bump below the height threshold must not be reported.
	psd := syntheticPSD(-1, 1.2, []Peak{{CF: 10, Height: 0.2, Bandwidth: 2.4}})

	model, err := Fit(psd, defaultOptions())
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	for _, p := range model.Peaks {
		if p.Height >= 0.4 {
			t.Errorf("unexpected peak %+v from sub-threshold bump", p)
		}
	}
}

func TestFitMultiplePeaksSorted(t *testing.T) {
	t.Parallel()

	truth := []Peak{
		{CF: 20, Height: 0.7, Bandwidth: 3},
		{CF: 10, Height: 0.9, Bandwidth: 2.4},
	}
	psd := syntheticPSD(-1, 1.2, truth)

	model, err := Fit(psd, defaultOptions())
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if len(model.Peaks) < 2 {
		t.Fatalf("expected 2 fitted peaks, got %d", len(model.Peaks))
	}
	for i := 1; i < len(model.Peaks); i++ {
		if model.Peaks[i].CF < model.Peaks[i-1].CF {
			t.Fatalf("peaks not sorted by center frequency: %+v", model.Peaks)
		}
	}
	if math.Abs(model.Peaks[0].CF-10) > 0.5 {
		t.Errorf("expected first peak near 10 Hz, got %f", model.Peaks[0].CF)
	}
}

func TestFitRespectsMaxPeaks(t *testing.T) {
	t.Parallel()

	truth := []Peak{
		{CF: 5, Height: 0.8, Bandwidth: 2},
		{CF: 10, Height: 0.8, Bandwidth: 2},
		{CF: 16, Height: 0.8, Bandwidth: 2},
		{CF: 24, Height: 0.8, Bandwidth: 2},
	}
	psd := syntheticPSD(-1, 1.0, truth)

	opts := defaultOptions()
	opts.MaxPeaks = 2
	model, err := Fit(psd, opts)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if len(model.Peaks) > 2 {
		t.Errorf("expected at most 2 peaks, got %d", len(model.Peaks))
	}
}

func TestFitErrors(t *testing.T) {
	t.Parallel()

	psd := syntheticPSD(-1, 1.0, nil)
	opts := defaultOptions()
	opts.Low, opts.High = 40, 1
	if _, err := Fit(psd, opts); err == nil {
		t.Error("expected error for inverted range")
	}

	// A range covering almost no bins cannot be fitted.
	opts = defaultOptions()
	opts.Low, opts.High = 1, 1.6
	if _, err := Fit(psd, opts); err == nil {
		t.Error("expected error for too few usable bins")
	}

	dead := &dsp.PSD{
		Freqs: []float64{1, 2, 3, 4, 5},
		Power: []float64{0, 0, 0, 0, 0},
	}
	if _, err := Fit(dead, defaultOptions()); err == nil {
		t.Error("expected error for all-zero spectrum")
	}
}

func TestHalfHeightSigma(t *testing.T) {
	t.Parallel()

	// Sample a known Gaussian and recover its sigma from the half-height
	// width.
	const sigma = 1.5
	var freqs, flat []float64
	imax := 0
	for f := 1.0; f <= 40; f += 0.5 {
		freqs = append(freqs, f)
		d := (f - 10) / sigma
		flat = append(flat, math.Exp(-d*d/2))
		if f == 10 {
			imax = len(freqs) - 1
		}
	}

	got := halfHeightSigma(freqs, flat, imax)
	if math.Abs(got-sigma) > 0.3 {
		t.Errorf("expected sigma near %f, got %f", sigma, got)
	}
}
