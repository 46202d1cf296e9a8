package ml

import (
	"fmt"

	"eeg-pipeline/internal/epochs"
)

// BuildFlat reshapes raw epochs into a flat design matrix: the channel
// waveforms of each trial are concatenated into one vector, in the given
// channel order. All epochs must share the same series length.
func BuildFlat(eps []epochs.Epoch, channels []string) (*Dataset, error) {
	if len(eps) == 0 {
		return nil, fmt.Errorf("no epochs to build tensors from")
	}

	samples := eps[0].Samples()
	ds := &Dataset{}
	for _, ch := range channels {
		for s := 0; s < samples; s++ {
			ds.FeatureNames = append(ds.FeatureNames, fmt.Sprintf("%s[%d]", ch, s))
		}
	}

	for i := range eps {
		if eps[i].Samples() != samples {
			return nil, fmt.Errorf("epoch %s/%d has %d samples, want %d",
				eps[i].Patient, eps[i].Trial, eps[i].Samples(), samples)
		}

		row := make([]float64, 0, len(channels)*samples)
		for _, ch := range channels {
			series, err := eps[i].Channel(ch)
			if err != nil {
				return nil, err
			}
			row = append(row, series...)
		}
		ds.X = append(ds.X, row)
		ds.Y = append(ds.Y, int(eps[i].Label))
	}
	return ds, nil
}

// BuildStacked reshapes raw epochs into [time][channel] tensors for the
// convolutional model, channels stacked as the trailing dimension.
func BuildStacked(eps []epochs.Epoch, channels []string) ([][][]float64, []int, error) {
	if len(eps) == 0 {
		return nil, nil, fmt.Errorf("no epochs to build tensors from")
	}

	samples := eps[0].Samples()
	X := make([][][]float64, 0, len(eps))
	y := make([]int, 0, len(eps))

	for i := range eps {
		if eps[i].Samples() != samples {
			return nil, nil, fmt.Errorf("epoch %s/%d has %d samples, want %d",
				eps[i].Patient, eps[i].Trial, eps[i].Samples(), samples)
		}

		tensor := make([][]float64, samples)
		for t := range tensor {
			tensor[t] = make([]float64, len(channels))
		}
		for c, ch := range channels {
			series, err := eps[i].Channel(ch)
			if err != nil {
				return nil, nil, err
			}
			for t, v := range series {
				tensor[t][c] = v
			}
		}
		X = append(X, tensor)
		y = append(y, int(eps[i].Label))
	}
	return X, y, nil
}
