package ml

// Scores summarizes binary classification quality. F1 treats class 1
// (right imagery) as the positive class.
type Scores struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
}

// Evaluate compares predictions against ground truth. Both slices must
// have equal length; an empty input yields zero scores.
func Evaluate(pred, want []int) Scores {
	if len(pred) == 0 || len(pred) != len(want) {
		return Scores{}
	}

	var tp, fp, fn, correct int
	for i := range pred {
		if pred[i] == want[i] {
			correct++
		}
		switch {
		case pred[i] == 1 && want[i] == 1:
			tp++
		case pred[i] == 1 && want[i] == 0:
			fp++
		case pred[i] == 0 && want[i] == 1:
			fn++
		}
	}

	s := Scores{Accuracy: float64(correct) / float64(len(pred))}
	if tp+fp > 0 {
		s.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		s.Recall = float64(tp) / float64(tp+fn)
	}
	if s.Precision+s.Recall > 0 {
		s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
	return s
}
