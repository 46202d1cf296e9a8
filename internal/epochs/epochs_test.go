package epochs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validEpoch() Epoch {
	return Epoch{
		Patient: "P01",
		Trial:   1,
		Label:   Left,
		Channels: map[string][]float64{
			"C3": {1, 2, 3},
			"Cz": {4, 5, 6},
		},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Epoch)
		wantErr bool
	}{
		{
			name:   "valid epoch",
			mutate: func(e *Epoch) {},
		},
		{
			name:    "no channels",
			mutate:  func(e *Epoch) { e.Channels = nil },
			wantErr: true,
		},
		{
			name:    "empty channel",
			mutate:  func(e *Epoch) { e.Channels["C3"] = nil },
			wantErr: true,
		},
		{
			name:    "length mismatch",
			mutate:  func(e *Epoch) { e.Channels["Cz"] = []float64{1, 2} },
			wantErr: true,
		},
		{
			name:    "unknown label",
			mutate:  func(e *Epoch) { e.Label = Label(7) },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEpoch()
			tt.mutate(&e)
			err := e.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestLabelString(t *testing.T) {
	t.Parallel()
	if Left.String() != "left" || Right.String() != "right" {
		t.Errorf("unexpected label names: %s, %s", Left, Right)
	}
	if !strings.Contains(Label(3).String(), "3") {
		t.Errorf("unknown label should include its value, got %s", Label(3))
	}
}

func TestSamplesAndChannel(t *testing.T) {
	t.Parallel()
	e := validEpoch()

	if e.Samples() != 3 {
		t.Errorf("expected 3 samples, got %d", e.Samples())
	}

	series, err := e.Channel("C3")
	if err != nil {
		t.Fatalf("Channel failed: %v", err)
	}
	if len(series) != 3 || series[0] != 1 {
		t.Errorf("unexpected series: %v", series)
	}

	if _, err := e.Channel("EOG1"); err == nil {
		t.Error("expected error for missing channel")
	}
}

func TestRead(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		`{"patient":"P01","trial":1,"label":0,"channels":{"C3":[1,2],"Cz":[3,4]}}`,
		``,
		`{"patient":"P01","trial":2,"label":1,"channels":{"C3":[5,6],"Cz":[7,8]}}`,
		`{"patient":"P02","trial":1,"label":0,"channels":{"C3":[9,10],"Cz":[11,12]}}`,
	}, "\n")

	eps, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(eps) != 3 {
		t.Fatalf("expected 3 epochs, got %d", len(eps))
	}

	// File order is row order; it must be preserved exactly.
	if eps[0].Trial != 1 || eps[1].Trial != 2 || eps[2].Patient != "P02" {
		t.Errorf("epoch order not preserved: %+v", eps)
	}
	if eps[1].Label != Right {
		t.Errorf("expected label right, got %s", eps[1].Label)
	}
}

func TestReadRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"malformed json", `{"patient":`},
		{"bad label", `{"patient":"P01","trial":1,"label":5,"channels":{"C3":[1]}}`},
		{"ragged channels", `{"patient":"P01","trial":1,"label":0,"channels":{"C3":[1,2],"Cz":[1]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tt.input)); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "epochs.jsonl")
	content := `{"patient":"P01","trial":1,"label":0,"channels":{"C3":[1,2]}}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	eps, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(eps) != 1 || eps[0].Patient != "P01" {
		t.Errorf("unexpected epochs: %+v", eps)
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Error("expected error for missing file")
	}
}
