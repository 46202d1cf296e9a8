// Package epochs defines the trial epoch data model for the motor-imagery
// pipeline. An epoch is one fixed-length trial: a waveform per channel,
// a binary class label, the patient it was recorded from and the trial
// start time within the recording session.
package epochs

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Label is the imagery class of a trial.
type Label int

const (
	Left  Label = 0
	Right Label = 1
)

func (l Label) String() string {
	switch l {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("label(%d)", int(l))
	}
}

// Epoch is one motor-imagery trial. All channel series share the same
// length and sample rate.
type Epoch struct {
	Patient  string               `json:"patient"`
	Trial    int                  `json:"trial"`
	Start    time.Time            `json:"start"`
	Label    Label                `json:"label"`
	Channels map[string][]float64 `json:"channels"`
}

// Validate checks the structural invariants of an epoch: at least one
// channel, equal series lengths across channels and a known label.
func (e *Epoch) Validate() error {
	if len(e.Channels) == 0 {
		return fmt.Errorf("epoch %s/%d: no channels", e.Patient, e.Trial)
	}
	if e.Label != Left && e.Label != Right {
		return fmt.Errorf("epoch %s/%d: unknown label %d", e.Patient, e.Trial, int(e.Label))
	}

	n := -1
	for name, series := range e.Channels {
		if len(series) == 0 {
			return fmt.Errorf("epoch %s/%d: channel %q is empty", e.Patient, e.Trial, name)
		}
		if n == -1 {
			n = len(series)
			continue
		}
		if len(series) != n {
			return fmt.Errorf("epoch %s/%d: channel %q has %d samples, want %d",
				e.Patient, e.Trial, name, len(series), n)
		}
	}
	return nil
}

// Samples returns the per-channel series length.
func (e *Epoch) Samples() int {
	for _, series := range e.Channels {
		return len(series)
	}
	return 0
}

// Channel returns the named series or an error when the channel is absent.
func (e *Epoch) Channel(name string) ([]float64, error) {
	series, ok := e.Channels[name]
	if !ok {
		return nil, fmt.Errorf("epoch %s/%d: missing channel %q", e.Patient, e.Trial, name)
	}
	return series, nil
}

// ReadFile loads epochs from a JSON-lines file, one epoch per line,
// validating each. The returned order is the file order, which defines
// the row order of every feature table built from these epochs.
func ReadFile(path string) ([]Epoch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open epoch file: %w", err)
	}
	defer f.Close()

	eps, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read epoch file %s: %w", path, err)
	}
	return eps, nil
}

// Read decodes JSON-lines epochs from r.
func Read(r io.Reader) ([]Epoch, error) {
	var eps []Epoch

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), 64<<20)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var e Epoch
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("line %d: decode epoch: %w", line, err)
		}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		eps = append(eps, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan epochs: %w", err)
	}
	return eps, nil
}
