package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eeg-pipeline/internal/ml"
)

func testResults() *Results {
	return &Results{
		TableName: "features",
		Rows:      120,
		Features:  24,
		Seed:      42,
		Models: []ModelResult{
			{
				Name:  "logistic regression",
				Train: ml.Scores{Accuracy: 0.9, F1: 0.89},
				Test:  ml.Scores{Accuracy: 0.8, F1: 0.78},
			},
			{
				Name:   "mlp (raw waveforms)",
				Params: "hidden=32 epochs=30 batch=16",
				Train:  ml.Scores{Accuracy: 0.95, F1: 0.94},
				Test:   ml.Scores{Accuracy: 0.75, F1: 0.7},
				Curve: []ml.EpochStats{
					{Epoch: 1, Loss: 0.69, Accuracy: 0.5},
					{Epoch: 2, Loss: 0.52, Accuracy: 0.7},
				},
			},
		},
	}
}

func TestGenerateReport(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "reports")
	reporter := NewReporter(testResults(), dir)

	if err := reporter.GenerateReport(); err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}

	for _, name := range []string{
		"training_summary.txt",
		"model_scores.csv",
		"training_curves.csv",
		"training_results.json",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected report file %s: %v", name, err)
		}
	}
}

func TestSummaryContent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reporter := NewReporter(testResults(), dir)
	if err := reporter.GenerateReport(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "training_summary.txt"))
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{"features", "logistic regression", "mlp (raw waveforms)", "0.8000"} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestScoresCSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reporter := NewReporter(testResults(), dir)
	if err := reporter.GenerateReport(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, "model_scores.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse score CSV: %v", err)
	}
	if len(records) != 3 { // header + 2 models
		t.Fatalf("expected 3 CSV records, got %d", len(records))
	}
	if records[1][0] != "logistic regression" {
		t.Errorf("unexpected first model row: %v", records[1])
	}
	if records[2][1] != "hidden=32 epochs=30 batch=16" {
		t.Errorf("unexpected params column: %v", records[2])
	}
}

func TestCurvesCSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reporter := NewReporter(testResults(), dir)
	if err := reporter.GenerateReport(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, "training_curves.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse curve CSV: %v", err)
	}
	if len(records) != 3 { // header + 2 curve entries
		t.Fatalf("expected 3 CSV records, got %d", len(records))
	}
	if records[1][0] != "mlp (raw waveforms)" || records[1][1] != "1" {
		t.Errorf("unexpected curve row: %v", records[1])
	}
}

func TestCurvesCSVSkippedWithoutCurves(t *testing.T) {
	t.Parallel()

	results := testResults()
	results.Models[1].Curve = nil

	dir := t.TempDir()
	reporter := NewReporter(results, dir)
	if err := reporter.GenerateReport(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, "training_curves.csv")); !os.IsNotExist(err) {
		t.Error("curve CSV should not be written when no model has a curve")
	}
}

func TestJSONReport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	reporter := NewReporter(testResults(), dir)
	if err := reporter.GenerateReport(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "training_results.json"))
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Results Results `json:"results"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to decode JSON report: %v", err)
	}
	if decoded.Results.TableName != "features" || decoded.Results.Seed != 42 {
		t.Errorf("unexpected decoded results: %+v", decoded.Results)
	}
	if len(decoded.Results.Models) != 2 {
		t.Fatalf("expected 2 models in JSON, got %d", len(decoded.Results.Models))
	}
	if len(decoded.Results.Models[1].Curve) != 2 {
		t.Errorf("expected the training curve to round-trip, got %+v", decoded.Results.Models[1].Curve)
	}
}
