// Package report writes training results to disk in the formats the
// analysis workflow consumes: a human-readable summary, CSV score and
// curve logs, and a JSON dump of everything.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"eeg-pipeline/internal/ml"

	"github.com/rs/zerolog/log"
)

// ModelResult holds the evaluation of one trained model.
type ModelResult struct {
	Name   string          `json:"name"`
	Params string          `json:"params,omitempty"`
	Train  ml.Scores       `json:"train"`
	Test   ml.Scores       `json:"test"`
	Curve  []ml.EpochStats `json:"curve,omitempty"`
}

// Results aggregates a training run.
type Results struct {
	TableName string        `json:"table_name"`
	Rows      int           `json:"rows"`
	Features  int           `json:"features"`
	Seed      int64         `json:"seed"`
	Models    []ModelResult `json:"models"`
}

// Reporter generates training reports.
type Reporter struct {
	results    *Results
	outputPath string
}

// NewReporter creates a new reporter.
func NewReporter(results *Results, outputPath string) *Reporter {
	return &Reporter{
		results:    results,
		outputPath: outputPath,
	}
}

// GenerateReport generates all report formats.
func (r *Reporter) GenerateReport() error {
	// Create output directory
	if err := os.MkdirAll(r.outputPath, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateSummary(); err != nil {
		return err
	}
	if err := r.generateScoresCSV(); err != nil {
		return err
	}
	if err := r.generateCurvesCSV(); err != nil {
		return err
	}
	if err := r.generateJSONReport(); err != nil {
		return err
	}
	return nil
}

// generateSummary generates a human-readable summary
func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, "training_summary.txt")
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "TRAINING RESULTS SUMMARY\n")
	fmt.Fprintf(file, "========================\n\n")
	fmt.Fprintf(file, "Feature Table: %s\n", r.results.TableName)
	fmt.Fprintf(file, "Trials: %d, Features: %d\n", r.results.Rows, r.results.Features)
	fmt.Fprintf(file, "Split Seed: %d\n\n", r.results.Seed)

	for _, m := range r.results.Models {
		fmt.Fprintf(file, "%s", m.Name)
		if m.Params != "" {
			fmt.Fprintf(file, " (%s)", m.Params)
		}
		fmt.Fprintf(file, "\n")
		fmt.Fprintf(file, "  Train: accuracy %.4f, F1 %.4f\n", m.Train.Accuracy, m.Train.F1)
		fmt.Fprintf(file, "  Test:  accuracy %.4f, F1 %.4f\n\n", m.Test.Accuracy, m.Test.F1)
	}

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return nil
}

// generateScoresCSV generates a CSV log of per-model scores
func (r *Reporter) generateScoresCSV() error {
	csvPath := filepath.Join(r.outputPath, "model_scores.csv")
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create score log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Model", "Params",
		"Train Accuracy", "Train F1", "Test Accuracy", "Test F1",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, m := range r.results.Models {
		record := []string{
			m.Name,
			m.Params,
			fmt.Sprintf("%.4f", m.Train.Accuracy),
			fmt.Sprintf("%.4f", m.Train.F1),
			fmt.Sprintf("%.4f", m.Test.Accuracy),
			fmt.Sprintf("%.4f", m.Test.F1),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	log.Info().Str("file", csvPath).Msg("Score log generated")
	return nil
}

// generateCurvesCSV generates a CSV of loss/accuracy training curves for
// the neural models.
func (r *Reporter) generateCurvesCSV() error {
	hasCurves := false
	for _, m := range r.results.Models {
		if len(m.Curve) > 0 {
			hasCurves = true
			break
		}
	}
	if !hasCurves {
		return nil
	}

	csvPath := filepath.Join(r.outputPath, "training_curves.csv")
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create curve log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"Model", "Epoch", "Loss", "Accuracy"}); err != nil {
		return err
	}
	for _, m := range r.results.Models {
		for _, e := range m.Curve {
			record := []string{
				m.Name,
				fmt.Sprintf("%d", e.Epoch),
				fmt.Sprintf("%.6f", e.Loss),
				fmt.Sprintf("%.4f", e.Accuracy),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	log.Info().Str("file", csvPath).Msg("Curve log generated")
	return nil
}

// generateJSONReport generates a JSON report with all data
func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, "training_results.json")

	report := map[string]interface{}{
		"results":      r.results,
		"generated_at": time.Now(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

// PrintSummary prints a summary to console
func (r *Reporter) PrintSummary() {
	fmt.Println("\n=== TRAINING RESULTS ===")
	fmt.Printf("Table: %s (%d trials, %d features)\n",
		r.results.TableName, r.results.Rows, r.results.Features)
	for _, m := range r.results.Models {
		name := m.Name
		if m.Params != "" {
			name = fmt.Sprintf("%s (%s)", m.Name, m.Params)
		}
		fmt.Printf("%-40s train acc %.4f / F1 %.4f | test acc %.4f / F1 %.4f\n",
			name, m.Train.Accuracy, m.Train.F1, m.Test.Accuracy, m.Test.F1)
	}
	fmt.Println("========================")
}
