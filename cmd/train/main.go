package main

import (
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"eeg-pipeline/internal/cfg"
	"eeg-pipeline/internal/epochs"
	"eeg-pipeline/internal/features"
	"eeg-pipeline/internal/metrics"
	"eeg-pipeline/internal/ml"
	"eeg-pipeline/internal/report"
	"eeg-pipeline/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Grid searched when -grid is set.
var (
	gridEstimators = []int{25, 50, 100, 200}
	gridRates      = []float64{0.1, 0.5, 1.0}
)

func main() {
	var (
		dataPath   = flag.String("data", "", "Path to data directory (overrides config)")
		tableName  = flag.String("table", "", "Feature table name (overrides config)")
		outputPath = flag.String("output", "", "Output directory for reports (overrides config)")
		seed       = flag.Int64("seed", 0, "Train/test split seed (overrides config)")
		models     = flag.String("models", "logreg,adaboost,mlp,conv", "Comma-separated models to train")
		grid       = flag.Bool("grid", false, "Grid-search AdaBoost hyperparameters with cross-validation")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	_ = godotenv.Load()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *dataPath != "" {
		config.DataPath = *dataPath
	}
	if *tableName != "" {
		config.TableName = *tableName
	}
	if *outputPath != "" {
		config.ReportPath = *outputPath
	}
	if *seed != 0 {
		config.Seed = *seed
	}
	if config.DataPath == "" {
		log.Fatal().Msg("Data path is required (flag -data or DATA_PATH)")
	}

	wanted := make(map[string]bool)
	for _, m := range strings.Split(*models, ",") {
		wanted[strings.TrimSpace(m)] = true
	}

	m := metrics.New()
	startMetricsServer(config.MetricsPort)

	store, err := storage.New(config.DataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	t, err := store.GetTable(config.TableName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load feature table")
	}

	ds, err := ml.FromTable(t, features.LabelColumn)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build dataset")
	}
	train, test, err := ds.Split(config.TestFraction, config.Seed)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to split dataset")
	}
	log.Info().
		Int("train", train.Len()).
		Int("test", test.Len()).
		Int("features", len(ds.FeatureNames)).
		Int64("seed", config.Seed).
		Msg("Dataset ready")

	results := &report.Results{
		TableName: config.TableName,
		Rows:      ds.Len(),
		Features:  len(ds.FeatureNames),
		Seed:      config.Seed,
	}

	if wanted["logreg"] {
		model := ml.NewLogisticRegression()
		if err := model.Fit(train.X, train.Y); err != nil {
			log.Fatal().Err(err).Msg("Logistic regression training failed")
		}
		results.Models = append(results.Models, evaluate("logistic regression", "", model, train, test))
		m.ModelsTrained.Inc()
	}

	if wanted["adaboost"] {
		if *grid {
			best, err := ml.GridSearchAdaBoost(train, gridEstimators, gridRates, config.CVFolds, config.Seed)
			if err != nil {
				log.Fatal().Err(err).Msg("AdaBoost grid search failed")
			}
			params := fmt.Sprintf("estimators=%d rate=%g cv_acc=%.4f", best.Estimators, best.LearningRate, best.CVAccuracy)
			results.Models = append(results.Models, evaluate("adaboost (grid search)", params, best.Model, train, test))
		} else {
			model := ml.NewAdaBoost(100, 0.5)
			if err := model.Fit(train.X, train.Y); err != nil {
				log.Fatal().Err(err).Msg("AdaBoost training failed")
			}
			results.Models = append(results.Models, evaluate("adaboost", "estimators=100 rate=0.5", model, train, test))
		}
		m.ModelsTrained.Inc()
	}

	if wanted["mlp"] || wanted["conv"] {
		eps, err := store.GetEpochs()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load epochs for the neural path")
		}

		if wanted["mlp"] {
			result, err := trainMLP(eps, config)
			if err != nil {
				log.Fatal().Err(err).Msg("MLP training failed")
			}
			results.Models = append(results.Models, result)
			m.ModelsTrained.Inc()
		}
		if wanted["conv"] {
			result, err := trainConv(eps, config)
			if err != nil {
				log.Fatal().Err(err).Msg("ConvNet training failed")
			}
			results.Models = append(results.Models, result)
			m.ModelsTrained.Inc()
		}
	}

	reporter := report.NewReporter(results, config.ReportPath)
	if err := reporter.GenerateReport(); err != nil {
		log.Error().Err(err).Msg("Failed to generate reports")
	}
	reporter.PrintSummary()

	log.Info().Str("output", config.ReportPath).Msg("Training completed")
}

// startMetricsServer exposes Prometheus metrics while the training run
// is in progress; the server dies with the process.
func startMetricsServer(port int) {
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("Metrics server failed")
		}
	}()
}

func evaluate(name, params string, model ml.Classifier, train, test *ml.Dataset) report.ModelResult {
	return report.ModelResult{
		Name:   name,
		Params: params,
		Train:  ml.Evaluate(ml.PredictAll(model, train.X), train.Y),
		Test:   ml.Evaluate(ml.PredictAll(model, test.X), test.Y),
	}
}

// trainMLP trains the feed-forward network on flattened raw waveforms.
func trainMLP(eps []epochs.Epoch, config cfg.Settings) (report.ModelResult, error) {
	ds, err := ml.BuildFlat(eps, config.Channels())
	if err != nil {
		return report.ModelResult{}, err
	}
	train, test, err := ds.Split(config.TestFraction, config.Seed)
	if err != nil {
		return report.ModelResult{}, err
	}

	model := ml.NewMLP(32, config.TrainEpochs, config.BatchSize, config.Seed)
	if err := model.Fit(train.X, train.Y); err != nil {
		return report.ModelResult{}, err
	}

	result := evaluate("mlp (raw waveforms)", fmt.Sprintf("hidden=32 epochs=%d batch=%d", config.TrainEpochs, config.BatchSize), model, train, test)
	result.Curve = model.History
	return result, nil
}

// trainConv trains the convolutional network on [time][channel] tensors.
func trainConv(eps []epochs.Epoch, config cfg.Settings) (report.ModelResult, error) {
	X, y, err := ml.BuildStacked(eps, config.Channels())
	if err != nil {
		return report.ModelResult{}, err
	}

	nTest := int(float64(len(X)) * config.TestFraction)
	if nTest == 0 || nTest == len(X) {
		return report.ModelResult{}, fmt.Errorf("cannot split %d tensors with test fraction %f", len(X), config.TestFraction)
	}
	idx := rand.New(rand.NewSource(config.Seed)).Perm(len(X))

	trainX, trainY := subsetTensors(X, y, idx[nTest:])
	testX, testY := subsetTensors(X, y, idx[:nTest])

	model := ml.NewConvNet(8, 25, config.TrainEpochs, config.BatchSize, config.Seed)
	if err := model.Fit(trainX, trainY); err != nil {
		return report.ModelResult{}, err
	}

	predict := func(X [][][]float64) []int {
		out := make([]int, len(X))
		for i := range X {
			out[i] = model.Predict(X[i])
		}
		return out
	}

	result := report.ModelResult{
		Name:   "convnet (raw waveforms)",
		Params: fmt.Sprintf("filters=8 kernel=25 epochs=%d batch=%d", config.TrainEpochs, config.BatchSize),
		Train:  ml.Evaluate(predict(trainX), trainY),
		Test:   ml.Evaluate(predict(testX), testY),
		Curve:  model.History,
	}
	return result, nil
}

func subsetTensors(X [][][]float64, y []int, idx []int) ([][][]float64, []int) {
	outX := make([][][]float64, 0, len(idx))
	outY := make([]int, 0, len(idx))
	for _, i := range idx {
		outX = append(outX, X[i])
		outY = append(outY, y[i])
	}
	return outX, outY
}
