package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"eeg-pipeline/internal/cfg"
	"eeg-pipeline/internal/dataset"
	"eeg-pipeline/internal/epochs"
	"eeg-pipeline/internal/features"
	"eeg-pipeline/internal/metrics"
	"eeg-pipeline/internal/storage"
	"eeg-pipeline/internal/table"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		dataPath   = flag.String("data", "", "Path to data directory (overrides config)")
		epochsFile = flag.String("epochs", "", "JSON-lines epoch file to import before extraction")
		fetchURL   = flag.String("fetch", "", "URL of a remote epoch dataset to import")
		tableName  = flag.String("table", "", "Name of the feature table to build (overrides config)")
		tableOut   = flag.String("out", "", "Optional path to also save the combined table as a flat file")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	// .env is optional; ignore a missing file
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
	if *fetchURL != "" {
		config.FetchURL = *fetchURL
	}
	if config.DataPath == "" {
		log.Fatal().Msg("Data path is required (flag -data or DATA_PATH)")
	}

	m := metrics.New()
	startMetricsServer(config.MetricsPort)

	store, err := storage.New(config.DataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	if config.FetchURL != "" {
		fetcher := dataset.NewFetcher(store, config.FetchTimeout)
		n, err := fetcher.Fetch(config.FetchURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to fetch dataset")
		}
		log.Info().Int("epochs", n).Str("url", config.FetchURL).Msg("Remote dataset imported")
	}

	if *epochsFile != "" {
		eps, err := epochs.ReadFile(*epochsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read epoch file")
		}
		if err := store.StoreEpochs(eps); err != nil {
			log.Fatal().Err(err).Msg("Failed to import epochs")
		}
		log.Info().Int("epochs", len(eps)).Str("file", *epochsFile).Msg("Epoch file imported")
	}

	eps, err := store.GetEpochs()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load epochs")
	}
	if len(eps) == 0 {
		log.Fatal().Msg("Store contains no epochs; import with -epochs or -fetch first")
	}
	m.EpochsLoaded.Add(float64(len(eps)))
	log.Info().Int("epochs", len(eps)).Msg("Epochs loaded")

	builder := features.NewBuilder(config, metrics.NewBuilderMetrics(m))

	// The fit loop over every trial and channel dominates runtime.
	log.Info().
		Int("channels", len(config.Channels())).
		Msg("Extracting spectral features")
	built, err := builder.BuildTable(eps, config.Channels())
	if err != nil {
		log.Fatal().Err(err).Msg("Feature extraction failed")
	}

	combined := built
	exists, err := store.HasTable(config.TableName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to check for existing table")
	}
	if exists {
		prev, err := store.GetTable(config.TableName)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load existing table")
		}

		// The previous table already carries the label column; merge
		// only the new feature columns onto it.
		fresh := built
		if prev.HasColumn(features.LabelColumn) {
			fresh = built.Without(features.LabelColumn)
		}
		fresh = dropOverlap(fresh, prev)

		combined, err = table.HConcat(prev, fresh)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to merge feature tables")
		}
		log.Info().
			Int("previous_cols", prev.NumCols()).
			Int("new_cols", fresh.NumCols()).
			Msg("Merged with existing table")
	}

	if err := store.StoreTable(config.TableName, combined); err != nil {
		log.Fatal().Err(err).Msg("Failed to persist feature table")
	}
	m.TablesStored.Inc()

	if *tableOut != "" {
		if err := combined.Save(*tableOut); err != nil {
			log.Fatal().Err(err).Msg("Failed to save table file")
		}
	}

	fmt.Printf("Feature table %q: %d trials x %d columns\n",
		config.TableName, combined.NumRows(), combined.NumCols())
	log.Info().
		Str("table", config.TableName).
		Int("rows", combined.NumRows()).
		Int("cols", combined.NumCols()).
		Msg("Extraction completed")
}

// startMetricsServer exposes Prometheus metrics while the extraction
// runs; the server dies with the process.
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

// dropOverlap removes columns that are already present in prev, so a
// re-run replaces nothing silently.
func dropOverlap(fresh, prev *table.Table) *table.Table {
	var dup []string
	for _, name := range fresh.Columns() {
		if prev.HasColumn(name) {
			dup = append(dup, name)
		}
	}
	if len(dup) == 0 {
		return fresh
	}
	log.Warn().Strs("columns", dup).Msg("Columns already present; keeping stored values")
	return fresh.Without(dup...)
}
