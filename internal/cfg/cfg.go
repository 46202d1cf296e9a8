package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	SampleRate    float64
	EEGChannels   []string
	EOGChannels   []string
	AlphaBand     Band
	FitRange      Band
	PeakWidthMin  float64
	PeakWidthMax  float64
	MaxPeaks      int
	MinPeakHeight float64
	DataPath      string
	TableName     string
	ReportPath    string
	FetchURL      string
	FetchTimeout  time.Duration
	Seed          int64
	TestFraction  float64
	CVFolds       int
	TrainEpochs   int
	BatchSize     int
	MetricsPort   int
}

// Band is an inclusive frequency range in Hz.
type Band struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

type ConfigFile struct {
	Signal struct {
		SampleRate  float64  `yaml:"sampleRate"`
		EEGChannels []string `yaml:"eegChannels"`
		EOGChannels []string `yaml:"eogChannels"`
	} `yaml:"signal"`

	Features struct {
		AlphaBand Band `yaml:"alphaBand"`
	} `yaml:"features"`

	Fit struct {
		Range         Band    `yaml:"range"`
		PeakWidthMin  float64 `yaml:"peakWidthMin"`
		PeakWidthMax  float64 `yaml:"peakWidthMax"`
		MaxPeaks      int     `yaml:"maxPeaks"`
		MinPeakHeight float64 `yaml:"minPeakHeight"`
	} `yaml:"fit"`

	Training struct {
		Seed         int64   `yaml:"seed"`
		TestFraction float64 `yaml:"testFraction"`
		CVFolds      int     `yaml:"cvFolds"`
		TrainEpochs  int     `yaml:"trainEpochs"`
		BatchSize    int     `yaml:"batchSize"`
	} `yaml:"training"`

	System struct {
		DataPath     string `yaml:"dataPath"`
		TableName    string `yaml:"tableName"`
		ReportPath   string `yaml:"reportPath"`
		FetchURL     string `yaml:"fetchURL"`
		FetchTimeout string `yaml:"fetchTimeout"`
		MetricsPort  int    `yaml:"metricsPort"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	fetchTimeout, err := time.ParseDuration(config.System.FetchTimeout)
	if err != nil {
		fetchTimeout = 30 * time.Second
	}

	settings := defaults()
	if config.Signal.SampleRate > 0 {
		settings.SampleRate = config.Signal.SampleRate
	}
	if len(config.Signal.EEGChannels) > 0 {
		settings.EEGChannels = config.Signal.EEGChannels
	}
	if len(config.Signal.EOGChannels) > 0 {
		settings.EOGChannels = config.Signal.EOGChannels
	}
	if config.Features.AlphaBand != (Band{}) {
		settings.AlphaBand = config.Features.AlphaBand
	}
	if config.Fit.Range != (Band{}) {
		settings.FitRange = config.Fit.Range
	}
	if config.Fit.PeakWidthMin > 0 {
		settings.PeakWidthMin = config.Fit.PeakWidthMin
	}
	if config.Fit.PeakWidthMax > 0 {
		settings.PeakWidthMax = config.Fit.PeakWidthMax
	}
	if config.Fit.MaxPeaks > 0 {
		settings.MaxPeaks = config.Fit.MaxPeaks
	}
	if config.Fit.MinPeakHeight > 0 {
		settings.MinPeakHeight = config.Fit.MinPeakHeight
	}
	if config.Training.Seed != 0 {
		settings.Seed = config.Training.Seed
	}
	if config.Training.TestFraction > 0 {
		settings.TestFraction = config.Training.TestFraction
	}
	if config.Training.CVFolds > 0 {
		settings.CVFolds = config.Training.CVFolds
	}
	if config.Training.TrainEpochs > 0 {
		settings.TrainEpochs = config.Training.TrainEpochs
	}
	if config.Training.BatchSize > 0 {
		settings.BatchSize = config.Training.BatchSize
	}
	if config.System.MetricsPort != 0 {
		settings.MetricsPort = config.System.MetricsPort
	}
	settings.DataPath = getEnvOrDefault("DATA_PATH", config.System.DataPath)
	settings.TableName = getEnvOrDefault("TABLE_NAME", orDefault(config.System.TableName, settings.TableName))
	settings.ReportPath = getEnvOrDefault("REPORT_PATH", orDefault(config.System.ReportPath, settings.ReportPath))
	settings.FetchURL = getEnvOrDefault("FETCH_URL", config.System.FetchURL)
	settings.FetchTimeout = fetchTimeout

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := defaults()
	settings.SampleRate = getFloatOrDefault("SAMPLE_RATE", settings.SampleRate)
	settings.EEGChannels = splitOrDefault(os.Getenv("EEG_CHANNELS"), settings.EEGChannels)
	settings.EOGChannels = splitOrDefault(os.Getenv("EOG_CHANNELS"), settings.EOGChannels)
	settings.AlphaBand.Low = getFloatOrDefault("ALPHA_LOW", settings.AlphaBand.Low)
	settings.AlphaBand.High = getFloatOrDefault("ALPHA_HIGH", settings.AlphaBand.High)
	settings.FitRange.Low = getFloatOrDefault("FIT_LOW", settings.FitRange.Low)
	settings.FitRange.High = getFloatOrDefault("FIT_HIGH", settings.FitRange.High)
	settings.PeakWidthMin = getFloatOrDefault("PEAK_WIDTH_MIN", settings.PeakWidthMin)
	settings.PeakWidthMax = getFloatOrDefault("PEAK_WIDTH_MAX", settings.PeakWidthMax)
	settings.MaxPeaks = getIntOrDefault("MAX_PEAKS", settings.MaxPeaks)
	settings.MinPeakHeight = getFloatOrDefault("MIN_PEAK_HEIGHT", settings.MinPeakHeight)
	settings.DataPath = os.Getenv("DATA_PATH") // optional
	settings.TableName = getEnvOrDefault("TABLE_NAME", settings.TableName)
	settings.ReportPath = getEnvOrDefault("REPORT_PATH", settings.ReportPath)
	settings.FetchURL = os.Getenv("FETCH_URL") // optional
	settings.FetchTimeout = getDurationOrDefault("FETCH_TIMEOUT", settings.FetchTimeout)
	settings.Seed = int64(getIntOrDefault("SEED", int(settings.Seed)))
	settings.TestFraction = getFloatOrDefault("TEST_FRACTION", settings.TestFraction)
	settings.CVFolds = getIntOrDefault("CV_FOLDS", settings.CVFolds)
	settings.TrainEpochs = getIntOrDefault("TRAIN_EPOCHS", settings.TrainEpochs)
	settings.BatchSize = getIntOrDefault("BATCH_SIZE", settings.BatchSize)
	settings.MetricsPort = getIntOrDefault("METRICS_PORT", settings.MetricsPort)

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func defaults() Settings {
	return Settings{
		SampleRate:    250,
		EEGChannels:   []string{"C3", "Cz", "C4"},
		EOGChannels:   []string{"EOG1", "EOG2", "EOG3"},
		AlphaBand:     Band{Low: 7, High: 12},
		FitRange:      Band{Low: 1, High: 40},
		PeakWidthMin:  1,
		PeakWidthMax:  8,
		MaxPeaks:      6,
		MinPeakHeight: 0.4,
		TableName:     "features",
		ReportPath:    "reports",
		FetchTimeout:  30 * time.Second,
		Seed:          42,
		TestFraction:  0.25,
		CVFolds:       5,
		TrainEpochs:   30,
		BatchSize:     16,
		MetricsPort:   8080,
	}
}

// Channels returns all configured channel names, EEG first.
func (s *Settings) Channels() []string {
	out := make([]string, 0, len(s.EEGChannels)+len(s.EOGChannels))
	out = append(out, s.EEGChannels...)
	out = append(out, s.EOGChannels...)
	return out
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.SampleRate <= 0 || settings.SampleRate > 20000 {
		return fmt.Errorf("sample rate must be between 0 and 20000 Hz, got %f", settings.SampleRate)
	}

	if len(settings.EEGChannels) == 0 {
		return fmt.Errorf("at least one EEG channel must be specified")
	}

	seen := make(map[string]bool)
	for _, ch := range settings.Channels() {
		if seen[ch] {
			return fmt.Errorf("duplicate channel name %q", ch)
		}
		seen[ch] = true
	}

	if err := validateBand(settings.AlphaBand, "alpha band"); err != nil {
		return err
	}
	if err := validateBand(settings.FitRange, "fit range"); err != nil {
		return err
	}
	nyquist := settings.SampleRate / 2
	if settings.AlphaBand.High >= nyquist {
		return fmt.Errorf("alpha band upper edge %f must be below Nyquist %f", settings.AlphaBand.High, nyquist)
	}
	if settings.FitRange.High >= nyquist {
		return fmt.Errorf("fit range upper edge %f must be below Nyquist %f", settings.FitRange.High, nyquist)
	}

	if settings.PeakWidthMin <= 0 || settings.PeakWidthMax <= settings.PeakWidthMin {
		return fmt.Errorf("peak width bounds must satisfy 0 < min < max, got [%f, %f]",
			settings.PeakWidthMin, settings.PeakWidthMax)
	}
	if settings.MaxPeaks <= 0 || settings.MaxPeaks > 32 {
		return fmt.Errorf("max peaks must be between 1 and 32, got %d", settings.MaxPeaks)
	}
	if settings.MinPeakHeight <= 0 {
		return fmt.Errorf("min peak height must be positive, got %f", settings.MinPeakHeight)
	}

	if settings.TestFraction <= 0 || settings.TestFraction >= 1 {
		return fmt.Errorf("test fraction must be between 0 and 1 exclusive, got %f", settings.TestFraction)
	}
	if settings.CVFolds < 2 || settings.CVFolds > 20 {
		return fmt.Errorf("cross-validation folds must be between 2 and 20, got %d", settings.CVFolds)
	}
	if settings.TrainEpochs <= 0 || settings.TrainEpochs > 10000 {
		return fmt.Errorf("training epochs must be between 1 and 10000, got %d", settings.TrainEpochs)
	}
	if settings.BatchSize <= 0 || settings.BatchSize > 4096 {
		return fmt.Errorf("batch size must be between 1 and 4096, got %d", settings.BatchSize)
	}
	if settings.MetricsPort < 1024 || settings.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1024 and 65535, got %d", settings.MetricsPort)
	}
	if settings.TableName == "" {
		return fmt.Errorf("table name cannot be empty")
	}

	return nil
}

func validateBand(b Band, name string) error {
	if b.Low <= 0 || b.High <= b.Low {
		return fmt.Errorf("%s must satisfy 0 < low < high, got [%f, %f]", name, b.Low, b.High)
	}
	return nil
}
