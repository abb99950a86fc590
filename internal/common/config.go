package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	OCR       OCRConfig       `yaml:"ocr"`
	Reference ReferenceConfig `yaml:"reference"`
	Store     StoreConfig     `yaml:"store"`
	Server    ServerConfig    `yaml:"server"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Log       LogConfig       `yaml:"log"`
}

// PipelineConfig holds the tunables of the extraction pipeline.
type PipelineConfig struct {
	DPI              int           `yaml:"dpi"`
	Upscale          int           `yaml:"upscale"`
	HeaderCropRatio  float64       `yaml:"header_crop_ratio"`
	HeaderCropScales []float64     `yaml:"header_crop_scales"`
	MinCropHeight    int           `yaml:"min_crop_height"`
	ForceOCR         bool          `yaml:"force_ocr"`
	DocumentTimeout  time.Duration `yaml:"document_timeout"`
	ReadAttempts     int           `yaml:"read_attempts"`
	ReadDelay        time.Duration `yaml:"read_delay"`

	// Per-field acceptance thresholds on the 0..100 scale, keyed by field name.
	Thresholds map[string]float64 `yaml:"thresholds"`

	ProjectLooseThreshold   float64  `yaml:"project_loose_threshold"`
	MilestoneLooseThreshold float64  `yaml:"milestone_loose_threshold"`
	ProjectYearCutoff       int      `yaml:"project_year_cutoff"`
	ProjectMinDigits        int      `yaml:"project_min_digits"`
	ProjectMaxDigits        int      `yaml:"project_max_digits"`
	MilestoneKeywords       []string `yaml:"milestone_keywords"`

	// Line windows, counted from the top of the merged line list.
	HeaderWindow  int `yaml:"header_window"`
	MergedWindow  int `yaml:"merged_window"`
	NumericWindow int `yaml:"numeric_window"`
	KeywordWindow int `yaml:"keyword_window"`

	// Confusions maps a single scanner-confusable character to its canonical replacement.
	Confusions map[string]string `yaml:"confusions"`
	// PathMarkers lists the characters accepted in place of the LIB path marker.
	PathMarkers string `yaml:"path_markers"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine      string   `yaml:"engine"` // tesseract | gosseract
	Renderer    string   `yaml:"renderer"`
	Tesseract   string   `yaml:"tesseract"`
	Pdftoppm    string   `yaml:"pdftoppm"`
	Languages   []string `yaml:"languages"`
	TessdataDir string   `yaml:"tessdata_dir"`
	PSM         int      `yaml:"psm"`
	OEM         int      `yaml:"oem"`
}

// ReferenceConfig locates the reference workbook.
type ReferenceConfig struct {
	Path  string `yaml:"path"`
	Sheet string `yaml:"sheet"`
}

// StoreConfig holds result-store configuration
type StoreConfig struct {
	Driver          string        `yaml:"driver"` // sqlite | postgres
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
}

// IngestConfig holds directory watching configuration
type IngestConfig struct {
	Roots       []string      `yaml:"roots"`
	Debounce    time.Duration `yaml:"debounce"`
	InitialScan bool          `yaml:"initial_scan"`
	Workers     int           `yaml:"workers"`
	QueueSize   int           `yaml:"queue_size"`
}

// LogConfig controls the slog handler built by entry points.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | text
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			DPI:              getEnvAsInt("PIPELINE_DPI", 300),
			Upscale:          getEnvAsInt("PIPELINE_UPSCALE", 3),
			HeaderCropRatio:  getEnvAsFloat64("PIPELINE_HEADER_CROP_RATIO", 0.20),
			HeaderCropScales: []float64{0.6, 1.0, 1.6},
			MinCropHeight:    getEnvAsInt("PIPELINE_MIN_CROP_HEIGHT", 30),
			ForceOCR:         getEnvAsBool("PIPELINE_FORCE_OCR", false),
			DocumentTimeout:  getEnvAsDuration("PIPELINE_DOCUMENT_TIMEOUT", 3*time.Minute),
			ReadAttempts:     getEnvAsInt("PIPELINE_READ_ATTEMPTS", 3),
			ReadDelay:        getEnvAsDuration("PIPELINE_READ_DELAY", 2*time.Second),
			Thresholds: map[string]float64{
				"Project":       55,
				"Milestone":     50,
				"Maturity":      80,
				"SFA CODE":      80,
				"SFA Name":      80,
				"Applicability": 80,
				"SFA Type":      80,
			},
			ProjectLooseThreshold:   getEnvAsFloat64("PIPELINE_PROJECT_LOOSE_THRESHOLD", 55),
			MilestoneLooseThreshold: getEnvAsFloat64("PIPELINE_MILESTONE_LOOSE_THRESHOLD", 50),
			ProjectYearCutoff:       getEnvAsInt("PIPELINE_PROJECT_YEAR_CUTOFF", 2030),
			ProjectMinDigits:        getEnvAsInt("PIPELINE_PROJECT_MIN_DIGITS", 2),
			ProjectMaxDigits:        getEnvAsInt("PIPELINE_PROJECT_MAX_DIGITS", 4),
			MilestoneKeywords:       []string{"central gateway", "gateway"},
			HeaderWindow:            getEnvAsInt("PIPELINE_HEADER_WINDOW", 15),
			MergedWindow:            getEnvAsInt("PIPELINE_MERGED_WINDOW", 15),
			NumericWindow:           getEnvAsInt("PIPELINE_NUMERIC_WINDOW", 12),
			KeywordWindow:           getEnvAsInt("PIPELINE_KEYWORD_WINDOW", 12),
			Confusions: map[string]string{
				"0": "O", "1": "I", "5": "S", "8": "B", "$": "S", "L": "I",
			},
			PathMarkers: "$S",
		},
		OCR: OCRConfig{
			Engine:      getEnv("OCR_ENGINE", "tesseract"),
			Renderer:    getEnv("OCR_RENDERER", "poppler"),
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			Pdftoppm:    getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Languages:   getEnvAsList("OCR_LANGUAGES", []string{"eng", "fra"}),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			PSM:         getEnvAsInt("OCR_PSM", 0),
			OEM:         getEnvAsInt("OCR_OEM", 0),
		},
		Reference: ReferenceConfig{
			Path:  getEnv("REFERENCE_XLSX", "pdf_recog.xlsx"),
			Sheet: getEnv("REFERENCE_SHEET", ""),
		},
		Store: StoreConfig{
			Driver:          getEnv("STORE_DRIVER", "sqlite"),
			DSN:             getEnv("DB_URL", "file:lcablesync.db"),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		Ingest: IngestConfig{
			Roots:       getEnvAsList("INGEST_ROOTS", nil),
			Debounce:    getEnvAsDuration("INGEST_DEBOUNCE", 2*time.Second),
			InitialScan: getEnvAsBool("INGEST_INITIAL_SCAN", true),
			Workers:     getEnvAsInt("INGEST_WORKERS", 4),
			QueueSize:   getEnvAsInt("INGEST_QUEUE_SIZE", 256),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma or plus separated value ("eng+fra" is the tesseract idiom).
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '+' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("pipeline.dpi", c.Pipeline.DPI, Positive).
		Field("pipeline.upscale", c.Pipeline.Upscale, Positive).
		Field("pipeline.read_attempts", c.Pipeline.ReadAttempts, Positive).
		Field("pipeline.header_crop_ratio", c.Pipeline.HeaderCropRatio, UnitInterval).
		Field("pipeline.project_min_digits", c.Pipeline.ProjectMinDigits, Positive).
		Field("pipeline.project_max_digits", c.Pipeline.ProjectMaxDigits, Positive, AtLeast(c.Pipeline.ProjectMinDigits)).
		Field("pipeline.header_window", c.Pipeline.HeaderWindow, Positive).
		Field("pipeline.merged_window", c.Pipeline.MergedWindow, Positive).
		Field("pipeline.numeric_window", c.Pipeline.NumericWindow, Positive).
		Field("pipeline.keyword_window", c.Pipeline.KeywordWindow, Positive).
		Field("ocr.languages", c.OCR.Languages, NonEmpty).
		Field("store.driver", c.Store.Driver, OneOf("sqlite", "postgres"))
	for name, th := range c.Pipeline.Thresholds {
		v.Field("pipeline.thresholds."+name, th, Percentage)
	}
	for from, to := range c.Pipeline.Confusions {
		v.Field("pipeline.confusions."+from, from, SingleRune)
		v.Field("pipeline.confusions."+from, to, SingleRune)
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
