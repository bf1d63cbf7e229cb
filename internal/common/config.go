package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Log        LogConfig        `yaml:"log"`
	OCR        OCRConfig        `yaml:"ocr"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Store      StoreConfig      `yaml:"store"`
	Server     ServerConfig     `yaml:"server"`
	Queue      QueueConfig      `yaml:"queue"`
	Watch      WatchConfig      `yaml:"watch"`
}

// LogConfig selects the slog handler and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// OCRConfig holds recognition engine configuration
type OCRConfig struct {
	Engine        string   `yaml:"engine"` // gosseract | exec
	Languages     []string `yaml:"languages"`
	PSM           int      `yaml:"psm"` // 3 = fully automatic page segmentation
	OEM           int      `yaml:"oem"` // 3 = default, best available
	Tesseract     string   `yaml:"tesseract"`
	TessdataDir   string   `yaml:"tessdata_dir"`
	HeicConverter string   `yaml:"heic_converter"`
	// ArtifactCacheDir keeps converted HEIC pages by content hash; empty disables it.
	ArtifactCacheDir string `yaml:"artifact_cache_dir"`
}

// PreprocessConfig selects the enhancement preset.
type PreprocessConfig struct {
	Mode string `yaml:"mode"` // auto | quick | standard | heavy | off
}

// StoreConfig holds database-related configuration
type StoreConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string        `yaml:"http_addr"`
	GRPCAddr       string        `yaml:"grpc_addr"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// QueueConfig sizes the background processing queue.
type QueueConfig struct {
	Workers        int           `yaml:"workers"`
	Size           int           `yaml:"size"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
}

// WatchConfig lists directories whose new files are processed automatically.
type WatchConfig struct {
	Dirs        []string      `yaml:"dirs"`
	InitialScan bool          `yaml:"initial_scan"`
	Debounce    time.Duration `yaml:"debounce"`
	OwnerID     string        `yaml:"owner_id"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		OCR: OCRConfig{
			Engine:        "gosseract",
			Languages:     []string{"eng"},
			PSM:           3,
			OEM:           3,
			Tesseract:     "tesseract",
			HeicConverter: "magick",
		},
		Preprocess: PreprocessConfig{Mode: "auto"},
		Store: StoreConfig{
			DSN:             "sqlite:medrecords.db",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			HTTPAddr:       ":8080",
			GRPCAddr:       ":8081",
			MaxUploadBytes: 50 << 20,
			RequestTimeout: 3 * time.Minute,
		},
		Queue: QueueConfig{
			Workers:        4,
			Size:           256,
			ProcessTimeout: 3 * time.Minute,
		},
		Watch: WatchConfig{Debounce: 500 * time.Millisecond, InitialScan: true},
	}
}

// LoadConfig layers defaults, an optional YAML file and environment variables
// (a .env file in the working directory is loaded first if present).
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError(CodeConfig, fmt.Sprintf("read config %s", path), err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, NewAppError(CodeConfig, fmt.Sprintf("parse config %s", path), err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(c *Config) {
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.OCR.Engine = getEnv("OCR_ENGINE", c.OCR.Engine)
	c.OCR.Languages = getEnvAsList("OCR_LANGS", c.OCR.Languages)
	c.OCR.PSM = getEnvAsInt("OCR_PSM", c.OCR.PSM)
	c.OCR.OEM = getEnvAsInt("OCR_OEM", c.OCR.OEM)
	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.HeicConverter = getEnv("HEIC_CONVERTER", c.OCR.HeicConverter)
	c.OCR.ArtifactCacheDir = getEnv("ARTIFACT_CACHE_DIR", c.OCR.ArtifactCacheDir)

	c.Preprocess.Mode = getEnv("PREPROCESS_MODE", c.Preprocess.Mode)

	c.Store.DSN = getEnv("DB_URL", c.Store.DSN)
	c.Store.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Store.MaxConns)
	c.Store.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Store.MinConns)
	c.Store.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Store.MaxConnLifetime)
	c.Store.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Store.DialTimeout)

	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.MaxUploadBytes = getEnvAsInt64("MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes)
	c.Server.RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", c.Server.RequestTimeout)

	c.Queue.Workers = getEnvAsInt("QUEUE_WORKERS", c.Queue.Workers)
	c.Queue.Size = getEnvAsInt("QUEUE_SIZE", c.Queue.Size)
	c.Queue.ProcessTimeout = getEnvAsDuration("PROCESS_TIMEOUT", c.Queue.ProcessTimeout)

	c.Watch.Dirs = getEnvAsList("WATCH_DIRS", c.Watch.Dirs)
	c.Watch.OwnerID = getEnv("WATCH_OWNER_ID", c.Watch.OwnerID)
	c.Watch.Debounce = getEnvAsDuration("WATCH_DEBOUNCE", c.Watch.Debounce)
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
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

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
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
	switch c.OCR.Engine {
	case "gosseract", "exec":
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("OCR_ENGINE must be gosseract or exec, got %q", c.OCR.Engine), ErrInvalidInput)
	}
	if len(c.OCR.Languages) == 0 {
		return NewAppError(CodeConfig, "OCR_LANGS must name at least one language", ErrInvalidInput)
	}
	switch c.Preprocess.Mode {
	case "auto", "quick", "standard", "heavy", "off":
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("PREPROCESS_MODE %q is not a known preset", c.Preprocess.Mode), ErrInvalidInput)
	}
	if c.Store.DSN == "" {
		return NewAppError(CodeConfig, "DB_URL is required", ErrInvalidInput)
	}
	if c.Queue.Workers <= 0 {
		return NewAppError(CodeConfig, "QUEUE_WORKERS must be positive", ErrInvalidInput)
	}
	return nil
}
