package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	LLM    LLMConfig
	OCR    OCRConfig
	Paths  PathsConfig
	Ledger LedgerConfig
	Server ServerConfig
}

// LLMConfig holds OpenRouter-related configuration
type LLMConfig struct {
	APIKey           string
	BaseURL          string
	Model            string
	AppURL           string
	AppName          string
	Temperature      float64
	MaxTokens        int
	TopP             *float64
	FrequencyPenalty *float64
	PresencePenalty  *float64
	Timeout          time.Duration
	MaxRetries       int
	RetryDelay       time.Duration
	RequestsPerMin   int
	InputCostPer1M   float64
	OutputCostPer1M  float64
	CallLogDir       string
	CallLogging      bool
}

// OCRConfig holds text extraction and OCR configuration
type OCRConfig struct {
	Enabled        bool
	DPI            int
	Language       string
	TessdataDir    string
	MaxPages       int
	MinTextChars   int
	ImagePageChars int
}

// PathsConfig holds the input and output locations
type PathsConfig struct {
	InputDir             string
	OutputDir            string
	FinalOutputDir       string
	SchemeHeaderFilename string
}

// LedgerConfig holds run ledger database configuration
type LedgerConfig struct {
	Driver           string
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds daemon configuration
type ServerConfig struct {
	GRPCAddr      string
	WatchDebounce time.Duration
	Workers       int
}

// LoadConfig loads configuration from environment variables. Files passed in
// (default ".env") are loaded first; variables already set in the process win.
func LoadConfig(envFiles ...string) *Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}

	return &Config{
		LLM: LLMConfig{
			APIKey:           getEnv("OPENROUTER_API_KEY", ""),
			BaseURL:          getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:            getEnv("OPENROUTER_MODEL", "qwen/qwen3-next-80b-a3b-instruct"),
			AppURL:           getEnv("OPENROUTER_APP_URL", "http://localhost"),
			AppName:          getEnv("OPENROUTER_APP_NAME", "Data-Extraction"),
			Temperature:      getEnvAsFloat64("LLM_TEMPERATURE", 0.0),
			MaxTokens:        getEnvAsInt("LLM_MAX_TOKENS", 4000),
			TopP:             getEnvAsOptionalFloat64("LLM_TOP_P"),
			FrequencyPenalty: getEnvAsOptionalFloat64("LLM_FREQUENCY_PENALTY"),
			PresencePenalty:  getEnvAsOptionalFloat64("LLM_PRESENCE_PENALTY"),
			Timeout:          getEnvAsDuration("LLM_TIMEOUT", 120*time.Second),
			MaxRetries:       getEnvAsInt("LLM_MAX_RETRIES", 3),
			RetryDelay:       getEnvAsDuration("LLM_RETRY_DELAY", 2*time.Second),
			RequestsPerMin:   getEnvAsInt("RATE_LIMIT_RPM", 60),
			InputCostPer1M:   getEnvAsFloat64("LLM_INPUT_COST_PER_1M", 0.50),
			OutputCostPer1M:  getEnvAsFloat64("LLM_OUTPUT_COST_PER_1M", 1.50),
			CallLogDir:       getEnv("LLM_CALL_LOG_DIR", "logs/llm_calls"),
			CallLogging:      getEnvAsBool("LLM_CALL_LOGGING", true),
		},
		OCR: OCRConfig{
			Enabled:        getEnvAsBool("OCR_ENABLED", true),
			DPI:            getEnvAsInt("OCR_DPI", 200),
			Language:       getEnv("OCR_LANGUAGE", "eng"),
			TessdataDir:    getEnv("TESSDATA_PREFIX", ""),
			MaxPages:       getEnvAsInt("OCR_MAX_PAGES", 0),
			MinTextChars:   getEnvAsInt("MIN_TEXT_CHARS", 100),
			ImagePageChars: getEnvAsInt("IMAGE_PAGE_CHARS", 50),
		},
		Paths: PathsConfig{
			InputDir:             getEnv("INPUT_DIR", "input"),
			OutputDir:            getEnv("OUTPUT_DIR", "output"),
			FinalOutputDir:       getEnv("FINAL_OUTPUT_DIR", "out"),
			SchemeHeaderFilename: getEnv("SCHEME_HEADER_FILENAME", "scheme_header.json"),
		},
		Ledger: LedgerConfig{
			Driver:           getEnv("LEDGER_DRIVER", "sqlite"),
			DSN:              getEnv("LEDGER_DSN", "file:ledger.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr:      getEnv("GRPC_ADDR", ":8080"),
			WatchDebounce: getEnvAsDuration("WATCH_DEBOUNCE", 2*time.Second),
			Workers:       getEnvAsInt("WORKERS", 2),
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

func getEnvAsOptionalFloat64(key string) *float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return &floatVal
		}
	}
	return nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolVal
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

// Validate checks tunables that every command depends on.
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("LLM_TEMPERATURE", c.LLM.Temperature, FloatRange(0, 2))
	v.Field("LLM_MAX_TOKENS", c.LLM.MaxTokens, PositiveInt)
	v.Field("RATE_LIMIT_RPM", c.LLM.RequestsPerMin, PositiveInt)
	v.Field("OCR_DPI", c.OCR.DPI, IntRange(50, 1200))
	v.Field("OUTPUT_DIR", c.Paths.OutputDir, Required)
	v.Field("SCHEME_HEADER_FILENAME", c.Paths.SchemeHeaderFilename, Required)
	v.Field("LEDGER_DRIVER", c.Ledger.Driver, OneOf("sqlite", "postgres", "none"))
	if c.LLM.TopP != nil {
		v.Field("LLM_TOP_P", *c.LLM.TopP, FloatRange(0, 1))
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// RequireAPIKey is checked by commands that talk to OpenRouter.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return NewAppError("CONFIG_ERROR", "OPENROUTER_API_KEY is required", ErrInvalidInput)
	}
	return nil
}
