package openrouter

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Config for the OpenRouter client.
type Config struct {
	APIKey  string // if empty, falls back to env OPENROUTER_API_KEY
	BaseURL string // default https://openrouter.ai/api/v1
	Model   string // used when a request leaves Model empty
	AppURL  string // HTTP-Referer
	AppName string // X-Title

	Timeout           time.Duration // http client timeout
	MaxRetries        int           // total attempts per request, default 3
	RetryDelay        time.Duration // backoff base, doubled per failed attempt
	RequestsPerMinute int           // throttle shared by every request of this client

	InputCostPer1M  float64
	OutputCostPer1M float64
	Pricing         map[string]Price // per-model overrides of the costs above

	CallLogDir string // when set, one JSON file per call is written here
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	usage   *UsageTracker
	calls   *CallLogger
	logger  *slog.Logger

	// sleep waits between retries; swapped in tests.
	sleep func(d time.Duration) <-chan time.Time
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.AppURL == "" {
		cfg.AppURL = "http://localhost"
	}
	if cfg.AppName == "" {
		cfg.AppName = "Data-Extraction"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.Pricing == nil {
		cfg.Pricing = DefaultPricing()
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		usage:   NewUsageTracker(),
		logger:  logger,
		sleep:   time.After,
	}
	if cfg.CallLogDir != "" {
		c.calls = NewCallLogger(cfg.CallLogDir, logger)
	}
	return c
}

// Model returns the default model id.
func (c *Client) Model() string { return c.cfg.Model }

// Usage returns the running token and cost totals for this client.
func (c *Client) Usage() UsageStats { return c.usage.Stats() }
