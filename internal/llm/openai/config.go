package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/insightdelivered/bik-report-analyzer/internal/parser"
)

// Config for the OpenAI-compatible client.
type Config struct {
	APIKey      string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // e.g. "gpt-4o"
	Temperature float32       // 0 keeps extraction deterministic
	Timeout     time.Duration // http client timeout
	StaleAfter  time.Duration // report age flagged as stale
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
	now  func() time.Time
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = parser.DefaultStaleAfter
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
		now:  time.Now,
	}
}
