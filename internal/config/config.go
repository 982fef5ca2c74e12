package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Parser ParserConfig `yaml:"parser"`
	LLM    LLMConfig    `yaml:"llm"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host           string `yaml:"host"            env:"SERVER_HOST"            env-default:"0.0.0.0"`
	Port           int    `yaml:"port"            env:"SERVER_PORT"            env-default:"8080"`
	BodyLimitMB    int    `yaml:"body_limit_mb"   env:"SERVER_BODY_LIMIT_MB"   env-default:"50"`
	AllowedOrigins string `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS" env-default:"*"`
}

// ParserConfig holds report parsing settings.
type ParserConfig struct {
	Engine     string        `yaml:"engine"      env:"PARSER_ENGINE"      env-default:"auto"`
	StaleAfter time.Duration `yaml:"stale_after" env:"PARSER_STALE_AFTER" env-default:"168h"`
}

// LLMConfig holds the OpenAI-compatible extractor settings.
type LLMConfig struct {
	Enabled     bool          `yaml:"enabled"     env:"LLM_ENABLED"     env-default:"false"`
	BaseURL     string        `yaml:"base_url"    env:"LLM_BASE_URL"    env-default:"https://api.openai.com/v1"`
	APIKey      string        `yaml:"api_key"     env:"OPENAI_API_KEY"`
	Model       string        `yaml:"model"       env:"LLM_MODEL"       env-default:"gpt-4o"`
	Temperature float32       `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0"`
	Timeout     time.Duration `yaml:"timeout"     env:"LLM_TIMEOUT"     env-default:"120s"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// BodyLimit returns the request body limit in bytes.
func (s ServerConfig) BodyLimit() int {
	return s.BodyLimitMB * 1024 * 1024
}
