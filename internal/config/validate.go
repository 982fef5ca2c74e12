package config

import (
	"fmt"
	"strings"

	"github.com/insightdelivered/bik-report-analyzer/internal/parser"
)

// EngineLLM selects the LLM extractor instead of a deterministic parser.
const EngineLLM = "llm"

// Validate performs business-rule validation on the loaded configuration.
// Load calls it automatically.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535 (got %d)", c.Server.Port)
	}
	if c.Server.BodyLimitMB <= 0 {
		return fmt.Errorf("server.body_limit_mb must be > 0 (got %d)", c.Server.BodyLimitMB)
	}

	if err := c.Parser.validate(); err != nil {
		return fmt.Errorf("parser: %w", err)
	}
	if err := c.LLM.validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if c.Parser.Engine == EngineLLM && !c.LLM.Enabled {
		return fmt.Errorf("parser.engine %q requires llm.enabled", EngineLLM)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json (got %q)", c.Log.Format)
	}

	return nil
}

func (p *ParserConfig) validate() error {
	p.Engine = strings.ToLower(strings.TrimSpace(p.Engine))
	if p.Engine != EngineLLM {
		if _, err := parser.New(p.Engine); err != nil {
			return fmt.Errorf("engine: %w", err)
		}
	}
	if p.StaleAfter <= 0 {
		return fmt.Errorf("stale_after must be > 0 (got %v)", p.StaleAfter)
	}
	return nil
}

func (l *LLMConfig) validate() error {
	if !l.Enabled {
		return nil
	}
	if l.APIKey == "" {
		return fmt.Errorf("api_key is required when llm is enabled")
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		return fmt.Errorf("temperature must be in 0-2 (got %v)", l.Temperature)
	}
	if l.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %v)", l.Timeout)
	}
	return nil
}
