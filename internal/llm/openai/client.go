package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/insightdelivered/bik-report-analyzer/internal/llm"
	"github.com/insightdelivered/bik-report-analyzer/internal/models"
	"github.com/insightdelivered/bik-report-analyzer/internal/parser"
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("missing OPENAI_API_KEY")

var _ llm.Extractor = (*Client)(nil)

// Extract implements llm.Extractor using chat/completions in JSON mode.
func (c *Client) Extract(ctx context.Context, text string) (*models.Report, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(text),
	)

	if c.cfg.APIKey == "" {
		c.log.Error("llm.extract.no_api_key", "req_id", rid)
		return nil, nil, ErrMissingAPIKey
	}

	schema := llm.BuildReportJSONSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages":        llm.BuildMessages(text, schema),
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, status, err := llm.PostCompletion(ctx, c.http, endpoint, body, headers, c.log)
	if err != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, raw, fmt.Errorf("openai request: %w", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, raw, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.extract.no_choices",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, raw, fmt.Errorf("no choices in openai response")
	}
	content := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))

	report, err := llm.DecodeReport(content,
		parser.WithClock(c.now),
		parser.WithStaleAfter(c.cfg.StaleAfter),
	)
	if err != nil {
		c.log.Error("llm.extract.schema_validation_failed",
			"req_id", rid, "error", err, "content_bytes", len(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, content, fmt.Errorf("LLM parsing failed: %w", err)
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"active", len(report.ActiveLiabilities),
		"closed", len(report.ClosedLiabilities),
		"statistical", len(report.StatisticalLiabilities),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return report, content, nil
}
