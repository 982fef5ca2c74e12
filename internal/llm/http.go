package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	userAgent = "bik-report-analyzer"
	// maxCompletionBytes caps a chat completion body; a full report
	// extraction stays well under it.
	maxCompletionBytes = 4 << 20
)

// StatusError is a completion endpoint reply outside the 2xx range.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat completions: endpoint returned status %d", e.Code)
}

// PostCompletion sends a chat completion request for one report and returns
// the raw reply with its status code. On a non-2xx status the reply is still
// returned next to a *StatusError so the caller can keep it for diagnostics.
func PostCompletion(ctx context.Context, client *http.Client, endpoint string, request any, headers map[string]string, logger *slog.Logger) ([]byte, int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}

	callID := uuid.NewString()
	started := time.Now()

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, 0, fmt.Errorf("chat completions: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("chat completions: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logger.Debug("llm.completion.send", "call_id", callID, "endpoint", endpoint, "payload_bytes", len(payload))

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("llm.completion.transport_error", "call_id", callID, "error", err, "elapsed_ms", time.Since(started).Milliseconds())
		return nil, 0, fmt.Errorf("chat completions: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("llm.completion.close_error", "call_id", callID, "error", err)
		}
	}()

	reply, err := io.ReadAll(io.LimitReader(resp.Body, maxCompletionBytes+1))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("chat completions: read reply: %w", err)
	}
	if len(reply) > maxCompletionBytes {
		return nil, resp.StatusCode, fmt.Errorf("chat completions: reply exceeds %d bytes", maxCompletionBytes)
	}

	logger.Debug("llm.completion.reply",
		"call_id", callID,
		"status", resp.StatusCode,
		"reply_bytes", len(reply),
		"elapsed_ms", time.Since(started).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return reply, resp.StatusCode, &StatusError{Code: resp.StatusCode}
	}
	return reply, resp.StatusCode, nil
}
