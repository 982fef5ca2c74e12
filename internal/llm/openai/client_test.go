package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/bik-report-analyzer/internal/models"
)

const modelContent = `{
  "personal_data": {"name": "Jan Kowalski", "report_date": "2024-10-25"},
  "score": 71,
  "inquiries_12m": 1,
  "active_liabilities": [
    {"bank": "ING BANK ŚLĄSKI", "type": "Kredyt hipoteczny", "installment": 2100, "amount_left": 350000, "limit": 0, "max_delay_status": "OK"}
  ],
  "closed_liabilities": []
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.now = func() time.Time { return time.Date(2024, 10, 26, 0, 0, 0, 0, time.UTC) }
	return c
}

func chatResponse(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
}

func TestExtract_Success(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(chatResponse(modelContent))
	})

	report, raw, err := c.Extract(context.Background(), "RAPORT BIK")
	require.NoError(t, err)
	assert.JSONEq(t, modelContent, string(raw))

	assert.Equal(t, "gpt-4o", got["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	assert.Len(t, got["messages"], 3)

	assert.Equal(t, models.EngineLLM, report.Engine)
	require.Len(t, report.ActiveLiabilities, 1)
	assert.Equal(t, 2100.0, report.Summary.MortgageInstallment)
	assert.Equal(t, 0.0, report.Summary.TotalInstallment)
	assert.Empty(t, report.Alerts)
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantRaw bool
	}{
		{
			name: "non-2xx status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
			},
			wantRaw: true,
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"choices":[]}`))
			},
			wantRaw: true,
		},
		{
			name: "content fails validation",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(chatResponse(`[1, 2, 3]`))
			},
			wantRaw: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			report, raw, err := c.Extract(context.Background(), "RAPORT BIK")
			require.Error(t, err)
			assert.Nil(t, report)
			if tt.wantRaw {
				assert.NotEmpty(t, raw)
			}
		})
	}
}

func TestExtract_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	c := NewClient(Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, _, err := c.Extract(context.Background(), "RAPORT BIK")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewClient_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	c := NewClient(Config{}, nil)

	assert.Equal(t, "from-env", c.cfg.APIKey)
	assert.Equal(t, "https://api.openai.com/v1", c.cfg.BaseURL)
	assert.Equal(t, "gpt-4o", c.cfg.Model)
	assert.Equal(t, 120*time.Second, c.http.Timeout)
}
