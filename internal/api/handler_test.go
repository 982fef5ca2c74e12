package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/bik-report-analyzer/internal/config"
	"github.com/insightdelivered/bik-report-analyzer/internal/models"
	"github.com/insightdelivered/bik-report-analyzer/internal/parser"
)

const sampleText = `25.10.2024 | 16:46
Raport BIK
PESEL: 94060104211
Zapytania kredytowe
1 2 0 0
Zobowiązania finansowe – w trakcie spłaty
Rodzaj Data udzielenia Kwota Pozostało Rata
Kredyt gotówkowy, pożyczka bankowa
05.11.2023 6.174 PLN 6.174 PLN 159 PLN 0 BRAK
ALIOR BANK SA
Łącznie 6.174 PLN 6.174 PLN 159 PLN
Informacje szczegółowe
Zobowiązania finansowe – zamknięte
SANTANDER CONSUMER BANK S.A. Kredyt gotówkowy
z dn. 01.02.2019 5.250 PLN umowa zakończona dn. 15.08.2021
Informacje dodatkowe
`

type fakeExtractor struct {
	pages []string
	err   error
}

func (f fakeExtractor) ExtractText(string) ([]string, error) { return f.pages, f.err }

type fakeLLM struct {
	report *models.Report
	err    error
}

func (f fakeLLM) Extract(context.Context, string) (*models.Report, []byte, error) {
	return f.report, nil, f.err
}

type panicParser struct{}

func (panicParser) Parse(string) (*models.Report, error) { panic("boom") }
func (panicParser) Name() string                         { return "panic" }

func clock() time.Time { return time.Date(2024, 10, 26, 0, 0, 0, 0, time.UTC) }

func setupTestApp(h *Handler) *fiber.App {
	if h.Logger == nil {
		h.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if h.Options == nil {
		h.Options = []parser.Option{parser.WithClock(clock)}
	}
	return NewApp(h, config.ServerConfig{BodyLimitMB: 1, AllowedOrigins: "*"})
}

func formRequest(fields map[string]string) *http.Request {
	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func uploadRequest(t *testing.T, filename string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(&Handler{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	result := decode[map[string]string](t, resp)
	assert.Equal(t, "ok", result["status"])
	assert.Equal(t, "fiber", result["engine"])
	assert.Equal(t, Version, result["version"])
}

func TestAnalyze_Text(t *testing.T) {
	tests := []struct {
		engine     string
		want       models.Engine
		wantActive bool
	}{
		{"", models.EngineNative, true},
		{"native", models.EngineNative, true},
		{"legacy", models.EngineRegexFallback, false},
	}

	for _, tt := range tests {
		t.Run("engine="+tt.engine, func(t *testing.T) {
			app := setupTestApp(&Handler{})

			resp, err := app.Test(formRequest(map[string]string{"text": sampleText, "engine": tt.engine}))
			require.NoError(t, err)
			require.Equal(t, fiber.StatusOK, resp.StatusCode)

			report := decode[models.Report](t, resp)
			assert.Equal(t, tt.want, report.Engine)
			if tt.wantActive {
				assert.NotEmpty(t, report.ActiveLiabilities)
			}
			require.NotNil(t, report.PersonalData.ReportDate)
			assert.Equal(t, "2024-10-25", *report.PersonalData.ReportDate)
			assert.False(t, report.PersonalData.IsStale)
		})
	}
}

func TestAnalyze_Upload(t *testing.T) {
	app := setupTestApp(&Handler{Extractor: fakeExtractor{pages: strings.SplitAfter(sampleText, "Informacje szczegółowe\n")}})

	resp, err := app.Test(uploadRequest(t, "raport.PDF", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	report := decode[models.Report](t, resp)
	assert.Equal(t, models.EngineNative, report.Engine)
	assert.Len(t, report.ActiveLiabilities, 1)
	assert.Len(t, report.ClosedLiabilities, 1)
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler *Handler
		req     func(t *testing.T) *http.Request
		code    int
		message string
	}{
		{
			name:    "no file or text",
			handler: &Handler{},
			req: func(t *testing.T) *http.Request {
				return formRequest(map[string]string{"text": "  \n"})
			},
			code:    fiber.StatusBadRequest,
			message: "form field 'file'",
		},
		{
			name:    "not a pdf",
			handler: &Handler{},
			req:     func(t *testing.T) *http.Request { return uploadRequest(t, "raport.txt", nil) },
			code:    fiber.StatusBadRequest,
			message: "Only PDF",
		},
		{
			name:    "extraction fails",
			handler: &Handler{Extractor: fakeExtractor{err: errors.New("scanned")}},
			req:     func(t *testing.T) *http.Request { return uploadRequest(t, "raport.pdf", nil) },
			code:    fiber.StatusUnprocessableEntity,
			message: "scanned",
		},
		{
			name:    "unknown engine",
			handler: &Handler{},
			req: func(t *testing.T) *http.Request {
				return formRequest(map[string]string{"text": sampleText, "engine": "ocr"})
			},
			code:    fiber.StatusBadRequest,
			message: "unsupported engine",
		},
		{
			name:    "llm disabled",
			handler: &Handler{},
			req: func(t *testing.T) *http.Request {
				return formRequest(map[string]string{"text": sampleText, "engine": "llm"})
			},
			code:    fiber.StatusBadRequest,
			message: "not enabled",
		},
		{
			name:    "llm fails",
			handler: &Handler{LLM: fakeLLM{err: errors.New("LLM parsing failed: schema")}},
			req: func(t *testing.T) *http.Request {
				return formRequest(map[string]string{"text": sampleText, "engine": "llm"})
			},
			code:    fiber.StatusBadGateway,
			message: "LLM parsing failed",
		},
		{
			name:    "parser panics",
			handler: &Handler{Parser: panicParser{}},
			req: func(t *testing.T) *http.Request {
				return formRequest(map[string]string{"text": sampleText})
			},
			code:    fiber.StatusInternalServerError,
			message: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupTestApp(tt.handler)

			resp, err := app.Test(tt.req(t))
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)

			body := decode[models.ErrorResponse](t, resp)
			assert.Equal(t, "error", body.Status)
			assert.Contains(t, body.Error, tt.message)
		})
	}
}

func TestAnalyze_LLM(t *testing.T) {
	want := models.NewReport(models.EngineLLM)
	want.Inquiries12m = 2
	app := setupTestApp(&Handler{LLM: fakeLLM{report: want}})

	resp, err := app.Test(formRequest(map[string]string{"text": sampleText, "engine": "LLM"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	report := decode[models.Report](t, resp)
	assert.Equal(t, models.EngineLLM, report.Engine)
	assert.Equal(t, 2, report.Inquiries12m)
}
