// Package api exposes the report analyzer over HTTP.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/insightdelivered/bik-report-analyzer/internal/config"
	"github.com/insightdelivered/bik-report-analyzer/internal/extractor"
	"github.com/insightdelivered/bik-report-analyzer/internal/llm"
	"github.com/insightdelivered/bik-report-analyzer/internal/models"
	"github.com/insightdelivered/bik-report-analyzer/internal/parser"
)

// Version is reported by the health endpoint.
const Version = "2.0.0"

// Handler holds the HTTP handlers for the API.
type Handler struct {
	// Parser serves requests that do not name an engine.
	Parser parser.Parser
	// Options are applied to parsers built for a named engine.
	Options []parser.Option
	// LLM is nil when the LLM engine is disabled.
	LLM       llm.Extractor
	Extractor extractor.TextExtractor
	Logger    *slog.Logger
}

// NewApp builds the fiber app with middleware and routes registered.
func NewApp(h *Handler, cfg config.ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "bik-report-analyzer",
		BodyLimit:             cfg.BodyLimit(),
		DisableStartupMessage: true,
		ErrorHandler:          h.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	app.Use(h.requestID)

	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the API routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)
	app.Post("/api/analyze", h.HandleAnalyze)
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// requestID tags each request with a uuid and logs its outcome.
func (h *Handler) requestID(c *fiber.Ctx) error {
	rid := uuid.New().String()
	start := time.Now()
	c.Locals("req_id", rid)
	c.Set("X-Request-ID", rid)

	err := c.Next()

	h.logger().Info("api.request",
		"req_id", rid,
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return err
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": Version,
		"engine":  "fiber",
	})
}

// HandleAnalyze parses an uploaded BIK report PDF (form field "file") or
// pre-extracted report text (form field "text"). The optional "engine" field
// selects auto, native, legacy or llm.
func (h *Handler) HandleAnalyze(c *fiber.Ctx) error {
	rid, _ := c.Locals("req_id").(string)
	engine := strings.ToLower(strings.TrimSpace(c.FormValue("engine")))

	text := c.FormValue("text")
	if strings.TrimSpace(text) == "" {
		var err error
		if text, err = h.extractUpload(c); err != nil {
			return err
		}
	}

	if engine == config.EngineLLM {
		if h.LLM == nil {
			return fiber.NewError(fiber.StatusBadRequest, "LLM engine is not enabled")
		}
		report, _, err := h.LLM.Extract(c.UserContext(), text)
		if err != nil {
			h.logger().Error("api.analyze.llm_failed", "req_id", rid, "error", err)
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(report)
	}

	p := h.Parser
	if engine != "" || p == nil {
		var err error
		if p, err = parser.New(engine, h.Options...); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}

	if err := parser.Detect(text); err != nil {
		h.logger().Warn("api.analyze.not_bik", "req_id", rid, "error", err)
	}

	report, err := p.Parse(text)
	if err != nil {
		h.logger().Error("api.analyze.parse_failed", "req_id", rid, "engine", p.Name(), "error", err)
		if errors.Is(err, parser.ErrEmptyText) {
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Parsing failed: %v", err))
	}

	h.logger().Info("api.analyze.ok",
		"req_id", rid,
		"parser_type", report.Engine,
		"active", len(report.ActiveLiabilities),
		"closed", len(report.ClosedLiabilities),
		"alerts", len(report.Alerts),
	)
	return c.JSON(report)
}

// extractUpload saves the uploaded PDF to a temp file and returns its text.
func (h *Handler) extractUpload(c *fiber.Ctx) (string, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "No report uploaded. Use form field 'file' or 'text'.")
	}
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".pdf") {
		return "", fiber.NewError(fiber.StatusBadRequest, "Only PDF files are supported.")
	}

	dir, err := os.MkdirTemp("", "bik-report-*")
	if err != nil {
		return "", fiber.NewError(fiber.StatusInternalServerError, "Failed to create temp dir.")
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "report.pdf")
	if err := c.SaveFile(file, path); err != nil {
		return "", fiber.NewError(fiber.StatusInternalServerError, "Failed to save uploaded file.")
	}

	ext := h.Extractor
	if ext == nil {
		ext = extractor.PDF{}
	}
	pages, err := ext.ExtractText(path)
	if err != nil {
		return "", fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("PDF extraction failed: %v", err))
	}
	return extractor.JoinPages(pages), nil
}

// handleError renders every failure as {"error": ..., "status": "error"}.
func (h *Handler) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(models.ErrorResponse{Error: err.Error(), Status: "error"})
}
