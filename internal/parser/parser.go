package parser

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/insightdelivered/bik-report-analyzer/internal/models"
	"github.com/insightdelivered/bik-report-analyzer/internal/parser/lenders"
)

// ErrEmptyText is returned when there is no report text to parse.
var ErrEmptyText = errors.New("report text is empty")

// DefaultStaleAfter is the report age beyond which a report is flagged stale.
const DefaultStaleAfter = 7 * 24 * time.Hour

// Parser defines the interface for BIK report engines.
type Parser interface {
	// Parse takes the extracted report text and returns the structured report.
	Parse(text string) (*models.Report, error)
	// Name returns the engine name as accepted by New.
	Name() string
}

// Engine names accepted by New.
const (
	EngineAuto   = "auto"
	EngineNative = "native"
	EngineLegacy = "legacy"
)

// New returns the parser for the given engine name. An empty name selects
// the orchestrator.
func New(engine string, opts ...Option) (Parser, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineAuto:
		return NewOrchestrator(opts...), nil
	case EngineNative:
		return NewNative(opts...), nil
	case EngineLegacy, "regex":
		return NewLegacy(opts...), nil
	default:
		return nil, fmt.Errorf("unsupported engine: %q", engine)
	}
}

// Detect checks that the text looks like a BIK report.
func Detect(text string) error {
	if containsAnyFold(text, []string{"Biuro Informacji Kredytowej", "BIK", "Zobowiązania finansowe", "Ocena punktowa"}) {
		return nil
	}
	return fmt.Errorf("text does not look like a BIK report")
}

type config struct {
	now        func() time.Time
	staleAfter time.Duration
	tables     *lenders.Tables
	logger     *slog.Logger
}

// Option configures a parser.
type Option func(*config)

// WithClock sets the clock used for the staleness check.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithStaleAfter sets the report age beyond which a report is stale.
func WithStaleAfter(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.staleAfter = d
		}
	}
}

// WithLenders replaces the embedded lender tables.
func WithLenders(t *lenders.Tables) Option {
	return func(c *config) {
		if t != nil {
			c.tables = t
		}
	}
}

// WithLogger sets the logger for engine selection events.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func newConfig(opts []Option) config {
	c := config{
		now:        time.Now,
		staleAfter: DefaultStaleAfter,
		tables:     lenders.Default(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Orchestrator runs the native engine and falls back to the legacy engine
// when the native engine finds neither active nor closed liabilities.
type Orchestrator struct {
	cfg    config
	native *NativeParser
	legacy *LegacyParser
}

// NewOrchestrator returns the fallback chain native → legacy.
func NewOrchestrator(opts ...Option) *Orchestrator {
	return &Orchestrator{
		cfg:    newConfig(opts),
		native: NewNative(opts...),
		legacy: NewLegacy(opts...),
	}
}

func (o *Orchestrator) Name() string {
	return EngineAuto
}

// Parse never lets a panic inside an engine escape; it is returned as an error.
func (o *Orchestrator) Parse(text string) (report *models.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			report = nil
			err = fmt.Errorf("parse report: %v", r)
		}
	}()

	text = NormalizeText(text)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	report, err = o.native.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("native engine: %w", err)
	}
	if report.HasLiabilities() {
		o.cfg.logger.Debug("bik.parse.native",
			"active", len(report.ActiveLiabilities),
			"closed", len(report.ClosedLiabilities),
		)
		return report, nil
	}
	o.cfg.logger.Debug("bik.parse.native_empty")

	report, err = o.legacy.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("legacy engine: %w", err)
	}
	o.cfg.logger.Debug("bik.parse.fallback",
		"active", len(report.ActiveLiabilities),
		"closed", len(report.ClosedLiabilities),
		"statistical", len(report.StatisticalLiabilities),
	)
	return report, nil
}

// Enrich completes a report produced outside the deterministic engines. It
// recomputes staleness and the summary, then derives alerts.
func Enrich(r *models.Report, opts ...Option) {
	cfg := newConfig(opts)
	if r.PersonalData.ReportDate != nil {
		if t, err := time.Parse("2006-01-02", *r.PersonalData.ReportDate); err == nil {
			r.PersonalData.IsStale = cfg.now().Sub(t) > cfg.staleAfter
		}
	}
	r.Summary = Summarize(r.ActiveLiabilities)
	ApplyAlerts(r, cfg.tables)
}
