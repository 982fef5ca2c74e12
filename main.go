package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/insightdelivered/bik-report-analyzer/internal/api"
	"github.com/insightdelivered/bik-report-analyzer/internal/config"
	"github.com/insightdelivered/bik-report-analyzer/internal/extractor"
	"github.com/insightdelivered/bik-report-analyzer/internal/llm"
	"github.com/insightdelivered/bik-report-analyzer/internal/llm/openai"
	"github.com/insightdelivered/bik-report-analyzer/internal/logging"
	"github.com/insightdelivered/bik-report-analyzer/internal/models"
	"github.com/insightdelivered/bik-report-analyzer/internal/parser"
	"github.com/insightdelivered/bik-report-analyzer/internal/writer"
)

const version = api.Version

type runOptions struct {
	engine        string
	output        string
	format        string
	includeHeader bool
}

func main() {
	engineFlag := flag.String("engine", "", "Engine: auto, native, legacy, llm (defaults to parser.engine from config)")
	outputFlag := flag.String("output", "", "Output file path (defaults to input filename with .json or .csv extension)")
	formatFlag := flag.String("format", "json", "Output format: json or csv")
	headerFlag := flag.Bool("header", true, "Include report metadata rows in CSV")
	serveFlag := flag.Bool("serve", false, "Start the HTTP API instead of processing files")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	helpFlag := flag.Bool("help", false, "Show usage help")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `BIK Credit Report Analyzer
by Insight Delivered (QEA AutoLens)

Turns Polish BIK credit reports (PDF or extracted text) into structured
JSON or CSV: personal data, score, inquiries, active, closed and
statistical liabilities, summary totals and risk alerts.

Usage:
  bikparse [flags] <report.pdf|report.txt> [report2.pdf ...]
  bikparse -serve

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Analyze with the native engine, falling back to the legacy engine
  bikparse raport.pdf

  # Force the legacy engine and write CSV
  bikparse -engine=legacy -format=csv raport.pdf

  # Use the LLM extractor (needs OPENAI_API_KEY)
  bikparse -engine=llm raport.pdf

  # Serve POST /api/analyze on SERVER_HOST:SERVER_PORT
  bikparse -serve

Configuration is read from CONFIG_PATH (default ./config.yaml) and the
environment (SERVER_*, PARSER_*, LLM_*, LOG_*, OPENAI_API_KEY).
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("bikparse v%s\n", version)
		os.Exit(0)
	}

	if *helpFlag || (flag.NArg() == 0 && !*serveFlag) {
		flag.Usage()
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf("%v\n", err)
	}
	logger := logging.New(cfg.Log)

	engine := cfg.Parser.Engine
	if *engineFlag != "" {
		engine = strings.ToLower(*engineFlag)
	}
	opts := []parser.Option{
		parser.WithStaleAfter(cfg.Parser.StaleAfter),
		parser.WithLogger(logger),
	}

	var extractorLLM llm.Extractor
	if cfg.LLM.Enabled || engine == config.EngineLLM {
		extractorLLM = openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
			StaleAfter:  cfg.Parser.StaleAfter,
		}, logger)
	}

	if *serveFlag {
		if err := serve(cfg, engine, opts, extractorLLM, logger); err != nil {
			fatalf("server: %v\n", err)
		}
		return
	}

	switch *formatFlag {
	case "json", "csv":
	default:
		fatalf("Unknown format %q. Supported: json, csv\n", *formatFlag)
	}
	if engine != config.EngineLLM {
		if _, err := parser.New(engine); err != nil {
			fatalf("Unknown engine %q. Supported: auto, native, legacy, llm\n", engine)
		}
	}

	if err := checkOutputTarget(*outputFlag, flag.NArg()); err != nil {
		fatalf("%v\n", err)
	}

	run := runOptions{
		engine:        engine,
		output:        *outputFlag,
		format:        *formatFlag,
		includeHeader: *headerFlag,
	}
	for _, inputPath := range flag.Args() {
		if err := processFile(inputPath, run, opts, extractorLLM); err != nil {
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", inputPath, err)
			os.Exit(1)
		}
	}
}

func serve(cfg *config.Config, engine string, opts []parser.Option, ex llm.Extractor, logger *slog.Logger) error {
	h := &api.Handler{
		Options:   opts,
		LLM:       ex,
		Extractor: extractor.PDF{},
		Logger:    logger,
	}
	if engine != config.EngineLLM {
		p, err := parser.New(engine, opts...)
		if err != nil {
			return err
		}
		h.Parser = p
	}
	app := api.NewApp(h, cfg.Server)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api.listen", "addr", cfg.Server.Addr(), "version", version)
		errCh <- app.Listen(cfg.Server.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("api.shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	}
}

func processFile(inputPath string, run runOptions, opts []parser.Option, ex llm.Extractor) error {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", inputPath)
	}

	fmt.Printf("Processing: %s\n", inputPath)

	text, err := readReport(inputPath)
	if err != nil {
		return err
	}
	if err := parser.Detect(text); err != nil {
		fmt.Printf("  Warning: %v\n", err)
	}

	var report *models.Report
	if run.engine == config.EngineLLM {
		if ex == nil {
			return errors.New("LLM engine is not configured")
		}
		fmt.Println("  Using llm extractor")
		report, _, err = ex.Extract(context.Background(), text)
	} else {
		var p parser.Parser
		if p, err = parser.New(run.engine, opts...); err != nil {
			return err
		}
		fmt.Printf("  Using %s engine\n", p.Name())
		report, err = p.Parse(text)
	}
	if err != nil {
		return fmt.Errorf("parsing failed: %w", err)
	}

	fmt.Printf("  Parser: %s\n", report.Engine)
	fmt.Printf("  Found %d active, %d closed, %d statistical liabilities\n",
		len(report.ActiveLiabilities), len(report.ClosedLiabilities), len(report.StatisticalLiabilities))
	if !report.HasLiabilities() {
		fmt.Println("  Warning: No liabilities found. The text may not be a BIK report or its layout is unsupported.")
		fmt.Println("  Try -engine=llm if an API key is configured.")
	}

	outPath := run.output
	if outPath == "" {
		outPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "." + run.format
	}
	if err := writeReport(outPath, run, report); err != nil {
		return err
	}
	fmt.Printf("  Output: %s\n", outPath)

	if report.Score != nil {
		fmt.Printf("  Score: %d\n", *report.Score)
	}
	fmt.Printf("  Monthly installments: %.2f PLN (mortgage %.2f PLN)\n",
		report.Summary.TotalInstallment, report.Summary.MortgageInstallment)
	for _, a := range report.Alerts {
		fmt.Printf("  [%s] %s\n", a.Severity, a.Message)
	}

	fmt.Println("  Done.")
	return nil
}

// readReport returns the report text of a PDF or an already extracted text file.
func readReport(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		pages, err := extractor.ExtractText(path)
		if err != nil {
			return "", fmt.Errorf("PDF extraction failed: %w", err)
		}
		fmt.Printf("  Extracted text from %d page(s)\n", len(pages))
		return extractor.JoinPages(pages), nil
	case ".txt":
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("expected .pdf or .txt file, got %q", ext)
	}
}

func writeReport(path string, run runOptions, r *models.Report) error {
	if run.format == "csv" {
		w := &writer.CSVWriter{IncludeHeader: run.includeHeader}
		if err := w.WriteToFile(path, r); err != nil {
			return fmt.Errorf("CSV write failed: %w", err)
		}
		return nil
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("JSON write failed: %w", err)
	}
	return nil
}

// checkOutputTarget rejects a single -output path shared by several inputs,
// which would leave only the last report on disk.
func checkOutputTarget(output string, inputs int) error {
	if output != "" && inputs > 1 {
		return fmt.Errorf("-output accepts a single input file, got %d", inputs)
	}
	return nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
