package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/insightdelivered/bik-report-analyzer/internal/models"
)

// CSVWriter writes report liabilities to CSV format, one row per liability.
type CSVWriter struct {
	IncludeHeader bool
}

var columns = []string{
	"Section", "Bank", "Type", "Installment", "Amount Left", "Limit", "Arrears",
	"Closing Date", "Max Delay Days", "Max Delay Status", "Delays", "Non-Bank", "Description",
}

// WriteToFile writes the report to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, r *models.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, r)
}

// Write writes the report in CSV format to the given writer.
func (w *CSVWriter) Write(out io.Writer, r *models.Report) error {
	writer := csv.NewWriter(out)

	if w.IncludeHeader {
		for _, meta := range metadata(r) {
			if err := writer.Write(meta); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
	}

	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	sections := []struct {
		name  string
		items []models.Liability
	}{
		{"active", r.ActiveLiabilities},
		{"closed", r.ClosedLiabilities},
		{"statistical", r.StatisticalLiabilities},
	}
	for _, s := range sections {
		for _, l := range s.items {
			if err := writer.Write(row(s.name, l)); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// metadata returns "# Key,Value" rows for the header fields that are set.
func metadata(r *models.Report) [][]string {
	var rows [][]string
	add := func(key string, v *string) {
		if v != nil && *v != "" {
			rows = append(rows, []string{"# " + key, *v})
		}
	}

	add("Name", r.PersonalData.Name)
	add("PESEL", r.PersonalData.PESEL)
	add("Birth Date", r.PersonalData.BirthDate)
	add("Report Date", r.PersonalData.ReportDate)
	if r.Score != nil {
		rows = append(rows, []string{"# Score", strconv.Itoa(*r.Score)})
	}
	rows = append(rows,
		[]string{"# Inquiries (12m)", strconv.Itoa(r.Inquiries12m)},
		[]string{"# Engine", string(r.Engine)},
	)
	return rows
}

func row(section string, l models.Liability) []string {
	closing := ""
	if l.ClosingDate != nil {
		closing = *l.ClosingDate
	}
	return []string{
		section,
		l.Bank,
		l.Type,
		formatAmount(l.Installment),
		formatAmount(l.AmountLeft),
		formatAmount(l.Limit),
		formatAmount(l.ArrearsAmount),
		closing,
		strconv.Itoa(l.MaxDelayDays),
		l.MaxDelayStatus,
		strings.Join(l.Delays, "; "),
		strconv.FormatBool(l.IsPozabankowe),
		l.Description,
	}
}

func formatAmount(amount float64) string {
	if amount == 0 {
		return ""
	}
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
