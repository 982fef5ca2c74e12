package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/insightdelivered/bik-report-analyzer/internal/models"
	"github.com/insightdelivered/bik-report-analyzer/internal/parser/lenders"
)

const (
	// headerWindow bounds the search for date, PESEL, name and score.
	headerWindow = 50
	// inquiryWindow bounds the search for the inquiry counters row.
	inquiryWindow = 100
)

var (
	// "25.10.2024 | 16:46"
	reportStampPattern = regexp.MustCompile(`(\d{2}[.-]\d{2}[.-]\d{4})\s*\|\s*\d{2}:\d{2}`)
	// "Data generowania raportu: 25.10.2024"
	generationDatePattern = regexp.MustCompile(`Data generowania.*?:?\s*(\d{2}[.-]\d{2}[.-]\d{4}|\d{4}-\d{2}-\d{2})`)
	leadingDatePattern    = regexp.MustCompile(`^\s*(\d{2}\.\d{2}\.\d{4})`)

	peselPattern = regexp.MustCompile(`PESEL[:\s]*(\d{11})`)
	namePattern  = regexp.MustCompile(`^[A-ZĄĆĘŁŃÓŚŹŻ][A-ZĄĆĘŁŃÓŚŹŻa-ząćęłńóśźż]+(?:\s+[A-ZĄĆĘŁŃÓŚŹŻ][A-ZĄĆĘŁŃÓŚŹŻa-ząćęłńóśźż]+)+$`)

	labeledScorePattern = regexp.MustCompile(`(?is)Ocena\s*punktowa.*?(\d{1,3}|Brak)\s*/\s*100`)
	scorePattern        = regexp.MustCompile(`(\d{1,3})\s*/\s*100`)

	// four counters on one line; numbers stacked on separate lines do not count
	inquiryRowPattern    = regexp.MustCompile(`(?m)^[ \t]*(\d+)[ \t]+(\d+)[ \t]+(\d+)[ \t]+(\d+)[ \t]*$`)
	inquiryBeforePattern = regexp.MustCompile(`(\d+)\s*Zapytania kredytowe w BIK`)
	inquiryAfterPattern  = regexp.MustCompile(`z ostatnich 12 miesięcy\s*(\d+)`)
)

// sectionHeaderPrefix opens every liability section header.
const sectionHeaderPrefix = "Zobowiązania"

// nameBoilerplate marks header lines that are never the holder's name.
var nameBoilerplate = []string{"Wskaźnik", "Biuro", "Raport", "Ocena", "PESEL"}

// Header is the personal data and scoring block at the top of a report.
type Header struct {
	PersonalData models.PersonalData
	Score        *int
	Inquiries12m int
}

// ExtractHeader reads header fields from the first lines of the report.
// staleAfter is the age beyond which a report is flagged stale.
func ExtractHeader(text string, now time.Time, staleAfter time.Duration) Header {
	lines := strings.Split(text, "\n")
	head := strings.Join(firstN(lines, headerWindow), "\n")

	var h Header

	if reportDate, ok := extractReportDate(head); ok {
		h.PersonalData.ReportDate = &reportDate
		if t, err := time.Parse("2006-01-02", reportDate); err == nil {
			h.PersonalData.IsStale = now.Sub(t) > staleAfter
		}
	}

	peselLine := -1
	for i, line := range firstN(lines, headerWindow) {
		if m := peselPattern.FindStringSubmatch(line); m != nil {
			pesel := m[1]
			h.PersonalData.PESEL = &pesel
			if birth, ok := BirthDateFromPESEL(pesel); ok {
				h.PersonalData.BirthDate = &birth
			}
			peselLine = i
			break
		}
	}

	if name, ok := extractName(lines, peselLine); ok {
		h.PersonalData.Name = &name
	}

	h.Score = extractScore(head)
	h.Inquiries12m = extractInquiries(text, lines)

	return h
}

// extractReportDate prefers the "DD.MM.YYYY | HH:MM" stamp, then the labeled
// generation date, then a date opening the document.
func extractReportDate(head string) (string, bool) {
	if m := reportStampPattern.FindStringSubmatch(head); m != nil {
		if iso, ok := ParseDate(m[1]); ok {
			return iso, true
		}
	}
	if m := generationDatePattern.FindStringSubmatch(head); m != nil {
		if iso, ok := ParseDate(m[1]); ok {
			return iso, true
		}
	}
	if m := leadingDatePattern.FindStringSubmatch(head); m != nil {
		return ParseDate(m[1])
	}
	return "", false
}

// extractName walks backwards from the PESEL line looking for a line of two or
// more capitalised words. Without a PESEL line it scans the first lines forwards,
// stopping at the first section header and skipping lender names.
func extractName(lines []string, peselLine int) (string, bool) {
	if peselLine >= 0 {
		for i := peselLine - 1; i >= 0; i-- {
			if name, ok := nameCandidate(lines[i]); ok {
				return name, true
			}
		}
		return "", false
	}
	tables := lenders.Default()
	for _, line := range firstN(lines, 10) {
		if strings.Contains(line, sectionHeaderPrefix) {
			break
		}
		if tables.NamesLender(line) {
			continue
		}
		if name, ok := nameCandidate(line); ok {
			return name, true
		}
	}
	return "", false
}

func nameCandidate(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.Contains(line, ":") || containsAny(line, nameBoilerplate) {
		return "", false
	}
	if datePattern.MatchString(line) || !namePattern.MatchString(line) {
		return "", false
	}
	return titleCaseName(line), true
}

func extractScore(head string) *int {
	raw := ""
	if m := labeledScorePattern.FindStringSubmatch(head); m != nil {
		raw = m[1]
	} else if m := scorePattern.FindStringSubmatch(head); m != nil {
		raw = m[1]
	}
	if raw == "" {
		return nil
	}
	if strings.EqualFold(raw, "Brak") {
		zero := 0
		return &zero
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n > 100 {
		return nil
	}
	return &n
}

// extractInquiries takes the first integer of the four-counter row near the
// inquiries table, falling back to the labeled "Zapytania kredytowe w BIK" phrase.
func extractInquiries(text string, lines []string) int {
	extended := strings.Join(firstN(lines, inquiryWindow), "\n")
	if m := inquiryRowPattern.FindStringSubmatch(extended); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}

	idx := strings.Index(text, "Zapytania kredytowe w BIK")
	if idx < 0 {
		return 0
	}
	context := text[clampRuneStart(text, idx-50):clampRuneStart(text, idx+100)]
	if m := inquiryBeforePattern.FindStringSubmatch(context); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if m := inquiryAfterPattern.FindStringSubmatch(context); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

func firstN(lines []string, n int) []string {
	if len(lines) < n {
		return lines
	}
	return lines[:n]
}
