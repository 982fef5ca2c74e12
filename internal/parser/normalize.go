package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/insightdelivered/bik-report-analyzer/internal/models"
)

// Date patterns found in BIK reports.
var (
	// DD.MM.YYYY
	datePattern = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`)
	// DD.MM.YYYY as a whole token, optionally followed by a comma
	dateTokenPattern = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4},?$`)
	// normalized amount token: digits with an optional decimal part
	numericTokenPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)
	// already-normalized decimal as returned by JSON producers, e.g. "159.50"
	plainDecimalPattern = regexp.MustCompile(`^\d+\.\d{1,2}$`)
)

// ParseAmount converts a Polish-formatted amount such as "6.174 PLN" or
// "1.234,56" to a float64. Dots are thousands separators and the comma is the
// decimal point. Anything unparsable or negative yields 0.
func ParseAmount(s string) float64 {
	s = strings.ReplaceAll(s, "PLN", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.Join(strings.Fields(s), "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

// parseWholeAmount strips dots only, as history rows never carry a decimal part.
func parseWholeAmount(s string) float64 {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ".", ""), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

// CoerceAmount converts a loosely typed numeric value (as produced by a JSON
// decoder) into a non-negative float64. Strings go through ParseAmount unless
// they already look like a plain decimal ("159.50").
func CoerceAmount(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, "PLN", ""))
		if plainDecimalPattern.MatchString(s) {
			f, _ = strconv.ParseFloat(s, 64)
		} else {
			f = ParseAmount(s)
		}
	}
	if f < 0 {
		return 0
	}
	return f
}

// ParseDate converts DD.MM.YYYY, DD-MM-YYYY or YYYY-MM-DD into YYYY-MM-DD.
func ParseDate(s string) (string, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ","))
	if len(s) != 10 {
		return "", false
	}
	layout := ""
	switch {
	case s[2] == '.' && s[5] == '.':
		layout = "02.01.2006"
	case s[2] == '-' && s[5] == '-':
		layout = "02-01-2006"
	case s[4] == '-' && s[7] == '-':
		layout = "2006-01-02"
	default:
		return "", false
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// isoDatePtr is ParseDate returning nil for unparsable input.
func isoDatePtr(s string) *string {
	if iso, ok := ParseDate(s); ok {
		return &iso
	}
	return nil
}

// DelayBucket maps delay days to a bucket label.
func DelayBucket(days int) string {
	switch {
	case days <= 0:
		return models.DelayOK
	case days <= 30:
		return "0-30 dni"
	case days <= 90:
		return "31-90 dni"
	case days <= 180:
		return "91-180 dni"
	default:
		return ">180 dni"
	}
}

// BirthDateFromPESEL decodes the birth date embedded in a PESEL number.
// The month field carries the century: 1-12 → 1900s, 21-32 → 2000s, 41-52 → 2100s.
func BirthDateFromPESEL(pesel string) (string, bool) {
	if len(pesel) < 6 {
		return "", false
	}
	year, err1 := strconv.Atoi(pesel[0:2])
	month, err2 := strconv.Atoi(pesel[2:4])
	day, err3 := strconv.Atoi(pesel[4:6])
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}

	century := 1900
	switch {
	case month >= 21 && month <= 32:
		month -= 20
		century = 2000
	case month >= 41 && month <= 52:
		month -= 40
		century = 2100
	}

	iso := fmt.Sprintf("%04d-%02d-%02d", century+year, month, day)
	if _, err := time.Parse("2006-01-02", iso); err != nil {
		return "", false
	}
	return iso, true
}

var polishTitle = cases.Title(language.Polish)

// titleCaseName normalizes "SZYMON MACKIEWICZ" and "paweł heuser" alike.
func titleCaseName(s string) string {
	return polishTitle.String(strings.Join(strings.Fields(s), " "))
}

// NormalizeText cleans common PDF extraction artifacts before segmentation:
// decomposed diacritics, non-breaking spaces and CRLF line endings.
func NormalizeText(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\u00A0", " ")
	text = strings.ReplaceAll(text, "\u200B", "")
	return text
}

// extractAmountTokens pulls numeric values from a main amount line, skipping
// date tokens and 8-digit tokens that look like a YYYYMMDD date.
func extractAmountTokens(line string) []float64 {
	var amounts []float64
	for _, tok := range strings.Fields(strings.ReplaceAll(line, "PLN", "")) {
		if dateTokenPattern.MatchString(tok) {
			continue
		}
		clean := strings.ReplaceAll(strings.ReplaceAll(tok, ".", ""), ",", ".")
		if !numericTokenPattern.MatchString(clean) {
			continue
		}
		if len(clean) == 8 && (strings.HasPrefix(clean, "19") || strings.HasPrefix(clean, "20")) {
			continue
		}
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			continue
		}
		amounts = append(amounts, f)
	}
	return amounts
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

func containsAnyFold(text string, needles []string) bool {
	return containsAny(strings.ToUpper(text), upperAll(needles))
}

func upperAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToUpper(s)
	}
	return out
}
