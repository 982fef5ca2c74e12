package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Section identifies one of the three liability lists of a report.
type Section int

const (
	SectionActive Section = iota
	SectionClosed
	SectionStatistical
)

func (s Section) String() string {
	switch s {
	case SectionClosed:
		return "closed"
	case SectionStatistical:
		return "statistical"
	default:
		return "active"
	}
}

// Section headers. Report versions differ in the dash glyph used, so every
// header that carries a dash is listed with hyphen, en-dash and em-dash.
var (
	activeMarkers = dashVariants("Zobowiązania finansowe %s w trakcie spłaty")
	closedMarkers = dashVariants("Zobowiązania finansowe %s zamknięte")
	statMarkers   = []string{
		"Zobowiązania przetwarzane w celach statystycznych",
		"Zobowiązania przetwarzane w celach  statystycznych",
	}

	additionalInfoMarker = "Informacje dodatkowe"
	inquiriesMarker      = "Zapytania kredytowe"
)

func dashVariants(format string) []string {
	dashes := []string{"-", "–", "—"}
	out := make([]string, 0, len(dashes))
	for _, d := range dashes {
		out = append(out, strings.Replace(format, "%s", d, 1))
	}
	return out
}

// Sections holds the line ranges of the three liability sections.
type Sections struct {
	Active      []string
	Closed      []string
	Statistical []string
}

// Lines returns the lines of the given section.
func (s Sections) Lines(sec Section) []string {
	switch sec {
	case SectionClosed:
		return s.Closed
	case SectionStatistical:
		return s.Statistical
	default:
		return s.Active
	}
}

// SplitSections cuts the report into its three liability sections using
// start/end header pairs tried in priority order. A section whose header is
// missing is empty; a section without any terminator runs to the end of text.
func SplitSections(text string) Sections {
	activeEnds := concat(closedMarkers, statMarkers, []string{additionalInfoMarker, inquiriesMarker})
	closedEnds := concat(statMarkers, []string{additionalInfoMarker, inquiriesMarker})
	statEnds := []string{additionalInfoMarker, inquiriesMarker}

	return Sections{
		Active:      splitLines(findSection(text, activeMarkers, activeEnds)),
		Closed:      splitLines(findSection(text, closedMarkers, closedEnds)),
		Statistical: splitLines(findSection(text, statMarkers, statEnds)),
	}
}

// findSection returns the text between the first start marker present and the
// first end marker found after it, excluding the start marker itself.
func findSection(text string, starts, ends []string) string {
	for _, start := range starts {
		idx := strings.Index(text, start)
		if idx < 0 {
			continue
		}
		body := text[idx+len(start):]
		for _, end := range ends {
			if endIdx := strings.Index(body, end); endIdx >= 0 {
				return body[:endIdx]
			}
		}
		return body
	}
	return ""
}

func splitLines(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// Native engine section headers, matched per line in this order.
var (
	nativeStatHeader   = regexp.MustCompile(`(?i)Zobowiązania.*przetwarzane w celach statystycznych`)
	nativeClosedHeader = regexp.MustCompile(`(?i)Zobowiązania finansowe.*zamknięte`)
	nativeActiveHeader = regexp.MustCompile(`(?i)Zobowiązania finansowe.*w trakcie spłaty`)
)

// tagSections assigns every line after a section header to that section,
// until the next header. Lines before the first header are dropped.
func tagSections(lines []string) Sections {
	var s Sections
	current := -1
	for _, line := range lines {
		switch {
		case nativeStatHeader.MatchString(line):
			current = int(SectionStatistical)
		case nativeClosedHeader.MatchString(line):
			current = int(SectionClosed)
		case nativeActiveHeader.MatchString(line):
			current = int(SectionActive)
		case current == int(SectionActive):
			s.Active = append(s.Active, line)
		case current == int(SectionClosed):
			s.Closed = append(s.Closed, line)
		case current == int(SectionStatistical):
			s.Statistical = append(s.Statistical, line)
		}
	}
	return s
}

// clampRuneStart bounds i to text and moves it forward to a rune boundary.
func clampRuneStart(text string, i int) int {
	if i <= 0 {
		return 0
	}
	if i >= len(text) {
		return len(text)
	}
	for i < len(text) && !utf8.RuneStart(text[i]) {
		i++
	}
	return i
}
