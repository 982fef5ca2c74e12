package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/insightdelivered/bik-report-analyzer/internal/models"
)

// LegacyParser is the older whole-text engine. It cuts the report with
// header marker pairs and walks each section line by line.
//
// A record in a section looks like:
//
//	Kredyt gotówkowy, pożyczka bankowa
//	ALIOR BANK SA
//	05.11.2023 6.174 PLN 6.174 PLN 159 PLN 0 BRAK
//	10.03.2024 3273 PLN 413 PLN 86
//
// i.e. a type line, a bank line, a main amount line and history rows.
type LegacyParser struct {
	cfg config
}

// NewLegacy returns the legacy regex engine.
func NewLegacy(opts ...Option) *LegacyParser {
	return &LegacyParser{cfg: newConfig(opts)}
}

func (p *LegacyParser) Name() string {
	return "legacy"
}

func (p *LegacyParser) Parse(text string) (*models.Report, error) {
	text = NormalizeText(text)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	header := ExtractHeader(text, p.cfg.now(), p.cfg.staleAfter)
	sections := SplitSections(text)

	drafts := Drafts{
		Active:      classifyLines(sections.Active, SectionActive),
		Closed:      classifyLines(sections.Closed, SectionClosed),
		Statistical: classifyLines(sections.Statistical, SectionStatistical),
	}
	return assemble(header, drafts, models.EngineRegexFallback, p.cfg.tables), nil
}

// Legacy line patterns.
var (
	// DATE AMOUNT [PLN] AMOUNT [PLN] DAYS, anchored at line start.
	// "10.03.2024 3273 PLN 413 PLN 86" or "18.08.2024 0 0 0"
	historyRowPattern = regexp.MustCompile(`^(\d{2}\.\d{2}\.\d{4})\s+([\d.]+)(?:\s*PLN)?\s+([\d.]+)(?:\s*PLN)?\s+(\d+)\b`)
	// page counters such as "64 / 71"
	pageNoisePattern = regexp.MustCompile(`^\d+(\s*/\s*\d+)?$`)
	// "umowa zakończona dn. 15.08.2024"
	contractEndedPattern  = regexp.MustCompile(`(?i)zakończona\s+dn\.?\s*(\d{2}\.\d{2}\.\d{4})`)
	terminalStatusPattern = regexp.MustCompile(`WINDYKACJA|EGZEKUCJA|UMORZONY|ODZYSKANY`)
)

var (
	stopMarkers       = []string{inquiriesMarker, additionalInfoMarker}
	typeKeywords      = []string{"Kredyt", "Pożyczka", "Karta", "Limit"}
	typeDisqualifiers = []string{"Kredytobiorca", "Zapytania", "reklamacji", "Ostatnia", "Rachunek"}
	bankLineDenylist  = []string{"Relacja", "Kwota", "Status", "Data", "Historia", "spłaty", "waluta", "kapitał"}
)

const borrowerLabel = "Kredytobiorca"

// classifyLines runs the record state machine over one section and returns
// the built drafts in order of appearance.
func classifyLines(lines []string, sec Section) []models.Liability {
	var (
		out   []models.Liability
		draft *LiabilityBuilder
	)
	flush := func() {
		if draft != nil {
			out = append(out, draft.Build())
		}
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if containsAny(line, stopMarkers) {
			break
		}

		if isTypeLine(line) {
			flush()
			draft = NewLiabilityBuilder(canonicalType(line))
			continue
		}

		if draft == nil {
			continue
		}

		if days, arrears, ok := matchHistoryRow(line); ok {
			draft.AddHistory(days, arrears)
			continue
		}

		if !draft.HasBank() && isBankCandidate(line) {
			if utf8.RuneCountInString(line) > 2 && !containsAny(line, bankLineDenylist) {
				if !pageNoisePattern.MatchString(line) {
					draft.SetBank(line)
				}
				continue
			}
		}

		if loc := datePattern.FindStringIndex(line); loc != nil && strings.Contains(line, "PLN") {
			applyMainLine(draft, line, loc[0], sec)
			continue
		}

		draft.AppendDescription(line)
	}
	flush()

	return out
}

func isTypeLine(line string) bool {
	return containsAny(line, typeKeywords) && !containsAny(line, typeDisqualifiers)
}

func isBankCandidate(line string) bool {
	return !datePattern.MatchString(line) &&
		!strings.Contains(line, "PLN") &&
		!strings.Contains(line, borrowerLabel)
}

// matchHistoryRow parses a repayment history row. A day count directly
// followed by "PLN" is a third amount, not a delay, and the row is rejected.
func matchHistoryRow(line string) (days int, arrears float64, ok bool) {
	m := historyRowPattern.FindStringSubmatchIndex(line)
	if m == nil {
		return 0, 0, false
	}
	if strings.HasPrefix(strings.TrimLeft(line[m[1]:], " \t"), "PLN") {
		return 0, 0, false
	}
	days, err := strconv.Atoi(line[m[8]:m[9]])
	if err != nil {
		return 0, 0, false
	}
	return days, parseWholeAmount(line[m[6]:m[7]]), true
}

// applyMainLine reads the value line of a record: an optional bank prefix
// before the first date, the amounts, a terminal status and the closing date.
func applyMainLine(draft *LiabilityBuilder, line string, dateAt int, sec Section) {
	if dateAt > 3 {
		prefix := strings.TrimSpace(line[:dateAt])
		if utf8.RuneCountInString(prefix) > 2 && !strings.Contains(prefix, borrowerLabel) {
			draft.SetBank(prefix)
		}
	}

	if status := terminalStatusPattern.FindString(strings.ToUpper(line)); status != "" {
		draft.SetTerminalStatus(status)
	}

	if sec == SectionActive {
		amounts := extractAmountTokens(line)
		if len(amounts) >= 3 {
			draft.SetAmounts(amounts[0], amounts[1], amounts[2])
		}
		if !isLimitBasedType(draft.Type()) {
			draft.ClearLimit()
		}
	}

	if m := contractEndedPattern.FindStringSubmatch(line); m != nil {
		draft.SetClosingDate(m[1])
	} else if dates := datePattern.FindAllString(line, -1); len(dates) > 0 {
		draft.SetClosingDate(dates[len(dates)-1])
	}
}

// canonicalType maps a free-text type line onto a short category label.
func canonicalType(line string) string {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "odnawialny"):
		return "Kredyt odnawialny"
	case strings.Contains(lower, "karta"):
		return "Karta kredytowa"
	case strings.Contains(lower, "mieszkaniow") || strings.Contains(lower, "hipot"):
		return "Kredyt hipoteczny"
	case strings.Contains(lower, "limit") || strings.Contains(lower, "debet"):
		return "Limit kredytowy"
	case strings.Contains(lower, "gotówkow") || strings.Contains(lower, "pożyczka"):
		return "Kredyt gotówkowy"
	default:
		return "Kredyt"
	}
}

// isLimitBasedType reports whether the first amount of a record of this type
// is an open credit limit rather than the originally borrowed amount.
func isLimitBasedType(typ string) bool {
	lower := strings.ToLower(typ)
	return containsAny(lower, []string{"kredyt odnawialny", "karta", "debet", "limit"})
}

// isMortgageType reports whether installments of typ count as mortgage.
func isMortgageType(typ string) bool {
	lower := strings.ToLower(typ)
	return strings.Contains(lower, "hipot") || strings.Contains(lower, "mieszkaniow")
}
