package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/insightdelivered/bik-report-analyzer/internal/models"
	"github.com/insightdelivered/bik-report-analyzer/internal/parser/lenders"
)

// NativeParser is the deterministic table engine. It tags lines by section
// header, reads active liabilities from the summary table at the top of the
// active section, and reads closed and statistical liabilities from their
// contract-close entries.
//
// Active summary table rows look like:
//
//	Kredyt gotówkowy, pożyczka bankowa
//	05.11.2023 6.174 PLN 6.174 PLN 159 PLN 0 BRAK
//	ALIOR BANK SA
type NativeParser struct {
	cfg config
}

// NewNative returns the native engine.
func NewNative(opts ...Option) *NativeParser {
	return &NativeParser{cfg: newConfig(opts)}
}

func (p *NativeParser) Name() string {
	return "native"
}

func (p *NativeParser) Parse(text string) (*models.Report, error) {
	text = NormalizeText(text)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	header := ExtractHeader(text, p.cfg.now(), p.cfg.staleAfter)
	sections := tagSections(strings.Split(text, "\n"))
	tables := p.cfg.tables

	drafts := Drafts{
		Active: firstNonEmpty(sections.Active,
			func(lines []string) []models.Liability { return parseActiveTable(lines, tables) },
			parseActiveDetails,
		),
		Closed:      parseClosedEntries(strings.Join(sections.Closed, "\n"), tables),
		Statistical: parseStatisticalEntries(strings.Join(sections.Statistical, "\n"), tables),
	}
	return assemble(header, drafts, models.EngineNative, tables), nil
}

// strategy extracts liabilities from section lines, or nothing.
type strategy func(lines []string) []models.Liability

// firstNonEmpty returns the result of the first strategy that finds anything.
func firstNonEmpty(lines []string, strategies ...strategy) []models.Liability {
	for _, s := range strategies {
		if found := s(lines); len(found) > 0 {
			return found
		}
	}
	return nil
}

var (
	// "167.837 PLN"
	plnAmountPattern = regexp.MustCompile(`([\d.,]+)\s*PLN`)
	// a bare 0 standing for 0 PLN, followed by ND, BRAK, PLN or another number
	standaloneZeroPattern = regexp.MustCompile(`\b(0)\s+(?:ND|BRAK|PLN|\d)`)
)

// summaryTableEnd returns the index of the first line past the summary table.
func summaryTableEnd(lines []string) int {
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "Łącznie") ||
			strings.Contains(line, "Informacje szczegółowe") ||
			strings.Contains(line, "Historia spłaty") {
			return i
		}
	}
	return len(lines)
}

// nativeType returns the category a summary-table type line opens.
func nativeType(line string) (string, bool) {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "kredyt odnawialny"):
		return "Kredyt odnawialny", true
	case strings.Contains(lower, "karta kredytowa"):
		return "Karta kredytowa", true
	case strings.Contains(lower, "kredyt gotówkowy") || strings.Contains(lower, "pożyczka"):
		return "Kredyt gotówkowy", true
	case strings.Contains(lower, "kredyt mieszkaniowy") || strings.Contains(lower, "hipot"):
		return "Kredyt hipoteczny", true
	}
	return "", false
}

// parseActiveTable reads liability rows from the summary table. A row needs a
// date and at least two amounts after it. The bank is taken from the text
// before the date, then from the following line when it holds no row of its
// own, then from a bank line seen earlier.
func parseActiveTable(lines []string, tables *lenders.Tables) []models.Liability {
	lines = lines[:summaryTableEnd(lines)]

	var (
		out         []models.Liability
		currentType = "Kredyt"
		pendingBank string
		skipNext    bool
	)

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if skipNext {
			skipNext = false
			continue
		}

		if typ, ok := nativeType(line); ok {
			currentType = typ
			continue
		}

		loc := datePattern.FindStringIndex(line)
		if loc == nil {
			if tables.MatchActiveBank(line) {
				pendingBank = line
			}
			continue
		}

		amounts := rowAmounts(line[loc[1]:])
		if len(amounts) < 2 {
			continue
		}

		b := NewLiabilityBuilder(currentType)
		original := ParseAmount(amounts[0])
		installment := 0.0
		if len(amounts) > 2 {
			installment = ParseAmount(amounts[2])
		}
		limitBased := isLimitBasedType(currentType)
		limit := 0.0
		if limitBased {
			limit = original
		}
		b.SetAmounts(limit, ParseAmount(amounts[1]), installment)
		b.SetOriginalAmount(original, limitBased)

		before := strings.TrimSpace(line[:loc[0]])
		switch {
		case before != "" && tables.MatchActiveBank(before):
			b.SetBank(before)
		case i+1 < len(lines) && isBankOnlyLine(lines[i+1], tables):
			b.SetBank(strings.TrimSpace(lines[i+1]))
			skipNext = true
		case pendingBank != "":
			b.SetBank(pendingBank)
		}

		out = append(out, b.Build())
		currentType = "Kredyt"
		pendingBank = ""
	}

	return out
}

// isBankOnlyLine reports whether line names a lender and is not itself a row.
func isBankOnlyLine(line string, tables *lenders.Tables) bool {
	return datePattern.FindStringIndex(line) == nil && tables.MatchActiveBank(line)
}

// rowAmounts returns the amount tokens of a summary row: every "N PLN" value
// followed by every bare zero placeholder.
func rowAmounts(afterDate string) []string {
	var amounts []string
	for _, m := range plnAmountPattern.FindAllStringSubmatch(afterDate, -1) {
		amounts = append(amounts, m[1])
	}
	for _, m := range standaloneZeroPattern.FindAllStringSubmatch(afterDate, -1) {
		amounts = append(amounts, m[1])
	}
	return amounts
}

// an upper-case line ending in BANK or BANKOWOŚCI, e.g. "SANTANDER CONSUMER BANK"
var detailBankPattern = regexp.MustCompile(`(?m)^([A-ZĄĆĘŁŃÓŚŹŻ][A-ZĄĆĘŁŃÓŚŹŻ\s]+(?:BANK|CONSUMER BANK|BANKOWOŚCI))$`)

// parseActiveDetails looks for a bank heading in the detailed part of the
// section followed by an installment and a "Kredytobiorca LIMIT PLN LEFT PLN" row.
func parseActiveDetails(lines []string) []models.Liability {
	text := strings.Join(lines, "\n")

	var out []models.Liability
	for _, m := range detailBankPattern.FindAllStringSubmatch(text, -1) {
		bank := m[1]
		entry := regexp.MustCompile(`(?s)` + regexp.QuoteMeta(bank) +
			`.*?(\d+)\s*PLN.*?Kredytobiorca.*?([\d.,]+)\s*PLN\s+([\d.,]+)\s*PLN`)
		em := entry.FindStringSubmatch(text)
		if em == nil {
			continue
		}
		b := NewLiabilityBuilder("Kredyt")
		b.SetBank(bank)
		b.SetAmounts(ParseAmount(em[2]), ParseAmount(em[3]), ParseAmount(em[1]))
		out = append(out, b.Build())
	}
	return out
}

const (
	// bankContextWindow is how far before a contract-close entry the bank is searched.
	bankContextWindow = 200
	// historyLookahead bounds the scan for delay rows after an entry.
	historyLookahead = 3000
)

var (
	// "z dn. 01.02.2019 5.250 PLN umowa zakończona dn. 15.08.2024"
	closedEntryPattern = regexp.MustCompile(`(?i)z dn\.\s*(\d{2}\.\d{2}\.\d{4})\s*([\d.,]+)\s*PLN\s*umowa zakończona dn\.\s*(\d{2}\.\d{2}\.\d{4})`)
	// "5.250 PLN umowa zakończona dn. 15.08.2024"
	statisticalEntryPattern = regexp.MustCompile(`(?i)([\d.,]+)\s*PLN\s*umowa zakończona dn\.\s*(\d{2}\.\d{2}\.\d{4})`)
	// "DD.MM.YYYY amount amount DAYS" history row anywhere in the lookahead
	delayRowPattern = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}\s+[\d.,]+\s*(?:PLN)?\s+[\d.,]+\s*(?:PLN)?\s+(\d+)`)

	trailingTypePattern   = regexp.MustCompile(`(?i)\s+(Kredyt|Karta|Pożyczka).*$`)
	trailingAmountPattern = regexp.MustCompile(`\s+\d+.*$`)
)

func parseClosedEntries(text string, tables *lenders.Tables) []models.Liability {
	var out []models.Liability
	for _, m := range closedEntryPattern.FindAllStringSubmatchIndex(text, -1) {
		bank := trailingTypePattern.ReplaceAllString(bankBefore(text, m[0], tables), "")

		b := NewLiabilityBuilder(models.TypeClosed)
		b.SetBank(bank)
		b.SetOriginalAmount(ParseAmount(text[m[4]:m[5]]), false)
		b.SetClosingDate(text[m[6]:m[7]])
		b.SetMaxDelay(maxDelayAfter(text, m[1]))
		out = append(out, b.Build())
	}
	return out
}

func parseStatisticalEntries(text string, tables *lenders.Tables) []models.Liability {
	var out []models.Liability
	for _, m := range statisticalEntryPattern.FindAllStringSubmatchIndex(text, -1) {
		bank := trailingAmountPattern.ReplaceAllString(bankBefore(text, m[0], tables), "")
		bank = trailingTypePattern.ReplaceAllString(bank, "")

		b := NewLiabilityBuilder(models.TypeStatistical)
		b.SetBank(bank)
		b.SetOriginalAmount(ParseAmount(text[m[2]:m[3]]), false)
		b.SetClosingDate(text[m[4]:m[5]])
		b.SetMaxDelay(maxDelayAfter(text, m[1]))
		out = append(out, b.Build())
	}
	return out
}

// bankBefore returns the line holding the first known lender name found in
// the window before pos, or "" when there is none.
func bankBefore(text string, pos int, tables *lenders.Tables) string {
	context := text[clampRuneStart(text, pos-bankContextWindow):pos]
	name, ok := tables.MatchClosedBank(context)
	if !ok {
		return ""
	}
	upper := strings.ToUpper(name)
	for _, line := range strings.Split(context, "\n") {
		if strings.Contains(strings.ToUpper(line), upper) {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

// maxDelayAfter returns the largest delay day count among history rows in
// the bounded window following pos.
func maxDelayAfter(text string, pos int) int {
	window := text[pos:clampRuneStart(text, pos+historyLookahead)]
	maxDays := 0
	for _, m := range delayRowPattern.FindAllStringSubmatch(window, -1) {
		if days, err := strconv.Atoi(m[1]); err == nil && days > maxDays {
			maxDays = days
		}
	}
	return maxDays
}
