package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/insightdelivered/bik-report-analyzer/internal/models"
	"github.com/insightdelivered/bik-report-analyzer/internal/parser/lenders"
)

// Drafts are the built liabilities of each section before cleanup.
type Drafts struct {
	Active      []models.Liability
	Closed      []models.Liability
	Statistical []models.Liability
}

var (
	// a number starting a token: "ALIOR BANK 2.342 PLN" but not "KREDITO24"
	bankNumberPattern = regexp.MustCompile(`(^|\s)\d`)
	// contract boilerplate trailing a captured bank name
	bankClutterPattern = regexp.MustCompile(`(?i)umowa|zakończona|dn\.|dnia|kredyt|pożyczka`)
)

// Phrases that mean a table header was captured instead of a lender.
var bankDenylist = []string{"DO ZOBOWIĄZANIA", "DO SPŁATY", "KWOTA KREDYTU"}

// Description fragments that move a closed record to the statistical list.
var statisticalHints = []string{"BRAK ZGODY", "ODWOŁANA", "PRZETWARZANE W CELACH STATYSTYCZNYCH"}

// CleanBankName cuts amounts, dates and contract boilerplate off a captured bank name.
func CleanBankName(bank string) string {
	if loc := bankNumberPattern.FindStringIndex(bank); loc != nil {
		bank = bank[:loc[0]]
	}
	if i := strings.Index(bank, "PLN"); i >= 0 {
		bank = bank[:i]
	}
	if loc := bankClutterPattern.FindStringIndex(bank); loc != nil {
		bank = bank[:loc[0]]
	}
	return strings.Join(strings.Fields(bank), " ")
}

// Finalize cleans the bank name of a draft and reports whether the record
// passes the quality gate.
func Finalize(l models.Liability) (models.Liability, bool) {
	l.Bank = CleanBankName(l.Bank)
	if utf8.RuneCountInString(l.Bank) < 2 {
		return l, false
	}
	if containsAny(strings.ToUpper(l.Bank), bankDenylist) {
		return l, false
	}
	return l, true
}

func finalizeAll(dst, drafts []models.Liability) []models.Liability {
	for _, d := range drafts {
		if l, ok := Finalize(d); ok {
			dst = append(dst, l)
		}
	}
	return dst
}

// Reclassify moves closed records whose description marks them as kept for
// statistical purposes only into the statistical list.
func Reclassify(r *models.Report) {
	kept := r.ClosedLiabilities[:0]
	for _, l := range r.ClosedLiabilities {
		if containsAny(strings.ToUpper(l.Description), statisticalHints) {
			r.StatisticalLiabilities = append(r.StatisticalLiabilities, l)
			continue
		}
		kept = append(kept, l)
	}
	r.ClosedLiabilities = kept
}

// assemble turns header fields and section drafts into the final report.
func assemble(h Header, d Drafts, engine models.Engine, tables *lenders.Tables) *models.Report {
	r := models.NewReport(engine)
	r.PersonalData = h.PersonalData
	r.Score = h.Score
	r.Inquiries12m = h.Inquiries12m

	r.ActiveLiabilities = finalizeAll(r.ActiveLiabilities, d.Active)
	r.ClosedLiabilities = finalizeAll(r.ClosedLiabilities, d.Closed)
	r.StatisticalLiabilities = finalizeAll(r.StatisticalLiabilities, d.Statistical)
	Reclassify(r)

	r.Summary = Summarize(r.ActiveLiabilities)
	ApplyAlerts(r, tables)
	return r
}
