package parser

import (
	"fmt"
	"strings"

	"github.com/insightdelivered/bik-report-analyzer/internal/models"
	"github.com/insightdelivered/bik-report-analyzer/internal/parser/lenders"
)

const (
	inquiryCriticalAbove = 5
	inquiryWarningFrom   = 3
)

// Delay labels that count as delinquency over 30 days. Prefixes match bucket
// labels, keywords match terminal statuses regardless of case.
var (
	delinquentBuckets   = []string{"31-", "91-", ">180"}
	activeDelayKeywords = []string{"windykacja", "egzekucja", "odzysk"}
	closedDelayKeywords = []string{"windykacja", "egzekucja"}
)

// ApplyAlerts flags non-bank lenders on active and closed liabilities and
// replaces r.Alerts with the alerts derived from the report.
func ApplyAlerts(r *models.Report, tables *lenders.Tables) {
	if tables == nil {
		tables = lenders.Default()
	}
	r.Alerts = DeriveAlerts(r, tables)
}

// DeriveAlerts returns the alerts for r in a fixed order: staleness, inquiry
// volume, active delinquency, historical delinquency, then non-bank lenders.
// It sets IsPozabankowe on matching liabilities.
//
// A delay counts as delinquent for every bucket above 30 days ("31-90",
// "91-180", ">180"), not only for labels starting with "31-".
func DeriveAlerts(r *models.Report, tables *lenders.Tables) []models.Alert {
	alerts := []models.Alert{}

	if r.PersonalData.IsStale && r.PersonalData.ReportDate != nil {
		alerts = append(alerts, models.Alert{
			Severity: models.SeverityWarning,
			Category: models.AlertReportStaleness,
			Message:  fmt.Sprintf("Raport starszy niż 7 dni (%s)", *r.PersonalData.ReportDate),
		})
	}

	switch n := r.Inquiries12m; {
	case n > inquiryCriticalAbove:
		alerts = append(alerts, models.Alert{
			Severity: models.SeverityCritical,
			Category: models.AlertInquiryVolume,
			Message:  fmt.Sprintf("Duża liczba zapytań w ost. 12 mies.: %d (>5)", n),
		})
	case n >= inquiryWarningFrom:
		alerts = append(alerts, models.Alert{
			Severity: models.SeverityWarning,
			Category: models.AlertInquiryVolume,
			Message:  fmt.Sprintf("Podwyższona liczba zapytań: %d (3-5)", n),
		})
	}

	for _, l := range r.ActiveLiabilities {
		for _, d := range l.Delays {
			if hasAnyPrefix(d, delinquentBuckets) || containsAny(strings.ToLower(d), activeDelayKeywords) {
				alerts = append(alerts, models.Alert{
					Severity: models.SeverityCritical,
					Category: models.AlertActiveDelinquency,
					Message:  fmt.Sprintf("Opóźnienie >30 dni w %s (%s): %s", l.Bank, l.Type, d),
					Bank:     models.StringPtr(l.Bank),
				})
			}
		}
	}

	for _, l := range r.ClosedLiabilities {
		for _, d := range l.Delays {
			if hasAnyPrefix(d, delinquentBuckets) || containsAny(strings.ToLower(d), closedDelayKeywords) {
				alerts = append(alerts, models.Alert{
					Severity: models.SeverityWarning,
					Category: models.AlertHistoricalDelinquency,
					Message:  fmt.Sprintf("Historyczne opóźnienie >30 dni w %s (Zamknięty)", l.Bank),
					Bank:     models.StringPtr(l.Bank),
				})
			}
		}
	}

	alerts = flagNonBank(alerts, r.ActiveLiabilities, tables, models.SeverityWarning, "Aktywna pożyczka pozabankowa: %s")
	alerts = flagNonBank(alerts, r.ClosedLiabilities, tables, models.SeverityInfo, "Zamknięta pożyczka pozabankowa: %s")

	return alerts
}

// flagNonBank marks liabilities held with a non-bank lender and emits one
// alert per marked liability.
func flagNonBank(alerts []models.Alert, list []models.Liability, tables *lenders.Tables, sev models.Severity, format string) []models.Alert {
	for i := range list {
		l := &list[i]
		if _, ok := tables.MatchNonBank(l.Bank); !ok {
			continue
		}
		l.IsPozabankowe = true
		alerts = append(alerts, models.Alert{
			Severity: sev,
			Category: models.AlertNonBankLender,
			Message:  fmt.Sprintf(format, l.Bank),
			Bank:     models.StringPtr(l.Bank),
		})
	}
	return alerts
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
