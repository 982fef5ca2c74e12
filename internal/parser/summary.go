package parser

import (
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/bik-report-analyzer/internal/models"
)

// Summarize folds the active liabilities into the report totals. Mortgage
// installments are kept apart from the other installments.
func Summarize(active []models.Liability) models.Summary {
	total, limits, mortgage := decimal.Zero, decimal.Zero, decimal.Zero
	for _, l := range active {
		installment := decimal.NewFromFloat(l.Installment)
		if isMortgageType(l.Type) {
			mortgage = mortgage.Add(installment)
		} else {
			total = total.Add(installment)
		}
		limits = limits.Add(decimal.NewFromFloat(l.Limit))
	}
	return models.Summary{
		TotalInstallment:    total.InexactFloat64(),
		TotalLimits:         limits.InexactFloat64(),
		MortgageInstallment: mortgage.InexactFloat64(),
	}
}
