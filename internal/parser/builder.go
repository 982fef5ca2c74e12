package parser

import (
	"strings"

	"github.com/insightdelivered/bik-report-analyzer/internal/models"
)

// UnknownBank is the bank name used when none could be found for a record.
const UnknownBank = "Nieznany Bank"

// LiabilityBuilder accumulates the fields of one liability while the lines
// that describe it are consumed. Build produces the immutable value.
type LiabilityBuilder struct {
	typ            string
	bank           string
	hasBank        bool
	installment    float64
	amountLeft     float64
	limit          float64
	originalAmount float64
	isLimitBased   bool
	arrears        float64
	closingDate    *string
	maxDelayDays   int
	maxDelayStatus string
	delays         []string
	description    []string
}

// NewLiabilityBuilder opens a draft of the given type with zeroed fields.
func NewLiabilityBuilder(typ string) *LiabilityBuilder {
	return &LiabilityBuilder{typ: typ}
}

// Type returns the draft's category label.
func (b *LiabilityBuilder) Type() string { return b.typ }

// HasBank reports whether a bank name has been captured.
func (b *LiabilityBuilder) HasBank() bool { return b.hasBank }

// SetBank records the lender name, replacing any earlier capture.
func (b *LiabilityBuilder) SetBank(name string) {
	b.bank = strings.TrimSpace(name)
	b.hasBank = b.bank != ""
}

// SetAmounts stores the value-line amounts of the record.
func (b *LiabilityBuilder) SetAmounts(limit, amountLeft, installment float64) {
	b.limit = limit
	b.amountLeft = amountLeft
	b.installment = installment
}

// ClearLimit drops the limit, for records whose first amount is the original loan amount.
func (b *LiabilityBuilder) ClearLimit() { b.limit = 0 }

// SetOriginalAmount records the originally contracted amount.
func (b *LiabilityBuilder) SetOriginalAmount(amount float64, limitBased bool) {
	b.originalAmount = amount
	b.isLimitBased = limitBased
}

// SetClosingDate stores a DD.MM.YYYY date as ISO; unparsable dates are ignored.
func (b *LiabilityBuilder) SetClosingDate(raw string) {
	if iso := isoDatePtr(raw); iso != nil {
		b.closingDate = iso
	}
}

// AddHistory records one repayment-history row. Rows without delay are ignored.
func (b *LiabilityBuilder) AddHistory(days int, arrears float64) {
	if days <= 0 {
		return
	}
	bucket := DelayBucket(days)
	b.delays = append(b.delays, bucket)
	if days > b.maxDelayDays {
		b.maxDelayDays = days
		b.maxDelayStatus = bucket
	}
	if arrears > b.arrears {
		b.arrears = arrears
	}
}

// SetMaxDelay records a maximum delay known as a whole, without individual rows.
func (b *LiabilityBuilder) SetMaxDelay(days int) {
	if days > b.maxDelayDays {
		b.maxDelayDays = days
	}
	b.maxDelayStatus = DelayBucket(b.maxDelayDays)
	b.delays = []string{b.maxDelayStatus}
}

// SetTerminalStatus overrides the delay status with a status such as WINDYKACJA.
func (b *LiabilityBuilder) SetTerminalStatus(status string) {
	b.maxDelayStatus = status
	b.delays = append(b.delays, status)
}

// AppendDescription adds a residual line to the free-text description.
func (b *LiabilityBuilder) AppendDescription(line string) {
	b.description = append(b.description, line)
}

// Build returns the liability. Missing bank and delay fields get their defaults.
func (b *LiabilityBuilder) Build() models.Liability {
	bank := b.bank
	if !b.hasBank {
		bank = UnknownBank
	}
	status := b.maxDelayStatus
	if status == "" {
		status = DelayBucket(b.maxDelayDays)
	}
	delays := append([]string(nil), b.delays...)
	if len(delays) == 0 {
		delays = []string{models.DelayOK}
	}
	return models.Liability{
		Bank:           bank,
		Type:           b.typ,
		Installment:    b.installment,
		AmountLeft:     b.amountLeft,
		Limit:          b.limit,
		ArrearsAmount:  b.arrears,
		ClosingDate:    b.closingDate,
		MaxDelayDays:   b.maxDelayDays,
		MaxDelayStatus: status,
		Delays:         delays,
		Description:    strings.Join(b.description, " "),
		OriginalAmount: b.originalAmount,
		IsLimitBased:   b.isLimitBased,
	}
}
