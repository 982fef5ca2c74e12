package models

// Engine identifies which pipeline produced a Report.
type Engine string

const (
	EngineNative        Engine = "NATIVE"
	EngineRegexFallback Engine = "REGEX_FALLBACK" // legacy regex engine
	EngineLLM           Engine = "LLM"
)

// Liability categories used in Liability.Type for non-active sections.
const (
	TypeClosed      = "Kredyt zamknięty"
	TypeStatistical = "Statystyczny"
)

// DelayOK is the delay label for a record with no observed delinquency.
const DelayOK = "OK"

// PersonalData holds the report header fields.
type PersonalData struct {
	Name       *string `json:"name"`
	PESEL      *string `json:"pesel"`
	BirthDate  *string `json:"birth_date"`  // YYYY-MM-DD
	ReportDate *string `json:"report_date"` // YYYY-MM-DD
	IsStale    bool    `json:"is_stale"`
}

// Summary holds aggregate totals over active liabilities.
type Summary struct {
	TotalInstallment    float64 `json:"total_installment"`
	TotalLimits         float64 `json:"total_limits"`
	MortgageInstallment float64 `json:"mortgage_installment"`
}

// Liability is one credit obligation listed in a report.
type Liability struct {
	Bank           string   `json:"bank"`
	Type           string   `json:"type"`
	Installment    float64  `json:"installment"`
	AmountLeft     float64  `json:"amount_left"`
	Limit          float64  `json:"limit"`
	ArrearsAmount  float64  `json:"arrears_amount"`
	ClosingDate    *string  `json:"closing_date"` // YYYY-MM-DD
	MaxDelayDays   int      `json:"max_delay_days"`
	MaxDelayStatus string   `json:"max_delay_status"`
	Delays         []string `json:"delays"`
	Description    string   `json:"description"`
	IsPozabankowe  bool     `json:"is_pozabankowe"`

	// Set by the native engine only.
	OriginalAmount float64 `json:"original_amount,omitempty"`
	IsLimitBased   bool    `json:"is_limit_based,omitempty"`
}

// Severity orders alerts: info < warning < critical.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARNING"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "INFO"
	}
}

// MarshalText makes severities serialize by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "CRITICAL":
		*s = SeverityCritical
	case "WARNING":
		*s = SeverityWarning
	default:
		*s = SeverityInfo
	}
	return nil
}

// AlertCategory classifies what an alert is about.
type AlertCategory string

const (
	AlertInquiryVolume         AlertCategory = "inquiry_volume"
	AlertActiveDelinquency     AlertCategory = "active_delinquency"
	AlertHistoricalDelinquency AlertCategory = "historical_delinquency"
	AlertNonBankLender         AlertCategory = "non_bank_lender"
	AlertReportStaleness       AlertCategory = "report_staleness"
)

// Alert is a derived risk signal.
type Alert struct {
	Severity Severity      `json:"severity"`
	Category AlertCategory `json:"category"`
	Message  string        `json:"message"`
	Bank     *string       `json:"bank,omitempty"`
}

// Report is the structured result of parsing one BIK report.
type Report struct {
	PersonalData           PersonalData `json:"personal_data"`
	Score                  *int         `json:"score"`
	Inquiries12m           int          `json:"inquiries_12m"`
	Summary                Summary      `json:"summary"`
	ActiveLiabilities      []Liability  `json:"active_liabilities"`
	ClosedLiabilities      []Liability  `json:"closed_liabilities"`
	StatisticalLiabilities []Liability  `json:"statistical_liabilities"`
	Alerts                 []Alert      `json:"alerts"`
	Engine                 Engine       `json:"parser_type"`
}

// NewReport returns a Report with non-nil lists, so it marshals to [] rather than null.
func NewReport(engine Engine) *Report {
	return &Report{
		ActiveLiabilities:      []Liability{},
		ClosedLiabilities:      []Liability{},
		StatisticalLiabilities: []Liability{},
		Alerts:                 []Alert{},
		Engine:                 engine,
	}
}

// HasLiabilities reports whether the active or closed lists are non-empty.
func (r *Report) HasLiabilities() bool {
	return len(r.ActiveLiabilities) > 0 || len(r.ClosedLiabilities) > 0
}

// ErrorResponse is the body returned for a whole-document failure.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
