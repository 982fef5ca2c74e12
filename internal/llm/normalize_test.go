package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/bik-report-analyzer/internal/models"
	"github.com/insightdelivered/bik-report-analyzer/internal/parser"
)

const wrappedResponse = `{
  "personal_data": {"name": "PAWEŁ HEUSER", "pesel": "94060104211", "date": "25.10.2024", "score": "52 / 100"},
  "inquiries_12m": "6",
  "liabilities": {
    "active_liabilities": [
      {"bank": "ALIOR BANK SA", "type": "Kredyt gotówkowy", "installment": "159,50 PLN", "amount_left": "6.174 PLN", "limit": 0, "max_delay_status": "OK"},
      {"bank": "PROVIDENT", "type": "Pożyczka", "installment": "159.50", "amount_left": 800, "limit": "0", "max_delay_status": "31-90 dni"}
    ],
    "closed_liabilities": [
      {"bank": "MBANK", "closing_date": "15.08.2021", "max_delay_days": 45, "arrears_amount": "413 PLN"}
    ]
  },
  "alerts": [{"severity": "CRITICAL", "message": "from the model"}]
}`

func fixedNow() time.Time {
	return time.Date(2024, 10, 28, 12, 0, 0, 0, time.UTC)
}

func TestDecodeReport_FlattensAndCoerces(t *testing.T) {
	r, err := DecodeReport([]byte(wrappedResponse), parser.WithClock(fixedNow))
	require.NoError(t, err)

	assert.Equal(t, models.EngineLLM, r.Engine)
	require.NotNil(t, r.Score)
	assert.Equal(t, 52, *r.Score)
	assert.Equal(t, 6, r.Inquiries12m)
	require.NotNil(t, r.PersonalData.ReportDate)
	assert.Equal(t, "2024-10-25", *r.PersonalData.ReportDate)
	assert.False(t, r.PersonalData.IsStale)

	require.Len(t, r.ActiveLiabilities, 2)
	assert.Equal(t, 159.5, r.ActiveLiabilities[0].Installment)
	assert.Equal(t, 6174.0, r.ActiveLiabilities[0].AmountLeft)
	assert.Equal(t, []string{"OK"}, r.ActiveLiabilities[0].Delays)
	assert.Equal(t, 159.5, r.ActiveLiabilities[1].Installment)
	assert.True(t, r.ActiveLiabilities[1].IsPozabankowe)

	require.Len(t, r.ClosedLiabilities, 1)
	closed := r.ClosedLiabilities[0]
	assert.Equal(t, []string{"31-90 dni"}, closed.Delays)
	assert.Equal(t, "31-90 dni", closed.MaxDelayStatus)
	assert.Equal(t, 413.0, closed.ArrearsAmount)
	require.NotNil(t, closed.ClosingDate)
	assert.Equal(t, "2021-08-15", *closed.ClosingDate)

	assert.NotNil(t, r.StatisticalLiabilities)
	assert.Empty(t, r.StatisticalLiabilities)
	assert.Equal(t, 319.0, r.Summary.TotalInstallment)

	// Model alerts are discarded and rederived.
	var categories []models.AlertCategory
	for _, a := range r.Alerts {
		categories = append(categories, a.Category)
	}
	assert.Equal(t, []models.AlertCategory{
		models.AlertInquiryVolume,
		models.AlertActiveDelinquency,
		models.AlertHistoricalDelinquency,
		models.AlertNonBankLender,
	}, categories)
}

func TestNormalize_ScoreForms(t *testing.T) {
	tests := []struct {
		name  string
		score any
		want  any
	}{
		{"number", 52.0, 52},
		{"string with scale", "52 / 100", 52},
		{"out of range", 250.0, nil},
		{"missing", nil, nil},
		{"no digits", "brak", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := map[string]any{"score": tt.score}
			Normalize(doc)
			assert.Equal(t, tt.want, doc["score"])
		})
	}
}

func TestNormalize_KeepsRootScore(t *testing.T) {
	doc := map[string]any{
		"score":         40.0,
		"personal_data": map[string]any{"score": 90.0},
	}
	Normalize(doc)

	assert.Equal(t, 40, doc["score"])
	assert.NotContains(t, doc["personal_data"], "score")
	for _, key := range liabilityLists {
		assert.Equal(t, []any{}, doc[key])
	}
}

func TestDecodeReport_Errors(t *testing.T) {
	_, err := DecodeReport([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeReport([]byte(`null`))
	assert.Error(t, err)

	_, err = DecodeReport([]byte(`{"active_liabilities": "none"}`))
	require.NoError(t, err, "non-list values are replaced by empty lists")
}

func TestBuildReportJSONSchema_Compiles(t *testing.T) {
	err := ValidateJSONAgainstSchema(BuildReportJSONSchema(), []byte(`{
		"personal_data": {"name": null},
		"score": 10,
		"active_liabilities": [],
		"closed_liabilities": []
	}`))
	require.NoError(t, err)

	err = ValidateJSONAgainstSchema(BuildReportJSONSchema(), []byte(`{"score": 10}`))
	assert.Error(t, err)
}
