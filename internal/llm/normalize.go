package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/insightdelivered/bik-report-analyzer/internal/models"
	"github.com/insightdelivered/bik-report-analyzer/internal/parser"
)

var liabilityLists = []string{"active_liabilities", "closed_liabilities", "statistical_liabilities"}

// Amount fields every liability carries; missing ones become 0.
var amountFields = []string{"installment", "amount_left", "limit", "arrears_amount"}

var digitsPattern = regexp.MustCompile(`\d+`)

// Normalize rewrites a decoded model response in place so that it matches the
// Report schema. Models wrap the lists in "liabilities", nest the score under
// personal_data, call the report date "date" and return amounts as strings.
func Normalize(doc map[string]any) {
	if wrapped, ok := doc["liabilities"]; ok {
		delete(doc, "liabilities")
		if m, ok := wrapped.(map[string]any); ok {
			for _, key := range liabilityLists {
				if v, ok := m[key]; ok {
					doc[key] = v
				}
			}
		}
	}

	pd, ok := doc["personal_data"].(map[string]any)
	if !ok {
		pd = map[string]any{}
		doc["personal_data"] = pd
	}
	if score, ok := pd["score"]; ok {
		if _, exists := doc["score"]; !exists {
			doc["score"] = score
		}
		delete(pd, "score")
	}
	if date, ok := pd["date"]; ok {
		pd["report_date"] = date
		delete(pd, "date")
	}
	for _, key := range []string{"report_date", "birth_date"} {
		pd[key] = isoDateOrNil(pd[key])
	}
	for _, key := range []string{"name", "pesel"} {
		if s, ok := pd[key].(string); !ok || strings.TrimSpace(s) == "" {
			pd[key] = nil
		}
	}
	if _, ok := pd["is_stale"].(bool); !ok {
		pd["is_stale"] = false
	}

	doc["score"] = normalizeScore(doc["score"])
	doc["inquiries_12m"] = int(parser.CoerceAmount(doc["inquiries_12m"]))

	for _, key := range liabilityLists {
		items, _ := doc[key].([]any)
		out := make([]any, 0, len(items))
		for _, item := range items {
			if l, ok := item.(map[string]any); ok {
				normalizeLiability(l, key)
				out = append(out, l)
			}
		}
		doc[key] = out
	}

	if _, ok := doc["summary"].(map[string]any); !ok {
		doc["summary"] = map[string]any{}
	}
	doc["alerts"] = []any{}
	doc["parser_type"] = string(models.EngineLLM)
}

func normalizeLiability(l map[string]any, list string) {
	for _, f := range amountFields {
		l[f] = parser.CoerceAmount(l[f])
	}
	if v, ok := l["original_amount"]; ok {
		l["original_amount"] = parser.CoerceAmount(v)
	}

	days := int(parser.CoerceAmount(l["max_delay_days"]))
	l["max_delay_days"] = days

	status, _ := l["max_delay_status"].(string)
	if status == "" {
		status = parser.DelayBucket(days)
		l["max_delay_status"] = status
	}

	if _, ok := l["delays"]; !ok {
		if list == "active_liabilities" {
			l["delays"] = []any{status}
		} else {
			l["delays"] = []any{parser.DelayBucket(days)}
		}
	} else {
		l["delays"] = stringList(l["delays"])
	}

	if bank, _ := l["bank"].(string); strings.TrimSpace(bank) == "" {
		l["bank"] = parser.UnknownBank
	}
	if _, ok := l["type"].(string); !ok {
		l["type"] = ""
	}
	l["closing_date"] = isoDateOrNil(l["closing_date"])
	if _, ok := l["description"].(string); !ok {
		l["description"] = ""
	}
}

// normalizeScore accepts 52, 52.0 and "52 / 100". Values outside 0-100 are dropped.
func normalizeScore(v any) any {
	var n int
	switch t := v.(type) {
	case float64:
		n = int(t)
	case int:
		n = t
	case string:
		m := digitsPattern.FindString(t)
		if m == "" {
			return nil
		}
		n, _ = strconv.Atoi(m)
	default:
		return nil
	}
	if n < 0 || n > 100 {
		return nil
	}
	return n
}

func isoDateOrNil(v any) any {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	if iso, ok := parser.ParseDate(s); ok {
		return iso
	}
	return nil
}

func stringList(v any) []any {
	items, _ := v.([]any)
	out := make([]any, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case string:
			out = append(out, t)
		case float64:
			out = append(out, strconv.FormatFloat(t, 'f', -1, 64))
		}
	}
	return out
}

// DecodeReport normalizes raw model content, validates it against the report
// schema and completes it with staleness, summary and alerts.
func DecodeReport(content []byte, opts ...parser.Option) (*models.Report, error) {
	var doc map[string]any
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("decode model content: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("model content is not a JSON object")
	}
	Normalize(doc)

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode normalized content: %w", err)
	}
	if err := ValidateJSONAgainstSchema(BuildReportJSONSchema(), normalized); err != nil {
		return nil, err
	}

	var r models.Report
	if err := json.Unmarshal(normalized, &r); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	parser.Enrich(&r, opts...)
	return &r, nil
}
