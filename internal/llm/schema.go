package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildReportJSONSchema returns the Report schema as a generic map. It is sent
// to the model and used to validate the normalized response.
func BuildReportJSONSchema() map[string]any {
	personal := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":        nullableString("Full name, e.g. PAWEŁ HEUSER"),
			"pesel":       nullableString("11 digits"),
			"birth_date":  nullableString("YYYY-MM-DD"),
			"report_date": nullableString("YYYY-MM-DD"),
			"is_stale":    map[string]any{"type": "boolean"},
		},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"personal_data": personal,
			"score": map[string]any{
				"type":        []any{"integer", "null"},
				"minimum":     0,
				"maximum":     100,
				"description": "Credit score (0-100)",
			},
			"inquiries_12m": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"description": "Count of credit inquiries in the last 12 months",
			},
			"summary": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"total_installment":    amountProp(),
					"total_limits":         amountProp(),
					"mortgage_installment": amountProp(),
				},
			},
			"active_liabilities":      liabilityList("bank", "type", "installment", "amount_left", "limit", "max_delay_status"),
			"closed_liabilities":      liabilityList("bank", "max_delay_days"),
			"statistical_liabilities": liabilityList(),
		},
		"required": []any{"personal_data", "score", "active_liabilities", "closed_liabilities"},
	}
}

func liabilityList(required ...string) map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"bank":             map[string]any{"type": "string"},
			"type":             map[string]any{"type": "string"},
			"installment":      amountProp(),
			"amount_left":      amountProp(),
			"limit":            amountProp(),
			"arrears_amount":   amountProp(),
			"closing_date":     nullableString("YYYY-MM-DD"),
			"max_delay_days":   map[string]any{"type": "integer", "minimum": 0},
			"max_delay_status": map[string]any{"type": "string", "description": "e.g. 'OK', '31-90 dni', 'WINDYKACJA'"},
			"delays":           map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"description":      nullableString(""),
		},
	}
	if len(required) > 0 {
		req := make([]any, len(required))
		for i, r := range required {
			req[i] = r
		}
		item["required"] = req
	}
	return map[string]any{"type": "array", "items": item}
}

// Amounts may arrive as Polish-formatted strings.
func amountProp() map[string]any {
	return map[string]any{"type": []any{"number", "string"}}
}

func nullableString(description string) map[string]any {
	p := map[string]any{"type": []any{"string", "null"}}
	if description != "" {
		p["description"] = description
	}
	return p
}

// ValidateJSONAgainstSchema validates data against schemaMap.
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("report.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("report.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
