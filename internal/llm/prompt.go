package llm

import (
	"encoding/json"
	"strings"
)

// SystemPrompt instructs the model how to read a BIK report.
const SystemPrompt = `You are a specialized Credit Analyst AI.
Your task is to extract financial liability data from the provided BIK Report.
Output valid JSON matching the schema.

CRITICAL: You must scan the ENTIRE document from start to finish. Do not stop after the header.

### 1. PERSONAL DATA (At the top)
- Name: find "Wnioskodawca" (e.g. Paweł Heuser).
- PESEL: 11 digits.
- Score: "Ocena punktowa" (e.g. 52/100). Extract ONLY the number.
- Date: "Data raportu" (YYYY-MM-DD).

### 2. SECTION MAPPING (Liabilities)
- active_liabilities: items under "Zobowiązania finansowe w trakcie spłaty".
  Headers may have dashes. Required: bank, installment (Rata), amount_left.
- closed_liabilities: items under "Zobowiązania finansowe zamknięte".
  Stop when you see the statistical header. Extract closing_date, arrears_amount.
- statistical_liabilities: items under "Zobowiązania przetwarzane w celach statystycznych".
  They MUST be placed here. Extract ALL items.

### 3. EXTRACTION RULES
- Bank name: look for lender names such as SANTANDER, ALIOR, MBANK.
- Status: if the repayment history shows "0 0 0", the status is "OK".
- Amounts: return strings or numbers.`

// BuildMessages returns the chat messages for one extraction request.
func BuildMessages(text string, schema map[string]any) []map[string]any {
	var user strings.Builder
	user.WriteString("Analyze this BIK Report:\n\n")
	user.WriteString(text)
	user.WriteString("\n\nReturn ONLY JSON that matches the provided schema.")

	return []map[string]any{
		{"role": "system", "content": SystemPrompt},
		{"role": "user", "content": user.String()},
		{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
	}
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
