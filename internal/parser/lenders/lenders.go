// Package lenders holds the curated lender name tables used by the parsers.
package lenders

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed lenders.yaml
var defaultTables []byte

// Tables is the set of reference lists.
type Tables struct {
	NonBankLenders   []string `yaml:"non_bank_lenders"`
	ActiveTableBanks []string `yaml:"active_table_banks"`
	ClosedEntryBanks []string `yaml:"closed_entry_banks"`
}

// Load decodes tables from YAML.
func Load(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("lenders: decode tables: %w", err)
	}
	if len(t.NonBankLenders) == 0 {
		return nil, fmt.Errorf("lenders: non_bank_lenders is empty")
	}
	return &t, nil
}

var defaults = sync.OnceValue(func() *Tables {
	t, err := Load(defaultTables)
	if err != nil {
		panic(err)
	}
	return t
})

// Default returns the embedded tables.
func Default() *Tables {
	return defaults()
}

// MatchNonBank returns the first non-bank lender contained in bank, ignoring case.
func (t *Tables) MatchNonBank(bank string) (string, bool) {
	return firstContained(bank, t.NonBankLenders)
}

// MatchActiveBank reports whether line mentions a lender from the active table list.
func (t *Tables) MatchActiveBank(line string) bool {
	_, ok := firstContained(line, t.ActiveTableBanks)
	return ok
}

// MatchClosedBank returns the first closed-entry lender contained in text.
func (t *Tables) MatchClosedBank(text string) (string, bool) {
	return firstContained(text, t.ClosedEntryBanks)
}

// NamesLender reports whether line holds a non-bank or active-table lender as
// whole words, so "INGA NOWAK" does not match "ING".
func (t *Tables) NamesLender(line string) bool {
	words := " " + strings.Join(strings.Fields(strings.ToUpper(line)), " ") + " "
	for _, list := range [][]string{t.NonBankLenders, t.ActiveTableBanks} {
		for _, name := range list {
			if strings.Contains(words, " "+strings.ToUpper(name)+" ") {
				return true
			}
		}
	}
	return false
}

func firstContained(text string, names []string) (string, bool) {
	upper := strings.ToUpper(text)
	for _, name := range names {
		if strings.Contains(upper, strings.ToUpper(name)) {
			return name, true
		}
	}
	return "", false
}
