package parser

import (
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"6.174 PLN", 6174},
		{"159,50 PLN", 159.50},
		{"1.234,56", 1234.56},
		{"12 345,00 PLN", 12345},
		{"0", 0},
		{"", 0},
		{"brak", 0},
		{"-25", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseAmount(tt.input); got != tt.expected {
				t.Errorf("ParseAmount(%q): got %f, want %f", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCoerceAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected float64
	}{
		{"float", 159.5, 159.5},
		{"int", 42, 42},
		{"polish string", "6.174 PLN", 6174},
		{"plain decimal string", "159.50", 159.5},
		{"garbage", "n/a", 0},
		{"nil", nil, 0},
		{"negative", -3.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoerceAmount(tt.input); got != tt.expected {
				t.Errorf("CoerceAmount(%v): got %f, want %f", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"05.11.2023", "2023-11-05", true},
		{"05-11-2023", "2023-11-05", true},
		{"2023-11-05", "2023-11-05", true},
		{"05.11.2023,", "2023-11-05", true},
		{"31.02.2023", "", false},
		{"5.11.2023", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseDate(%q): got %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDelayBucket(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{0, "OK"},
		{1, "0-30 dni"},
		{30, "0-30 dni"},
		{31, "31-90 dni"},
		{90, "31-90 dni"},
		{91, "91-180 dni"},
		{180, "91-180 dni"},
		{181, ">180 dni"},
	}

	for _, tt := range tests {
		if got := DelayBucket(tt.days); got != tt.want {
			t.Errorf("DelayBucket(%d): got %q, want %q", tt.days, got, tt.want)
		}
	}
}

func TestBirthDateFromPESEL(t *testing.T) {
	tests := []struct {
		pesel  string
		want   string
		wantOK bool
	}{
		{"94060104211", "1994-06-01", true},
		{"02271409862", "2002-07-14", true},
		{"10410112345", "2110-01-01", true},
		{"99133112345", "", false},
		{"123", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.pesel, func(t *testing.T) {
			got, ok := BirthDateFromPESEL(tt.pesel)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("got %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	input := "Zobowia\u0328zania\u00A0finansowe\r\nALIOR\u200B BANK"
	want := "Zobowiązania finansowe\nALIOR BANK"
	if got := NormalizeText(input); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractAmountTokens(t *testing.T) {
	got := extractAmountTokens("05.11.2023 6.174 PLN 1.234,50 PLN 20231105 159 PLN 0 BRAK")
	want := []float64{6174, 1234.5, 159, 0}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %f, want %f", i, got[i], want[i])
		}
	}
}
