package parser

import "testing"

func TestExtractAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
	}{
		{"$35.000", 35000},
		{"$ 1.500", 1500},
		{"2500 pesos", 2500},
		{"un peso", 0},
		{"importe 700", 700},
		{"total 1,5", 1.5},
		{"1.250,50", 1250.5},
		{"1.234.567", 1234567},
		{"2.5", 2.5},
		{"30 mil", 30000},
		{"1,5 mil", 1500},
		{"-50 pesos", 50},
		{"sin monto", 0},
		{"", 0},
		// priority: currency symbol beats an earlier plain number
		{"200 y $500", 500},
		{"$35.000 y 200", 35000},
		// numbers that read as times of day are skipped
		{"a las 20 horas 3000", 3000},
		{"3 de la tarde 900", 900},
		{"9 y media 1200", 1200},
		{"15:30 200", 200},
	}
	for _, tc := range cases {
		if got := ExtractAmount(tc.in); got != tc.out {
			t.Fatalf("%q expected %v, got %v", tc.in, tc.out, got)
		}
	}
}

func TestMatchAmountLiteral(t *testing.T) {
	amount, literal, ok := MatchAmount("Juan a Retiro $15.000")
	if !ok || amount != 15000 || literal != "15.000" {
		t.Fatalf("got amount=%v literal=%q ok=%v", amount, literal, ok)
	}

	if _, _, ok := MatchAmount("Juan a Retiro"); ok {
		t.Fatal("expected no match without a number")
	}
}

func TestNormalizeAmountNeverNegative(t *testing.T) {
	for _, in := range []string{"-10", "abc", ".", ",,", "1..2", "99999999999999999999999"} {
		if got := NormalizeAmount(in); got < 0 {
			t.Fatalf("%q normalised to negative %v", in, got)
		}
	}
}
