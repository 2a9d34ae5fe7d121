package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// A number as spoken in es-AR, optionally followed by "mil".
const numberPattern = `\d+(?:[.,]\d+)*(?:\s?mil\b)?`

type amountRule struct {
	name string
	re   *regexp.Regexp
}

var (
	amountRules = []amountRule{
		{"currency symbol", regexp.MustCompile(`(?i)\$\s*(` + numberPattern + `)`)},
		{"currency word", regexp.MustCompile(`(?i)(` + numberPattern + `)\s*pesos?\b`)},
		{"amount keyword", regexp.MustCompile(`(?i)\b(?:importe|monto|total)\s+(` + numberPattern + `)`)},
	}

	anyNumberRe   = regexp.MustCompile(`(?i)` + numberPattern)
	timeFollowsRe = regexp.MustCompile(`(?i)^\s*(?:horas?|hs|y\s+media|de\s+la|mañana|tarde|noche)`)
	thousandRe    = regexp.MustCompile(`(?i)\bmil\b`)
	leadingNumRe  = regexp.MustCompile(`^\d*\.?\d*`)
)

// ExtractAmount returns the monetary quantity mentioned in text, or 0.
func ExtractAmount(text string) float64 {
	amount, _, _ := MatchAmount(text)
	return amount
}

// MatchAmount returns the amount together with the literal it was read from,
// so the caller can strip exactly that substring later.
func MatchAmount(text string) (amount float64, literal string, ok bool) {
	for _, rule := range amountRules {
		if m := rule.re.FindStringSubmatch(text); m != nil {
			return NormalizeAmount(m[1]), m[1], true
		}
	}
	if lit, ok := firstPlainNumber(text); ok {
		return NormalizeAmount(lit), lit, true
	}
	return 0, "", false
}

// firstPlainNumber scans left to right for a number that does not read as a
// time of day ("20 horas", "3 de la tarde", "15:30").
func firstPlainNumber(text string) (string, bool) {
	for _, loc := range anyNumberRe.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && text[start-1] == ':' {
			continue
		}
		if end+1 < len(text) && text[end] == ':' && isDigit(text[end+1]) {
			continue
		}
		if timeFollowsRe.MatchString(text[end:]) {
			continue
		}
		return text[start:end], true
	}
	return "", false
}

// NormalizeAmount turns a spoken/typed number into a non-negative quantity.
//
// "mil" multiplies by 1000. With both separators present the dot groups
// thousands and the comma is decimal (1.250,50). With a single kind of
// separator, a trailing group of exactly three digits (or more than one
// separator) means thousands (35.000, 35,000); otherwise it is decimal.
func NormalizeAmount(s string) float64 {
	multiplier := 1.0
	if thousandRe.MatchString(s) {
		multiplier = 1000
		s = thousandRe.ReplaceAllString(s, "")
	}

	clean := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			return r
		}
		return -1
	}, s)

	hasDot := strings.Contains(clean, ".")
	hasComma := strings.Contains(clean, ",")
	switch {
	case hasDot && hasComma:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	case hasDot:
		if groupsAreThousands(clean, ".") {
			clean = strings.ReplaceAll(clean, ".", "")
		}
	case hasComma:
		if groupsAreThousands(clean, ",") {
			clean = strings.ReplaceAll(clean, ",", "")
		} else {
			clean = strings.Replace(clean, ",", ".", 1)
		}
	}

	v := leadingFloat(clean)
	return math.Abs(v * multiplier)
}

func groupsAreThousands(s, sep string) bool {
	parts := strings.Split(s, sep)
	return len(parts) > 2 || (len(parts) == 2 && len(parts[1]) == 3)
}

// leadingFloat parses the longest numeric prefix of s; anything unparsable is 0.
func leadingFloat(s string) float64 {
	num := strings.TrimSuffix(leadingNumRe.FindString(s), ".")
	if strings.Trim(num, ".") == "" {
		return 0
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
