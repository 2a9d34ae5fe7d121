package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"vozruta/internal/core"
)

type dateRule struct {
	re     *regexp.Regexp
	offset func(m []string) (int, bool)
}

func fixed(n int) func([]string) (int, bool) {
	return func([]string) (int, bool) { return n, true }
}

var (
	// "8 de la mañana" is a time of day, not tomorrow.
	timeOfDayRe = regexp.MustCompile(`(?i)\b\d{1,2}\s*(?:de\s+la\s+)?(?:mañana|tarde|noche)|\b(?:por|de)\s+la\s+(?:mañana|tarde|noche)`)

	todayRe          = regexp.MustCompile(`(?i)\bhoy\b`)
	dayAfterTomorrow = regexp.MustCompile(`(?i)\bpasado\s+mañana\b`)
	tomorrowRe       = regexp.MustCompile(`(?i)\bmañana\b`)
	inDaysRe         = regexp.MustCompile(`(?i)\b(?:en|dentro\s+de)\s+(\d+)\s+d[ií]as?\b`)

	dateRules = []dateRule{
		{todayRe, fixed(0)},
		{dayAfterTomorrow, fixed(2)},
		{tomorrowRe, fixed(1)},
		{inDaysRe, func(m []string) (int, bool) {
			n, err := strconv.ParseUint(m[1], 10, 16)
			return int(n), err == nil
		}},
	}
)

// ExtractDate resolves "hoy", "mañana", "pasado mañana" and "en N días"
// against base (YYYY-MM-DD). An empty or malformed base means today.
func ExtractDate(text, base string, now time.Time) (string, bool) {
	anchor, err := core.ParseDay(base)
	if err != nil {
		anchor = core.Midday(now)
	}
	text = timeOfDayRe.ReplaceAllString(text, " ")

	for _, rule := range dateRules {
		m := rule.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, ok := rule.offset(m)
		if !ok {
			continue
		}
		return core.FormatDay(anchor.AddDate(0, 0, n)), true
	}
	return "", false
}

// stripRelativeDates removes every phrase ExtractDate understands.
func stripRelativeDates(text string) string {
	text = timeOfDayRe.ReplaceAllString(text, " ")
	text = inDaysRe.ReplaceAllString(text, " ")
	text = dayAfterTomorrow.ReplaceAllString(text, " ")
	text = tomorrowRe.ReplaceAllString(text, " ")
	text = todayRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
