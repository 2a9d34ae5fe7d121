package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// timeRule reads a clock time from lower-cased text. A rule whose match
// yields an out-of-range hour or minute does not match.
type timeRule func(lower string) (string, bool)

var (
	directTimeRe = regexp.MustCompile(`\b(\d{1,2}):(\d{2})`)
	hoursRe      = regexp.MustCompile(`\b(\d{1,2})\s*(?:horas?|hs)`)
	periodRe     = regexp.MustCompile(`\b(\d{1,2})\s*(?:de\s+la\s+)?(mañana|tarde|noche)`)
	halfPastRe   = regexp.MustCompile(`\b(\d{1,2})\s*y\s*media`)

	timeRules = []timeRule{
		directTime,
		hoursTime,
		periodTime,
		halfPastTime,
	}
)

// ExtractTime finds a clock time such as "15:30", "20 horas", "3 de la tarde"
// or "9 y media" and returns it as HH:MM.
func ExtractTime(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, rule := range timeRules {
		if hhmm, ok := rule(lower); ok {
			return hhmm, true
		}
	}
	return "", false
}

func directTime(lower string) (string, bool) {
	m := directTimeRe.FindStringSubmatch(lower)
	if m == nil {
		return "", false
	}
	h, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	return clock(h, minute)
}

func hoursTime(lower string) (string, bool) {
	m := hoursRe.FindStringSubmatch(lower)
	if m == nil {
		return "", false
	}
	h, _ := strconv.Atoi(m[1])
	return clock(h, 0)
}

func periodTime(lower string) (string, bool) {
	m := periodRe.FindStringSubmatch(lower)
	if m == nil {
		return "", false
	}
	h, _ := strconv.Atoi(m[1])
	if (m[2] == "tarde" || m[2] == "noche") && h < 12 {
		h += 12
	}
	return clock(h, 0)
}

func halfPastTime(lower string) (string, bool) {
	m := halfPastRe.FindStringSubmatch(lower)
	if m == nil {
		return "", false
	}
	h, _ := strconv.Atoi(m[1])
	return clock(h, 30)
}

func clock(h, minute int) (string, bool) {
	if h < 0 || h > 23 || minute < 0 || minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", h, minute), true
}
