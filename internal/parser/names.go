package parser

import (
	"strings"
	"unicode"

	"vozruta/internal/core"
)

// SplitPassengerDestination separates "who" from "where" around the rightmost
// "viaje a", falling back to the rightmost standalone "a". Without a connector
// the whole text is the passenger.
func SplitPassengerDestination(text string) (passenger, destination *string) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	before, after := -1, -1
	for i := len(words) - 1; i >= 1; i-- {
		if isWord(words[i], "a") && isWord(words[i-1], "viaje") {
			before, after = i-1, i+1
			break
		}
	}
	if before < 0 {
		for i := len(words) - 1; i >= 0; i-- {
			if isWord(words[i], "a") {
				before, after = i, i+1
				break
			}
		}
	}
	if before < 0 {
		return core.OptionalString(trimName(text)), nil
	}

	passenger = core.OptionalString(trimName(strings.Join(words[:before], " ")))
	destination = core.OptionalString(trimName(strings.Join(words[after:], " ")))
	return passenger, destination
}

func isWord(w, want string) bool {
	return strings.EqualFold(w, want)
}

func trimName(s string) string {
	return strings.TrimSpace(strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}))
}
