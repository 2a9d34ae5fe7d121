// Package parser turns a spoken or typed es-AR sentence into a trip draft.
//
// Every extractor is an ordered list of small rules that never fail; the
// first rule that matches wins and anything unrecognised degrades to a safe
// default (0, absent, or a placeholder description).
package parser

import (
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vozruta/internal/core"
)

var (
	// Each time phrase takes a leading "a la(s)" with it so the connector is
	// not mistaken for the passenger/destination "a".
	timePhraseRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:a\s+las?\s+)?\d{1,2}:\d{2}`),
		regexp.MustCompile(`(?i)\b(?:a\s+las?\s+)?\d{1,2}\s*(?:horas?|hs)\b`),
		regexp.MustCompile(`(?i)\b(?:a\s+las?\s+)?\d{1,2}\s*(?:de\s+la\s+)?(?:mañana|tarde|noche)\b`),
		regexp.MustCompile(`(?i)\b(?:a\s+las?\s+)?\d{1,2}\s*y\s*media\b`),
	}
	moneyWordRe = regexp.MustCompile(`(?i)\b(?:pesos?|importe|monto|total)\b`)
	spacesRe    = regexp.MustCompile(`\s+`)
)

// Parser runs the extractors over a sentence in a fixed order.
type Parser struct {
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Parser)

// WithLogger sets the logger used for debug traces of each parse.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// WithClock overrides the clock used when no base date is given.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

func New(opts ...Option) *Parser {
	p := &Parser{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse extracts a ParseResult from sentence. base is the YYYY-MM-DD day that
// relative dates are resolved against; empty means today.
//
// Time, date and amount are all read from the untouched sentence: cleaning
// is substring based and must remove exactly the literals that were matched.
func (p *Parser) Parse(sentence, base string) core.ParseResult {
	var res core.ParseResult

	if hhmm, ok := ExtractTime(sentence); ok {
		res.Time = &hhmm
	}
	if day, ok := ExtractDate(sentence, base, p.now()); ok {
		res.Date = &day
	}
	amount, literal, _ := MatchAmount(sentence)
	res.Amount = amount
	if pkg, ok := DetectPackageType(sentence); ok {
		res.PackageType = &pkg
	}

	cleaned := clean(sentence, literal)

	passenger, destination := SplitPassengerDestination(cleaned)
	if passenger != nil {
		res.Passenger = core.OptionalString(titleCase(*passenger))
	}
	if destination != nil {
		res.Destination = core.OptionalString(titleCase(*destination))
	}

	switch {
	case res.Passenger != nil && res.Destination != nil:
		res.Description = *res.Passenger + " a " + *res.Destination
	case res.Passenger != nil:
		res.Description = *res.Passenger
	default:
		res.Description = cleaned
	}
	if strings.TrimSpace(res.Description) == "" {
		res.Description = core.NoDescription
	}
	res.Description = capitalize(res.Description)

	p.logger.Debug("Parsed sentence",
		"sentence", sentence,
		"description", res.Description,
		"amount", res.Amount,
		"time", core.Deref(res.Time),
		"date", core.Deref(res.Date))

	return res
}

// clean strips time phrases, relative dates, the matched amount literal,
// money words and currency symbols, then collapses whitespace.
func clean(sentence, amountLiteral string) string {
	text := sentence
	for _, re := range timePhraseRes {
		text = re.ReplaceAllString(text, " ")
	}
	text = stripRelativeDates(text)
	if amountLiteral != "" {
		text = strings.ReplaceAll(text, amountLiteral, " ")
	}
	text = moneyWordRe.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "$", " ")
	return strings.TrimSpace(spacesRe.ReplaceAllString(text, " "))
}

// titleCase builds a fresh Caser per call; Casers keep state between calls.
func titleCase(s string) string {
	return cases.Title(language.Spanish).String(s)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
