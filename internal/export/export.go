// Package export renders one day of trips as share-ready text.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"vozruta/internal/core"
)

type Format string

const (
	FormatSummary Format = "summary"
	FormatTable   Format = "table"
	FormatCSV     Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatSummary, FormatTable, FormatCSV:
		return f, nil
	case "":
		return FormatSummary, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Payload is what gets handed to a share target.
type Payload struct {
	Title       string `json:"title"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Body        string `json:"body"`
}

const footer = "_Generado por: VozRuta_"

type sectionLabel struct {
	section core.Section
	label   string
}

// Render dispatches to the renderer for f.
func Render(f Format, date string, trips []core.Trip, total float64) (Payload, error) {
	switch f {
	case FormatSummary:
		return Summary(date, trips, total)
	case FormatTable:
		return Table(date, trips, total)
	case FormatCSV:
		return CSV(date, trips)
	}
	return Payload{}, fmt.Errorf("unknown export format %q", f)
}

// Summary lists every non-empty section with each trip's description and
// amount.
func Summary(date string, trips []core.Trip, total float64) (Payload, error) {
	day, err := LongDate(date, false)
	if err != nil {
		return Payload{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚖 *Resumen de Viajes - %s*\n", day)
	fmt.Fprintf(&b, "💰 *Total Recaudado: %s*\n\n", Money(total, 2))

	for _, sec := range []sectionLabel{
		{core.SectionOutbound, "VIAJES DE IDA"},
		{core.SectionReturn, "VIAJES DE VUELTA"},
		{core.SectionParcel, "ENCOMIENDAS"},
	} {
		matched := bySection(trips, sec.section)
		if len(matched) == 0 {
			continue
		}
		fmt.Fprintf(&b, "*%s*\n", sec.label)
		for _, t := range matched {
			fmt.Fprintf(&b, "- %s: %s\n", t.Description, Money(t.Amount, 2))
		}
		b.WriteString("\n")
	}
	b.WriteString(footer)

	return Payload{
		Title:       "Resumen Diario VozRuta",
		Filename:    "resumen-" + date + ".txt",
		ContentType: "text/plain; charset=utf-8",
		Body:        b.String(),
	}, nil
}

// Table renders every section, empty ones included, one line per trip with
// time, who, where and amount.
func Table(date string, trips []core.Trip, total float64) (Payload, error) {
	day, err := LongDate(date, false)
	if err != nil {
		return Payload{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 *%s*\n", day)
	fmt.Fprintf(&b, "💰 *TOTAL: %s*\n\n", Money(total, 0))

	for _, sec := range []sectionLabel{
		{core.SectionOutbound, "VIAJES DE IDA"},
		{core.SectionParcel, "VIAJES DE ENCOMIENDA"},
		{core.SectionReturn, "VIAJES DE VUELTA"},
	} {
		matched := bySection(trips, sec.section)
		fmt.Fprintf(&b, "*%s* (%d)\n", sec.label, len(matched))
		if len(matched) == 0 {
			b.WriteString("- Sin registros\n\n")
			continue
		}
		for _, t := range matched {
			b.WriteString(tableRow(t))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(footer)

	return Payload{
		Title:       "Planilla diaria VozRuta",
		Filename:    "planilla-" + date + ".txt",
		ContentType: "text/plain; charset=utf-8",
		Body:        b.String(),
	}, nil
}

func tableRow(t core.Trip) string {
	who := strings.TrimSpace(core.Deref(t.Passenger))
	if who == "" {
		who = t.Description
	}
	clock := strings.TrimSpace(core.Deref(t.Time))
	if clock == "" {
		clock = "--:--"
	}
	parts := []string{clock, who}
	if where := strings.TrimSpace(core.Deref(t.Destination)); where != "" {
		parts = append(parts, "a "+where)
	}
	return fmt.Sprintf("- %s  |  %s", strings.Join(parts, " "), Money(t.Amount, 0))
}

// CSV writes one row per trip under a Spanish header.
func CSV(date string, trips []core.Trip) (Payload, error) {
	if _, err := core.ParseDay(date); err != nil {
		return Payload{}, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"fecha", "seccion", "hora", "pasajero", "destino", "descripcion", "importe"}); err != nil {
		return Payload{}, fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range trips {
		record := []string{
			date,
			string(t.Section),
			core.Deref(t.Time),
			core.Deref(t.Passenger),
			core.Deref(t.Destination),
			t.Description,
			strconv.FormatFloat(t.Amount, 'f', -1, 64),
		}
		for i := range record {
			record[i] = singleLine(record[i])
		}
		if err := w.Write(record); err != nil {
			return Payload{}, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return Payload{}, fmt.Errorf("flush csv: %w", err)
	}

	return Payload{
		Title:       "CSV " + date,
		Filename:    "viajes-" + date + ".csv",
		ContentType: "text/csv; charset=utf-8",
		Body:        buf.String(),
	}, nil
}

func singleLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

func bySection(trips []core.Trip, section core.Section) []core.Trip {
	var out []core.Trip
	for _, t := range trips {
		if t.Section == section {
			out = append(out, t)
		}
	}
	return out
}
