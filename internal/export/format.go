package export

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"vozruta/internal/core"
)

// Spanish calendar names; neither the standard library nor x/text localises
// them.
var (
	weekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}
	months   = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio",
		"agosto", "septiembre", "octubre", "noviembre", "diciembre"}
)

// Money formats amount as es-AR pesos: "$ 35.000,00" with two places,
// "$ 35.000" with none. Rounding is half away from zero.
func Money(amount float64, places int32) string {
	d := decimal.NewFromFloat(amount).Round(places)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	intPart, frac, _ := strings.Cut(d.StringFixed(places), ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := sign + "$ " + b.String()
	if places > 0 {
		out += "," + frac
	}
	return out
}

// LongDate renders a YYYY-MM-DD day as "viernes, 1 de marzo", optionally
// followed by " de 2024".
func LongDate(date string, withYear bool) (string, error) {
	t, err := core.ParseDay(date)
	if err != nil {
		return "", err
	}
	s := fmt.Sprintf("%s, %d de %s", weekdays[t.Weekday()], t.Day(), months[t.Month()-1])
	if withYear {
		s += fmt.Sprintf(" de %d", t.Year())
	}
	return s, nil
}

// Total sums trip amounts exactly.
func Total(trips []core.Trip) float64 {
	sum := decimal.Zero
	for _, t := range trips {
		sum = sum.Add(decimal.NewFromFloat(t.Amount))
	}
	f, _ := sum.Float64()
	return f
}
