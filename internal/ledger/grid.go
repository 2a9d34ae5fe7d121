package ledger

import (
	"strings"

	"vozruta/internal/core"
)

// GridCells is the size of a month calendar: six Monday-first weeks.
const GridCells = 42

// DayCell is one square of the month calendar.
type DayCell struct {
	Date         string `json:"date"`
	Day          int    `json:"day"`
	CurrentMonth bool   `json:"current_month"`
	Count        int    `json:"count"`
}

// MonthGrid lays out month ("YYYY-MM") as 42 days starting on the Monday on
// or before the first of the month, with the trip count of each day.
func MonthGrid(month string, counts map[string]int) ([]DayCell, error) {
	first, err := core.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	offset := (int(first.Weekday()) + 6) % 7
	start := first.AddDate(0, 0, -offset)

	cells := make([]DayCell, 0, GridCells)
	for i := 0; i < GridCells; i++ {
		d := start.AddDate(0, 0, i)
		iso := core.FormatDay(d)
		cells = append(cells, DayCell{
			Date:         iso,
			Day:          d.Day(),
			CurrentMonth: strings.HasPrefix(iso, month),
			Count:        counts[iso],
		})
	}
	return cells, nil
}
