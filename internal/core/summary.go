package core

import "sort"

// DayAggregate holds the running totals of one day's trips.
type DayAggregate struct {
	Total  float64             `json:"total"`
	Totals map[Section]float64 `json:"section_totals"`
	Counts map[Section]int     `json:"section_counts"`
}

// MonthlySummaryRow is one YYYY-MM bucket of the grouped history query.
type MonthlySummaryRow struct {
	Month    string `json:"month"`
	Total    int    `json:"total"`
	Outbound int    `json:"ida"`
	Return   int    `json:"vuelta"`
	Parcel   int    `json:"encomienda"`
}

// Aggregate derives totals and counts per section from a set of trips.
func Aggregate(trips []Trip) DayAggregate {
	agg := DayAggregate{
		Totals: make(map[Section]float64, 3),
		Counts: make(map[Section]int, 3),
	}
	for _, s := range Sections() {
		agg.Totals[s] = 0
		agg.Counts[s] = 0
	}
	for _, t := range trips {
		agg.Total += t.Amount
		agg.Totals[t.Section] += t.Amount
		agg.Counts[t.Section]++
	}
	return agg
}

// SortDay orders trips the way a day is listed: by time ascending with
// untimed trips last, and most recently inserted first among equals.
func SortDay(trips []Trip) {
	sort.SliceStable(trips, func(i, j int) bool {
		a, b := trips[i], trips[j]
		at, bt := Deref(a.Time), Deref(b.Time)
		switch {
		case at == "" && bt != "":
			return false
		case at != "" && bt == "":
			return true
		case at != bt:
			return at < bt
		}
		return idOf(a) > idOf(b)
	})
}

func idOf(t Trip) int64 {
	if t.ID == nil {
		return 0
	}
	return *t.ID
}
