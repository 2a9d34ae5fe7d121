package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"vozruta/internal/core"
)

// Store keeps trips in process. It honours the same ordering and id rules
// as the SQLite repository.
type Store struct {
	mu     sync.Mutex
	nextID int64
	items  []core.Trip
}

func New(seed ...core.Trip) *Store {
	s := &Store{}
	for _, t := range seed {
		t.ID = nil
		if t.Validate() == nil {
			s.insert(t)
		}
	}
	return s
}

// NewFromFile seeds the store from a text file with one trip per line:
//
//	2024-03-01|ida|Juan a Retiro|15000|15:30
//
// The time field is optional. Blank lines, comments and malformed lines are
// skipped; a missing file yields an empty store.
func NewFromFile(path string) *Store {
	var seed []core.Trip
	for _, line := range readLines(path) {
		if t, ok := parseLine(line); ok {
			seed = append(seed, t)
		}
	}
	return New(seed...)
}

// Insert stores t and returns its new id.
func (s *Store) Insert(_ context.Context, t core.Trip) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(t), nil
}

func (s *Store) insert(t core.Trip) int64 {
	s.nextID++
	id := s.nextID
	t.ID = &id
	s.items = append(s.items, t)
	return id
}

func (s *Store) ListByDate(_ context.Context, date string) ([]core.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Trip{}
	for _, t := range s.items {
		if t.Date == date {
			out = append(out, t)
		}
	}
	core.SortDay(out)
	return out, nil
}

func (s *Store) Get(_ context.Context, id int64) (core.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.items {
		if *t.ID == id {
			return t, nil
		}
	}
	return core.Trip{}, fmt.Errorf("trip %d: %w", id, core.ErrNotFound)
}

func (s *Store) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.items {
		if *t.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// MonthlySummary returns one row per month, newest first.
func (s *Store) MonthlySummary(_ context.Context) ([]core.MonthlySummaryRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byMonth := map[string]*core.MonthlySummaryRow{}
	var months []string
	for _, t := range s.items {
		m := core.MonthOf(t.Date)
		row, ok := byMonth[m]
		if !ok {
			row = &core.MonthlySummaryRow{Month: m}
			byMonth[m] = row
			months = append(months, m)
		}
		row.Total++
		switch t.Section {
		case core.SectionOutbound:
			row.Outbound++
		case core.SectionReturn:
			row.Return++
		case core.SectionParcel:
			row.Parcel++
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	out := make([]core.MonthlySummaryRow, 0, len(months))
	for _, m := range months {
		out = append(out, *byMonth[m])
	}
	return out, nil
}

func (s *Store) DayCountsForMonth(_ context.Context, month string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]int{}
	for _, t := range s.items {
		if core.MonthOf(t.Date) == month {
			counts[t.Date]++
		}
	}
	return counts, nil
}

func parseLine(line string) (core.Trip, bool) {
	f := strings.Split(line, "|")
	if len(f) < 4 {
		return core.Trip{}, false
	}
	section, err := core.ParseSection(f[1])
	if err != nil {
		return core.Trip{}, false
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(f[3]), 64)
	if err != nil {
		return core.Trip{}, false
	}
	t := core.Trip{
		Date:        strings.TrimSpace(f[0]),
		Section:     section,
		Description: strings.TrimSpace(f[2]),
		Amount:      amount,
	}
	if len(f) > 4 {
		t.Time = core.OptionalString(f[4])
	}
	return t, t.Validate() == nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
