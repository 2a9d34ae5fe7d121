// Package ledger owns the trips of the active day and everything derived
// from them.
//
// Every mutation is written through the repository and followed by a full
// reload of the affected day; the exposed set is always a fresh read.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"vozruta/internal/core"
)

// Repository is the persistence collaborator. ListByDate must return trips
// ordered by time ascending, untimed last, newest id first among ties.
type Repository interface {
	ListByDate(ctx context.Context, date string) ([]core.Trip, error)
	Get(ctx context.Context, id int64) (core.Trip, error)
	Insert(ctx context.Context, t core.Trip) (int64, error)
	Delete(ctx context.Context, id int64) (bool, error)
	MonthlySummary(ctx context.Context) ([]core.MonthlySummaryRow, error)
	DayCountsForMonth(ctx context.Context, month string) (map[string]int, error)
}

// Opener produces the repository on first use.
type Opener func(ctx context.Context) (Repository, error)

// Day is the observable state: the active date and its trips.
type Day struct {
	Date  string      `json:"date"`
	Trips []core.Trip `json:"trips"`
}

type Store struct {
	open   Opener
	logger *slog.Logger
	now    func() time.Time

	// mu serialises every operation so a write and its reload never
	// interleave with another caller's.
	mu   sync.Mutex
	repo Repository

	state *Signal[Day]
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock sets the clock that decides the initial active date.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a store whose active date is today. Nothing is read until the
// first operation.
func New(open Opener, opts ...Option) *Store {
	s := &Store{
		open:   open,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = NewSignal(Day{Date: core.Today(s.now()), Trips: []core.Trip{}})
	return s
}

// repository opens the collaborator if needed. A failed open is not
// remembered; the next operation tries again.
func (s *Store) repository(ctx context.Context) (Repository, error) {
	if s.repo != nil {
		return s.repo, nil
	}
	repo, err := s.open(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to open persistence", "error", err)
		return nil, fmt.Errorf("%w: %w", core.ErrPersistenceUnavailable, err)
	}
	s.repo = repo
	return repo, nil
}

// load replaces the active day wholesale. Callers hold mu.
func (s *Store) load(ctx context.Context, repo Repository, date string) error {
	trips, err := repo.ListByDate(ctx, date)
	if err != nil {
		return fmt.Errorf("load trips for %s: %w", date, err)
	}
	if trips == nil {
		trips = []core.Trip{}
	}
	s.state.Set(Day{Date: date, Trips: trips})
	s.logger.DebugContext(ctx, "Day loaded", "date", date, "count", len(trips))
	return nil
}

// LoadTrips makes date the active day and reads its trips.
func (s *Store) LoadTrips(ctx context.Context, date string) error {
	if _, err := core.ParseDay(date); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, err := s.repository(ctx)
	if err != nil {
		return err
	}
	return s.load(ctx, repo, date)
}

// AddTrip writes draft and reloads its date, which becomes the active day.
func (s *Store) AddTrip(ctx context.Context, draft core.Trip) (int64, error) {
	if err := draft.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, err := s.repository(ctx)
	if err != nil {
		return 0, err
	}
	id, err := repo.Insert(ctx, draft)
	if err != nil {
		return 0, fmt.Errorf("add trip: %w", err)
	}
	if err := s.load(ctx, repo, draft.Date); err != nil {
		return id, err
	}
	return id, nil
}

// DeleteTrip removes id and reloads date. A missing id only reloads.
func (s *Store) DeleteTrip(ctx context.Context, id int64, date string) error {
	if _, err := core.ParseDay(date); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, err := s.repository(ctx)
	if err != nil {
		return err
	}
	deleted, err := repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	if !deleted {
		s.logger.WarnContext(ctx, "Delete of unknown trip", "id", id)
	}
	return s.load(ctx, repo, date)
}

func (s *Store) SelectDate(ctx context.Context, date string) error {
	return s.LoadTrips(ctx, date)
}

func (s *Store) NextDay(ctx context.Context) error {
	return s.shift(ctx, 1)
}

func (s *Store) PrevDay(ctx context.Context) error {
	return s.shift(ctx, -1)
}

func (s *Store) shift(ctx context.Context, days int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	date, err := core.AddDays(s.state.Get().Date, days)
	if err != nil {
		return err
	}
	repo, err := s.repository(ctx)
	if err != nil {
		return err
	}
	return s.load(ctx, repo, date)
}

// Reload reads the active day again.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, err := s.repository(ctx)
	if err != nil {
		return err
	}
	return s.load(ctx, repo, s.state.Get().Date)
}

func (s *Store) CurrentDate() string {
	return s.state.Get().Date
}

// Trips returns a copy of the active day's trips in display order.
func (s *Store) Trips() []core.Trip {
	return slices.Clone(s.state.Get().Trips)
}

// Snapshot returns the active day as one consistent value.
func (s *Store) Snapshot() Day {
	d := s.state.Get()
	d.Trips = slices.Clone(d.Trips)
	return d
}

// Subscribe calls fn with the new day every time the active set is replaced.
// fn runs inside the operation that replaced it and must only use the
// read accessors (CurrentDate, Trips, Aggregate and friends).
func (s *Store) Subscribe(fn func(Day)) (unsubscribe func()) {
	return s.state.Subscribe(fn)
}

func (s *Store) Aggregate() core.DayAggregate {
	return core.Aggregate(s.state.Get().Trips)
}

func (s *Store) TotalRevenue() float64 {
	return s.Aggregate().Total
}

func (s *Store) SectionTotals() map[core.Section]float64 {
	return s.Aggregate().Totals
}

func (s *Store) SectionCounts() map[core.Section]int {
	return s.Aggregate().Counts
}

// MonthlySummary is delegated to the repository; the active day is untouched.
func (s *Store) MonthlySummary(ctx context.Context) ([]core.MonthlySummaryRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, err := s.repository(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := repo.MonthlySummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("monthly summary: %w", err)
	}
	return rows, nil
}

func (s *Store) DayCountsForMonth(ctx context.Context, month string) (map[string]int, error) {
	if _, err := core.ParseMonth(month); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, err := s.repository(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := repo.DayCountsForMonth(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("day counts: %w", err)
	}
	return counts, nil
}

// TripsForDate reads any day without changing the active one. History and
// export use it so they always see the persisted state.
func (s *Store) TripsForDate(ctx context.Context, date string) ([]core.Trip, error) {
	if _, err := core.ParseDay(date); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, err := s.repository(ctx)
	if err != nil {
		return nil, err
	}
	trips, err := repo.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("trips for %s: %w", date, err)
	}
	if trips == nil {
		trips = []core.Trip{}
	}
	return trips, nil
}

// Trip reads a single trip by id.
func (s *Store) Trip(ctx context.Context, id int64) (core.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, err := s.repository(ctx)
	if err != nil {
		return core.Trip{}, err
	}
	return repo.Get(ctx, id)
}
