// Package services orchestrates trip entry across the ledger, the event
// publisher and the reminder scheduler.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"vozruta/internal/core"
	"vozruta/internal/notify"
	"vozruta/internal/parser"
)

// Ledger is the subset of the trip store the service writes through.
type Ledger interface {
	CurrentDate() string
	AddTrip(ctx context.Context, draft core.Trip) (int64, error)
	DeleteTrip(ctx context.Context, id int64, date string) error
	Trip(ctx context.Context, id int64) (core.Trip, error)
}

// Publisher announces ledger changes to the Sheets mirror.
type Publisher interface {
	PublishTripSync(ctx context.Context, t core.Trip) error
	PublishTripDelete(ctx context.Context, id int64, date string) error
}

type ReminderScheduler interface {
	Schedule(r notify.Reminder) error
	Cancel(id string) bool
}

// ManualEntry is the typed-form counterpart of a spoken sentence. Amount is
// the raw field text.
type ManualEntry struct {
	Date        string  `json:"date"`
	Section     string  `json:"section"`
	Passenger   string  `json:"passenger"`
	Destination string  `json:"destination"`
	Description string  `json:"description"`
	Amount      string  `json:"amount"`
	Time        *string `json:"time,omitempty"`
	PackageType *string `json:"package_type,omitempty"`
}

// EntryService saves trips first and then, best effort, publishes events
// and plans reminders. Publisher and scheduler are optional.
type EntryService struct {
	ledger    Ledger
	parser    *parser.Parser
	publisher Publisher
	reminders ReminderScheduler
	lead      time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.Mutex
	scheduled map[int64]string // trip id -> reminder id
}

type Option func(*EntryService)

func WithPublisher(p Publisher) Option {
	return func(s *EntryService) { s.publisher = p }
}

// WithReminders enables reminders fired lead before each timed trip.
func WithReminders(r ReminderScheduler, lead time.Duration) Option {
	return func(s *EntryService) {
		s.reminders = r
		s.lead = lead
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *EntryService) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *EntryService) { s.now = now }
}

func NewEntryService(ledger Ledger, p *parser.Parser, opts ...Option) *EntryService {
	s := &EntryService{
		ledger:    ledger,
		parser:    p,
		lead:      notify.DefaultLead,
		logger:    slog.Default(),
		now:       time.Now,
		scheduled: map[int64]string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Parse runs the sentence parser against the active date without saving.
func (s *EntryService) Parse(sentence string) core.ParseResult {
	return s.parser.Parse(sentence, s.ledger.CurrentDate())
}

// RecordSentence parses a spoken sentence into a trip of section and saves
// it. The parsed date wins over the active date. A blank sentence saves
// nothing.
func (s *EntryService) RecordSentence(ctx context.Context, sentence string, section core.Section) (core.Trip, error) {
	if strings.TrimSpace(sentence) == "" {
		return core.Trip{}, fmt.Errorf("%w: %w", core.ErrInvalidRecord, core.ErrEmptyDescription)
	}
	if !section.IsValid() {
		return core.Trip{}, fmt.Errorf("%w: %w: %q", core.ErrInvalidRecord, core.ErrInvalidSection, section)
	}

	res := s.Parse(sentence)
	draft := core.Trip{
		Date:        s.ledger.CurrentDate(),
		Section:     section,
		Passenger:   res.Passenger,
		Destination: res.Destination,
		Description: res.Description,
		Amount:      res.Amount,
		Time:        res.Time,
	}
	if res.Date != nil {
		draft.Date = *res.Date
	}
	if section == core.SectionParcel {
		draft.PackageType = res.PackageType
	}

	return s.save(ctx, draft)
}

// RecordManual saves a typed entry. An empty amount field is rejected
// rather than read as zero.
func (s *EntryService) RecordManual(ctx context.Context, in ManualEntry) (core.Trip, error) {
	amountText := strings.TrimSpace(in.Amount)
	if amountText == "" {
		return core.Trip{}, fmt.Errorf("%w: %w", core.ErrInvalidRecord, core.ErrMissingAmount)
	}
	if !strings.ContainsAny(amountText, "0123456789") {
		return core.Trip{}, fmt.Errorf("%w: %w: %q", core.ErrInvalidRecord, core.ErrInvalidAmount, in.Amount)
	}
	section, err := core.ParseSection(in.Section)
	if err != nil {
		return core.Trip{}, fmt.Errorf("%w: %w", core.ErrInvalidRecord, err)
	}

	draft := core.Trip{
		Date:        strings.TrimSpace(in.Date),
		Section:     section,
		Passenger:   core.OptionalString(in.Passenger),
		Destination: core.OptionalString(in.Destination),
		Description: strings.TrimSpace(in.Description),
		Amount:      parser.NormalizeAmount(amountText),
		Time:        core.OptionalString(core.Deref(in.Time)),
	}
	if draft.Date == "" {
		draft.Date = s.ledger.CurrentDate()
	}
	if draft.Description == "" {
		draft.Description = joinNames(draft.Passenger, draft.Destination)
	}
	if section == core.SectionParcel && in.PackageType != nil {
		if pkg, ok := parser.DetectPackageType(*in.PackageType); ok {
			draft.PackageType = &pkg
		}
	}

	return s.save(ctx, draft)
}

func joinNames(passenger, destination *string) string {
	switch {
	case passenger != nil && destination != nil:
		return *passenger + " a " + *destination
	case passenger != nil:
		return *passenger
	case destination != nil:
		return *destination
	}
	return ""
}

func (s *EntryService) save(ctx context.Context, draft core.Trip) (core.Trip, error) {
	id, err := s.ledger.AddTrip(ctx, draft)
	if err != nil {
		return core.Trip{}, fmt.Errorf("save trip: %w", err)
	}
	saved := draft
	saved.ID = &id

	s.logger.InfoContext(ctx, "Trip saved",
		"id", id,
		"date", saved.Date,
		"section", saved.Section,
		"amount", saved.Amount)

	if s.publisher != nil {
		if err := s.publisher.PublishTripSync(ctx, saved); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
		}
	} else {
		s.logger.DebugContext(ctx, "Publisher not configured, skipping sync message", "id", id)
	}

	s.planReminder(ctx, saved)
	return saved, nil
}

func (s *EntryService) planReminder(ctx context.Context, t core.Trip) {
	if s.reminders == nil || t.Time == nil {
		return
	}
	r, ok := notify.Plan(t.Date, *t.Time, t.Description, t.Section, s.lead, s.now())
	if !ok {
		return
	}
	if err := s.reminders.Schedule(r); err != nil {
		s.logger.ErrorContext(ctx, "Failed to schedule reminder", "id", *t.ID, "error", err)
		return
	}
	s.mu.Lock()
	s.scheduled[*t.ID] = r.ID
	s.mu.Unlock()
}

// DeleteTrip removes a trip and reloads its day. An unknown id reloads the
// active day and publishes nothing.
func (s *EntryService) DeleteTrip(ctx context.Context, id int64) error {
	t, err := s.ledger.Trip(ctx, id)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return s.ledger.DeleteTrip(ctx, id, s.ledger.CurrentDate())
	case err != nil:
		return fmt.Errorf("delete trip: %w", err)
	}

	if err := s.ledger.DeleteTrip(ctx, id, t.Date); err != nil {
		return err
	}

	s.mu.Lock()
	reminderID, ok := s.scheduled[id]
	delete(s.scheduled, id)
	s.mu.Unlock()
	if ok && s.reminders != nil {
		s.reminders.Cancel(reminderID)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishTripDelete(ctx, id, t.Date); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
		}
	}
	return nil
}
