// Package notify plans and fires trip reminders.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vozruta/internal/core"
)

// DefaultLead is how long before a trip its reminder fires.
const DefaultLead = time.Hour

const reminderTitle = "Recordatorio de viaje"

type Reminder struct {
	ID    string    `json:"id"`
	At    time.Time `json:"at"`
	Title string    `json:"title"`
	Body  string    `json:"body"`
}

// Plan builds the reminder for a trip on date at clock (HH:MM, local time).
// It reports false when the trip has no valid time or the reminder moment
// is not in the future.
func Plan(date, clock, description string, section core.Section, lead time.Duration, now time.Time) (Reminder, bool) {
	if !core.ValidClock(clock) {
		return Reminder{}, false
	}
	tripAt, err := time.ParseInLocation(core.DayLayout+" 15:04", date+" "+clock, time.Local)
	if err != nil {
		return Reminder{}, false
	}
	at := tripAt.Add(-lead)
	if !at.After(now) {
		return Reminder{}, false
	}
	return Reminder{
		ID:    uuid.NewString(),
		At:    at,
		Title: reminderTitle,
		Body:  fmt.Sprintf("%s: %s (%s)", strings.ToUpper(string(section)), description, leadText(lead)),
	}, true
}

func leadText(lead time.Duration) string {
	switch {
	case lead == time.Hour:
		return "en 1 hora"
	case lead%time.Hour == 0:
		return fmt.Sprintf("en %d horas", int(lead/time.Hour))
	default:
		return fmt.Sprintf("en %d minutos", int(lead/time.Minute))
	}
}

// Notifier delivers a reminder to the operator.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// LogNotifier writes reminders to the log. It stands in for a device
// notification channel.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, r Reminder) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, r.Title, "reminder_id", r.ID, "body", r.Body)
	return nil
}

// TimerScheduler fires reminders with in-process timers.
type TimerScheduler struct {
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

func NewTimerScheduler(notifier Notifier, logger *slog.Logger) *TimerScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TimerScheduler{
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		pending:  map[string]*time.Timer{},
	}
}

// Schedule arms r. A reminder whose moment has already passed fires at once.
func (s *TimerScheduler) Schedule(r Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("schedule reminder %s: scheduler closed", r.ID)
	}
	delay := r.At.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	s.pending[r.ID] = time.AfterFunc(delay, func() { s.fire(r) })
	s.logger.Info("Reminder scheduled", "reminder_id", r.ID, "at", r.At.Format(time.RFC3339))
	return nil
}

func (s *TimerScheduler) fire(r Reminder) {
	s.mu.Lock()
	if _, ok := s.pending[r.ID]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, r.ID)
	s.mu.Unlock()

	if err := s.notifier.Notify(context.Background(), r); err != nil {
		s.logger.Error("Reminder delivery failed", "reminder_id", r.ID, "error", err)
	}
}

// Cancel disarms a pending reminder and reports whether it was pending.
func (s *TimerScheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.pending[id]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.pending, id)
	return true
}

func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close disarms every pending reminder.
func (s *TimerScheduler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
	s.closed = true
	return nil
}
