package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vozruta/internal/core"
	"vozruta/internal/ledger"
	"vozruta/internal/memory"
	"vozruta/internal/notify"
	"vozruta/internal/parser"
	"vozruta/internal/services"
)

func fixedNow() time.Time {
	return time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)
}

type recordingPublisher struct {
	synced  []core.Trip
	deleted []int64
	err     error
}

func (p *recordingPublisher) PublishTripSync(_ context.Context, t core.Trip) error {
	p.synced = append(p.synced, t)
	return p.err
}

func (p *recordingPublisher) PublishTripDelete(_ context.Context, id int64, _ string) error {
	p.deleted = append(p.deleted, id)
	return p.err
}

type recordingScheduler struct {
	scheduled []notify.Reminder
	cancelled []string
}

func (s *recordingScheduler) Schedule(r notify.Reminder) error {
	s.scheduled = append(s.scheduled, r)
	return nil
}

func (s *recordingScheduler) Cancel(id string) bool {
	s.cancelled = append(s.cancelled, id)
	return true
}

type fixture struct {
	svc       *services.EntryService
	store     *ledger.Store
	publisher *recordingPublisher
	scheduler *recordingScheduler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memory.New()
	store := ledger.New(
		func(context.Context) (ledger.Repository, error) { return repo, nil },
		ledger.WithClock(fixedNow),
		ledger.WithLogger(logger),
	)
	pub := &recordingPublisher{}
	sched := &recordingScheduler{}
	svc := services.NewEntryService(store,
		parser.New(parser.WithClock(fixedNow), parser.WithLogger(logger)),
		services.WithPublisher(pub),
		services.WithReminders(sched, time.Hour),
		services.WithLogger(logger),
		services.WithClock(fixedNow),
	)
	return fixture{svc: svc, store: store, publisher: pub, scheduler: sched}
}

func TestRecordSentence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	trip, err := f.svc.RecordSentence(ctx, "Maria viaje a Saenz 30000 a las 15:30", core.SectionOutbound)
	require.NoError(t, err)

	require.NotNil(t, trip.ID)
	assert.Equal(t, "2024-03-01", trip.Date)
	assert.Equal(t, core.SectionOutbound, trip.Section)
	assert.Equal(t, "Maria", core.Deref(trip.Passenger))
	assert.Equal(t, "Saenz", core.Deref(trip.Destination))
	assert.Equal(t, "Maria a Saenz", trip.Description)
	assert.Equal(t, 30000.0, trip.Amount)
	assert.Equal(t, "15:30", core.Deref(trip.Time))
	assert.Nil(t, trip.PackageType)

	assert.Len(t, f.store.Trips(), 1)
	assert.Equal(t, 30000.0, f.store.TotalRevenue())

	require.Len(t, f.publisher.synced, 1)
	assert.Equal(t, *trip.ID, *f.publisher.synced[0].ID)

	require.Len(t, f.scheduler.scheduled, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 14, 30, 0, 0, time.Local), f.scheduler.scheduled[0].At)
}

func TestRecordSentenceUsesParsedDate(t *testing.T) {
	f := newFixture(t)

	trip, err := f.svc.RecordSentence(context.Background(), "mañana Ana a Once 8000", core.SectionReturn)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-02", trip.Date)
	assert.Equal(t, "2024-03-02", f.store.CurrentDate())
	assert.Empty(t, f.scheduler.scheduled, "untimed trips get no reminder")
}

func TestRecordSentenceKeepsPackageOnlyForParcels(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	parcel, err := f.svc.RecordSentence(ctx, "caja a Belgrano 5000", core.SectionParcel)
	require.NoError(t, err)
	require.NotNil(t, parcel.PackageType)
	assert.Equal(t, core.PackageBox, *parcel.PackageType)

	outbound, err := f.svc.RecordSentence(ctx, "caja a Belgrano 5000", core.SectionOutbound)
	require.NoError(t, err)
	assert.Nil(t, outbound.PackageType)
}

func TestRecordSentenceRejectsBlankAndBadSection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.RecordSentence(ctx, "   ", core.SectionOutbound)
	assert.ErrorIs(t, err, core.ErrEmptyDescription)

	_, err = f.svc.RecordSentence(ctx, "Juan 100", core.Section("taxi"))
	assert.ErrorIs(t, err, core.ErrInvalidSection)

	assert.Empty(t, f.store.Trips())
	assert.Empty(t, f.publisher.synced)
}

func TestRecordSentenceSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")

	trip, err := f.svc.RecordSentence(context.Background(), "Juan a Retiro 1500", core.SectionOutbound)
	require.NoError(t, err)
	require.NotNil(t, trip.ID)
	assert.Len(t, f.store.Trips(), 1)
}

func TestRecordManual(t *testing.T) {
	ctx := context.Background()
	hhmm := "21:00"

	tests := []struct {
		name    string
		in      services.ManualEntry
		wantErr error
		check   func(t *testing.T, trip core.Trip)
	}{
		{
			name:    "empty amount is missing",
			in:      services.ManualEntry{Section: "ida", Description: "Juan", Amount: "  "},
			wantErr: core.ErrMissingAmount,
		},
		{
			name:    "non numeric amount",
			in:      services.ManualEntry{Section: "ida", Description: "Juan", Amount: "mucho"},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "unknown section",
			in:      services.ManualEntry{Section: "taxi", Description: "Juan", Amount: "100"},
			wantErr: core.ErrInvalidSection,
		},
		{
			name:    "no description or names",
			in:      services.ManualEntry{Section: "vuelta", Amount: "100"},
			wantErr: core.ErrEmptyDescription,
		},
		{
			name:    "bad time",
			in:      services.ManualEntry{Section: "vuelta", Description: "x", Amount: "100", Time: strPtr("25:00")},
			wantErr: core.ErrInvalidTime,
		},
		{
			name: "defaults to active date and names",
			in:   services.ManualEntry{Section: "return", Passenger: "Luis", Destination: "Once", Amount: "15.000", Time: &hhmm},
			check: func(t *testing.T, trip core.Trip) {
				assert.Equal(t, "2024-03-01", trip.Date)
				assert.Equal(t, core.SectionReturn, trip.Section)
				assert.Equal(t, "Luis a Once", trip.Description)
				assert.Equal(t, 15000.0, trip.Amount)
				assert.Equal(t, "21:00", core.Deref(trip.Time))
			},
		},
		{
			name: "parcel with package label",
			in:   services.ManualEntry{Date: "2024-02-28", Section: "encomienda", Description: "Bici a Tigre", Amount: "2500,50", PackageType: strPtr("bici")},
			check: func(t *testing.T, trip core.Trip) {
				assert.Equal(t, "2024-02-28", trip.Date)
				assert.Equal(t, 2500.5, trip.Amount)
				require.NotNil(t, trip.PackageType)
				assert.Equal(t, core.PackageBicycle, *trip.PackageType)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			trip, err := f.svc.RecordManual(ctx, tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, core.ErrInvalidRecord)
				assert.Empty(t, f.publisher.synced)
				return
			}
			require.NoError(t, err)
			tt.check(t, trip)
		})
	}
}

func TestDeleteTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	trip, err := f.svc.RecordSentence(ctx, "Juan a Retiro 1500 a las 20:00", core.SectionOutbound)
	require.NoError(t, err)
	require.Len(t, f.scheduler.scheduled, 1)

	require.NoError(t, f.svc.DeleteTrip(ctx, *trip.ID))
	assert.Empty(t, f.store.Trips())
	assert.Equal(t, []int64{*trip.ID}, f.publisher.deleted)
	assert.Equal(t, []string{f.scheduler.scheduled[0].ID}, f.scheduler.cancelled)
}

func TestDeleteUnknownTripOnlyReloads(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.DeleteTrip(context.Background(), 99))
	assert.Empty(t, f.publisher.deleted)
	assert.Empty(t, f.scheduler.cancelled)
}

func TestServiceWithoutOptionalCollaborators(t *testing.T) {
	repo := memory.New()
	store := ledger.New(func(context.Context) (ledger.Repository, error) { return repo, nil }, ledger.WithClock(fixedNow))
	svc := services.NewEntryService(store, parser.New(parser.WithClock(fixedNow)))

	trip, err := svc.RecordSentence(context.Background(), "Ana 700 a las 23:00", core.SectionReturn)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteTrip(context.Background(), *trip.ID))
}

func TestParseUsesActiveDate(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SelectDate(context.Background(), "2024-05-10"))

	res := f.svc.Parse("mañana Pedro 200")
	require.NotNil(t, res.Date)
	assert.Equal(t, "2024-05-11", *res.Date)
}

func strPtr(s string) *string { return &s }
