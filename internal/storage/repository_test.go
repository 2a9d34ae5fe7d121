package storage_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vozruta/internal/core"
	"vozruta/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRepo(t *testing.T) (*storage.TripRepository, *storage.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "trips.db")
	db, err := storage.Open(context.Background(), path, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return storage.NewTripRepository(db, discardLogger()), db, path
}

func ptr[T any](v T) *T { return &v }

func trip(date string, section core.Section, desc string, amount float64, clock *string) core.Trip {
	return core.Trip{Date: date, Section: section, Description: desc, Amount: amount, Time: clock}
}

func TestInsertAndListByDate(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := newRepo(t)

	pkg := core.PackageBox
	id, err := repo.Insert(ctx, core.Trip{
		Date:        "2024-03-01",
		Section:     core.SectionParcel,
		Passenger:   ptr("Ana"),
		Destination: ptr("Once"),
		Description: "Ana a Once",
		Amount:      8000,
		Time:        ptr("21:00"),
		PackageType: &pkg,
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	_, err = repo.Insert(ctx, trip("2024-03-02", core.SectionOutbound, "Otro día", 10, nil))
	require.NoError(t, err)

	trips, err := repo.ListByDate(ctx, "2024-03-01")
	require.NoError(t, err)
	require.Len(t, trips, 1)

	got := trips[0]
	require.NotNil(t, got.ID)
	assert.Equal(t, id, *got.ID)
	assert.Equal(t, core.SectionParcel, got.Section)
	assert.Equal(t, "Ana", core.Deref(got.Passenger))
	assert.Equal(t, "Once", core.Deref(got.Destination))
	assert.Equal(t, "21:00", core.Deref(got.Time))
	assert.Equal(t, 8000.0, got.Amount)
	require.NotNil(t, got.PackageType)
	assert.Equal(t, core.PackageBox, *got.PackageType)
}

func TestListByDateOrdering(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := newRepo(t)

	day := "2024-03-01"
	ids := make([]int64, 0, 5)
	for _, tr := range []core.Trip{
		trip(day, core.SectionOutbound, "sin hora 1", 1, nil),
		trip(day, core.SectionOutbound, "tarde", 2, ptr("18:00")),
		trip(day, core.SectionReturn, "mañana", 3, ptr("08:30")),
		trip(day, core.SectionOutbound, "sin hora 2", 4, nil),
		trip(day, core.SectionParcel, "tarde 2", 5, ptr("18:00")),
	} {
		id, err := repo.Insert(ctx, tr)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	trips, err := repo.ListByDate(ctx, day)
	require.NoError(t, err)

	got := make([]int64, len(trips))
	for i, tr := range trips {
		got[i] = *tr.ID
	}
	assert.Equal(t, []int64{ids[2], ids[4], ids[1], ids[3], ids[0]}, got)

	again, err := repo.ListByDate(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, trips, again)
}

func TestListByDateEmpty(t *testing.T) {
	repo, _, _ := newRepo(t)

	trips, err := repo.ListByDate(context.Background(), "2030-01-01")
	require.NoError(t, err)
	assert.NotNil(t, trips)
	assert.Empty(t, trips)
}

func TestGetAndDelete(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := newRepo(t)

	id, err := repo.Insert(ctx, trip("2024-03-01", core.SectionOutbound, "Juan a Retiro", 15000, nil))
	require.NoError(t, err)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Juan a Retiro", got.Description)

	deleted, err := repo.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = repo.Get(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)

	deleted, err = repo.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestMonthlySummary(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := newRepo(t)

	for _, tr := range []core.Trip{
		trip("2024-02-10", core.SectionOutbound, "a", 1, nil),
		trip("2024-03-01", core.SectionOutbound, "b", 1, nil),
		trip("2024-03-01", core.SectionReturn, "c", 1, nil),
		trip("2024-03-15", core.SectionParcel, "d", 1, nil),
		trip("2024-03-31", core.SectionParcel, "e", 1, nil),
	} {
		_, err := repo.Insert(ctx, tr)
		require.NoError(t, err)
	}

	summary, err := repo.MonthlySummary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 2)

	assert.Equal(t, core.MonthlySummaryRow{Month: "2024-03", Total: 4, Outbound: 1, Return: 1, Parcel: 2}, summary[0])
	assert.Equal(t, core.MonthlySummaryRow{Month: "2024-02", Total: 1, Outbound: 1}, summary[1])

	for _, row := range summary {
		assert.Equal(t, row.Total, row.Outbound+row.Return+row.Parcel, row.Month)
	}
}

func TestDayCountsForMonth(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := newRepo(t)

	for _, date := range []string{"2024-03-01", "2024-03-01", "2024-03-20", "2024-04-01"} {
		_, err := repo.Insert(ctx, trip(date, core.SectionOutbound, "x", 1, nil))
		require.NoError(t, err)
	}

	counts, err := repo.DayCountsForMonth(ctx, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2024-03-01": 2, "2024-03-20": 1}, counts)

	empty, err := repo.DayCountsForMonth(ctx, "2023-01")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEvolveSchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	_, db, path := newRepo(t)

	require.NoError(t, storage.EvolveSchema(ctx, db, discardLogger()))
	require.NoError(t, storage.EvolveSchema(ctx, db, discardLogger()))

	// Reopening runs migrations and evolution again on an existing file.
	db.Close()
	reopened, err := storage.Open(ctx, path, discardLogger())
	require.NoError(t, err)
	defer reopened.Close()

	rows, err := reopened.Query(ctx, `SELECT name FROM pragma_table_info('trips')`)
	require.NoError(t, err)
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		cols = append(cols, name)
	}
	require.NoError(t, rows.Err())
	assert.ElementsMatch(t,
		[]string{"id", "date", "section", "description", "amount", "time", "passenger", "destination", "package_type"},
		cols)
}

type failingExecutor struct {
	storage.Executor
	err error
}

func (f failingExecutor) Execute(context.Context, string) error { return f.err }

func TestEvolveSchemaPropagatesOtherErrors(t *testing.T) {
	exec := failingExecutor{err: sql.ErrConnDone}
	err := storage.EvolveSchema(context.Background(), exec, discardLogger())
	assert.ErrorIs(t, err, sql.ErrConnDone)
}
