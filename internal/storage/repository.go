package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"vozruta/internal/core"
)

const tripColumns = "id, date, section, passenger, destination, description, amount, time, package_type"

// TripRepository reads and writes trips through an Executor. Every
// statement is parameterised.
type TripRepository struct {
	exec   Executor
	logger *slog.Logger
}

func NewTripRepository(exec Executor, logger *slog.Logger) *TripRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &TripRepository{exec: exec, logger: logger}
}

// ListByDate returns the trips of one day: timed trips by time ascending,
// untimed trips after them, newest first among equal times.
func (r *TripRepository) ListByDate(ctx context.Context, date string) ([]core.Trip, error) {
	rows, err := r.exec.Query(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE date = ?
		 ORDER BY time IS NULL, time ASC, id DESC`, date)
	if err != nil {
		return nil, fmt.Errorf("list trips for %s: %w", date, err)
	}
	defer rows.Close()

	trips := []core.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trips: %w", err)
	}

	r.logger.DebugContext(ctx, "Trips loaded", "date", date, "count", len(trips))
	return trips, nil
}

// Get returns one trip by id or core.ErrNotFound.
func (r *TripRepository) Get(ctx context.Context, id int64) (core.Trip, error) {
	rows, err := r.exec.Query(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = ?`, id)
	if err != nil {
		return core.Trip{}, fmt.Errorf("get trip %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return core.Trip{}, fmt.Errorf("get trip %d: %w", id, err)
		}
		return core.Trip{}, fmt.Errorf("trip %d: %w", id, core.ErrNotFound)
	}
	t, err := scanTrip(rows)
	if err != nil {
		return core.Trip{}, fmt.Errorf("scan trip: %w", err)
	}
	return t, nil
}

// Insert stores t and returns the id assigned by the database.
func (r *TripRepository) Insert(ctx context.Context, t core.Trip) (int64, error) {
	var pkg *string
	if t.PackageType != nil {
		s := string(*t.PackageType)
		pkg = &s
	}

	res, err := r.exec.Run(ctx,
		`INSERT INTO trips (date, section, passenger, destination, description, amount, time, package_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Date, string(t.Section), nullable(t.Passenger), nullable(t.Destination),
		t.Description, t.Amount, nullable(t.Time), nullable(pkg))
	if err != nil {
		return 0, fmt.Errorf("insert trip: %w", err)
	}

	r.logger.InfoContext(ctx, "Trip saved to SQLite",
		"id", res.LastInsertID,
		"date", t.Date,
		"section", t.Section,
		"description", t.Description,
		"amount", t.Amount)
	return res.LastInsertID, nil
}

// Delete removes a trip by id. Deleting an id that does not exist is not an
// error; it reports false.
func (r *TripRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.exec.Run(ctx, `DELETE FROM trips WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete trip %d: %w", id, err)
	}
	if res.RowsAffected == 0 {
		r.logger.WarnContext(ctx, "Trip to delete not found", "id", id)
		return false, nil
	}
	r.logger.InfoContext(ctx, "Trip deleted", "id", id)
	return true, nil
}

// MonthlySummary returns one row per month, newest month first.
func (r *TripRepository) MonthlySummary(ctx context.Context) ([]core.MonthlySummaryRow, error) {
	rows, err := r.exec.Query(ctx,
		`SELECT substr(date, 1, 7) AS month,
		        COUNT(*),
		        SUM(CASE WHEN section = ? THEN 1 ELSE 0 END),
		        SUM(CASE WHEN section = ? THEN 1 ELSE 0 END),
		        SUM(CASE WHEN section = ? THEN 1 ELSE 0 END)
		 FROM trips
		 GROUP BY month
		 ORDER BY month DESC`,
		string(core.SectionOutbound), string(core.SectionReturn), string(core.SectionParcel))
	if err != nil {
		return nil, fmt.Errorf("monthly summary: %w", err)
	}
	defer rows.Close()

	summary := []core.MonthlySummaryRow{}
	for rows.Next() {
		var row core.MonthlySummaryRow
		if err := rows.Scan(&row.Month, &row.Total, &row.Outbound, &row.Return, &row.Parcel); err != nil {
			return nil, fmt.Errorf("scan monthly summary: %w", err)
		}
		summary = append(summary, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly summary: %w", err)
	}
	return summary, nil
}

// DayCountsForMonth maps each day of month ("YYYY-MM") that has trips to its
// trip count.
func (r *TripRepository) DayCountsForMonth(ctx context.Context, month string) (map[string]int, error) {
	rows, err := r.exec.Query(ctx,
		`SELECT date, COUNT(*) FROM trips WHERE substr(date, 1, 7) = ? GROUP BY date`, month)
	if err != nil {
		return nil, fmt.Errorf("day counts for %s: %w", month, err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			day string
			n   int
		)
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("scan day count: %w", err)
		}
		counts[day] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate day counts: %w", err)
	}
	return counts, nil
}

func scanTrip(rows *sql.Rows) (core.Trip, error) {
	var (
		t                      core.Trip
		id                     int64
		section                string
		passenger, destination sql.NullString
		clock, pkg             sql.NullString
	)
	if err := rows.Scan(&id, &t.Date, &section, &passenger, &destination,
		&t.Description, &t.Amount, &clock, &pkg); err != nil {
		return core.Trip{}, err
	}
	t.ID = &id
	t.Section = core.Section(section)
	t.Passenger = fromNull(passenger)
	t.Destination = fromNull(destination)
	t.Time = fromNull(clock)
	if p := fromNull(pkg); p != nil {
		pt := core.PackageType(*p)
		t.PackageType = &pt
	}
	return t, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	s := ns.String
	return &s
}
