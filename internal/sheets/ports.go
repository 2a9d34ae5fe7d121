package sheets

import (
	"context"

	"vozruta/internal/core"
)

// Ports for outbound adapters.
type (
	// TripMirror keeps a spreadsheet copy of the ledger.
	TripMirror interface {
		// AppendTrip writes a persisted trip (ID set) as a new row.
		AppendTrip(ctx context.Context, t core.Trip) (rowRef string, err error)
		// DeleteTrip clears the row of trip id on the sheet for date. A
		// missing row is reported as core.ErrNotFound.
		DeleteTrip(ctx context.Context, id int64, date string) error
	}
)
