package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"vozruta/internal/amqp"
	"vozruta/internal/core"
	"vozruta/internal/sheets"
)

// SyncWorker mirrors ledger events into the spreadsheet.
type SyncWorker struct {
	mirror sheets.TripMirror
	logger *slog.Logger
}

func NewSyncWorker(mirror sheets.TripMirror, logger *slog.Logger) *SyncWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncWorker{
		mirror: mirror,
		logger: logger,
	}
}

// Handlers wires the worker into an AMQP consumer.
func (w *SyncWorker) Handlers() amqp.Handlers {
	return amqp.Handlers{
		Sync:   w.HandleSyncMessage,
		Delete: w.HandleDeleteMessage,
	}
}

// HandleSyncMessage appends the trip carried by msg. Returning an error
// requeues the message; a trip without id can never be written and is
// dropped.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TripSyncMessage) error {
	if msg.Trip.ID == nil {
		w.logger.ErrorContext(ctx, "Dropping sync message without trip id",
			"date", msg.Trip.Date,
			"timestamp", msg.Timestamp)
		return nil
	}
	id := *msg.Trip.ID

	w.logger.InfoContext(ctx, "Processing sync message",
		"id", id,
		"date", msg.Trip.Date)

	if w.mirror == nil {
		w.logger.WarnContext(ctx, "No trip mirror configured, skipping Google Sheets sync", "id", id)
		return nil
	}

	ref, err := w.mirror.AppendTrip(ctx, msg.Trip)
	if err != nil {
		return fmt.Errorf("append trip %d to sheets: %w", id, err)
	}

	w.logger.InfoContext(ctx, "Successfully synced trip",
		"id", id,
		"sheets_ref", ref,
		"description", msg.Trip.Description,
		"amount", msg.Trip.Amount)
	return nil
}

// HandleDeleteMessage clears the row of the removed trip. A row that is
// already gone counts as done.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.TripDeleteMessage) error {
	w.logger.InfoContext(ctx, "Processing delete message",
		"id", msg.ID,
		"date", msg.Date)

	if w.mirror == nil {
		w.logger.WarnContext(ctx, "No trip mirror configured, skipping Google Sheets deletion", "id", msg.ID)
		return nil
	}

	err := w.mirror.DeleteTrip(ctx, msg.ID, msg.Date)
	switch {
	case errors.Is(err, core.ErrNotFound):
		w.logger.WarnContext(ctx, "Trip not present in Google Sheets", "id", msg.ID, "date", msg.Date)
		return nil
	case err != nil:
		w.logger.ErrorContext(ctx, "Failed to delete trip from Google Sheets",
			"id", msg.ID,
			"error", err,
			"timestamp", msg.Timestamp)
		return fmt.Errorf("delete trip %d from sheets: %w", msg.ID, err)
	}

	w.logger.InfoContext(ctx, "Successfully deleted trip from Google Sheets",
		"id", msg.ID,
		"timestamp", msg.Timestamp)
	return nil
}
