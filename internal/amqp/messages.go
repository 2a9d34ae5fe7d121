package amqp

import (
	"encoding/json"
	"time"

	"vozruta/internal/core"
)

// Event types carried in the Publishing.Type header.
const (
	EventTripSync   = "trip.sync"
	EventTripDelete = "trip.delete"
)

// TripSyncMessage carries a saved trip so the worker can mirror it without
// reading the ledger database.
type TripSyncMessage struct {
	Trip      core.Trip `json:"trip"`
	Timestamp time.Time `json:"timestamp"`
}

// TripDeleteMessage identifies a removed trip. Date selects the yearly sheet.
type TripDeleteMessage struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTripSyncMessage(t core.Trip) *TripSyncMessage {
	return &TripSyncMessage{
		Trip:      t,
		Timestamp: time.Now(),
	}
}

func NewTripDeleteMessage(id int64, date string) *TripDeleteMessage {
	return &TripDeleteMessage{
		ID:        id,
		Date:      date,
		Timestamp: time.Now(),
	}
}

func (m *TripSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (m *TripDeleteMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TripSyncMessageFromJSON(data []byte) (*TripSyncMessage, error) {
	var msg TripSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func TripDeleteMessageFromJSON(data []byte) (*TripDeleteMessage, error) {
	var msg TripDeleteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
