package amqp

import (
	"encoding/json"
	"time"
)

// EntrySyncMessage is the lightweight queue message for mirroring an entry.
// It carries only the ID and version; the worker fetches the full entry from
// the database, so a stale message after an edit still mirrors current data.
type EntrySyncMessage struct {
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntrySyncMessage(id, version int64) *EntrySyncMessage {
	return &EntrySyncMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *EntrySyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntrySyncMessageFromJSON(data []byte) (*EntrySyncMessage, error) {
	var msg EntrySyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EntryDeleteMessage carries the full entry data because by the time the
// worker runs, the row is gone from the database and the mirror row can only
// be located by matching its contents.
type EntryDeleteMessage struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Label     string    `json:"label"`
	Calories  float64   `json:"calories"`
	Protein   float64   `json:"protein"`
	Timestamp time.Time `json:"timestamp"`
}

func (m *EntryDeleteMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntryDeleteMessageFromJSON(data []byte) (*EntryDeleteMessage, error) {
	var msg EntryDeleteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
