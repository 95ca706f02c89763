package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// DatasetImportedMessage announces that a year table was (re)loaded into the
// store. Consumers drop whatever they cached for that year.
type DatasetImportedMessage struct {
	Year       int       `json:"year"`
	Table      string    `json:"table"`
	Rows       int64     `json:"rows"`
	ImportedAt time.Time `json:"imported_at"`
}

func NewDatasetImportedMessage(year int, table string, rows int64) *DatasetImportedMessage {
	return &DatasetImportedMessage{
		Year:       year,
		Table:      table,
		Rows:       rows,
		ImportedAt: time.Now().UTC(),
	}
}

func (m *DatasetImportedMessage) Validate() error {
	if m.Year <= 0 {
		return errors.New("year must be positive")
	}
	if m.Table == "" {
		return errors.New("table is required")
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *DatasetImportedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetImportedMessageFromJSON decodes and validates a message body.
func DatasetImportedMessageFromJSON(data []byte) (*DatasetImportedMessage, error) {
	var msg DatasetImportedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
