package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Persisted slot names. The values keep the names the tracker has always
// stored its state under.
const (
	SlotRemoteCatalog = "amtracker_remote_v1"
	SlotCursor        = "amtracker_cursor_v1"
	SlotMode          = "amtracker_mode_v1"
)

// StateSlot is one named, JSON-encoded value in the local state store.
type StateSlot struct {
	Key       string    `gorm:"column:slot_key;type:text;primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for StateSlot.
func (StateSlot) TableName() string {
	return "state_slots"
}

// Value implements the driver.Valuer interface so a cursor can be stored in a text column.
func (c Cursor) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface.
func (c *Cursor) Scan(value interface{}) error {
	if value == nil {
		*c = Cursor{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan Cursor")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, c)
}
