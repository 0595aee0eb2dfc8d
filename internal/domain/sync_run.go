package domain

import "time"

// SyncStatus is the outcome of a fetch-and-merge cycle.
type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

// SyncRun records one fetch-and-merge cycle for the status view.
// Runs are history only; the catalog state lives in StateSlot rows.
type SyncRun struct {
	ID          string     `gorm:"type:text;primaryKey" json:"id"`
	Mode        SortMode   `gorm:"type:text;not null" json:"mode"`
	Status      SyncStatus `gorm:"type:text;index;default:running" json:"status"`
	StartCursor Cursor     `gorm:"type:text" json:"start_cursor"`
	NextCursor  Cursor     `gorm:"type:text" json:"next_cursor,omitempty"`
	AnimeCount  int        `gorm:"default:0" json:"anime_count"`
	MangaCount  int        `gorm:"default:0" json:"manga_count"`
	RemoteTotal int        `gorm:"default:0" json:"remote_total"`
	ErrorLog    string     `json:"error_log,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TableName returns the database table name for SyncRun.
func (SyncRun) TableName() string {
	return "sync_runs"
}
