package models

import (
	"time"

	"gorm.io/datatypes"
)

// EventResult holds the final score for an event, one-to-one with Event.
type EventResult struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	EventID   string         `gorm:"size:50;not null;uniqueIndex" json:"event_id"`
	Event     *Event         `gorm:"foreignKey:EventID" json:"event,omitempty"`
	HomeScore *int           `json:"home_score"`
	AwayScore *int           `json:"away_score"`
	WinnerID  *uint          `json:"winner_id,omitempty"` // nil on a draw or unknown winner
	Winner    *Team          `gorm:"foreignKey:WinnerID" json:"winner,omitempty"`
	Details   datatypes.JSON `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName specifies the table name for EventResult model
func (EventResult) TableName() string {
	return "event_results"
}
