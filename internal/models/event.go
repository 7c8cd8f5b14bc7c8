package models

import (
	"time"
)

// EventStatus is the lifecycle state of an event. Events start out unknown
// and only move on an explicit upstream signal (event payload status or a
// result arriving).
type EventStatus string

const (
	EventStatusUnknown    EventStatus = "unknown"
	EventStatusScheduled  EventStatus = "scheduled"
	EventStatusInProgress EventStatus = "in_progress"
	EventStatusCompleted  EventStatus = "completed"
	EventStatusCancelled  EventStatus = "cancelled"
)

// Valid reports whether s is one of the defined statuses.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusUnknown, EventStatusScheduled, EventStatusInProgress,
		EventStatusCompleted, EventStatusCancelled:
		return true
	}
	return false
}

// Event represents a sporting event, keyed by the provider's opaque event id.
type Event struct {
	ID           string      `gorm:"primaryKey;size:50" json:"id"`
	SportID      uint        `gorm:"not null;index" json:"sport_id"`
	Sport        *Sport      `gorm:"foreignKey:SportID" json:"sport,omitempty"`
	CommenceTime *time.Time  `json:"commence_time"` // unknown until first snapshot confirms it
	HomeTeamID   uint        `gorm:"not null" json:"home_team_id"`
	HomeTeam     *Team       `gorm:"foreignKey:HomeTeamID" json:"home_team,omitempty"`
	AwayTeamID   uint        `gorm:"not null" json:"away_team_id"`
	AwayTeam     *Team       `gorm:"foreignKey:AwayTeamID" json:"away_team,omitempty"`
	Status       EventStatus `gorm:"size:20;default:unknown" json:"status"`
	Odds         []Odd       `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"odds,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// TableName specifies the table name for Event model
func (Event) TableName() string {
	return "events"
}
