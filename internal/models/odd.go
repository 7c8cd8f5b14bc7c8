package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Odd is one point-in-time snapshot of all market prices for an event,
// unique on (event, timestamp). PreviousTimestamp/NextTimestamp link the
// snapshot to its neighbours in the provider's paginated history; they are
// informational only, not enforced as a chain.
type Odd struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	EventID           string      `gorm:"size:50;not null;uniqueIndex:idx_odds_event_timestamp" json:"event_id"`
	Event             *Event      `gorm:"foreignKey:EventID" json:"event,omitempty"`
	Timestamp         time.Time   `gorm:"not null;uniqueIndex:idx_odds_event_timestamp" json:"timestamp"`
	PreviousTimestamp *time.Time  `json:"previous_timestamp"`
	NextTimestamp     *time.Time  `json:"next_timestamp"`
	Bookmakers        []Bookmaker `gorm:"foreignKey:OddID;constraint:OnDelete:CASCADE" json:"bookmakers,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// TableName specifies the table name for Odd model
func (Odd) TableName() string {
	return "odds"
}

// Bookmaker is one bookmaker's quotes inside a single snapshot. Each
// snapshot carries its own bookmaker rows, they are not shared across
// snapshots.
type Bookmaker struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	OddID      uint       `gorm:"not null;uniqueIndex:idx_bookmakers_odd_key" json:"odd_id"`
	Key        string     `gorm:"size:50;not null;uniqueIndex:idx_bookmakers_odd_key" json:"key"` // e.g. bet365
	Title      string     `gorm:"size:100" json:"title"`
	LastUpdate *time.Time `json:"last_update"` // provider-reported freshness
	Markets    []Market   `gorm:"foreignKey:BookmakerID;constraint:OnDelete:CASCADE" json:"markets,omitempty"`
}

// TableName specifies the table name for Bookmaker model
func (Bookmaker) TableName() string {
	return "bookmakers"
}

// Market is a class of bet offered by a bookmaker within a snapshot,
// unique on (bookmaker, key).
type Market struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	BookmakerID uint      `gorm:"not null;uniqueIndex:idx_markets_bookmaker_key" json:"bookmaker_id"`
	Key         string    `gorm:"size:50;not null;uniqueIndex:idx_markets_bookmaker_key" json:"key"` // e.g. h2h, spreads
	Outcomes    []Outcome `gorm:"foreignKey:MarketID;constraint:OnDelete:CASCADE" json:"outcomes,omitempty"`
}

// TableName specifies the table name for Market model
func (Market) TableName() string {
	return "markets"
}

// Outcome is one priced selection within a market. The subject is a Team
// reference, not free text, so an outcome can only be recorded once a team
// row for (name, sport) is resolved.
type Outcome struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	MarketID uint            `gorm:"not null;uniqueIndex:idx_outcomes_market_team" json:"market_id"`
	TeamID   uint            `gorm:"not null;uniqueIndex:idx_outcomes_market_team" json:"team_id"`
	Team     *Team           `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Price    decimal.Decimal `gorm:"type:decimal(10,4)" json:"price"`
	Point    *float64        `json:"point,omitempty"` // spread/total markets only
}

// TableName specifies the table name for Outcome model
func (Outcome) TableName() string {
	return "outcomes"
}
