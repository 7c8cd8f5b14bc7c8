package oddsapi

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// SportData is one sport as returned by GET /sports.
type SportData struct {
	Key          string `json:"key"`
	Group        string `json:"group"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
	HasOutrights bool   `json:"has_outrights"`
}

// EventData is one event as returned by GET /sports/{sport}/events.
type EventData struct {
	ID           string `json:"id"`
	SportKey     string `json:"sport_key"`
	SportTitle   string `json:"sport_title"`
	CommenceTime string `json:"commence_time"`
	HomeTeam     string `json:"home_team"`
	AwayTeam     string `json:"away_team"`
}

// OddsEvent is one event with its nested bookmaker/market/outcome prices
// as returned by GET /sports/{sport}/odds.
type OddsEvent struct {
	ID           string          `json:"id"`
	SportKey     string          `json:"sport_key"`
	SportTitle   string          `json:"sport_title"`
	CommenceTime string          `json:"commence_time"`
	HomeTeam     string          `json:"home_team"`
	AwayTeam     string          `json:"away_team"`
	Bookmakers   []BookmakerData `json:"bookmakers"`
}

// BookmakerData is one bookmaker entry inside an odds payload.
type BookmakerData struct {
	Key        string       `json:"key"`
	Title      string       `json:"title"`
	LastUpdate string       `json:"last_update"`
	Markets    []MarketData `json:"markets"`
}

// MarketData is one market entry under a bookmaker.
type MarketData struct {
	Key        string        `json:"key"`
	LastUpdate string        `json:"last_update"`
	Outcomes   []OutcomeData `json:"outcomes"`
}

// OutcomeData is one priced selection under a market.
type OutcomeData struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Point *float64        `json:"point,omitempty"`
}

// HistoricalSnapshot is the envelope the /historical endpoints wrap their
// payload in. Data stays raw so callers can shape-check it before decoding.
type HistoricalSnapshot struct {
	Timestamp         string          `json:"timestamp"`
	PreviousTimestamp *string         `json:"previous_timestamp"`
	NextTimestamp     *string         `json:"next_timestamp"`
	Data              json.RawMessage `json:"data"`
}
