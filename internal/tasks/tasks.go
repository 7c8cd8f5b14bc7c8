package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"oddsley/internal/oddsapi"
	"oddsley/internal/services"
)

// historicalDateLayout is the wire format the update_odds task accepts for
// its date parameter.
const historicalDateLayout = "2006-01-02/15:04:05"

// Tasks bundles the ingestion entry points an external scheduler invokes.
type Tasks struct {
	client *oddsapi.Client
	sports *services.SportService
	events *services.EventService
	odds   *services.OddsService

	results *services.ResultService
	// resultsTimezone is the timezone update_results assumes for CSV
	// commence times when no tz parameter is given.
	resultsTimezone string
}

func NewTasks(client *oddsapi.Client, sports *services.SportService, events *services.EventService,
	odds *services.OddsService, results *services.ResultService, resultsTimezone string) *Tasks {
	return &Tasks{
		client:          client,
		sports:          sports,
		events:          events,
		odds:            odds,
		results:         results,
		resultsTimezone: resultsTimezone,
	}
}

// RegisterAll wires every task into the registry under its stable name.
func (t *Tasks) RegisterAll(registry *Registry) {
	registry.Register("get_sports", t.GetSports)
	registry.Register("update_sports", t.UpdateSports)
	registry.Register("get_events", t.GetEvents)
	registry.Register("update_events", t.UpdateEvents)
	registry.Register("get_odds_snapshot", t.GetOddsSnapshot)
	registry.Register("update_odds", t.UpdateOdds)
	registry.Register("update_results", t.UpdateResults)
}

// GetSports fetches the sports list and reports what came back without
// writing anything.
func (t *Tasks) GetSports(ctx context.Context, params Params) (string, error) {
	raw, err := t.client.GetSports(ctx, params.Bool("all"))
	if err != nil {
		return "", fmt.Errorf("failed to fetch sports: %w", err)
	}

	var sports []oddsapi.SportData
	if err := json.Unmarshal(raw, &sports); err != nil {
		return "", fmt.Errorf("%w: sports payload must be a list: %v", services.ErrValidation, err)
	}
	return fmt.Sprintf("OddsAPI returned %d sports.", len(sports)), nil
}

// GetEvents fetches upcoming events for a sport, shape-checks them and
// reports the count without writing. Requires sport.
func (t *Tasks) GetEvents(ctx context.Context, params Params) (string, error) {
	sport, err := params.Require("sport")
	if err != nil {
		return "", err
	}

	opts := oddsapi.EventOptions{
		DateFormat:       params["dateFormat"],
		EventIDs:         params.List("eventIds"),
		CommenceTimeFrom: params["commenceTimeFrom"],
		CommenceTimeTo:   params["commenceTimeTo"],
	}
	raw, err := t.client.GetEvents(ctx, sport, opts)
	if err != nil {
		return "", fmt.Errorf("failed to fetch events: %w", err)
	}

	var generic []map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("%w: events payload must be a list: %v", services.ErrValidation, err)
	}
	if err := services.ValidateEvents(generic); err != nil {
		return "", err
	}
	return fmt.Sprintf("OddsAPI returned %d events for %s.", len(generic), sport), nil
}

// UpdateSports fetches the sports list and upserts it. The optional
// all=true parameter includes inactive sports.
func (t *Tasks) UpdateSports(ctx context.Context, params Params) (string, error) {
	raw, err := t.client.GetSports(ctx, params.Bool("all"))
	if err != nil {
		return "", fmt.Errorf("failed to fetch sports: %w", err)
	}

	created, updated, err := t.sports.IngestSportsPayload(raw)
	if err != nil {
		return "", err
	}
	total := created + updated
	return fmt.Sprintf("OddsAPI returned %d sports, successfully upserted %d into database (%d created, %d updated).",
		total, total, created, updated), nil
}

// UpdateEvents fetches upcoming events for a sport and upserts them.
// Requires sport; accepts eventIds, commenceTimeFrom, commenceTimeTo.
func (t *Tasks) UpdateEvents(ctx context.Context, params Params) (string, error) {
	sport, err := params.Require("sport")
	if err != nil {
		return "", err
	}

	opts := oddsapi.EventOptions{
		DateFormat:       params["dateFormat"],
		EventIDs:         params.List("eventIds"),
		CommenceTimeFrom: params["commenceTimeFrom"],
		CommenceTimeTo:   params["commenceTimeTo"],
	}
	raw, err := t.client.GetEvents(ctx, sport, opts)
	if err != nil {
		return "", fmt.Errorf("failed to fetch events: %w", err)
	}

	created, updated, err := t.events.IngestEventsPayload(raw)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("OddsAPI returned %d events, successfully upserted %d into database (%d created, %d updated).",
		created+updated, created+updated, created, updated), nil
}

// GetOddsSnapshot fetches current odds for a sport over the given regions
// and ingests them as a snapshot stamped with the ingestion time.
// Requires sport and regions; accepts markets, eventIds, bookmakers and
// the include* flags.
func (t *Tasks) GetOddsSnapshot(ctx context.Context, params Params) (string, error) {
	sport, err := params.Require("sport")
	if err != nil {
		return "", err
	}
	if _, err := params.Require("regions"); err != nil {
		return "", err
	}

	raw, err := t.client.GetOdds(ctx, sport, params.List("regions"), t.oddsOptions(params))
	if err != nil {
		return "", fmt.Errorf("failed to fetch odds: %w", err)
	}

	summary, err := t.odds.IngestPayload(raw, nil, nil, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("OddsAPI returned odds for %d events: %s", summary.Events, summary), nil
}

// UpdateOdds fetches a historical odds snapshot pinned to a date and
// ingests it. Requires sport, regions, markets and date
// (YYYY-MM-DD/HH:MM:SS).
func (t *Tasks) UpdateOdds(ctx context.Context, params Params) (string, error) {
	sport, err := params.Require("sport")
	if err != nil {
		return "", err
	}
	if _, err := params.Require("regions"); err != nil {
		return "", err
	}
	if _, err := params.Require("markets"); err != nil {
		return "", err
	}
	dateValue, err := params.Require("date")
	if err != nil {
		return "", err
	}
	date, err := time.Parse(historicalDateLayout, dateValue)
	if err != nil {
		return "", fmt.Errorf("date must be in YYYY-MM-DD/HH:MM:SS format, e.g. 2021-09-01/00:00:00, got %q", dateValue)
	}

	raw, err := t.client.GetHistoricalOdds(ctx, sport, params.List("regions"), date.UTC(), t.oddsOptions(params))
	if err != nil {
		return "", fmt.Errorf("failed to fetch historical odds: %w", err)
	}

	summary, err := t.odds.IngestHistorical(raw)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("OddsAPI returned a snapshot of %d events: %s", summary.Events, summary), nil
}

// UpdateResults reads a results CSV, matches its rows to stored events
// and upserts the final scores. Requires sport and csv; tz overrides the
// configured source timezone.
func (t *Tasks) UpdateResults(ctx context.Context, params Params) (string, error) {
	sport, err := params.Require("sport")
	if err != nil {
		return "", err
	}
	csvPath, err := params.Require("csv")
	if err != nil {
		return "", err
	}
	tz := params["tz"]
	if tz == "" {
		tz = t.resultsTimezone
	}
	if tz == "" {
		return "", fmt.Errorf("task requires a %q parameter, e.g. %s=Australia/Sydney", "tz", "tz")
	}

	rows, err := t.results.ReadCSV(csvPath)
	if err != nil {
		return "", err
	}

	matched, err := t.results.MatchResultsToEvents(rows, sport, tz)
	if err != nil {
		return "", err
	}

	upserted, skipped, err := t.results.UpsertResults(rows)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Loaded %d results from CSV, matched %d to events, upserted %d, skipped %d unmatched.",
		len(rows), matched, upserted, skipped), nil
}

func (t *Tasks) oddsOptions(params Params) oddsapi.OddsOptions {
	return oddsapi.OddsOptions{
		Markets:          params.List("markets"),
		DateFormat:       params["dateFormat"],
		OddsFormat:       params["oddsFormat"],
		EventIDs:         params.List("eventIds"),
		Bookmakers:       params.List("bookmakers"),
		CommenceTimeFrom: params["commenceTimeFrom"],
		CommenceTimeTo:   params["commenceTimeTo"],
		IncludeLinks:     params.Bool("includeLinks"),
		IncludeSids:      params.Bool("includeSids"),
		IncludeBetLimits: params.Bool("includeBetLimits"),
	}
}
