package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"oddsley/internal/models"
	"oddsley/internal/oddsapi"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OddsService owns the snapshot ingestion pipeline: it walks one nested
// odds payload Event -> Odd -> Bookmaker -> Market -> Outcome, upserting
// each level. Failures below the Event/Odd level are isolated to the
// offending node; a single malformed bookmaker must not discard a snapshot
// of hundreds of other prices.
type OddsService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewOddsService(db *gorm.DB, logger *logrus.Logger) *OddsService {
	return &OddsService{db: db, logger: logger}
}

// SkippedNode records one nested record that was skipped during ingestion,
// with the key path identifying it.
type SkippedNode struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// SnapshotReport aggregates per-node outcomes for one or more snapshot
// upserts.
type SnapshotReport struct {
	BookmakersUpserted int           `json:"bookmakers_upserted"`
	BookmakersSkipped  int           `json:"bookmakers_skipped"`
	MarketsUpserted    int           `json:"markets_upserted"`
	MarketsSkipped     int           `json:"markets_skipped"`
	OutcomesUpserted   int           `json:"outcomes_upserted"`
	OutcomesSkipped    int           `json:"outcomes_skipped"`
	Skipped            []SkippedNode `json:"skipped,omitempty"`
}

func (r *SnapshotReport) merge(other *SnapshotReport) {
	r.BookmakersUpserted += other.BookmakersUpserted
	r.BookmakersSkipped += other.BookmakersSkipped
	r.MarketsUpserted += other.MarketsUpserted
	r.MarketsSkipped += other.MarketsSkipped
	r.OutcomesUpserted += other.OutcomesUpserted
	r.OutcomesSkipped += other.OutcomesSkipped
	r.Skipped = append(r.Skipped, other.Skipped...)
}

// IngestSummary is the result of ingesting one odds payload.
type IngestSummary struct {
	Events           int            `json:"events"`
	SnapshotsCreated int            `json:"snapshots_created"`
	SnapshotsUpdated int            `json:"snapshots_updated"`
	Report           SnapshotReport `json:"report"`
}

// String renders the short status line the task layer reports back.
func (s *IngestSummary) String() string {
	return fmt.Sprintf(
		"ingested %d events: %d snapshots created, %d updated, %d bookmakers, %d markets, %d outcomes upserted, %d nodes skipped",
		s.Events, s.SnapshotsCreated, s.SnapshotsUpdated,
		s.Report.BookmakersUpserted, s.Report.MarketsUpserted, s.Report.OutcomesUpserted,
		s.Report.BookmakersSkipped+s.Report.MarketsSkipped+s.Report.OutcomesSkipped,
	)
}

// IngestPayload validates a raw odds payload (a list of odds events),
// then upserts a snapshot for every event in it. Validation failure means
// zero writes. The timestamp arguments apply to every snapshot in the
// payload; a nil timestamp means ingestion time.
func (s *OddsService) IngestPayload(raw []byte, timestamp, previous, next *time.Time) (*IngestSummary, error) {
	var generic []map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("%w: odds payload must be a list: %v", ErrValidation, err)
	}
	if err := ValidateOddsEvents(generic); err != nil {
		return nil, err
	}

	var payload []oddsapi.OddsEvent
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode odds payload: %v", ErrValidation, err)
	}

	summary := &IngestSummary{}
	for _, event := range payload {
		_, created, report, err := s.UpsertSnapshot(event, timestamp, previous, next)
		if err != nil {
			return summary, fmt.Errorf("failed to upsert snapshot for event %s: %w", event.ID, err)
		}
		summary.Events++
		if created {
			summary.SnapshotsCreated++
		} else {
			summary.SnapshotsUpdated++
		}
		summary.Report.merge(report)
	}
	return summary, nil
}

// IngestHistorical unwraps a historical snapshot envelope
// {timestamp, previous_timestamp, next_timestamp, data} and ingests the
// inner payload pinned to the envelope's timestamps.
func (s *OddsService) IngestHistorical(raw []byte) (*IngestSummary, error) {
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("%w: historical payload must be an object: %v", ErrValidation, err)
	}
	if err := ValidateSnapshotEnvelope(generic); err != nil {
		return nil, err
	}

	var envelope oddsapi.HistoricalSnapshot
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: failed to decode historical payload: %v", ErrValidation, err)
	}

	timestamp, err := parseTimestamp(&envelope.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed snapshot timestamp: %v", ErrValidation, err)
	}
	previous, err := parseTimestamp(envelope.PreviousTimestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed previous_timestamp: %v", ErrValidation, err)
	}
	next, err := parseTimestamp(envelope.NextTimestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed next_timestamp: %v", ErrValidation, err)
	}

	return s.IngestPayload(envelope.Data, timestamp, previous, next)
}

// UpsertSnapshot reconciles one nested odds payload against the store.
//
// The event and snapshot header are written in a single transaction; a
// failure there aborts the whole operation. The bookmaker/market/outcome
// loops run as independent small writes afterwards so a failure at any
// node commits everything upserted so far and only that node's subtree is
// skipped. Every skip is logged with its key path and recorded in the
// returned report.
func (s *OddsService) UpsertSnapshot(payload oddsapi.OddsEvent, timestamp, previous, next *time.Time) (*models.Odd, bool, *SnapshotReport, error) {
	effective := time.Now().UTC()
	if timestamp != nil {
		effective = timestamp.UTC()
	}

	var odd *models.Odd
	var event *models.Event
	var created bool

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		event, _, err = upsertEvent(tx, payload.ID, payload.SportKey, payload.SportTitle,
			payload.CommenceTime, payload.HomeTeam, payload.AwayTeam, models.EventStatusUnknown)
		if err != nil {
			return err
		}

		odd, created, err = upsertOdd(tx, event.ID, effective, previous, next)
		return err
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"event_id":  payload.ID,
			"timestamp": effective,
		}).Errorf("Snapshot header upsert failed: %v", err)
		return nil, false, nil, err
	}

	report := &SnapshotReport{}
	for _, bookmakerData := range payload.Bookmakers {
		s.upsertBookmaker(event, odd, effective, bookmakerData, report)
	}
	return odd, created, report, nil
}

// upsertOdd upserts the snapshot row keyed by (event, timestamp).
func upsertOdd(db *gorm.DB, eventID string, timestamp time.Time, previous, next *time.Time) (*models.Odd, bool, error) {
	var odd models.Odd
	err := db.Where("event_id = ? AND timestamp = ?", eventID, timestamp).First(&odd).Error
	if err == nil {
		if !timePtrEqual(odd.PreviousTimestamp, previous) || !timePtrEqual(odd.NextTimestamp, next) {
			if err := db.Model(&odd).Updates(map[string]interface{}{
				"previous_timestamp": previous,
				"next_timestamp":     next,
			}).Error; err != nil {
				return nil, false, fmt.Errorf("failed to update snapshot: %w", err)
			}
		}
		return &odd, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up snapshot: %w", err)
	}

	odd = models.Odd{
		EventID:           eventID,
		Timestamp:         timestamp,
		PreviousTimestamp: previous,
		NextTimestamp:     next,
	}
	if err := db.Create(&odd).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create snapshot: %w", err)
	}
	return &odd, true, nil
}

func (s *OddsService) upsertBookmaker(event *models.Event, odd *models.Odd, timestamp time.Time, data oddsapi.BookmakerData, report *SnapshotReport) {
	fields := logrus.Fields{
		"event_id":  event.ID,
		"timestamp": timestamp,
		"bookmaker": data.Key,
	}
	path := fmt.Sprintf("bookmaker=%s", data.Key)

	skip := func(reason string) {
		report.BookmakersSkipped++
		report.Skipped = append(report.Skipped, SkippedNode{Path: path, Reason: reason})
		s.logger.WithFields(fields).Warnf("Skipping bookmaker: %s", reason)
	}

	if data.Key == "" {
		skip("bookmaker key is missing")
		return
	}

	var lastUpdate *time.Time
	if data.LastUpdate != "" {
		parsed, err := time.Parse(time.RFC3339, data.LastUpdate)
		if err != nil {
			skip(fmt.Sprintf("malformed last_update %q", data.LastUpdate))
			return
		}
		utc := parsed.UTC()
		lastUpdate = &utc
	}

	var bookmaker models.Bookmaker
	err := s.db.Where("odd_id = ? AND key = ?", odd.ID, data.Key).First(&bookmaker).Error
	switch {
	case err == nil:
		if bookmaker.Title != data.Title || !timePtrEqual(bookmaker.LastUpdate, lastUpdate) {
			if err := s.db.Model(&bookmaker).Updates(map[string]interface{}{
				"title":       data.Title,
				"last_update": lastUpdate,
			}).Error; err != nil {
				skip(fmt.Sprintf("update failed: %v", err))
				return
			}
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		bookmaker = models.Bookmaker{
			OddID:      odd.ID,
			Key:        data.Key,
			Title:      data.Title,
			LastUpdate: lastUpdate,
		}
		if err := s.db.Create(&bookmaker).Error; err != nil {
			skip(fmt.Sprintf("create failed: %v", err))
			return
		}
	default:
		skip(fmt.Sprintf("lookup failed: %v", err))
		return
	}

	report.BookmakersUpserted++
	for _, marketData := range data.Markets {
		s.upsertMarket(event, &bookmaker, fields, path, marketData, report)
	}
}

func (s *OddsService) upsertMarket(event *models.Event, bookmaker *models.Bookmaker, parentFields logrus.Fields, parentPath string, data oddsapi.MarketData, report *SnapshotReport) {
	fields := logrus.Fields{"market": data.Key}
	for k, v := range parentFields {
		fields[k] = v
	}
	path := fmt.Sprintf("%s/market=%s", parentPath, data.Key)

	skip := func(reason string) {
		report.MarketsSkipped++
		report.Skipped = append(report.Skipped, SkippedNode{Path: path, Reason: reason})
		s.logger.WithFields(fields).Warnf("Skipping market: %s", reason)
	}

	if data.Key == "" {
		skip("market key is missing")
		return
	}

	var market models.Market
	err := s.db.Where("bookmaker_id = ? AND key = ?", bookmaker.ID, data.Key).First(&market).Error
	switch {
	case err == nil:
		// nothing to refresh, the key is the whole record
	case errors.Is(err, gorm.ErrRecordNotFound):
		market = models.Market{BookmakerID: bookmaker.ID, Key: data.Key}
		if err := s.db.Create(&market).Error; err != nil {
			skip(fmt.Sprintf("create failed: %v", err))
			return
		}
	default:
		skip(fmt.Sprintf("lookup failed: %v", err))
		return
	}

	report.MarketsUpserted++
	for _, outcomeData := range data.Outcomes {
		s.upsertOutcome(event, &market, fields, path, outcomeData, report)
	}
}

func (s *OddsService) upsertOutcome(event *models.Event, market *models.Market, parentFields logrus.Fields, parentPath string, data oddsapi.OutcomeData, report *SnapshotReport) {
	fields := logrus.Fields{"outcome": data.Name}
	for k, v := range parentFields {
		fields[k] = v
	}
	path := fmt.Sprintf("%s/outcome=%s", parentPath, data.Name)

	skip := func(reason string) {
		report.OutcomesSkipped++
		report.Skipped = append(report.Skipped, SkippedNode{Path: path, Reason: reason})
		s.logger.WithFields(fields).Warnf("Skipping outcome: %s", reason)
	}

	// The outcome subject is a team reference, so it has to resolve to a
	// team row under the event's sport before the price can be recorded.
	team, err := getOrCreateTeam(s.db, event.SportID, data.Name)
	if err != nil {
		skip(fmt.Sprintf("failed to resolve subject team: %v", err))
		return
	}

	var outcome models.Outcome
	err = s.db.Where("market_id = ? AND team_id = ?", market.ID, team.ID).First(&outcome).Error
	switch {
	case err == nil:
		if !outcome.Price.Equal(data.Price) || !floatPtrEqual(outcome.Point, data.Point) {
			if err := s.db.Model(&outcome).Updates(map[string]interface{}{
				"price": data.Price,
				"point": data.Point,
			}).Error; err != nil {
				skip(fmt.Sprintf("update failed: %v", err))
				return
			}
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		outcome = models.Outcome{
			MarketID: market.ID,
			TeamID:   team.ID,
			Price:    data.Price,
			Point:    data.Point,
		}
		if err := s.db.Create(&outcome).Error; err != nil {
			skip(fmt.Sprintf("create failed: %v", err))
			return
		}
	default:
		skip(fmt.Sprintf("lookup failed: %v", err))
		return
	}

	report.OutcomesUpserted++
}

// GetSnapshots returns snapshots, optionally filtered by event, with the
// full bookmaker/market/outcome tree preloaded.
func (s *OddsService) GetSnapshots(eventID string, limit int) ([]models.Odd, error) {
	var odds []models.Odd
	query := s.db.Preload("Bookmakers.Markets.Outcomes.Team").Order("timestamp desc")
	if eventID != "" {
		query = query.Where("event_id = ?", eventID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&odds).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch snapshots: %w", err)
	}
	return odds, nil
}

// GetSnapshot returns one snapshot by id with its full tree preloaded.
func (s *OddsService) GetSnapshot(id uint) (*models.Odd, error) {
	var odd models.Odd
	if err := s.db.Preload("Bookmakers.Markets.Outcomes.Team").First(&odd, id).Error; err != nil {
		return nil, err
	}
	return &odd, nil
}

func parseTimestamp(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return nil, err
	}
	utc := parsed.UTC()
	return &utc, nil
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
