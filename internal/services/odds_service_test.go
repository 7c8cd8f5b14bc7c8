package services

import (
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"oddsley/internal/database"
	"oddsley/internal/models"
	"oddsley/internal/oddsapi"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// Each test gets its own private in-memory database.
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func sampleOddsEvent() oddsapi.OddsEvent {
	point := 2.5
	return oddsapi.OddsEvent{
		ID:           "evt1",
		SportKey:     "soccer_epl",
		SportTitle:   "EPL",
		CommenceTime: "2024-03-09T15:00:00Z",
		HomeTeam:     "Arsenal",
		AwayTeam:     "Chelsea",
		Bookmakers: []oddsapi.BookmakerData{
			{
				Key:        "bet365",
				Title:      "Bet365",
				LastUpdate: "2024-03-09T14:00:00Z",
				Markets: []oddsapi.MarketData{
					{
						Key: "h2h",
						Outcomes: []oddsapi.OutcomeData{
							{Name: "Arsenal", Price: decimal.NewFromFloat(1.85)},
							{Name: "Chelsea", Price: decimal.NewFromFloat(4.20), Point: &point},
						},
					},
				},
			},
		},
	}
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return count
}

func TestUpsertSnapshotCreatesFullTree(t *testing.T) {
	db := setupTestDB(t)
	service := NewOddsService(db, testLogger())

	ts := time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)
	odd, created, report, err := service.UpsertSnapshot(sampleOddsEvent(), &ts, nil, nil)
	if err != nil {
		t.Fatalf("UpsertSnapshot failed: %v", err)
	}
	if !created {
		t.Error("expected snapshot to be created")
	}
	if !odd.Timestamp.Equal(ts) {
		t.Errorf("expected snapshot timestamp %v, got %v", ts, odd.Timestamp)
	}

	if got := countRows(t, db, &models.Sport{}); got != 1 {
		t.Errorf("expected 1 sport, got %d", got)
	}
	if got := countRows(t, db, &models.Team{}); got != 2 {
		t.Errorf("expected 2 teams, got %d", got)
	}
	if got := countRows(t, db, &models.Event{}); got != 1 {
		t.Errorf("expected 1 event, got %d", got)
	}
	if got := countRows(t, db, &models.Odd{}); got != 1 {
		t.Errorf("expected 1 snapshot, got %d", got)
	}
	if got := countRows(t, db, &models.Bookmaker{}); got != 1 {
		t.Errorf("expected 1 bookmaker, got %d", got)
	}
	if got := countRows(t, db, &models.Market{}); got != 1 {
		t.Errorf("expected 1 market, got %d", got)
	}
	if got := countRows(t, db, &models.Outcome{}); got != 2 {
		t.Errorf("expected 2 outcomes, got %d", got)
	}

	if report.BookmakersUpserted != 1 || report.MarketsUpserted != 1 || report.OutcomesUpserted != 2 {
		t.Errorf("unexpected report: %+v", report)
	}
	if len(report.Skipped) != 0 {
		t.Errorf("expected no skipped nodes, got %v", report.Skipped)
	}

	// A stub sport created from a snapshot only carries key and title.
	var sport models.Sport
	if err := db.Where("key = ?", "soccer_epl").First(&sport).Error; err != nil {
		t.Fatalf("failed to load sport: %v", err)
	}
	if sport.Title != "EPL" || !sport.Active {
		t.Errorf("unexpected stub sport: %+v", sport)
	}
}

func TestUpsertSnapshotIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	service := NewOddsService(db, testLogger())

	ts := time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)
	if _, _, _, err := service.UpsertSnapshot(sampleOddsEvent(), &ts, nil, nil); err != nil {
		t.Fatalf("first UpsertSnapshot failed: %v", err)
	}

	_, created, _, err := service.UpsertSnapshot(sampleOddsEvent(), &ts, nil, nil)
	if err != nil {
		t.Fatalf("second UpsertSnapshot failed: %v", err)
	}
	if created {
		t.Error("expected second upsert to update, not create")
	}

	if got := countRows(t, db, &models.Odd{}); got != 1 {
		t.Errorf("expected 1 snapshot after re-ingest, got %d", got)
	}
	if got := countRows(t, db, &models.Bookmaker{}); got != 1 {
		t.Errorf("expected 1 bookmaker after re-ingest, got %d", got)
	}
	if got := countRows(t, db, &models.Outcome{}); got != 2 {
		t.Errorf("expected 2 outcomes after re-ingest, got %d", got)
	}
}

func TestUpsertSnapshotNewTimestampCreatesNewSnapshot(t *testing.T) {
	db := setupTestDB(t)
	service := NewOddsService(db, testLogger())

	first := time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	if _, _, _, err := service.UpsertSnapshot(sampleOddsEvent(), &first, nil, nil); err != nil {
		t.Fatalf("first UpsertSnapshot failed: %v", err)
	}
	_, created, _, err := service.UpsertSnapshot(sampleOddsEvent(), &second, &first, nil)
	if err != nil {
		t.Fatalf("second UpsertSnapshot failed: %v", err)
	}
	if !created {
		t.Error("expected a new snapshot for a new timestamp")
	}

	if got := countRows(t, db, &models.Odd{}); got != 2 {
		t.Errorf("expected 2 snapshots, got %d", got)
	}
	if got := countRows(t, db, &models.Event{}); got != 1 {
		t.Errorf("expected the same event to back both snapshots, got %d", got)
	}
}

func TestUpsertSnapshotUpdatesPriceInPlace(t *testing.T) {
	db := setupTestDB(t)
	service := NewOddsService(db, testLogger())

	ts := time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)
	if _, _, _, err := service.UpsertSnapshot(sampleOddsEvent(), &ts, nil, nil); err != nil {
		t.Fatalf("first UpsertSnapshot failed: %v", err)
	}

	payload := sampleOddsEvent()
	payload.Bookmakers[0].Markets[0].Outcomes[0].Price = decimal.NewFromFloat(2.10)
	if _, _, _, err := service.UpsertSnapshot(payload, &ts, nil, nil); err != nil {
		t.Fatalf("second UpsertSnapshot failed: %v", err)
	}

	if got := countRows(t, db, &models.Outcome{}); got != 2 {
		t.Errorf("expected outcomes to be updated in place, got %d rows", got)
	}

	var team models.Team
	if err := db.Where("name = ?", "Arsenal").First(&team).Error; err != nil {
		t.Fatalf("failed to load team: %v", err)
	}
	var outcome models.Outcome
	if err := db.Where("team_id = ?", team.ID).First(&outcome).Error; err != nil {
		t.Fatalf("failed to load outcome: %v", err)
	}
	if !outcome.Price.Equal(decimal.NewFromFloat(2.10)) {
		t.Errorf("expected price 2.10, got %s", outcome.Price)
	}
}

func TestUpsertSnapshotRefreshesLastUpdateInPlace(t *testing.T) {
	db := setupTestDB(t)
	service := NewOddsService(db, testLogger())

	ts := time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)
	if _, _, _, err := service.UpsertSnapshot(sampleOddsEvent(), &ts, nil, nil); err != nil {
		t.Fatalf("first UpsertSnapshot failed: %v", err)
	}

	payload := sampleOddsEvent()
	payload.Bookmakers[0].LastUpdate = "2024-03-09T14:20:00Z"
	if _, _, _, err := service.UpsertSnapshot(payload, &ts, nil, nil); err != nil {
		t.Fatalf("second UpsertSnapshot failed: %v", err)
	}

	if got := countRows(t, db, &models.Bookmaker{}); got != 1 {
		t.Errorf("expected the bookmaker to be refreshed in place, got %d rows", got)
	}

	var bookmaker models.Bookmaker
	if err := db.Where("key = ?", "bet365").First(&bookmaker).Error; err != nil {
		t.Fatalf("failed to load bookmaker: %v", err)
	}
	want := time.Date(2024, 3, 9, 14, 20, 0, 0, time.UTC)
	if bookmaker.LastUpdate == nil || !bookmaker.LastUpdate.Equal(want) {
		t.Errorf("expected last_update %v, got %v", want, bookmaker.LastUpdate)
	}
}

func TestUpsertSnapshotSkipsBadNodesAndKeepsTheRest(t *testing.T) {
	db := setupTestDB(t)
	service := NewOddsService(db, testLogger())

	payload := sampleOddsEvent()
	payload.Bookmakers = append(payload.Bookmakers,
		oddsapi.BookmakerData{Key: "", Title: "Nameless"},
		oddsapi.BookmakerData{Key: "unibet", Title: "Unibet", LastUpdate: "not-a-date"},
		oddsapi.BookmakerData{
			Key:   "pinnacle",
			Title: "Pinnacle",
			Markets: []oddsapi.MarketData{
				{Key: ""},
				{Key: "h2h", Outcomes: []oddsapi.OutcomeData{
					{Name: "Arsenal", Price: decimal.NewFromFloat(1.90)},
					{Name: "", Price: decimal.NewFromFloat(3.00)},
				}},
			},
		},
	)

	ts := time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)
	_, _, report, err := service.UpsertSnapshot(payload, &ts, nil, nil)
	if err != nil {
		t.Fatalf("UpsertSnapshot failed: %v", err)
	}

	if report.BookmakersUpserted != 2 || report.BookmakersSkipped != 2 {
		t.Errorf("unexpected bookmaker counts: %+v", report)
	}
	if report.MarketsUpserted != 2 || report.MarketsSkipped != 1 {
		t.Errorf("unexpected market counts: %+v", report)
	}
	if report.OutcomesUpserted != 3 || report.OutcomesSkipped != 1 {
		t.Errorf("unexpected outcome counts: %+v", report)
	}

	paths := make(map[string]bool)
	for _, node := range report.Skipped {
		paths[node.Path] = true
	}
	if !paths["bookmaker=unibet"] {
		t.Errorf("expected the malformed bookmaker to be skipped by path, got %v", report.Skipped)
	}
	if !paths["bookmaker=pinnacle/market=h2h/outcome="] {
		t.Errorf("expected the unnamed outcome to be skipped by path, got %v", report.Skipped)
	}

	// The good subtrees still landed.
	if got := countRows(t, db, &models.Bookmaker{}); got != 2 {
		t.Errorf("expected 2 bookmakers, got %d", got)
	}
	if got := countRows(t, db, &models.Outcome{}); got != 3 {
		t.Errorf("expected 3 outcomes, got %d", got)
	}
}

func TestIngestPayloadRejectsSchemaDrift(t *testing.T) {
	db := setupTestDB(t)
	service := NewOddsService(db, testLogger())

	// An extra key means the upstream schema changed; nothing may be written.
	raw := []byte(`[{
		"id": "evt1",
		"sport_key": "soccer_epl",
		"sport_title": "EPL",
		"commence_time": "2024-03-09T15:00:00Z",
		"home_team": "Arsenal",
		"away_team": "Chelsea",
		"bookmakers": [],
		"surprise": true
	}]`)

	_, err := service.IngestPayload(raw, nil, nil, nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if got := countRows(t, db, &models.Event{}); got != 0 {
		t.Errorf("expected no writes after validation failure, got %d events", got)
	}
	if got := countRows(t, db, &models.Odd{}); got != 0 {
		t.Errorf("expected no snapshots after validation failure, got %d", got)
	}
}

func TestIngestHistoricalUnwrapsEnvelope(t *testing.T) {
	db := setupTestDB(t)
	service := NewOddsService(db, testLogger())

	data, err := json.Marshal([]oddsapi.OddsEvent{sampleOddsEvent()})
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	envelope, err := json.Marshal(map[string]any{
		"timestamp":          "2024-03-09T14:30:00Z",
		"previous_timestamp": "2024-03-09T14:25:00Z",
		"next_timestamp":     nil,
		"data":               json.RawMessage(data),
	})
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}

	summary, err := service.IngestHistorical(envelope)
	if err != nil {
		t.Fatalf("IngestHistorical failed: %v", err)
	}
	if summary.Events != 1 || summary.SnapshotsCreated != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	var odd models.Odd
	if err := db.First(&odd).Error; err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}
	want := time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)
	if !odd.Timestamp.Equal(want) {
		t.Errorf("expected snapshot timestamp %v, got %v", want, odd.Timestamp)
	}
	if odd.PreviousTimestamp == nil || !odd.PreviousTimestamp.Equal(want.Add(-5*time.Minute)) {
		t.Errorf("expected previous timestamp to be stored, got %v", odd.PreviousTimestamp)
	}
	if odd.NextTimestamp != nil {
		t.Errorf("expected nil next timestamp, got %v", odd.NextTimestamp)
	}
}

func TestIngestHistoricalRejectsBrokenEnvelope(t *testing.T) {
	db := setupTestDB(t)
	service := NewOddsService(db, testLogger())

	_, err := service.IngestHistorical([]byte(`{"timestamp": "2024-03-09T14:30:00Z", "data": []}`))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for missing envelope keys, got %v", err)
	}
}

func TestUpsertSnapshotPreservesEventStatus(t *testing.T) {
	db := setupTestDB(t)
	service := NewOddsService(db, testLogger())

	ts := time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)
	if _, _, _, err := service.UpsertSnapshot(sampleOddsEvent(), &ts, nil, nil); err != nil {
		t.Fatalf("UpsertSnapshot failed: %v", err)
	}

	if err := db.Model(&models.Event{}).Where("id = ?", "evt1").
		Update("status", models.EventStatusCompleted).Error; err != nil {
		t.Fatalf("failed to set status: %v", err)
	}

	later := ts.Add(time.Hour)
	if _, _, _, err := service.UpsertSnapshot(sampleOddsEvent(), &later, &ts, nil); err != nil {
		t.Fatalf("second UpsertSnapshot failed: %v", err)
	}

	var event models.Event
	if err := db.First(&event, "id = ?", "evt1").Error; err != nil {
		t.Fatalf("failed to load event: %v", err)
	}
	if event.Status != models.EventStatusCompleted {
		t.Errorf("a snapshot must not rewind event status, got %s", event.Status)
	}
}
