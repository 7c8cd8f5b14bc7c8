package services

import (
	"errors"
	"testing"
	"time"

	"oddsley/internal/models"
	"oddsley/internal/oddsapi"
)

func TestUpsertEventCreatesSportAndTeams(t *testing.T) {
	db := setupTestDB(t)
	service := NewEventService(db, testLogger())

	event, created, err := service.UpsertEvent(oddsapi.EventData{
		ID:           "evt1",
		SportKey:     "soccer_epl",
		SportTitle:   "EPL",
		CommenceTime: "2024-03-09T15:00:00Z",
		HomeTeam:     "Arsenal",
		AwayTeam:     "Chelsea",
	})
	if err != nil {
		t.Fatalf("UpsertEvent failed: %v", err)
	}
	if !created {
		t.Error("expected event to be created")
	}
	if event.Status != models.EventStatusScheduled {
		t.Errorf("expected new event to be scheduled, got %s", event.Status)
	}

	if got := countRows(t, db, &models.Sport{}); got != 1 {
		t.Errorf("expected 1 sport, got %d", got)
	}
	if got := countRows(t, db, &models.Team{}); got != 2 {
		t.Errorf("expected 2 teams, got %d", got)
	}

	want := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)
	if event.CommenceTime == nil || !event.CommenceTime.Equal(want) {
		t.Errorf("expected commence time %v, got %v", want, event.CommenceTime)
	}
}

func TestUpsertEventPreservesStatus(t *testing.T) {
	db := setupTestDB(t)
	service := NewEventService(db, testLogger())

	data := oddsapi.EventData{
		ID:           "evt1",
		SportKey:     "soccer_epl",
		SportTitle:   "EPL",
		CommenceTime: "2024-03-09T15:00:00Z",
		HomeTeam:     "Arsenal",
		AwayTeam:     "Chelsea",
	}
	if _, _, err := service.UpsertEvent(data); err != nil {
		t.Fatalf("UpsertEvent failed: %v", err)
	}

	if err := db.Model(&models.Event{}).Where("id = ?", "evt1").
		Update("status", models.EventStatusCompleted).Error; err != nil {
		t.Fatalf("failed to set status: %v", err)
	}

	_, created, err := service.UpsertEvent(data)
	if err != nil {
		t.Fatalf("second UpsertEvent failed: %v", err)
	}
	if created {
		t.Error("expected update, not create")
	}

	var event models.Event
	if err := db.First(&event, "id = ?", "evt1").Error; err != nil {
		t.Fatalf("failed to load event: %v", err)
	}
	if event.Status != models.EventStatusCompleted {
		t.Errorf("re-upserting must not rewind status, got %s", event.Status)
	}
}

func TestUpsertEventRejectsMalformedCommenceTime(t *testing.T) {
	db := setupTestDB(t)
	service := NewEventService(db, testLogger())

	_, _, err := service.UpsertEvent(oddsapi.EventData{
		ID:           "evt1",
		SportKey:     "soccer_epl",
		SportTitle:   "EPL",
		CommenceTime: "09/03/2024",
		HomeTeam:     "Arsenal",
		AwayTeam:     "Chelsea",
	})
	if err == nil {
		t.Fatal("expected an error for a malformed commence_time")
	}

	if got := countRows(t, db, &models.Event{}); got != 0 {
		t.Errorf("expected no event rows, got %d", got)
	}
}

func TestIngestEventsPayloadValidates(t *testing.T) {
	db := setupTestDB(t)
	service := NewEventService(db, testLogger())

	// bookmakers does not belong in an events payload
	raw := []byte(`[{
		"id": "evt1",
		"sport_key": "soccer_epl",
		"sport_title": "EPL",
		"commence_time": "2024-03-09T15:00:00Z",
		"home_team": "Arsenal",
		"away_team": "Chelsea",
		"bookmakers": []
	}]`)

	_, _, err := service.IngestEventsPayload(raw)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := countRows(t, db, &models.Event{}); got != 0 {
		t.Errorf("expected no writes after validation failure, got %d", got)
	}
}

func TestIngestEventsPayloadUpserts(t *testing.T) {
	db := setupTestDB(t)
	service := NewEventService(db, testLogger())

	raw := []byte(`[
		{"id": "evt1", "sport_key": "soccer_epl", "sport_title": "EPL",
		 "commence_time": "2024-03-09T15:00:00Z", "home_team": "Arsenal", "away_team": "Chelsea"},
		{"id": "evt2", "sport_key": "soccer_epl", "sport_title": "EPL",
		 "commence_time": "2024-03-10T15:00:00Z", "home_team": "Liverpool", "away_team": "Everton"}
	]`)

	created, updated, err := service.IngestEventsPayload(raw)
	if err != nil {
		t.Fatalf("IngestEventsPayload failed: %v", err)
	}
	if created != 2 || updated != 0 {
		t.Errorf("expected 2 created, got created=%d updated=%d", created, updated)
	}

	created, updated, err = service.IngestEventsPayload(raw)
	if err != nil {
		t.Fatalf("second IngestEventsPayload failed: %v", err)
	}
	if created != 0 || updated != 2 {
		t.Errorf("expected 2 updated on re-ingest, got created=%d updated=%d", created, updated)
	}

	events, err := service.GetEvents("soccer_epl", 0)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events, got %d", len(events))
	}
}
