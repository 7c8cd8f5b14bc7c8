package services

import (
	"testing"

	"oddsley/internal/models"
	"oddsley/internal/oddsapi"
)

func TestUpsertSportCreateThenUpdate(t *testing.T) {
	db := setupTestDB(t)
	service := NewSportService(db, testLogger())

	sport, created, err := service.UpsertSport(oddsapi.SportData{
		Key:    "soccer_epl",
		Group:  "Soccer",
		Title:  "EPL",
		Active: true,
	})
	if err != nil {
		t.Fatalf("UpsertSport failed: %v", err)
	}
	if !created {
		t.Error("expected sport to be created")
	}

	_, created, err = service.UpsertSport(oddsapi.SportData{
		Key:    "soccer_epl",
		Group:  "Soccer",
		Title:  "English Premier League",
		Active: false,
	})
	if err != nil {
		t.Fatalf("second UpsertSport failed: %v", err)
	}
	if created {
		t.Error("expected update, not create")
	}

	var reloaded models.Sport
	if err := db.First(&reloaded, sport.ID).Error; err != nil {
		t.Fatalf("failed to reload sport: %v", err)
	}
	if reloaded.Title != "English Premier League" {
		t.Errorf("expected title to be refreshed, got %q", reloaded.Title)
	}
	if reloaded.Active {
		t.Error("expected sport to be deactivated")
	}
	if got := countRows(t, db, &models.Sport{}); got != 1 {
		t.Errorf("expected 1 sport row, got %d", got)
	}
}

func TestUpsertSportRequiresKey(t *testing.T) {
	db := setupTestDB(t)
	service := NewSportService(db, testLogger())

	if _, _, err := service.UpsertSport(oddsapi.SportData{Title: "No key"}); err == nil {
		t.Fatal("expected an error for a missing sport key")
	}
}

func TestIngestSportsPayload(t *testing.T) {
	db := setupTestDB(t)
	service := NewSportService(db, testLogger())

	raw := []byte(`[
		{"key": "soccer_epl", "group": "Soccer", "title": "EPL",
		 "description": "English Premier League", "active": true, "has_outrights": false},
		{"key": "aussierules_afl", "group": "Aussie Rules", "title": "AFL",
		 "description": "Australian Football League", "active": false, "has_outrights": true}
	]`)

	created, updated, err := service.IngestSportsPayload(raw)
	if err != nil {
		t.Fatalf("IngestSportsPayload failed: %v", err)
	}
	if created != 2 || updated != 0 {
		t.Errorf("expected 2 created, got created=%d updated=%d", created, updated)
	}

	created, updated, err = service.IngestSportsPayload(raw)
	if err != nil {
		t.Fatalf("second IngestSportsPayload failed: %v", err)
	}
	if created != 0 || updated != 2 {
		t.Errorf("expected 2 updated, got created=%d updated=%d", created, updated)
	}

	active, err := service.GetSports(true)
	if err != nil {
		t.Fatalf("GetSports failed: %v", err)
	}
	if len(active) != 1 || active[0].Key != "soccer_epl" {
		t.Errorf("expected only the active sport, got %+v", active)
	}

	all, err := service.GetSports(false)
	if err != nil {
		t.Fatalf("GetSports failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 sports, got %d", len(all))
	}
}

func TestGetOrCreateTeamScopedToSport(t *testing.T) {
	db := setupTestDB(t)

	epl, err := getOrCreateSportByKey(db, "soccer_epl", "EPL")
	if err != nil {
		t.Fatalf("getOrCreateSportByKey failed: %v", err)
	}
	afl, err := getOrCreateSportByKey(db, "aussierules_afl", "AFL")
	if err != nil {
		t.Fatalf("getOrCreateSportByKey failed: %v", err)
	}

	first, err := getOrCreateTeam(db, epl.ID, "Arsenal")
	if err != nil {
		t.Fatalf("getOrCreateTeam failed: %v", err)
	}
	again, err := getOrCreateTeam(db, epl.ID, "Arsenal")
	if err != nil {
		t.Fatalf("getOrCreateTeam failed: %v", err)
	}
	if first.ID != again.ID {
		t.Error("expected the same team row for the same sport and name")
	}

	other, err := getOrCreateTeam(db, afl.ID, "Arsenal")
	if err != nil {
		t.Fatalf("getOrCreateTeam failed: %v", err)
	}
	if other.ID == first.ID {
		t.Error("the same name under a different sport must be a different team")
	}
}
