package services

import (
	"errors"
	"testing"
)

func validOddsEvent() map[string]any {
	return map[string]any{
		"id":            "evt1",
		"sport_key":     "soccer_epl",
		"sport_title":   "EPL",
		"commence_time": "2024-03-09T15:00:00Z",
		"home_team":     "Arsenal",
		"away_team":     "Chelsea",
		"bookmakers":    []any{},
	}
}

func TestValidateOddsEvents(t *testing.T) {
	if err := ValidateOddsEvents([]map[string]any{validOddsEvent()}); err != nil {
		t.Errorf("expected a well-formed event to pass, got %v", err)
	}

	missing := validOddsEvent()
	delete(missing, "home_team")
	if err := ValidateOddsEvents([]map[string]any{missing}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected a missing key to fail, got %v", err)
	}

	extra := validOddsEvent()
	extra["surprise"] = true
	if err := ValidateOddsEvents([]map[string]any{extra}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected an extra key to fail, got %v", err)
	}

	wrongType := validOddsEvent()
	wrongType["bookmakers"] = "none"
	if err := ValidateOddsEvents([]map[string]any{wrongType}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected a wrong type to fail, got %v", err)
	}
}

func TestValidateEvents(t *testing.T) {
	event := validOddsEvent()
	delete(event, "bookmakers")
	if err := ValidateEvents([]map[string]any{event}); err != nil {
		t.Errorf("expected a well-formed event to pass, got %v", err)
	}

	// The odds shape is over-strict for events: the bookmakers key is extra.
	if err := ValidateEvents([]map[string]any{validOddsEvent()}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected bookmakers to be rejected on an event, got %v", err)
	}
}

func TestValidateSnapshotEnvelope(t *testing.T) {
	envelope := map[string]any{
		"timestamp":          "2024-03-09T14:30:00Z",
		"previous_timestamp": nil,
		"next_timestamp":     "2024-03-09T14:35:00Z",
		"data":               []any{},
	}
	if err := ValidateSnapshotEnvelope(envelope); err != nil {
		t.Errorf("expected null neighbour timestamps to be allowed, got %v", err)
	}

	envelope["data"] = map[string]any{}
	if err := ValidateSnapshotEnvelope(envelope); !errors.Is(err, ErrValidation) {
		t.Errorf("expected non-list data to fail, got %v", err)
	}

	delete(envelope, "data")
	if err := ValidateSnapshotEnvelope(envelope); !errors.Is(err, ErrValidation) {
		t.Errorf("expected a missing key to fail, got %v", err)
	}
}
