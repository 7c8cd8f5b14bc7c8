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

// EventService upserts and reads Event rows.
type EventService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewEventService(db *gorm.DB, logger *logrus.Logger) *EventService {
	return &EventService{db: db, logger: logger}
}

// UpsertEvent resolves the sport and both teams, then upserts the event
// keyed by the provider's event id. Events arriving through the events
// endpoint are upcoming, so they come in as scheduled.
func (s *EventService) UpsertEvent(data oddsapi.EventData) (*models.Event, bool, error) {
	return upsertEvent(s.db, data.ID, data.SportKey, data.SportTitle, data.CommenceTime,
		data.HomeTeam, data.AwayTeam, models.EventStatusScheduled)
}

// IngestEventsPayload validates a raw events response against the exact
// required key set, then upserts every event. Any upsert failure aborts the
// remainder; events are header rows, there is nothing useful to salvage.
func (s *EventService) IngestEventsPayload(raw []byte) (int, int, error) {
	var generic []map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return 0, 0, fmt.Errorf("%w: events payload must be a list: %v", ErrValidation, err)
	}
	if err := ValidateEvents(generic); err != nil {
		return 0, 0, err
	}

	var data []oddsapi.EventData
	if err := json.Unmarshal(raw, &data); err != nil {
		return 0, 0, fmt.Errorf("%w: failed to decode events payload: %v", ErrValidation, err)
	}

	created, updated := 0, 0
	for _, eventData := range data {
		_, wasCreated, err := s.UpsertEvent(eventData)
		if err != nil {
			return created, updated, fmt.Errorf("failed to upsert event %s: %w", eventData.ID, err)
		}
		if wasCreated {
			created++
		} else {
			updated++
		}
	}
	s.logger.WithFields(logrus.Fields{
		"created": created,
		"updated": updated,
	}).Debug("Upserted events")
	return created, updated, nil
}

// GetEvents returns events for an optional sport key filter.
func (s *EventService) GetEvents(sportKey string, limit int) ([]models.Event, error) {
	var events []models.Event
	query := s.db.Preload("Sport").Preload("HomeTeam").Preload("AwayTeam").Order("commence_time")
	if sportKey != "" {
		query = query.Joins("JOIN sports ON sports.id = events.sport_id").
			Where("sports.key = ?", sportKey)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	return events, nil
}

// upsertEvent is the shared event upsert used by the events ingester and
// the snapshot pipeline. createStatus only applies to new rows; an
// existing event keeps its status, transitions happen on explicit
// upstream signals only.
func upsertEvent(db *gorm.DB, id, sportKey, sportTitle, commenceTime, homeTeam, awayTeam string,
	createStatus models.EventStatus) (*models.Event, bool, error) {

	if id == "" {
		return nil, false, fmt.Errorf("event id is required")
	}

	sport, err := getOrCreateSportByKey(db, sportKey, sportTitle)
	if err != nil {
		return nil, false, err
	}

	home, err := getOrCreateTeam(db, sport.ID, homeTeam)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve home team: %w", err)
	}
	away, err := getOrCreateTeam(db, sport.ID, awayTeam)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve away team: %w", err)
	}

	// commence_time stays null until a payload confirms it
	var commence *time.Time
	if commenceTime != "" {
		parsed, err := time.Parse(time.RFC3339, commenceTime)
		if err != nil {
			return nil, false, fmt.Errorf("malformed commence_time %q: %w", commenceTime, err)
		}
		utc := parsed.UTC()
		commence = &utc
	}

	var event models.Event
	err = db.Where("id = ?", id).First(&event).Error
	if err == nil {
		updates := map[string]interface{}{
			"sport_id":     sport.ID,
			"home_team_id": home.ID,
			"away_team_id": away.ID,
		}
		if commence != nil {
			updates["commence_time"] = commence
		}
		if err := db.Model(&event).Updates(updates).Error; err != nil {
			return nil, false, fmt.Errorf("failed to update event %s: %w", id, err)
		}
		return &event, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up event %s: %w", id, err)
	}

	event = models.Event{
		ID:           id,
		SportID:      sport.ID,
		CommenceTime: commence,
		HomeTeamID:   home.ID,
		AwayTeamID:   away.ID,
		Status:       createStatus,
	}
	if err := db.Create(&event).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create event %s: %w", id, err)
	}
	return &event, true, nil
}
