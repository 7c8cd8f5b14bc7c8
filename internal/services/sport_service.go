package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"oddsley/internal/models"
	"oddsley/internal/oddsapi"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SportService upserts and reads Sport rows.
type SportService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewSportService(db *gorm.DB, logger *logrus.Logger) *SportService {
	return &SportService{db: db, logger: logger}
}

// UpsertSport matches on the provider key; on match it refreshes the
// metadata fields, on miss it creates the row. Returns the sport and
// whether it was created.
func (s *SportService) UpsertSport(data oddsapi.SportData) (*models.Sport, bool, error) {
	if data.Key == "" {
		return nil, false, fmt.Errorf("sport key is required")
	}

	var sport models.Sport
	err := s.db.Where("key = ?", data.Key).First(&sport).Error
	if err == nil {
		if err := s.db.Model(&sport).Updates(map[string]interface{}{
			"group":         data.Group,
			"title":         data.Title,
			"description":   data.Description,
			"active":        data.Active,
			"has_outrights": data.HasOutrights,
		}).Error; err != nil {
			return nil, false, fmt.Errorf("failed to update sport %s: %w", data.Key, err)
		}
		return &sport, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up sport %s: %w", data.Key, err)
	}

	sport = models.Sport{
		Key:          data.Key,
		Group:        data.Group,
		Title:        data.Title,
		Description:  data.Description,
		Active:       data.Active,
		HasOutrights: data.HasOutrights,
	}
	if err := s.db.Create(&sport).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create sport %s: %w", data.Key, err)
	}
	return &sport, true, nil
}

// IngestSportsPayload decodes a raw /sports response and upserts every
// sport in it. Returns created and updated counts.
func (s *SportService) IngestSportsPayload(raw []byte) (int, int, error) {
	var data []oddsapi.SportData
	if err := json.Unmarshal(raw, &data); err != nil {
		return 0, 0, fmt.Errorf("%w: sports payload must be a list: %v", ErrValidation, err)
	}

	created, updated := 0, 0
	for _, sportData := range data {
		_, wasCreated, err := s.UpsertSport(sportData)
		if err != nil {
			return created, updated, err
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
	}).Debug("Upserted sports")
	return created, updated, nil
}

// GetSports returns sports, optionally filtered by active flag.
func (s *SportService) GetSports(activeOnly bool) ([]models.Sport, error) {
	var sports []models.Sport
	query := s.db.Order("key")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	if err := query.Find(&sports).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch sports: %w", err)
	}
	return sports, nil
}

// getOrCreateSportByKey resolves a sport by key, creating a stub row when a
// payload references a sport not yet known. Metadata is refreshed by the
// dedicated sports task, not here.
func getOrCreateSportByKey(db *gorm.DB, key, title string) (*models.Sport, error) {
	if key == "" {
		return nil, fmt.Errorf("sport key is required")
	}

	var sport models.Sport
	err := db.Where("key = ?", key).First(&sport).Error
	if err == nil {
		return &sport, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up sport %s: %w", key, err)
	}

	sport = models.Sport{Key: key, Title: title, Active: true}
	if err := db.Create(&sport).Error; err != nil {
		return nil, fmt.Errorf("failed to create sport %s: %w", key, err)
	}
	return &sport, nil
}

// getOrCreateTeam resolves a team by (sport, name), creating it lazily the
// first time the name appears under that sport.
func getOrCreateTeam(db *gorm.DB, sportID uint, name string) (*models.Team, error) {
	if name == "" {
		return nil, fmt.Errorf("team name is required")
	}

	var team models.Team
	err := db.Where("sport_id = ? AND name = ?", sportID, name).First(&team).Error
	if err == nil {
		return &team, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up team %s: %w", name, err)
	}

	team = models.Team{SportID: sportID, Name: name}
	if err := db.Create(&team).Error; err != nil {
		return nil, fmt.Errorf("failed to create team %s: %w", name, err)
	}
	return &team, nil
}
