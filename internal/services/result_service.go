package services

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"oddsley/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// matchWindow is how far a stored event's commence time may sit from the
// CSV row's localized commence time and still be considered a candidate.
const matchWindow = 24 * time.Hour

// commenceLayouts are the datetime shapes seen in results CSVs, most
// specific first.
var commenceLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ResultRow is one row of a results CSV. EventID is empty until matching
// fills it in.
type ResultRow struct {
	EventID          string
	CommenceDatetime string
	HomeTeam         string
	HomeScore        int
	AwayScore        int
	AwayTeam         string
}

// ResultService joins externally sourced final scores to stored events and
// upserts EventResult rows.
type ResultService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewResultService(db *gorm.DB, logger *logrus.Logger) *ResultService {
	return &ResultService{db: db, logger: logger}
}

// ReadCSV reads a results file with the fixed header
// event_id, commence_datetime, home_team, home_team_score,
// away_team_score, away_team.
func (s *ResultService) ReadCSV(path string) ([]ResultRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results CSV: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV header: %v", ErrValidation, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	required := []string{"event_id", "commence_datetime", "home_team", "home_team_score", "away_team_score", "away_team"}
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w: results CSV must have these headers: %v", ErrValidation, required)
		}
	}

	var rows []ResultRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// a malformed row must fail the whole read, not truncate it
			return nil, fmt.Errorf("%w: line %d: %v", ErrValidation, line, err)
		}
		homeScore, err := strconv.Atoi(record[columns["home_team_score"]])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: malformed home_team_score: %v", ErrValidation, line, err)
		}
		awayScore, err := strconv.Atoi(record[columns["away_team_score"]])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: malformed away_team_score: %v", ErrValidation, line, err)
		}
		rows = append(rows, ResultRow{
			EventID:          record[columns["event_id"]],
			CommenceDatetime: record[columns["commence_datetime"]],
			HomeTeam:         record[columns["home_team"]],
			HomeScore:        homeScore,
			AwayScore:        awayScore,
			AwayTeam:         record[columns["away_team"]],
		})
	}
	return rows, nil
}

// MatchResultsToEvents fills each row's EventID with the best-matching
// stored event for the sport, or leaves it empty when nothing matches.
// Candidates lie within the match window of the row's commence time
// localized from sourceTimezone to UTC and share at least one team name;
// the closest by time wins, with exact home/away alignment breaking ties.
func (s *ResultService) MatchResultsToEvents(rows []ResultRow, sportKey, sourceTimezone string) (int, error) {
	location, err := time.LoadLocation(sourceTimezone)
	if err != nil {
		return 0, fmt.Errorf("unknown timezone %q: %w", sourceTimezone, err)
	}

	var sport models.Sport
	if err := s.db.Where("key = ?", sportKey).First(&sport).Error; err != nil {
		return 0, fmt.Errorf("failed to look up sport %s: %w", sportKey, err)
	}

	matched := 0
	for i := range rows {
		row := &rows[i]
		commence, err := parseCommence(row.CommenceDatetime, location)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"home_team": row.HomeTeam,
				"away_team": row.AwayTeam,
			}).Warnf("Malformed commence_datetime %q, skipping row", row.CommenceDatetime)
			row.EventID = ""
			continue
		}

		eventID := s.findClosestEvent(sport.ID, commence, row)
		if eventID == "" {
			s.logger.WithFields(logrus.Fields{
				"home_team":     row.HomeTeam,
				"away_team":     row.AwayTeam,
				"commence_time": commence,
			}).Warn("No matching event found for result row")
		} else {
			matched++
		}
		row.EventID = eventID
	}

	s.logger.WithFields(logrus.Fields{
		"matched": matched,
		"total":   len(rows),
	}).Debug("Matched results to events")
	return matched, nil
}

// findClosestEvent picks the candidate with the smallest time delta;
// candidates whose home/away names line up exactly with the row win ties
// over mirrored or partial matches.
func (s *ResultService) findClosestEvent(sportID uint, commence time.Time, row *ResultRow) string {
	var candidates []models.Event
	err := s.db.Preload("HomeTeam").Preload("AwayTeam").
		Where("sport_id = ? AND commence_time BETWEEN ? AND ?",
			sportID, commence.Add(-matchWindow), commence.Add(matchWindow)).
		Find(&candidates).Error
	if err != nil {
		s.logger.Warnf("Candidate event query failed: %v", err)
		return ""
	}

	bestID := ""
	var bestDelta time.Duration
	bestExact := false
	for _, event := range candidates {
		if event.CommenceTime == nil || event.HomeTeam == nil || event.AwayTeam == nil {
			continue
		}
		if !teamNamesIntersect(event, row) {
			continue
		}

		delta := event.CommenceTime.Sub(commence)
		if delta < 0 {
			delta = -delta
		}
		exact := event.HomeTeam.Name == row.HomeTeam && event.AwayTeam.Name == row.AwayTeam

		if bestID == "" || delta < bestDelta || (delta == bestDelta && exact && !bestExact) {
			bestID = event.ID
			bestDelta = delta
			bestExact = exact
		}
	}
	return bestID
}

func teamNamesIntersect(event models.Event, row *ResultRow) bool {
	for _, name := range []string{event.HomeTeam.Name, event.AwayTeam.Name} {
		if name == row.HomeTeam || name == row.AwayTeam {
			return true
		}
	}
	return false
}

// UpsertResults writes an EventResult for every matched row and marks the
// event completed. Unmatched rows are skipped and counted.
func (s *ResultService) UpsertResults(rows []ResultRow) (int, int, error) {
	upserted, skipped := 0, 0
	for _, row := range rows {
		if row.EventID == "" {
			skipped++
			continue
		}
		if err := s.upsertResult(row); err != nil {
			return upserted, skipped, fmt.Errorf("failed to upsert result for event %s: %w", row.EventID, err)
		}
		upserted++
	}
	return upserted, skipped, nil
}

func (s *ResultService) upsertResult(row ResultRow) error {
	var event models.Event
	if err := s.db.Preload("HomeTeam").Preload("AwayTeam").Where("id = ?", row.EventID).First(&event).Error; err != nil {
		return fmt.Errorf("event not found: %w", err)
	}

	winnerID := resolveWinner(&event, row)

	details, err := json.Marshal(map[string]any{
		"source":            "csv",
		"commence_datetime": row.CommenceDatetime,
		"csv_home_team":     row.HomeTeam,
		"csv_away_team":     row.AwayTeam,
	})
	if err != nil {
		return fmt.Errorf("failed to encode details: %w", err)
	}

	homeScore := row.HomeScore
	awayScore := row.AwayScore

	var result models.EventResult
	err = s.db.Where("event_id = ?", row.EventID).First(&result).Error
	switch {
	case err == nil:
		if err := s.db.Model(&result).Updates(map[string]interface{}{
			"home_score": homeScore,
			"away_score": awayScore,
			"winner_id":  winnerID,
			"details":    datatypes.JSON(details),
		}).Error; err != nil {
			return err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		result = models.EventResult{
			EventID:   row.EventID,
			HomeScore: &homeScore,
			AwayScore: &awayScore,
			WinnerID:  winnerID,
			Details:   datatypes.JSON(details),
		}
		if err := s.db.Create(&result).Error; err != nil {
			return err
		}
	default:
		return err
	}

	// a result arriving is the explicit signal that the event finished
	return s.db.Model(&event).Update("status", models.EventStatusCompleted).Error
}

// resolveWinner maps the row's scores onto the event's team slots by name,
// so a mirrored CSV row still credits the right team. Draws and
// unresolvable names leave the winner nil.
func resolveWinner(event *models.Event, row ResultRow) *uint {
	if row.HomeScore == row.AwayScore {
		return nil
	}
	winnerName := row.HomeTeam
	if row.AwayScore > row.HomeScore {
		winnerName = row.AwayTeam
	}
	if event.HomeTeam != nil && event.HomeTeam.Name == winnerName {
		return &event.HomeTeamID
	}
	if event.AwayTeam != nil && event.AwayTeam.Name == winnerName {
		return &event.AwayTeamID
	}
	return nil
}

// GetResults returns stored results, optionally for one event.
func (s *ResultService) GetResults(eventID string) ([]models.EventResult, error) {
	var results []models.EventResult
	query := s.db.Preload("Winner")
	if eventID != "" {
		query = query.Where("event_id = ?", eventID)
	}
	if err := query.Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch results: %w", err)
	}
	return results, nil
}

func parseCommence(value string, location *time.Location) (time.Time, error) {
	for _, layout := range commenceLayouts {
		if parsed, err := time.ParseInLocation(layout, value, location); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", value)
}
