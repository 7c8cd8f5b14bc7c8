package services

import (
	"errors"
	"fmt"
	"sort"
)

// ErrValidation marks payload shape/type mismatches detected before any
// database writes. Callers check it with errors.Is.
var ErrValidation = errors.New("validation failed")

// fieldKind is the expected JSON type of a required payload field.
type fieldKind int

const (
	kindString fieldKind = iota
	kindList
	kindStringOrNull
)

var oddsEventKeys = map[string]fieldKind{
	"id":            kindString,
	"sport_key":     kindString,
	"sport_title":   kindString,
	"commence_time": kindString,
	"home_team":     kindString,
	"away_team":     kindString,
	"bookmakers":    kindList,
}

var eventKeys = map[string]fieldKind{
	"id":            kindString,
	"sport_key":     kindString,
	"sport_title":   kindString,
	"commence_time": kindString,
	"home_team":     kindString,
	"away_team":     kindString,
}

var snapshotEnvelopeKeys = map[string]fieldKind{
	"timestamp":          kindString,
	"previous_timestamp": kindStringOrNull,
	"next_timestamp":     kindStringOrNull,
	"data":               kindList,
}

// ValidateOddsEvents checks that every element of an odds payload has
// exactly the required keys with the expected types. Extra keys are
// rejected, not just missing ones, so upstream schema drift fails loudly
// instead of slipping bad data through.
func ValidateOddsEvents(data []map[string]any) error {
	for i, event := range data {
		if err := validateExactKeys(event, oddsEventKeys); err != nil {
			return fmt.Errorf("%w: odds event %d: %v", ErrValidation, i, err)
		}
	}
	return nil
}

// ValidateEvents checks an events-list payload the same way.
func ValidateEvents(data []map[string]any) error {
	for i, event := range data {
		if err := validateExactKeys(event, eventKeys); err != nil {
			return fmt.Errorf("%w: event %d: %v", ErrValidation, i, err)
		}
	}
	return nil
}

// ValidateSnapshotEnvelope checks the historical snapshot wrapper.
func ValidateSnapshotEnvelope(data map[string]any) error {
	if err := validateExactKeys(data, snapshotEnvelopeKeys); err != nil {
		return fmt.Errorf("%w: snapshot envelope: %v", ErrValidation, err)
	}
	return nil
}

// validateExactKeys requires m to contain exactly the expected key set,
// each value matching its declared kind.
func validateExactKeys(m map[string]any, expected map[string]fieldKind) error {
	if len(m) != len(expected) {
		return fmt.Errorf("must have exactly these keys: %v", sortedKeys(expected))
	}
	for key, kind := range expected {
		value, ok := m[key]
		if !ok {
			return fmt.Errorf("must have exactly these keys: %v", sortedKeys(expected))
		}
		switch kind {
		case kindString:
			if _, ok := value.(string); !ok {
				return fmt.Errorf("'%s' must be a string", key)
			}
		case kindList:
			if _, ok := value.([]any); !ok {
				return fmt.Errorf("'%s' must be a list", key)
			}
		case kindStringOrNull:
			if value == nil {
				continue
			}
			if _, ok := value.(string); !ok {
				return fmt.Errorf("'%s' must be a string or null", key)
			}
		}
	}
	return nil
}

func sortedKeys(expected map[string]fieldKind) []string {
	keys := make([]string, 0, len(expected))
	for key := range expected {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
