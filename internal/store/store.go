// Package store persists learning snapshots. Every backend stores the
// same JSON document; decoding tolerates damaged sections so that a
// partly corrupt snapshot still restores whatever survived.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gzhole/personaguard/internal/learning"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot saved")

// Store loads and saves the single learning snapshot.
type Store interface {
	Load(ctx context.Context) (*learning.Snapshot, error)
	Save(ctx context.Context, s *learning.Snapshot) error
	Close() error
}

// PartialError reports snapshot sections that could not be decoded and
// were left at their zero value. Load returns it together with the
// partially decoded snapshot.
type PartialError struct {
	Sections []string
	Err      error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("snapshot partially loaded, defaulted %s: %v", strings.Join(e.Sections, ", "), e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Encode renders a snapshot as indented JSON.
func Encode(s *learning.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot section by section. Sections that fail to
// decode are reported in a *PartialError; the returned snapshot is never
// nil. Missing sections are not an error.
func Decode(data []byte) (*learning.Snapshot, error) {
	s := &learning.Snapshot{}

	sections := []struct {
		name string
		dst  any
	}{
		{"timestamp", &s.Timestamp},
		{"learningData", &s.LearningData},
		{"adaptationRules", &s.AdaptationRules},
		{"metadata", &s.Metadata},
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		names := make([]string, len(sections))
		for i, sec := range sections {
			names[i] = sec.name
		}
		return s, &PartialError{Sections: names, Err: err}
	}

	var (
		failed []string
		errs   []error
	)
	for _, sec := range sections {
		msg, ok := raw[sec.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(msg, sec.dst); err != nil {
			failed = append(failed, sec.name)
			errs = append(errs, fmt.Errorf("%s: %w", sec.name, err))
		}
	}
	if len(failed) > 0 {
		return s, &PartialError{Sections: failed, Err: errors.Join(errs...)}
	}
	return s, nil
}
