package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzhole/personaguard/internal/learning"
	"github.com/gzhole/personaguard/internal/persona"
	"github.com/gzhole/personaguard/internal/transform"
)

func sampleSnapshot() *learning.Snapshot {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return &learning.Snapshot{
		Timestamp: at,
		LearningData: learning.LearningData{
			Successes: []learning.Entry{
				{
					ID: "4f1c", Seq: 1, Timestamp: at,
					Original: "It's sunny.", Final: "It's sunny. 🐕 *wags tail excitedly*",
					Action: "enhance", Reason: "good", Success: true,
					Pattern: transform.PatternBehaviorSymbol, Behavior: "wags tail excitedly",
				},
			},
			Failures: []learning.Entry{
				{
					ID: "9a2e", Seq: 2, Timestamp: at.Add(time.Second),
					Original: "As an AI language model...", Final: "*whines softly* 🐶",
					Action: "repair", Reason: "inconsistent",
				},
			},
			LastAdapted: at.Add(-time.Hour),
		},
		AdaptationRules: learning.Rules{
			Thresholds: persona.Thresholds{
				MinLength: 10, MaxLength: 2000, MinPersonaWordRatio: 0.08, MinSymbolRatio: 0.016,
			},
			PreferredPatterns:   []transform.Pattern{transform.PatternBehaviorSymbol},
			PreferredBehaviors:  []string{"wags tail excitedly"},
			Adaptations:         1,
			SuccessesSinceAdapt: 1,
		},
		Metadata: learning.Metadata{
			TotalProcessed: 2, TotalSuccesses: 1, TotalFailures: 1, NextSeq: 3, LastSaved: at,
		},
	}
}

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{"file", func(t *testing.T) Store {
			return NewFileStore(filepath.Join(t.TempDir(), "state", "learning.json"))
		}},
		{"sqlite", func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "learning.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
		{"redis", func(t *testing.T) Store {
			mr := miniredis.RunT(t)
			s := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
	}
}

func TestStores_RoundTrip(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)

			_, err := s.Load(ctx)
			require.ErrorIs(t, err, ErrNoSnapshot)

			want := sampleSnapshot()
			require.NoError(t, s.Save(ctx, want))

			got, err := s.Load(ctx)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStores_SaveOverwrites(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)

			first := sampleSnapshot()
			require.NoError(t, s.Save(ctx, first))

			second := sampleSnapshot()
			second.Metadata.TotalProcessed = 42
			require.NoError(t, s.Save(ctx, second))

			got, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, 42, got.Metadata.TotalProcessed)
		})
	}
}

func TestDecode_PartialSections(t *testing.T) {
	data := []byte(`{
		"timestamp": "2026-05-01T12:00:00Z",
		"learningData": {"successes": "not a list"},
		"adaptationRules": {"adaptations": 3, "thresholds": {"minLength": 5, "maxLength": 50}},
		"metadata": {"totalProcessed": "seven"}
	}`)

	s, err := Decode(data)
	require.NotNil(t, s)

	var partial *PartialError
	require.True(t, errors.As(err, &partial), "expected *PartialError, got %v", err)
	assert.Equal(t, []string{"learningData", "metadata"}, partial.Sections)

	assert.Equal(t, 3, s.AdaptationRules.Adaptations)
	assert.Equal(t, 50, s.AdaptationRules.Thresholds.MaxLength)
	assert.True(t, s.Timestamp.Equal(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)))
	assert.Empty(t, s.LearningData.Successes)
}

func TestDecode_Garbage(t *testing.T) {
	s, err := Decode([]byte("{not json"))
	require.NotNil(t, s)

	var partial *PartialError
	require.ErrorAs(t, err, &partial)
	assert.Len(t, partial.Sections, 4)
}

func TestDecode_MissingSectionsAreFine(t *testing.T) {
	s, err := Decode([]byte(`{"metadata": {"totalProcessed": 2}}`))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Metadata.TotalProcessed)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learning.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"adaptationRules": 17, "metadata": {"nextSeq": 9}}`), 0600))

	s, err := NewFileStore(path).Load(context.Background())
	var partial *PartialError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []string{"adaptationRules"}, partial.Sections)
	assert.Equal(t, uint64(9), s.Metadata.NextSeq)
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(filepath.Join(dir, "learning.json"))

	for range 3 {
		require.NoError(t, fs.Save(context.Background(), sampleSnapshot()))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "learning.json", entries[0].Name())
}

func TestFileStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewFileStore(filepath.Join(t.TempDir(), "x.json")).Save(ctx, sampleSnapshot())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisStore_KeyAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := OpenRedisStore(context.Background(), "redis://"+mr.Addr(), RedisConfig{Key: "guard:buddy", TTL: time.Hour})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Save(context.Background(), sampleSnapshot()))

	assert.True(t, mr.Exists("guard:buddy"))
	assert.Equal(t, time.Hour, mr.TTL("guard:buddy"))
}

func TestOpenRedisStore_BadURL(t *testing.T) {
	_, err := OpenRedisStore(context.Background(), "not-a-url")
	assert.Error(t, err)
}
