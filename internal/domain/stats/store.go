package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/auralis-music/auralis-core/internal/infra/atomicfile"
)

// Store owns the persisted stats document. All counter updates funnel through
// a single mutex so concurrent events never lose a read-modify-write; reads
// copy the committed state.
type Store struct {
	mu       sync.RWMutex
	songs    map[string]SongStats
	filePath string
}

// NewStore creates a store, restoring the persisted document if present.
// filePath may be empty for a purely in-memory store (tests).
func NewStore(filePath string) *Store {
	s := &Store{
		songs:    make(map[string]SongStats),
		filePath: filePath,
	}
	s.load()
	return s
}

// Song returns the counters for one song id, zero-valued if never played.
func (s *Store) Song(songID string) SongStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.songs[songID]
}

// All returns a copy of every song's counters.
func (s *Store) All() map[string]SongStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]SongStats, len(s.songs))
	for id, st := range s.songs {
		out[id] = st
	}
	return out
}

// add credits minutes and optionally one play to a song, then persists. The
// update and the write happen under the same lock, so events apply in a total
// order.
func (s *Store) add(songID string, minutes int64, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.songs[songID]
	st.TotalMinutes += minutes
	if completed {
		st.PlayCount++
	}
	s.songs[songID] = st

	if err := s.persistLocked(); err != nil {
		return fmt.Errorf("persisting stats: %w", err)
	}
	return nil
}

// load restores the persisted document. A missing file is a fresh store; a
// corrupt one is logged and ignored so playback keeps working.
func (s *Store) load() {
	if s.filePath == "" {
		return
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("file", s.filePath).Msg("Failed to read stats document")
		}
		return
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Warn().Err(err).Str("file", s.filePath).Msg("Failed to parse stats document")
		return
	}
	if doc.Version > FormatVersion {
		// Move the document aside before the first persist rewrites the path,
		// so the newer data survives a downgrade.
		aside := fmt.Sprintf("%s.v%d", s.filePath, doc.Version)
		if err := os.Rename(s.filePath, aside); err != nil {
			log.Error().Err(err).Str("file", s.filePath).Msg("Failed to move newer stats document aside")
		}
		log.Warn().Int("version", doc.Version).Str("movedTo", aside).Msg("Stats document version too new, starting fresh")
		return
	}
	if doc.SongStats != nil {
		s.songs = doc.SongStats
	}
	log.Debug().Int("songs", len(s.songs)).Msg("Stats document loaded")
}

// persistLocked writes the document atomically. Caller must hold the write
// lock.
func (s *Store) persistLocked() error {
	if s.filePath == "" {
		return nil
	}

	doc := document{
		Version:     FormatVersion,
		LastUpdated: time.Now().UnixMilli(),
		SongStats:   s.songs,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(s.filePath, data)
}
