package library

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/auralis-music/auralis-core/internal/infra/atomicfile"
)

// PlaylistStore persists playlists independently of the song catalog, so
// they survive a library refresh even when a referenced song id temporarily
// fails to resolve. Every mutation persists immediately; playlists are
// low-volume, so there is no batching.
type PlaylistStore struct {
	mu        sync.RWMutex
	playlists []Playlist
	dirty     bool // edits made while offline, not yet pushed to the remote store
	filePath  string
}

type playlistDocument struct {
	Playlists []Playlist `json:"playlists"`
	Dirty     bool       `json:"dirty,omitempty"`
}

// NewPlaylistStore creates a store, restoring persisted playlists if present.
func NewPlaylistStore(filePath string) *PlaylistStore {
	s := &PlaylistStore{filePath: filePath}
	s.load()
	return s
}

// List returns a copy of all playlists sorted by name, ascending ordinal.
func (s *PlaylistStore) List() []Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Playlist, len(s.playlists))
	for i, p := range s.playlists {
		out[i] = copyPlaylist(p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Get returns a copy of the playlist with the given id.
func (s *PlaylistStore) Get(id string) (Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.playlists {
		if p.ID == id {
			return copyPlaylist(p), nil
		}
	}
	return Playlist{}, ErrPlaylistNotFound
}

// Create inserts a new playlist and persists the store.
func (s *PlaylistStore) Create(name string, songIDs []string) (Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	p := Playlist{
		ID:        uuid.New().String(),
		Name:      name,
		SongIDs:   append([]string(nil), songIDs...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.playlists = append(s.playlists, p)

	if err := s.persistLocked(); err != nil {
		s.playlists = s.playlists[:len(s.playlists)-1]
		return Playlist{}, err
	}

	log.Info().Str("playlistId", p.ID).Str("name", name).Msg("Playlist created")
	return copyPlaylist(p), nil
}

// Rename changes a playlist's name.
func (s *PlaylistStore) Rename(id, newName string) error {
	return s.mutate(id, func(p *Playlist) {
		p.Name = newName
	})
}

// Delete removes a playlist.
func (s *PlaylistStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.playlists {
		if p.ID == id {
			s.playlists = append(s.playlists[:i], s.playlists[i+1:]...)
			if err := s.persistLocked(); err != nil {
				return err
			}
			log.Info().Str("playlistId", id).Msg("Playlist deleted")
			return nil
		}
	}
	return ErrPlaylistNotFound
}

// AddSong appends a song id to a playlist. Adding an id the playlist already
// contains is a no-op.
func (s *PlaylistStore) AddSong(id, songID string) error {
	return s.mutate(id, func(p *Playlist) {
		for _, existing := range p.SongIDs {
			if existing == songID {
				return
			}
		}
		p.SongIDs = append(p.SongIDs, songID)
	})
}

// RemoveSong removes every occurrence of a song id from a playlist.
func (s *PlaylistStore) RemoveSong(id, songID string) error {
	return s.mutate(id, func(p *Playlist) {
		kept := p.SongIDs[:0]
		for _, existing := range p.SongIDs {
			if existing != songID {
				kept = append(kept, existing)
			}
		}
		p.SongIDs = kept
	})
}

// ReplaceAll swaps the full playlist set in one persisted write. Used by
// restore, which is all-or-nothing.
func (s *PlaylistStore) ReplaceAll(playlists []Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.playlists
	s.playlists = playlists
	if err := s.persistLocked(); err != nil {
		s.playlists = previous
		return err
	}
	return nil
}

// MarkDirty flags the store as holding edits not yet pushed to the remote
// playlist store. The flag is persisted so it survives a restart.
func (s *PlaylistStore) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dirty {
		return
	}
	s.dirty = true
	if err := s.persistLocked(); err != nil {
		log.Error().Err(err).Msg("Failed to persist playlist dirty flag")
	}
}

// ClearDirty resets the dirty flag after a successful push.
func (s *PlaylistStore) ClearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return
	}
	s.dirty = false
	if err := s.persistLocked(); err != nil {
		log.Error().Err(err).Msg("Failed to persist playlist dirty flag")
	}
}

// Dirty reports whether unpushed offline edits exist.
func (s *PlaylistStore) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// mutate applies fn to the playlist with the given id, bumps UpdatedAt, and
// persists the store.
func (s *PlaylistStore) mutate(id string, fn func(*Playlist)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.playlists {
		if s.playlists[i].ID != id {
			continue
		}
		previous := copyPlaylist(s.playlists[i])
		fn(&s.playlists[i])
		s.playlists[i].UpdatedAt = time.Now()

		if err := s.persistLocked(); err != nil {
			s.playlists[i] = previous
			return err
		}
		return nil
	}
	return ErrPlaylistNotFound
}

// load restores persisted playlists.
func (s *PlaylistStore) load() {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("file", s.filePath).Msg("Failed to read playlist store")
		}
		return
	}

	var doc playlistDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Warn().Err(err).Msg("Failed to parse playlist store")
		return
	}

	s.playlists = doc.Playlists
	s.dirty = doc.Dirty
	log.Info().Int("count", len(doc.Playlists)).Msg("Loaded playlists")
}

// persistLocked writes the store. Caller must hold the write lock.
func (s *PlaylistStore) persistLocked() error {
	doc := playlistDocument{Playlists: s.playlists, Dirty: s.dirty}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal playlists: %w", err)
	}
	return atomicfile.WriteFile(s.filePath, data)
}

func copyPlaylist(p Playlist) Playlist {
	p.SongIDs = append([]string(nil), p.SongIDs...)
	return p
}
