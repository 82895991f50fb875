package library

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/auralis-music/auralis-core/internal/domain/mode"
)

// LocalSource provides songs available from the download cache.
type LocalSource interface {
	LocalSongs() ([]Song, error)
	IsDownloaded(songID string) bool
}

// RemoteSource is the remote library server collaborator.
type RemoteSource interface {
	FetchCatalog(ctx context.Context, authHeader string) ([]Song, error)
	PushPlaylists(ctx context.Context, authHeader string, playlists []BackupPlaylist) error
	Ping(ctx context.Context) error
	Disconnect(ctx context.Context, authHeader string) error
}

// Service is the reconciliation core: it resolves the catalog from the remote
// source or the download cache depending on the mode, and owns playlist CRUD,
// backup, and restore.
type Service struct {
	mode      *mode.Controller
	local     LocalSource
	remote    RemoteSource
	playlists *PlaylistStore

	// refreshMu serializes catalog resolution and mode flips, so a mode
	// transition never interleaves with a refresh using the old mode.
	refreshMu sync.Mutex

	// issued is the monotonic refresh sequence; a resolved catalog is applied
	// to the snapshot only if it belongs to the latest issued request.
	issued   atomic.Uint64
	snapMu   sync.RWMutex
	snapshot *Catalog

	credMu sync.RWMutex
	cred   *Credential
}

// NewService creates the library service.
func NewService(modeCtrl *mode.Controller, local LocalSource, remote RemoteSource, playlists *PlaylistStore) *Service {
	return &Service{
		mode:      modeCtrl,
		local:     local,
		remote:    remote,
		playlists: playlists,
	}
}

// SetCredential installs the remote credential.
func (s *Service) SetCredential(token string, expiresAt time.Time) {
	s.credMu.Lock()
	defer s.credMu.Unlock()
	s.cred = &Credential{Token: token, ExpiresAt: expiresAt}
}

// Logout disconnects from the remote server best-effort and clears the local
// credential regardless of the outcome.
func (s *Service) Logout(ctx context.Context) {
	s.credMu.Lock()
	cred := s.cred
	s.cred = nil
	s.credMu.Unlock()

	if cred == nil {
		return
	}
	if err := s.remote.Disconnect(ctx, cred.AuthHeader()); err != nil {
		log.Warn().Err(err).Msg("Remote disconnect failed, credential cleared anyway")
	}
}

// authHeader returns the Authorization header for the current credential, or
// a credential error surfaced to the caller.
func (s *Service) authHeader() (string, error) {
	s.credMu.RLock()
	defer s.credMu.RUnlock()

	if s.cred == nil {
		return "", ErrUnauthenticated
	}
	if s.cred.Expired(time.Now()) {
		return "", ErrExpired
	}
	return s.cred.AuthHeader(), nil
}

// IsOffline reports the current mode.
func (s *Service) IsOffline() bool {
	return s.mode.IsOffline()
}

// GetCatalog resolves the current catalog for the active mode. Songs and
// albums come from the remote server when online and from the download cache
// when offline; playlists are always local-first. A catalog superseded by a
// newer request is returned to its caller but never applied to the snapshot.
func (s *Service) GetCatalog(ctx context.Context) (*Catalog, error) {
	seq := s.issued.Add(1)

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	offline := s.mode.IsOffline()
	songs, err := s.resolveSongs(ctx, offline)
	if err != nil {
		return nil, err
	}

	playlists := s.playlists.List()
	if offline {
		playlists = s.filterToLocal(playlists)
	}

	albums, standalone := Organize(songs)
	catalog := &Catalog{
		Songs:     standalone,
		Albums:    albums,
		Playlists: playlists,
	}

	if seq == s.issued.Load() {
		s.snapMu.Lock()
		s.snapshot = catalog
		s.snapMu.Unlock()
	} else {
		log.Debug().Uint64("seq", seq).Msg("Catalog refresh superseded, snapshot not updated")
	}

	return catalog, nil
}

// Snapshot returns the last applied catalog, or nil before the first refresh.
func (s *Service) Snapshot() *Catalog {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snapshot
}

// resolveSongs picks the song source for the given mode.
func (s *Service) resolveSongs(ctx context.Context, offline bool) ([]Song, error) {
	if offline {
		songs, err := s.local.LocalSongs()
		if err != nil {
			return nil, fmt.Errorf("resolve local songs: %w", err)
		}
		return songs, nil
	}

	header, err := s.authHeader()
	if err != nil {
		return nil, err
	}
	songs, err := s.remote.FetchCatalog(ctx, header)
	if err != nil {
		return nil, fmt.Errorf("fetch remote catalog: %w", err)
	}
	return songs, nil
}

// filterToLocal restricts playlists to songs available from the download
// cache. Playlists are kept even when every referenced song is filtered out,
// so names and ids stay visible offline.
func (s *Service) filterToLocal(playlists []Playlist) []Playlist {
	for i := range playlists {
		kept := playlists[i].SongIDs[:0]
		for _, id := range playlists[i].SongIDs {
			if s.local.IsDownloaded(id) {
				kept = append(kept, id)
			}
		}
		playlists[i].SongIDs = kept
	}
	return playlists
}

// GoOffline switches to offline mode. The flip waits for any in-flight
// catalog refresh using the old mode.
func (s *Service) GoOffline() {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	s.mode.EnterOffline()
}

// GoOnline leaves offline mode through the reachability gate. Before the
// mode flips, playlist edits made while offline are pushed to the remote
// store (sync-then-trust); local edits are never silently discarded. When
// the probe or the push fails, the mode is left unchanged.
func (s *Service) GoOnline(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	return s.mode.ExitOffline(ctx, func(ctx context.Context) error {
		if err := s.remote.Ping(ctx); err != nil {
			return err
		}
		return s.pushOfflineEdits(ctx)
	})
}

// pushOfflineEdits pushes the playlist set to the remote store when offline
// edits are pending.
func (s *Service) pushOfflineEdits(ctx context.Context) error {
	if !s.playlists.Dirty() {
		return nil
	}

	header, err := s.authHeader()
	if err != nil {
		return fmt.Errorf("push offline playlist edits: %w", err)
	}

	playlists := s.playlists.List()
	snapshots := make([]BackupPlaylist, 0, len(playlists))
	for _, p := range playlists {
		snapshots = append(snapshots, BackupPlaylist{Name: p.Name, SongIDs: p.SongIDs})
	}

	if err := s.remote.PushPlaylists(ctx, header, snapshots); err != nil {
		return fmt.Errorf("push offline playlist edits: %w", err)
	}
	s.playlists.ClearDirty()

	log.Info().Int("count", len(snapshots)).Msg("Offline playlist edits pushed to remote store")
	return nil
}

// --- Playlist CRUD ---
// Each mutation persists immediately and, while offline, marks the store as
// holding edits to push on the next transition back online.

// CreatePlaylist creates a playlist.
func (s *Service) CreatePlaylist(name string, songIDs []string) (Playlist, error) {
	p, err := s.playlists.Create(name, songIDs)
	if err != nil {
		return Playlist{}, err
	}
	s.markOfflineEdit()
	return p, nil
}

// RenamePlaylist renames a playlist.
func (s *Service) RenamePlaylist(id, newName string) error {
	if err := s.playlists.Rename(id, newName); err != nil {
		return err
	}
	s.markOfflineEdit()
	return nil
}

// DeletePlaylist deletes a playlist.
func (s *Service) DeletePlaylist(id string) error {
	if err := s.playlists.Delete(id); err != nil {
		return err
	}
	s.markOfflineEdit()
	return nil
}

// AddSong appends a song to a playlist.
func (s *Service) AddSong(playlistID, songID string) error {
	if err := s.playlists.AddSong(playlistID, songID); err != nil {
		return err
	}
	s.markOfflineEdit()
	return nil
}

// RemoveSong removes a song from a playlist.
func (s *Service) RemoveSong(playlistID, songID string) error {
	if err := s.playlists.RemoveSong(playlistID, songID); err != nil {
		return err
	}
	s.markOfflineEdit()
	return nil
}

// Playlists returns all playlists sorted by name.
func (s *Service) Playlists() []Playlist {
	return s.playlists.List()
}

func (s *Service) markOfflineEdit() {
	if s.mode.IsOffline() {
		s.playlists.MarkDirty()
	}
}
