// Package libversion tracks the last-seen remote library version marker.
package libversion

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/auralis-music/auralis-core/internal/infra/atomicfile"
)

// FetchFunc fetches the current remote version marker.
type FetchFunc func(ctx context.Context) (string, error)

// Tracker compares the stored library version marker against the remote one
// to decide whether a catalog refetch is needed, without transferring the
// full catalog. Markers are opaque and compared by equality only.
type Tracker struct {
	mu       sync.RWMutex
	marker   string
	filePath string
}

type persistedMarker struct {
	Marker string `json:"marker"`
}

// NewTracker creates a tracker, restoring the persisted marker if present.
func NewTracker(filePath string) *Tracker {
	t := &Tracker{filePath: filePath}
	t.load()
	return t
}

// Current returns the last-seen marker.
func (t *Tracker) Current() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.marker
}

// CheckForUpdate fetches the current remote marker and reports whether it
// differs from the stored one, returning the fetched marker so callers commit
// exactly the version they acted on. The marker is NOT persisted here; callers
// commit it explicitly via Refresh, so a background check cannot suppress a
// "new content" notification on the next check. Fetch failures degrade to
// "no update detected".
func (t *Tracker) CheckForUpdate(ctx context.Context, fetch FetchFunc) (bool, string) {
	remote, err := fetch(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Version check failed, assuming no update")
		return false, ""
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	return remote != t.marker, remote
}

// Refresh persists a new marker as the last-seen library version.
func (t *Tracker) Refresh(marker string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.marker = marker
	return t.persistLocked()
}

// load restores the persisted marker.
func (t *Tracker) load() {
	if t.filePath == "" {
		return
	}

	data, err := os.ReadFile(t.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("file", t.filePath).Msg("Failed to read version marker")
		}
		return
	}

	var state persistedMarker
	if err := json.Unmarshal(data, &state); err != nil {
		log.Warn().Err(err).Msg("Failed to parse version marker")
		return
	}
	t.marker = state.Marker
}

// persistLocked writes the marker. Caller must hold the write lock.
func (t *Tracker) persistLocked() error {
	if t.filePath == "" {
		return nil
	}

	data, err := json.Marshal(persistedMarker{Marker: t.marker})
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(t.filePath, data)
}
