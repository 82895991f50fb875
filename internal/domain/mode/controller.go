// Package mode tracks the client's offline/online mode.
package mode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/auralis-music/auralis-core/internal/infra/atomicfile"
)

// ErrBlocked is returned when leaving offline mode is refused because the
// reachability probe could not confirm the server responds.
var ErrBlocked = errors.New("offline exit blocked: server unreachable")

// Probe confirms the remote server is reachable. A nil error means reachable.
type Probe func(ctx context.Context) error

// Controller holds the offline/online mode flag.
//
// Online -> Offline is unconditional. Offline -> Online only succeeds when the
// supplied probe confirms the server responds; there is no silent way back to
// online mode, so stale or absent remote data is never exposed by accident.
type Controller struct {
	mu       sync.RWMutex
	offline  bool
	filePath string
}

type persistedState struct {
	Offline bool `json:"offline"`
}

// NewController creates a controller, restoring the persisted mode if present.
// filePath may be empty for a purely in-memory controller (tests).
func NewController(filePath string) *Controller {
	c := &Controller{filePath: filePath}
	c.load()
	return c
}

// IsOffline reports whether the client is in offline mode.
func (c *Controller) IsOffline() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offline
}

// EnterOffline switches to offline mode.
func (c *Controller) EnterOffline() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.offline {
		return
	}
	c.offline = true
	c.persistLocked()
	log.Info().Msg("Entered offline mode")
}

// ExitOffline switches back to online mode if the probe confirms the server
// responds. On failure the mode is left unchanged and ErrBlocked is returned.
func (c *Controller) ExitOffline(ctx context.Context, probe Probe) error {
	if probe == nil {
		return fmt.Errorf("%w: no reachability probe supplied", ErrBlocked)
	}
	if err := probe(ctx); err != nil {
		log.Warn().Err(err).Msg("Offline exit blocked, server not reachable")
		return fmt.Errorf("%w: %v", ErrBlocked, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.offline {
		return nil
	}
	c.offline = false
	c.persistLocked()
	log.Info().Msg("Exited offline mode")
	return nil
}

// load restores the persisted mode flag.
func (c *Controller) load() {
	if c.filePath == "" {
		return
	}

	data, err := os.ReadFile(c.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("file", c.filePath).Msg("Failed to read mode state")
		}
		return
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Warn().Err(err).Msg("Failed to parse mode state")
		return
	}
	c.offline = state.Offline
}

// persistLocked writes the mode flag. Caller must hold the write lock.
func (c *Controller) persistLocked() {
	if c.filePath == "" {
		return
	}

	data, err := json.Marshal(persistedState{Offline: c.offline})
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal mode state")
		return
	}
	if err := atomicfile.WriteFile(c.filePath, data); err != nil {
		log.Error().Err(err).Msg("Failed to save mode state")
	}
}
