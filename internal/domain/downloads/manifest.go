package downloads

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/auralis-music/auralis-core/internal/infra/atomicfile"
)

// Manifest is the durable record mapping a song id to its cached files.
// Writes go through an atomic replace so a crash mid-write never corrupts
// the previous valid state.
type Manifest struct {
	mu       sync.RWMutex
	entries  map[string]Record
	filePath string
}

// NewManifest creates a manifest, restoring persisted entries if present.
func NewManifest(filePath string) *Manifest {
	m := &Manifest{
		entries:  make(map[string]Record),
		filePath: filePath,
	}
	m.load()
	return m
}

// Get returns the record for a song id.
func (m *Manifest) Get(songID string) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.entries[songID]
	return rec, ok
}

// Put stores a record and persists the manifest. This is the commit point of
// a download: the entry only appears after the files are fully written.
func (m *Manifest) Put(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[rec.SongID] = rec
	return m.persistLocked()
}

// Delete removes a record and persists the manifest. Removing an absent
// record is a no-op.
func (m *Manifest) Delete(songID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[songID]; !ok {
		return nil
	}
	delete(m.entries, songID)
	return m.persistLocked()
}

// All returns a snapshot of every record.
func (m *Manifest) All() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]Record, 0, len(m.entries))
	for _, rec := range m.entries {
		records = append(records, rec)
	}
	return records
}

// Clear removes every record and persists the empty manifest.
func (m *Manifest) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]Record)
	return m.persistLocked()
}

// load restores persisted entries.
func (m *Manifest) load() {
	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("file", m.filePath).Msg("Failed to read download manifest")
		}
		return
	}

	var entries map[string]Record
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Warn().Err(err).Msg("Failed to parse download manifest")
		return
	}
	if entries == nil {
		// JSON null unmarshals without error; keep the empty map.
		return
	}

	m.entries = entries
	log.Info().Int("count", len(entries)).Msg("Loaded download manifest")
}

// persistLocked writes the manifest. Caller must hold the write lock.
func (m *Manifest) persistLocked() error {
	data, err := json.MarshalIndent(m.entries, "", "  ")
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(m.filePath, data)
}
