// Package stats folds raw playback events into durable per-song counters and
// derives per-artist and per-album rollups from them on demand.
package stats

import "time"

// Eligibility thresholds for a playback session.
const (
	// MinListened is the shortest session that affects any counter.
	MinListened = 30 * time.Second
	// CompletedRatio is the completion threshold for a counted play.
	CompletedRatio = 0.95
)

// FormatVersion is the persisted stats document version.
const FormatVersion = 1

// PlayEvent is one playback session as reported by the player.
type PlayEvent struct {
	SongID     string
	Listened   time.Duration
	Completion float64 // listened-duration over track duration, 0..1
}

// SongStats holds the cumulative counters for one song. Both fields only ever
// grow.
type SongStats struct {
	TotalMinutes int64 `json:"totalMinutes"`
	PlayCount    int64 `json:"playCount"`
}

// ArtistStats is a derived rollup keyed by a single artist name fragment.
type ArtistStats struct {
	Name         string `json:"name"`
	TotalMinutes int64  `json:"totalMinutes"`
	PlayCount    int64  `json:"playCount"`
}

// AlbumStats is a derived rollup keyed by album name.
type AlbumStats struct {
	Name         string `json:"name"`
	TotalMinutes int64  `json:"totalMinutes"`
	PlayCount    int64  `json:"playCount"`
}

// document is the persisted stats container. Song-level counters are the only
// source of truth; artist and album rollups are recomputed from them.
type document struct {
	Version     int                  `json:"version"`
	LastUpdated int64                `json:"lastUpdated"` // epoch millis
	SongStats   map[string]SongStats `json:"songStats"`
}
