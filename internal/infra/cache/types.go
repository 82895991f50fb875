// Package cache provides a SQLite-backed store for locally available song metadata.
package cache

import "time"

// CachedSong represents a locally downloaded song's metadata.
type CachedSong struct {
	ID        string    `json:"id"`       // Stable song identifier from the remote catalog
	Title     string    `json:"title"`    // Song title
	Artist    string    `json:"artist"`   // Free-text artist field (may encode multiple artists)
	Album     string    `json:"album"`    // Album name, empty means no album
	SortKey   string    `json:"sortKey"`  // Catalog sort key
	Duration  int       `json:"duration"` // Duration in seconds
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
