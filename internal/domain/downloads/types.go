// Package downloads manages the local download cache: audio and artwork files
// on disk plus a byte-accurate manifest tracking them.
package downloads

import (
	"context"
	"fmt"
	"time"
)

// Song describes the catalog entry being downloaded.
type Song struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	SortKey  string `json:"sortKey"`
	Duration int    `json:"duration"` // in seconds
}

// Record is one manifest entry mapping a song id to its cached files.
type Record struct {
	SongID       string    `json:"songId"`
	AudioPath    string    `json:"audioPath"`
	ArtworkPath  string    `json:"artworkPath,omitempty"`
	Bytes        int64     `json:"bytes"`
	DownloadedAt time.Time `json:"downloadedAt"`
}

// Fetcher retrieves raw audio and artwork bytes for a song.
type Fetcher interface {
	FetchAudio(ctx context.Context, songID string) ([]byte, error)
	FetchArtwork(ctx context.Context, songID string) ([]byte, error)
}

// ErrorKind classifies download failures.
type ErrorKind string

const (
	ErrKindNetwork  ErrorKind = "network"
	ErrKindDiskFull ErrorKind = "disk-full"
	ErrKindIO       ErrorKind = "io"
)

// DownloadError is returned when a download fails. A failed download never
// leaves a manifest entry behind; the caller may retry manually.
type DownloadError struct {
	Kind ErrorKind
	Err  error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download failed (%s): %v", e.Kind, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// UsageStats aggregates cache usage, recomputed from the manifest and the
// filesystem. Stale manifest sizes are never trusted.
type UsageStats struct {
	Count      int   `json:"count"`
	TotalBytes int64 `json:"totalBytes"`
}
