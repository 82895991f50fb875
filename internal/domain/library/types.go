// Package library resolves the song/album/playlist catalog across online and
// offline sources and owns playlist persistence, backup, and restore.
package library

import (
	"errors"
	"fmt"
	"time"
)

// Song is a catalog entry. Songs are immutable once fetched; a refresh
// replaces them wholesale, never mutates them in place.
type Song struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"` // free-text, may encode multiple artists
	Album    string `json:"album"`  // empty means no album
	SortKey  string `json:"sortKey"`
	Duration int    `json:"duration"` // in seconds
}

// Album is a derived grouping of songs. It is recomputed from the song set
// each time the catalog is organized, never independently persisted.
type Album struct {
	Name   string `json:"name"`
	Artist string `json:"artist,omitempty"` // set when all songs agree on one artist
	Songs  []Song `json:"songs"`
}

// Playlist references songs by id, resolved lazily against the live catalog,
// so a catalog refresh can never dangle playlist state.
type Playlist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SongIDs   []string  `json:"songIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Catalog is the resolved view presented to the UI for the current mode.
type Catalog struct {
	Songs     []Song     `json:"songs"` // standalone songs, outside any album
	Albums    []Album    `json:"albums"`
	Playlists []Playlist `json:"playlists"`
}

// Credential authenticates catalog requests against the remote server.
type Credential struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthHeader returns the Authorization header value for this credential.
func (c Credential) AuthHeader() string {
	return "Bearer " + c.Token
}

// Expired reports whether the credential's expiry has passed.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Credential problems are surfaced to the caller, never retried silently.
var (
	ErrUnauthenticated = errors.New("no valid credential present")
	ErrExpired         = errors.New("credential expired")
)

// ErrPlaylistNotFound is returned by playlist mutations targeting an unknown id.
var ErrPlaylistNotFound = errors.New("playlist not found")

// BackupFormatVersion is the newest backup document version this build understands.
const BackupFormatVersion = 1

// ErrUnsupportedFormat is returned when a backup document's version exceeds
// BackupFormatVersion.
var ErrUnsupportedFormat = errors.New("unsupported backup format version")

// BackupDocument is the export/import wire format. Internal playlist ids are
// not exported; they are re-assigned on import.
type BackupDocument struct {
	Version   int              `json:"version"`
	Playlists []BackupPlaylist `json:"playlists"`
}

// BackupPlaylist is one playlist in a backup document.
type BackupPlaylist struct {
	Name    string   `json:"name"`
	SongIDs []string `json:"songIds"`
}

// ImportMode selects how a backup document is applied.
type ImportMode int

const (
	// ImportMerge unions same-named playlists and inserts the rest as new.
	ImportMerge ImportMode = iota
	// ImportReplace deletes all existing playlists first.
	ImportReplace
)

// ImportErrorKind classifies restore failures.
type ImportErrorKind string

const (
	ImportErrParse      ImportErrorKind = "parse"
	ImportErrValidation ImportErrorKind = "validation"
)

// ImportError is returned for malformed backup content. The local playlist
// state is left untouched when an import fails.
type ImportError struct {
	Kind ImportErrorKind
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import failed (%s): %v", e.Kind, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// ImportSummary reports what a restore changed.
type ImportSummary struct {
	Created int `json:"created"` // playlists inserted as new
	Merged  int `json:"merged"`  // playlists unioned into an existing one
}
