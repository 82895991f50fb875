package library

import (
	"github.com/auralis-music/auralis-core/internal/domain/downloads"
)

// downloadSource adapts the download store to the LocalSource interface.
type downloadSource struct {
	store *downloads.Store
}

// NewDownloadSource exposes a download store as a LocalSource.
func NewDownloadSource(store *downloads.Store) LocalSource {
	return &downloadSource{store: store}
}

func (a *downloadSource) LocalSongs() ([]Song, error) {
	cached, err := a.store.LocalSongs()
	if err != nil {
		return nil, err
	}

	songs := make([]Song, 0, len(cached))
	for _, c := range cached {
		songs = append(songs, Song{
			ID:       c.ID,
			Title:    c.Title,
			Artist:   c.Artist,
			Album:    c.Album,
			SortKey:  c.SortKey,
			Duration: c.Duration,
		})
	}
	return songs, nil
}

func (a *downloadSource) IsDownloaded(songID string) bool {
	return a.store.IsDownloaded(songID)
}
