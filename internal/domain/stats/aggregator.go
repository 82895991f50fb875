package stats

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/auralis-music/auralis-core/internal/domain/library"
)

// Aggregator applies playback eligibility rules to incoming events and keeps
// the song-level counters in its store.
type Aggregator struct {
	store *Store
}

// NewAggregator creates an aggregator over the given store.
func NewAggregator(store *Store) *Aggregator {
	return &Aggregator{store: store}
}

// Store exposes the underlying counters for readers.
func (a *Aggregator) Store() *Store {
	return a.store
}

// RecordEvent folds one playback session into the song's counters. Sessions
// shorter than MinListened are ignored entirely. Eligible sessions credit
// whole minutes, truncated, with a minimum of one; the play count moves only
// when the session reached CompletedRatio of the track.
func (a *Aggregator) RecordEvent(event PlayEvent) error {
	if event.Listened < MinListened {
		return nil
	}

	minutes := int64(event.Listened.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	completed := event.Completion >= CompletedRatio

	if err := a.store.add(event.SongID, minutes, completed); err != nil {
		return err
	}
	log.Debug().
		Str("songId", event.SongID).
		Int64("minutes", minutes).
		Bool("completed", completed).
		Msg("Play event recorded")
	return nil
}

// DeriveArtistStats recomputes artist rollups from the current counters and
// catalog. Every artist named on a song receives the song's full minutes and
// plays; a collaboration is not divided between its artists. The result is
// sorted by name.
func (a *Aggregator) DeriveArtistStats(songs []library.Song) []ArtistStats {
	counters := a.store.All()
	byName := make(map[string]*ArtistStats)

	for _, song := range songs {
		st, ok := counters[song.ID]
		if !ok {
			continue
		}
		for _, name := range SplitArtists(song.Artist) {
			entry := byName[name]
			if entry == nil {
				entry = &ArtistStats{Name: name}
				byName[name] = entry
			}
			entry.TotalMinutes += st.TotalMinutes
			entry.PlayCount += st.PlayCount
		}
	}

	out := make([]ArtistStats, 0, len(byName))
	for _, entry := range byName {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DeriveAlbumStats recomputes album rollups, grouping by album name alone.
// Songs without an album name are skipped. The result is sorted by name.
func (a *Aggregator) DeriveAlbumStats(songs []library.Song) []AlbumStats {
	counters := a.store.All()
	byName := make(map[string]*AlbumStats)

	for _, song := range songs {
		if song.Album == "" {
			continue
		}
		st, ok := counters[song.ID]
		if !ok {
			continue
		}
		entry := byName[song.Album]
		if entry == nil {
			entry = &AlbumStats{Name: song.Album}
			byName[song.Album] = entry
		}
		entry.TotalMinutes += st.TotalMinutes
		entry.PlayCount += st.PlayCount
	}

	out := make([]AlbumStats, 0, len(byName))
	for _, entry := range byName {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
