package library

import (
	"sort"
	"strings"
)

// Organize groups songs into albums and standalone songs.
//
// An album is produced only when at least two songs share a non-empty album
// name; a song whose album tag appears once folds into the standalone set.
// Albums are sorted by name and standalone songs by title, ascending,
// case-sensitive ordinal comparison, so the grouping is deterministic and
// idempotent. Song order inside an album follows catalog order.
func Organize(songs []Song) ([]Album, []Song) {
	groups := make(map[string][]Song)
	var order []string

	var standalone []Song
	for _, song := range songs {
		name := strings.TrimSpace(song.Album)
		if name == "" {
			standalone = append(standalone, song)
			continue
		}
		if _, seen := groups[name]; !seen {
			order = append(order, name)
		}
		groups[name] = append(groups[name], song)
	}

	albums := make([]Album, 0, len(order))
	for _, name := range order {
		group := groups[name]
		if len(group) < 2 {
			standalone = append(standalone, group...)
			continue
		}
		albums = append(albums, Album{
			Name:   name,
			Artist: commonArtist(group),
			Songs:  group,
		})
	}

	sort.Slice(albums, func(i, j int) bool {
		return albums[i].Name < albums[j].Name
	})
	sort.Slice(standalone, func(i, j int) bool {
		return standalone[i].Title < standalone[j].Title
	})

	return albums, standalone
}

// commonArtist returns the artist shared by every song of a group, or ""
// when the group is mixed.
func commonArtist(songs []Song) string {
	artist := songs[0].Artist
	for _, song := range songs[1:] {
		if song.Artist != artist {
			return ""
		}
	}
	return artist
}

// Flatten returns every song of an organized grouping, album songs first in
// album order, then standalone songs.
func Flatten(albums []Album, standalone []Song) []Song {
	var songs []Song
	for _, album := range albums {
		songs = append(songs, album.Songs...)
	}
	return append(songs, standalone...)
}
