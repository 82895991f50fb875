package stats

import "strings"

// artistSeparators is applied in order: every fragment produced by one
// separator is re-split by the next. The list is order-sensitive; "A and B, C"
// splits on " and " before ", ".
var artistSeparators = []string{
	" and ",
	" & ",
	", ",
	" feat. ",
	" feat ",
	" ft. ",
	" ft ",
	" featuring ",
	" with ",
	" vs. ",
	" vs ",
	" x ",
	" X ",
}

// SplitArtists breaks a free-text artist field into individual artist names.
// Fragments are trimmed and empty ones discarded.
func SplitArtists(artist string) []string {
	fragments := []string{artist}
	for _, sep := range artistSeparators {
		next := make([]string, 0, len(fragments))
		for _, f := range fragments {
			next = append(next, strings.Split(f, sep)...)
		}
		fragments = next
	}

	out := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
