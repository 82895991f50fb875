package stats

import (
	"reflect"
	"testing"
)

func TestSplitArtists(t *testing.T) {
	tests := []struct {
		name   string
		artist string
		want   []string
	}{
		{"single artist", "Nina Simone", []string{"Nina Simone"}},
		{"feat dot", "A feat. B", []string{"A", "B"}},
		{"ampersand then comma", "A & B, C", []string{"A", "B", "C"}},
		{"and word", "Simon and Garfunkel", []string{"Simon", "Garfunkel"}},
		{"versus", "A vs. B", []string{"A", "B"}},
		{"lowercase x", "A x B", []string{"A", "B"}},
		{"uppercase X", "A X B", []string{"A", "B"}},
		{"with", "A with B", []string{"A", "B"}},
		{"featuring", "A featuring B", []string{"A", "B"}},
		{"nested separators", "A and B feat. C, D", []string{"A", "B", "C", "D"}},
		{"whitespace fragments trimmed", "  A  ft  B  ", []string{"A", "B"}},
		{"empty input", "", nil},
		{"separators only", " and ", nil},
		{"no space around and keeps word", "Sandra", []string{"Sandra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitArtists(tt.artist)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitArtists(%q) = %v, want %v", tt.artist, got, tt.want)
			}
		})
	}
}
