package library

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Export produces a backup document containing every playlist. Internal ids
// are omitted; they are re-assigned on import.
func (s *Service) Export() BackupDocument {
	playlists := s.playlists.List()
	doc := BackupDocument{
		Version:   BackupFormatVersion,
		Playlists: make([]BackupPlaylist, 0, len(playlists)),
	}
	for _, p := range playlists {
		doc.Playlists = append(doc.Playlists, BackupPlaylist{
			Name:    p.Name,
			SongIDs: append([]string(nil), p.SongIDs...),
		})
	}
	return doc
}

// ExportJSON serializes the backup document.
func (s *Service) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(s.Export(), "", "  ")
}

// ImportJSON parses raw backup content and applies it. Malformed JSON yields
// an ImportError with kind "parse".
func (s *Service) ImportJSON(data []byte, mode ImportMode) (*ImportSummary, error) {
	var doc BackupDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ImportError{Kind: ImportErrParse, Err: err}
	}
	return s.Import(doc, mode)
}

// Import applies a backup document. The import is all-or-nothing: validation
// happens before any mutation and the store commits in a single write, so a
// failed import leaves the local playlists untouched.
func (s *Service) Import(doc BackupDocument, mode ImportMode) (*ImportSummary, error) {
	if doc.Version > BackupFormatVersion {
		return nil, fmt.Errorf("%w: document version %d, supported up to %d",
			ErrUnsupportedFormat, doc.Version, BackupFormatVersion)
	}
	if err := validateBackup(doc); err != nil {
		return nil, &ImportError{Kind: ImportErrValidation, Err: err}
	}

	var summary ImportSummary
	var next []Playlist

	switch mode {
	case ImportReplace:
		next = make([]Playlist, 0, len(doc.Playlists))
		now := time.Now()
		for _, bp := range doc.Playlists {
			next = append(next, Playlist{
				ID:        uuid.New().String(),
				Name:      bp.Name,
				SongIDs:   append([]string(nil), bp.SongIDs...),
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
		summary.Created = len(next)

	case ImportMerge:
		next = s.playlists.List()
		byName := make(map[string]int, len(next))
		for i, p := range next {
			byName[p.Name] = i
		}

		now := time.Now()
		for _, bp := range doc.Playlists {
			if i, ok := byName[bp.Name]; ok {
				next[i].SongIDs = unionSongIDs(next[i].SongIDs, bp.SongIDs)
				next[i].UpdatedAt = now
				summary.Merged++
				continue
			}
			next = append(next, Playlist{
				ID:        uuid.New().String(),
				Name:      bp.Name,
				SongIDs:   append([]string(nil), bp.SongIDs...),
				CreatedAt: now,
				UpdatedAt: now,
			})
			byName[bp.Name] = len(next) - 1
			summary.Created++
		}

	default:
		return nil, &ImportError{Kind: ImportErrValidation, Err: fmt.Errorf("unknown import mode %d", mode)}
	}

	if err := s.playlists.ReplaceAll(next); err != nil {
		return nil, err
	}
	if s.mode.IsOffline() {
		s.playlists.MarkDirty()
	}

	log.Info().
		Int("created", summary.Created).
		Int("merged", summary.Merged).
		Msg("Playlist restore applied")
	return &summary, nil
}

// validateBackup checks a parsed document before anything is mutated.
func validateBackup(doc BackupDocument) error {
	if doc.Version < 1 {
		return fmt.Errorf("invalid document version %d", doc.Version)
	}
	seen := make(map[string]struct{}, len(doc.Playlists))
	for i, p := range doc.Playlists {
		if p.Name == "" {
			return fmt.Errorf("playlist %d has an empty name", i)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("duplicate playlist name %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		for j, id := range p.SongIDs {
			if id == "" {
				return fmt.Errorf("playlist %q has an empty song id at index %d", p.Name, j)
			}
		}
	}
	return nil
}

// unionSongIDs merges two id lists, de-duplicated, existing order preserved,
// new ids appended.
func unionSongIDs(existing, incoming []string) []string {
	out := append([]string(nil), existing...)
	seen := make(map[string]struct{}, len(out))
	for _, id := range out {
		seen[id] = struct{}{}
	}
	for _, id := range incoming {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
