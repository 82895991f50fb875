package downloads

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dhowden/tag"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/auralis-music/auralis-core/internal/infra/atomicfile"
	"github.com/auralis-music/auralis-core/internal/infra/cache"
)

// Store owns the download cache: the physical files, the manifest, and the
// local metadata rows backing the offline catalog.
type Store struct {
	dir      string
	manifest *Manifest
	meta     *cache.DAO
	fetcher  Fetcher
	group    singleflight.Group
}

// NewStore creates a download store writing files under dir.
func NewStore(dir string, manifest *Manifest, meta *cache.DAO, fetcher Fetcher) *Store {
	return &Store{
		dir:      dir,
		manifest: manifest,
		meta:     meta,
		fetcher:  fetcher,
	}
}

// AudioPath returns the deterministic audio file path for a song id.
func (s *Store) AudioPath(songID string) string {
	return filepath.Join(s.dir, songID+".audio")
}

// ArtworkPath returns the deterministic artwork file path for a song id.
func (s *Store) ArtworkPath(songID string) string {
	return filepath.Join(s.dir, songID+".artwork")
}

// Download fetches audio and artwork for a song and commits a manifest entry.
// The manifest write happens last, so a crash mid-transfer never produces an
// entry pointing at a partial file. Concurrent calls for the same song id
// collapse to a single in-flight download; every caller gets the same record.
func (s *Store) Download(ctx context.Context, song Song) (*Record, error) {
	v, err, shared := s.group.Do(song.ID, func() (interface{}, error) {
		return s.download(ctx, song)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug().Str("songId", song.ID).Msg("Download request joined in-flight download")
	}
	return v.(*Record), nil
}

func (s *Store) download(ctx context.Context, song Song) (*Record, error) {
	started := time.Now()

	audio, err := s.fetcher.FetchAudio(ctx, song.ID)
	if err != nil {
		return nil, &DownloadError{Kind: ErrKindNetwork, Err: fmt.Errorf("fetch audio: %w", err)}
	}
	if len(audio) == 0 {
		return nil, &DownloadError{Kind: ErrKindNetwork, Err: fmt.Errorf("empty audio payload for song %s", song.ID)}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, &DownloadError{Kind: classifyWriteError(err), Err: err}
	}

	// Atomic replace: a re-download over an existing manifest entry must never
	// truncate the referenced file in place, or a crash mid-write would leave
	// a partial file the stale entry still vouches for.
	audioPath := s.AudioPath(song.ID)
	if err := atomicfile.WriteFile(audioPath, audio); err != nil {
		return nil, &DownloadError{Kind: classifyWriteError(err), Err: fmt.Errorf("write audio file: %w", err)}
	}

	// Artwork is best-effort: a song without cover art is still downloaded.
	artworkPath := ""
	if artwork, err := s.fetcher.FetchArtwork(ctx, song.ID); err != nil {
		log.Warn().Err(err).Str("songId", song.ID).Msg("Artwork fetch failed, caching audio only")
	} else if len(artwork) > 0 {
		artworkPath = s.ArtworkPath(song.ID)
		if err := os.WriteFile(artworkPath, artwork, 0o644); err != nil {
			log.Warn().Err(err).Str("songId", song.ID).Msg("Artwork write failed, caching audio only")
			artworkPath = ""
		}
	}

	if err := s.meta.UpsertSong(&cache.CachedSong{
		ID:       song.ID,
		Title:    song.Title,
		Artist:   song.Artist,
		Album:    song.Album,
		SortKey:  song.SortKey,
		Duration: song.Duration,
	}); err != nil {
		return nil, &DownloadError{Kind: ErrKindIO, Err: fmt.Errorf("store song metadata: %w", err)}
	}

	rec := Record{
		SongID:       song.ID,
		AudioPath:    audioPath,
		ArtworkPath:  artworkPath,
		Bytes:        int64(len(audio)),
		DownloadedAt: time.Now(),
	}

	// Commit point: only now does the song count as downloaded.
	if err := s.manifest.Put(rec); err != nil {
		return nil, &DownloadError{Kind: ErrKindIO, Err: fmt.Errorf("commit manifest entry: %w", err)}
	}

	log.Info().
		Str("songId", song.ID).
		Str("title", song.Title).
		Int64("bytes", rec.Bytes).
		Dur("took", time.Since(started)).
		Msg("Song downloaded")

	return &rec, nil
}

// IsDownloaded reports whether a song is usable from the local cache: there is
// a manifest entry and the audio file exists with exactly the byte count the
// entry recorded. A manifest entry with a missing, empty, or size-mismatched
// file is treated as not-downloaded, so a partial or corrupt download
// self-heals on the next Download.
func (s *Store) IsDownloaded(songID string) bool {
	rec, ok := s.manifest.Get(songID)
	if !ok {
		return false
	}
	info, err := os.Stat(rec.AudioPath)
	return err == nil && !info.IsDir() && info.Size() > 0 && info.Size() == rec.Bytes
}

// Remove deletes a song's cached files, manifest entry, and metadata row.
// Files go first so a crash between steps leaves only a dangling manifest
// entry, which IsDownloaded already treats as not-downloaded. Removing an
// absent song is a no-op.
func (s *Store) Remove(songID string) error {
	rec, ok := s.manifest.Get(songID)
	if ok {
		removeFile(rec.AudioPath)
		removeFile(rec.ArtworkPath)
	} else {
		// No manifest entry; clean up any orphaned files at the deterministic paths.
		removeFile(s.AudioPath(songID))
		removeFile(s.ArtworkPath(songID))
	}

	if err := s.manifest.Delete(songID); err != nil {
		return fmt.Errorf("delete manifest entry: %w", err)
	}
	if err := s.meta.DeleteSong(songID); err != nil {
		return fmt.Errorf("delete song metadata: %w", err)
	}

	log.Info().Str("songId", songID).Msg("Download removed")
	return nil
}

// ClearAll removes every cached file, the manifest entries, and all metadata.
func (s *Store) ClearAll() error {
	for _, rec := range s.manifest.All() {
		removeFile(rec.AudioPath)
		removeFile(rec.ArtworkPath)
	}

	if err := s.manifest.Clear(); err != nil {
		return fmt.Errorf("clear manifest: %w", err)
	}
	if err := s.meta.Clear(); err != nil {
		return fmt.Errorf("clear song metadata: %w", err)
	}

	log.Info().Msg("Download cache cleared")
	return nil
}

// Stats recomputes cache usage by scanning the manifest and re-checking the
// filesystem. Entries whose files are gone or empty are not counted.
func (s *Store) Stats() UsageStats {
	var stats UsageStats
	for _, rec := range s.manifest.All() {
		info, err := os.Stat(rec.AudioPath)
		if err != nil || info.IsDir() || info.Size() == 0 || info.Size() != rec.Bytes {
			continue
		}
		stats.Count++
		stats.TotalBytes += info.Size()

		if rec.ArtworkPath != "" {
			if artInfo, err := os.Stat(rec.ArtworkPath); err == nil && !artInfo.IsDir() {
				stats.TotalBytes += artInfo.Size()
			}
		}
	}
	return stats
}

// LocalSongs returns metadata for every verified download, backing the
// offline catalog. A missing metadata row is recovered from the audio file's
// embedded tags and re-inserted, so a lost metadata database heals itself.
func (s *Store) LocalSongs() ([]cache.CachedSong, error) {
	var songs []cache.CachedSong
	for _, rec := range s.manifest.All() {
		if !s.IsDownloaded(rec.SongID) {
			continue
		}

		meta, err := s.meta.GetSong(rec.SongID)
		if err != nil {
			return nil, fmt.Errorf("read song metadata: %w", err)
		}
		if meta == nil {
			meta = s.recoverMetadata(rec)
			if err := s.meta.UpsertSong(meta); err != nil {
				log.Warn().Err(err).Str("songId", rec.SongID).Msg("Failed to re-insert recovered metadata")
			}
		}
		songs = append(songs, *meta)
	}
	return songs, nil
}

// recoverMetadata rebuilds a song's metadata from its cached file's tags.
func (s *Store) recoverMetadata(rec Record) *cache.CachedSong {
	meta := &cache.CachedSong{
		ID:    rec.SongID,
		Title: rec.SongID,
	}

	f, err := os.Open(rec.AudioPath)
	if err != nil {
		log.Warn().Err(err).Str("songId", rec.SongID).Msg("Cannot open cached file for tag recovery")
		return meta
	}
	defer f.Close()

	tags, err := tag.ReadFrom(f)
	if err != nil {
		log.Warn().Err(err).Str("songId", rec.SongID).Msg("No readable tags in cached file")
		return meta
	}

	if t := tags.Title(); t != "" {
		meta.Title = t
	}
	meta.Artist = tags.Artist()
	meta.Album = tags.Album()
	meta.SortKey = meta.Title

	log.Info().Str("songId", rec.SongID).Str("title", meta.Title).Msg("Recovered metadata from file tags")
	return meta
}

// removeFile deletes a file, ignoring empty paths and already-absent files.
func removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("Failed to remove cached file")
	}
}

// classifyWriteError maps a filesystem write failure to a download error kind.
func classifyWriteError(err error) ErrorKind {
	if errors.Is(err, syscall.ENOSPC) {
		return ErrKindDiskFull
	}
	return ErrKindIO
}
