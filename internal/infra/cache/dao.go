package cache

import (
	"database/sql"
	"fmt"
	"time"
)

// DAO provides data access operations for the local metadata store.
type DAO struct {
	db *DB
}

// NewDAO creates a new DAO instance.
func NewDAO(db *DB) *DAO {
	return &DAO{db: db}
}

// UpsertSong inserts or updates a song's metadata.
func (dao *DAO) UpsertSong(song *CachedSong) error {
	db := dao.db.DB()
	if db == nil {
		return fmt.Errorf("database not open")
	}

	now := time.Now().Format(time.RFC3339)
	_, err := db.Exec(`
		INSERT INTO songs (id, title, artist, album, sort_key, duration, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = ?, artist = ?, album = ?, sort_key = ?, duration = ?, updated_at = ?
	`,
		song.ID, song.Title, song.Artist, song.Album, song.SortKey, song.Duration, now, now,
		song.Title, song.Artist, song.Album, song.SortKey, song.Duration, now,
	)
	return err
}

// GetSong retrieves a song by ID. Returns nil when the song is not present.
func (dao *DAO) GetSong(id string) (*CachedSong, error) {
	db := dao.db.DB()
	if db == nil {
		return nil, fmt.Errorf("database not open")
	}

	song := &CachedSong{}
	var createdAt, updatedAt sql.NullString

	err := db.QueryRow(`
		SELECT id, title, artist, album, sort_key, duration, created_at, updated_at
		FROM songs WHERE id = ?
	`, id).Scan(
		&song.ID, &song.Title, &song.Artist, &song.Album, &song.SortKey,
		&song.Duration, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if createdAt.Valid {
		song.CreatedAt, _ = time.Parse(time.RFC3339, createdAt.String)
	}
	if updatedAt.Valid {
		song.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt.String)
	}

	return song, nil
}

// ListSongs returns all stored songs ordered by title.
func (dao *DAO) ListSongs() ([]CachedSong, error) {
	db := dao.db.DB()
	if db == nil {
		return nil, fmt.Errorf("database not open")
	}

	rows, err := db.Query(`
		SELECT id, title, artist, album, sort_key, duration
		FROM songs ORDER BY title
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var songs []CachedSong
	for rows.Next() {
		var s CachedSong
		if err := rows.Scan(&s.ID, &s.Title, &s.Artist, &s.Album, &s.SortKey, &s.Duration); err != nil {
			return nil, err
		}
		songs = append(songs, s)
	}
	return songs, rows.Err()
}

// DeleteSong removes a song's metadata. Deleting an absent row is a no-op.
func (dao *DAO) DeleteSong(id string) error {
	db := dao.db.DB()
	if db == nil {
		return fmt.Errorf("database not open")
	}

	_, err := db.Exec("DELETE FROM songs WHERE id = ?", id)
	return err
}

// Clear removes every stored song.
func (dao *DAO) Clear() error {
	db := dao.db.DB()
	if db == nil {
		return fmt.Errorf("database not open")
	}

	_, err := db.Exec("DELETE FROM songs")
	return err
}

// CountSongs returns the number of stored songs.
func (dao *DAO) CountSongs() (int, error) {
	db := dao.db.DB()
	if db == nil {
		return 0, fmt.Errorf("database not open")
	}

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM songs").Scan(&count)
	return count, err
}
