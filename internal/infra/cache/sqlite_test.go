package cache

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db := NewDB(filepath.Join(t.TempDir(), "songs.db"))
	if err := db.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDB_OpenCreatesSchema(t *testing.T) {
	db := openTestDB(t)

	dao := NewDAO(db)
	count, err := dao.CountSongs()
	if err != nil {
		t.Fatalf("CountSongs() error = %v", err)
	}
	if count != 0 {
		t.Errorf("CountSongs() = %d, want 0", count)
	}
}

func TestDAO_UpsertAndGet(t *testing.T) {
	dao := NewDAO(openTestDB(t))

	song := &CachedSong{
		ID:       "s1",
		Title:    "Midnight Run",
		Artist:   "A feat. B",
		Album:    "Night Drives",
		SortKey:  "midnight run",
		Duration: 245,
	}
	if err := dao.UpsertSong(song); err != nil {
		t.Fatalf("UpsertSong() error = %v", err)
	}

	got, err := dao.GetSong("s1")
	if err != nil {
		t.Fatalf("GetSong() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetSong() = nil, want song")
	}
	if got.Title != "Midnight Run" || got.Artist != "A feat. B" || got.Album != "Night Drives" {
		t.Errorf("GetSong() = %+v, unexpected fields", got)
	}

	// Upsert replaces fields in place
	song.Title = "Midnight Run (Remaster)"
	if err := dao.UpsertSong(song); err != nil {
		t.Fatalf("UpsertSong() update error = %v", err)
	}
	got, _ = dao.GetSong("s1")
	if got.Title != "Midnight Run (Remaster)" {
		t.Errorf("after upsert, Title = %q", got.Title)
	}

	count, _ := dao.CountSongs()
	if count != 1 {
		t.Errorf("CountSongs() = %d, want 1", count)
	}
}

func TestDAO_GetMissingSong(t *testing.T) {
	dao := NewDAO(openTestDB(t))

	got, err := dao.GetSong("absent")
	if err != nil {
		t.Fatalf("GetSong() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetSong() = %+v, want nil", got)
	}
}

func TestDAO_ListSongsOrderedByTitle(t *testing.T) {
	dao := NewDAO(openTestDB(t))

	for _, s := range []CachedSong{
		{ID: "1", Title: "Zebra", Artist: "X"},
		{ID: "2", Title: "Alpha", Artist: "Y"},
		{ID: "3", Title: "Mango", Artist: "Z"},
	} {
		song := s
		if err := dao.UpsertSong(&song); err != nil {
			t.Fatalf("UpsertSong() error = %v", err)
		}
	}

	songs, err := dao.ListSongs()
	if err != nil {
		t.Fatalf("ListSongs() error = %v", err)
	}
	if len(songs) != 3 {
		t.Fatalf("ListSongs() returned %d songs, want 3", len(songs))
	}
	want := []string{"Alpha", "Mango", "Zebra"}
	for i, title := range want {
		if songs[i].Title != title {
			t.Errorf("songs[%d].Title = %q, want %q", i, songs[i].Title, title)
		}
	}
}

func TestDAO_DeleteSongIdempotent(t *testing.T) {
	dao := NewDAO(openTestDB(t))

	if err := dao.UpsertSong(&CachedSong{ID: "s1", Title: "T", Artist: "A"}); err != nil {
		t.Fatalf("UpsertSong() error = %v", err)
	}

	if err := dao.DeleteSong("s1"); err != nil {
		t.Fatalf("DeleteSong() error = %v", err)
	}
	// Second delete is a no-op, not an error
	if err := dao.DeleteSong("s1"); err != nil {
		t.Fatalf("DeleteSong() second call error = %v", err)
	}

	got, _ := dao.GetSong("s1")
	if got != nil {
		t.Errorf("GetSong() after delete = %+v, want nil", got)
	}
}

func TestDB_Clear(t *testing.T) {
	db := openTestDB(t)
	dao := NewDAO(db)

	for i, id := range []string{"a", "b"} {
		if err := dao.UpsertSong(&CachedSong{ID: id, Title: "T", Artist: "A", Duration: i}); err != nil {
			t.Fatalf("UpsertSong() error = %v", err)
		}
	}

	if err := db.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	count, _ := dao.CountSongs()
	if count != 0 {
		t.Errorf("CountSongs() after Clear = %d, want 0", count)
	}
}
