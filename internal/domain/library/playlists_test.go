package library

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestPlaylistStore(t *testing.T) *PlaylistStore {
	t.Helper()
	return NewPlaylistStore(filepath.Join(t.TempDir(), "playlists.json"))
}

func TestPlaylistStore_CreateAndList(t *testing.T) {
	store := newTestPlaylistStore(t)

	p, err := store.Create("Road Trip", []string{"s1", "s2"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.ID == "" {
		t.Error("created playlist has empty id")
	}
	if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
		t.Error("created playlist missing timestamps")
	}

	if _, err := store.Create("Chill", nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	list := store.List()
	if len(list) != 2 {
		t.Fatalf("List() returned %d playlists, want 2", len(list))
	}
	// Sorted by name, ordinal ascending.
	if list[0].Name != "Chill" || list[1].Name != "Road Trip" {
		t.Errorf("List() order = [%q %q], want [Chill, Road Trip]", list[0].Name, list[1].Name)
	}
}

func TestPlaylistStore_Mutations(t *testing.T) {
	store := newTestPlaylistStore(t)
	p, _ := store.Create("Mix", []string{"s1"})

	t.Run("rename", func(t *testing.T) {
		if err := store.Rename(p.ID, "Daily Mix"); err != nil {
			t.Fatalf("Rename() error = %v", err)
		}
		got, _ := store.Get(p.ID)
		if got.Name != "Daily Mix" {
			t.Errorf("name = %q, want Daily Mix", got.Name)
		}
		if !got.UpdatedAt.After(p.UpdatedAt) && !got.UpdatedAt.Equal(p.UpdatedAt) {
			t.Error("UpdatedAt not bumped on rename")
		}
	})

	t.Run("add song", func(t *testing.T) {
		if err := store.AddSong(p.ID, "s2"); err != nil {
			t.Fatalf("AddSong() error = %v", err)
		}
		// Adding the same id again is a no-op.
		if err := store.AddSong(p.ID, "s2"); err != nil {
			t.Fatalf("AddSong() duplicate error = %v", err)
		}
		got, _ := store.Get(p.ID)
		if len(got.SongIDs) != 2 {
			t.Errorf("SongIDs = %v, want [s1 s2]", got.SongIDs)
		}
	})

	t.Run("remove song", func(t *testing.T) {
		if err := store.RemoveSong(p.ID, "s1"); err != nil {
			t.Fatalf("RemoveSong() error = %v", err)
		}
		got, _ := store.Get(p.ID)
		if len(got.SongIDs) != 1 || got.SongIDs[0] != "s2" {
			t.Errorf("SongIDs = %v, want [s2]", got.SongIDs)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := store.Delete(p.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := store.Get(p.ID); !errors.Is(err, ErrPlaylistNotFound) {
			t.Errorf("Get() after delete error = %v, want ErrPlaylistNotFound", err)
		}
	})
}

func TestPlaylistStore_UnknownID(t *testing.T) {
	store := newTestPlaylistStore(t)

	if err := store.Rename("missing", "x"); !errors.Is(err, ErrPlaylistNotFound) {
		t.Errorf("Rename() error = %v, want ErrPlaylistNotFound", err)
	}
	if err := store.Delete("missing"); !errors.Is(err, ErrPlaylistNotFound) {
		t.Errorf("Delete() error = %v, want ErrPlaylistNotFound", err)
	}
	if err := store.AddSong("missing", "s1"); !errors.Is(err, ErrPlaylistNotFound) {
		t.Errorf("AddSong() error = %v, want ErrPlaylistNotFound", err)
	}
}

func TestPlaylistStore_PersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlists.json")

	store := NewPlaylistStore(path)
	p, err := store.Create("Favorites", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	store.MarkDirty()

	restored := NewPlaylistStore(path)
	got, err := restored.Get(p.ID)
	if err != nil {
		t.Fatalf("Get() after restart error = %v", err)
	}
	if got.Name != "Favorites" || len(got.SongIDs) != 3 {
		t.Errorf("restored playlist = %+v", got)
	}
	if !restored.Dirty() {
		t.Error("dirty flag lost across restart")
	}

	restored.ClearDirty()
	if NewPlaylistStore(path).Dirty() {
		t.Error("cleared dirty flag persisted as set")
	}
}

func TestPlaylistStore_ListReturnsCopies(t *testing.T) {
	store := newTestPlaylistStore(t)
	p, _ := store.Create("Mix", []string{"s1"})

	list := store.List()
	list[0].SongIDs[0] = "mutated"
	list[0].Name = "mutated"

	got, _ := store.Get(p.ID)
	if got.SongIDs[0] != "s1" || got.Name != "Mix" {
		t.Error("mutating List() result leaked into the store")
	}
}
