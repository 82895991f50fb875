package library

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/auralis-music/auralis-core/internal/domain/mode"
)

type fakeLocal struct {
	songs      []Song
	downloaded map[string]bool
}

func (f *fakeLocal) LocalSongs() ([]Song, error) {
	return f.songs, nil
}

func (f *fakeLocal) IsDownloaded(songID string) bool {
	return f.downloaded[songID]
}

type fakeRemote struct {
	mu         sync.Mutex
	songs      []Song
	fetchErr   error
	pingErr    error
	pushed     [][]BackupPlaylist
	pushErr    error
	disconErr  error
	disconHits int
	lastAuth   string
}

func (f *fakeRemote) FetchCatalog(ctx context.Context, authHeader string) ([]Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAuth = authHeader
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.songs, nil
}

func (f *fakeRemote) PushPlaylists(ctx context.Context, authHeader string, playlists []BackupPlaylist) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushed = append(f.pushed, playlists)
	return nil
}

func (f *fakeRemote) Ping(ctx context.Context) error {
	return f.pingErr
}

func (f *fakeRemote) Disconnect(ctx context.Context, authHeader string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconHits++
	return f.disconErr
}

func newTestService(t *testing.T, local *fakeLocal, remote RemoteSource) *Service {
	t.Helper()
	if local == nil {
		local = &fakeLocal{downloaded: map[string]bool{}}
	}
	if remote == nil {
		remote = &fakeRemote{}
	}
	ctrl := mode.NewController("")
	store := NewPlaylistStore(filepath.Join(t.TempDir(), "playlists.json"))
	return NewService(ctrl, local, remote, store)
}

func validCredential(s *Service) {
	s.SetCredential("tok-123", time.Now().Add(time.Hour))
}

func TestService_GetCatalogOnline(t *testing.T) {
	remote := &fakeRemote{songs: []Song{
		song("1", "One", "A", "X"),
		song("2", "Two", "A", "X"),
		song("3", "Solo", "B", ""),
	}}
	svc := newTestService(t, nil, remote)
	validCredential(svc)

	cat, err := svc.GetCatalog(context.Background())
	if err != nil {
		t.Fatalf("GetCatalog() error = %v", err)
	}

	if len(cat.Albums) != 1 || cat.Albums[0].Name != "X" {
		t.Errorf("albums = %+v, want one album X", cat.Albums)
	}
	if len(cat.Songs) != 1 || cat.Songs[0].Title != "Solo" {
		t.Errorf("standalone = %+v, want [Solo]", cat.Songs)
	}
	if remote.lastAuth != "Bearer tok-123" {
		t.Errorf("auth header = %q, want Bearer tok-123", remote.lastAuth)
	}
	if svc.Snapshot() == nil {
		t.Error("Snapshot() = nil after successful refresh")
	}
}

func TestService_GetCatalogCredentialErrors(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(*Service)
		wantErr error
	}{
		{
			name:    "no credential",
			prepare: func(s *Service) {},
			wantErr: ErrUnauthenticated,
		},
		{
			name: "expired credential",
			prepare: func(s *Service) {
				s.SetCredential("tok", time.Now().Add(-time.Minute))
			},
			wantErr: ErrExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, nil, &fakeRemote{})
			tt.prepare(svc)

			_, err := svc.GetCatalog(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("GetCatalog() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_GetCatalogOffline(t *testing.T) {
	local := &fakeLocal{
		songs: []Song{
			song("1", "Cached One", "A", "Offline Album"),
			song("2", "Cached Two", "A", "Offline Album"),
		},
		downloaded: map[string]bool{"1": true, "2": true},
	}
	remote := &fakeRemote{fetchErr: errors.New("should not be called offline")}
	svc := newTestService(t, local, remote)

	if _, err := svc.CreatePlaylist("Mixed", []string{"1", "9", "2"}); err != nil {
		t.Fatalf("CreatePlaylist() error = %v", err)
	}
	svc.GoOffline()

	cat, err := svc.GetCatalog(context.Background())
	if err != nil {
		t.Fatalf("GetCatalog() offline error = %v", err)
	}

	if len(cat.Albums) != 1 || cat.Albums[0].Name != "Offline Album" {
		t.Errorf("offline albums = %+v", cat.Albums)
	}
	// Playlist references are filtered to locally available songs.
	if len(cat.Playlists) != 1 {
		t.Fatalf("offline playlists = %d, want 1", len(cat.Playlists))
	}
	got := cat.Playlists[0].SongIDs
	if len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Errorf("filtered playlist songs = %v, want [1 2]", got)
	}
}

func TestService_OfflineEditsMarkDirty(t *testing.T) {
	svc := newTestService(t, nil, &fakeRemote{})

	if _, err := svc.CreatePlaylist("Online List", nil); err != nil {
		t.Fatalf("CreatePlaylist() error = %v", err)
	}
	if svc.playlists.Dirty() {
		t.Error("online mutation marked store dirty")
	}

	svc.GoOffline()
	if _, err := svc.CreatePlaylist("Offline List", nil); err != nil {
		t.Fatalf("CreatePlaylist() error = %v", err)
	}
	if !svc.playlists.Dirty() {
		t.Error("offline mutation did not mark store dirty")
	}
}

func TestService_GoOnlinePushesOfflineEdits(t *testing.T) {
	remote := &fakeRemote{}
	svc := newTestService(t, nil, remote)
	validCredential(svc)

	svc.GoOffline()
	if _, err := svc.CreatePlaylist("Made Offline", []string{"s1"}); err != nil {
		t.Fatalf("CreatePlaylist() error = %v", err)
	}

	if err := svc.GoOnline(context.Background()); err != nil {
		t.Fatalf("GoOnline() error = %v", err)
	}

	if svc.IsOffline() {
		t.Error("still offline after successful GoOnline()")
	}
	if len(remote.pushed) != 1 {
		t.Fatalf("remote received %d pushes, want 1", len(remote.pushed))
	}
	if remote.pushed[0][0].Name != "Made Offline" {
		t.Errorf("pushed playlist = %+v", remote.pushed[0])
	}
	if svc.playlists.Dirty() {
		t.Error("dirty flag still set after successful push")
	}
}

func TestService_GoOnlineBlockedKeepsEdits(t *testing.T) {
	tests := []struct {
		name   string
		remote *fakeRemote
	}{
		{"probe fails", &fakeRemote{pingErr: errors.New("unreachable")}},
		{"push fails", &fakeRemote{pushErr: errors.New("server error")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, nil, tt.remote)
			validCredential(svc)

			svc.GoOffline()
			if _, err := svc.CreatePlaylist("Offline Only", nil); err != nil {
				t.Fatalf("CreatePlaylist() error = %v", err)
			}

			err := svc.GoOnline(context.Background())
			if !errors.Is(err, mode.ErrBlocked) {
				t.Errorf("GoOnline() error = %v, want ErrBlocked", err)
			}
			if !svc.IsOffline() {
				t.Error("mode flipped online despite blocked exit")
			}
			if !svc.playlists.Dirty() {
				t.Error("offline edits lost on blocked exit")
			}
		})
	}
}

func TestService_Logout(t *testing.T) {
	remote := &fakeRemote{disconErr: errors.New("timeout")}
	svc := newTestService(t, nil, remote)
	validCredential(svc)

	// Disconnect failure is swallowed; the credential is cleared regardless.
	svc.Logout(context.Background())

	if remote.disconHits != 1 {
		t.Errorf("Disconnect called %d times, want 1", remote.disconHits)
	}
	if _, err := svc.GetCatalog(context.Background()); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("GetCatalog() after logout error = %v, want ErrUnauthenticated", err)
	}

	// Logging out twice does not hit the remote again.
	svc.Logout(context.Background())
	if remote.disconHits != 1 {
		t.Errorf("Disconnect called %d times after double logout, want 1", remote.disconHits)
	}
}

// gatedRemote serves a different catalog per fetch and blocks the first fetch
// until released, so a second refresh can be issued while the first is in
// flight.
type gatedRemote struct {
	fakeRemote
	fetches int
	gate    chan struct{}
	entered chan struct{}
}

func (g *gatedRemote) FetchCatalog(ctx context.Context, authHeader string) ([]Song, error) {
	g.mu.Lock()
	g.fetches++
	n := g.fetches
	g.mu.Unlock()

	if n == 1 {
		close(g.entered)
		<-g.gate
		return []Song{song("old", "Stale Result", "A", "")}, nil
	}
	return []Song{song("new", "Fresh Result", "A", "")}, nil
}

func TestService_SupersededRefreshNotApplied(t *testing.T) {
	remote := &gatedRemote{gate: make(chan struct{}), entered: make(chan struct{})}
	svc := newTestService(t, nil, remote)
	validCredential(svc)

	firstDone := make(chan *Catalog, 1)
	go func() {
		cat, err := svc.GetCatalog(context.Background())
		if err != nil {
			t.Errorf("first GetCatalog() error = %v", err)
		}
		firstDone <- cat
	}()
	<-remote.entered

	secondDone := make(chan *Catalog, 1)
	go func() {
		cat, err := svc.GetCatalog(context.Background())
		if err != nil {
			t.Errorf("second GetCatalog() error = %v", err)
		}
		secondDone <- cat
	}()

	// Give the second request time to claim the newer sequence number, then
	// let the first fetch complete.
	time.Sleep(50 * time.Millisecond)
	close(remote.gate)

	first := <-firstDone
	second := <-secondDone

	if len(first.Songs) != 1 || first.Songs[0].Title != "Stale Result" {
		t.Errorf("first call returned %+v, want its own stale result", first.Songs)
	}
	if len(second.Songs) != 1 || second.Songs[0].Title != "Fresh Result" {
		t.Errorf("second call returned %+v, want the fresh result", second.Songs)
	}

	snap := svc.Snapshot()
	if snap == nil {
		t.Fatal("Snapshot() = nil after refreshes")
	}
	if len(snap.Songs) != 1 || snap.Songs[0].Title != "Fresh Result" {
		t.Errorf("snapshot holds %+v, want only the newest refresh", snap.Songs)
	}
}
