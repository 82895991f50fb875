// Package main is the entry point for the Auralis local data core daemon.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/auralis-music/auralis-core/internal/config"
	"github.com/auralis-music/auralis-core/internal/domain/downloads"
	"github.com/auralis-music/auralis-core/internal/domain/library"
	"github.com/auralis-music/auralis-core/internal/domain/libversion"
	"github.com/auralis-music/auralis-core/internal/domain/mode"
	"github.com/auralis-music/auralis-core/internal/domain/stats"
	"github.com/auralis-music/auralis-core/internal/infra/cache"
	"github.com/auralis-music/auralis-core/internal/infra/remote"
	"github.com/auralis-music/auralis-core/internal/version"
)

const versionPollInterval = 5 * time.Minute

func main() {
	// Command line flags
	port := flag.String("port", "3080", "HTTP server port")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetInfo().String())
		return
	}

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	applyLogLevel(cfg.Log.Level, *debug)

	versionInfo := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", versionInfo.String())
	log.Info().Msg("  Local-First Music Library Core")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Str("port", *port).
		Str("server", cfg.Server.BaseURL).
		Str("data_dir", cfg.Data.Dir).
		Str("download_dir", cfg.Data.DownloadDir).
		Msg("Configuration")

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create data directory")
	}

	// Local metadata cache
	db := cache.NewDB(filepath.Join(cfg.Data.Dir, "cache.db"))
	if err := db.Open(); err != nil {
		log.Fatal().Err(err).Msg("Failed to open metadata cache")
	}
	defer db.Close()

	// Remote server client
	client := remote.NewClient(cfg.Server.BaseURL,
		remote.WithHTTPClient(&http.Client{Timeout: cfg.Server.GetHTTPTimeout()}))

	// Component graph
	modeCtrl := mode.NewController(cfg.Data.StatePath("mode.json"))
	manifest := downloads.NewManifest(cfg.Data.StatePath("downloads.json"))
	dlStore := downloads.NewStore(cfg.Data.DownloadDir, manifest, cache.NewDAO(db), client)
	plStore := library.NewPlaylistStore(cfg.Data.StatePath("playlists.json"))
	libSvc := library.NewService(modeCtrl, library.NewDownloadSource(dlStore), client, plStore)
	tracker := libversion.NewTracker(cfg.Data.StatePath("library_version.json"))
	aggregator := stats.NewAggregator(stats.NewStore(cfg.Data.StatePath("stats.json")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Poll the remote version marker; on a change, refetch the catalog.
	go pollLibraryVersion(ctx, tracker, client, libSvc)

	mux := http.NewServeMux()
	registerRoutes(mux, libSvc, dlStore, aggregator, modeCtrl)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", ":"+*port).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	log.Info().Msg("Server stopped")
}

func applyLogLevel(level string, debugFlag bool) {
	if debugFlag {
		return // flag wins
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return
	}
	zerolog.SetGlobalLevel(parsed)
}

// pollLibraryVersion periodically compares the remote version marker against
// the stored one. When they differ the catalog is refetched and the checked
// marker persisted only after the refresh succeeded, so a failed refresh
// retries on the next tick. Persisting the marker the check fetched, not a
// re-fetched one, keeps a version change landing mid-refresh detectable on
// the next tick.
func pollLibraryVersion(ctx context.Context, tracker *libversion.Tracker, client *remote.Client, libSvc *library.Service) {
	ticker := time.NewTicker(versionPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if libSvc.IsOffline() {
			continue
		}
		changed, marker := tracker.CheckForUpdate(ctx, client.FetchLibraryVersion)
		if !changed {
			continue
		}

		log.Info().Msg("Remote library changed, refreshing catalog")
		if _, err := libSvc.GetCatalog(ctx); err != nil {
			log.Warn().Err(err).Msg("Catalog refresh after version change failed")
			continue
		}
		if err := tracker.Refresh(marker); err != nil {
			log.Warn().Err(err).Msg("Failed to persist library version marker")
		}
	}
}

func registerRoutes(mux *http.ServeMux, libSvc *library.Service, dlStore *downloads.Store, aggregator *stats.Aggregator, modeCtrl *mode.Controller) {
	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		offline := "online"
		if modeCtrl.IsOffline() {
			offline = "offline"
		}
		fmt.Fprintf(w, `{"status":"ok","mode":%q}`, offline)
	})

	// Version endpoint
	mux.HandleFunc("/api/v1/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, version.GetInfo())
	})

	// Resolved catalog for the current mode
	mux.HandleFunc("/api/v1/catalog", func(w http.ResponseWriter, r *http.Request) {
		catalog, err := libSvc.GetCatalog(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, catalog)
	})

	// Mode transitions
	mux.HandleFunc("/api/v1/mode/offline", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		libSvc.GoOffline()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/v1/mode/online", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := libSvc.GoOnline(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	// Download cache usage
	mux.HandleFunc("/api/v1/downloads/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, dlStore.Stats())
	})

	// Playback events
	mux.HandleFunc("/api/v1/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			SongID     string  `json:"songId"`
			ListenedMS int64   `json:"listenedMs"`
			Completion float64 `json:"completion"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid event payload", http.StatusBadRequest)
			return
		}
		event := stats.PlayEvent{
			SongID:     payload.SongID,
			Listened:   time.Duration(payload.ListenedMS) * time.Millisecond,
			Completion: payload.Completion,
		}
		if err := aggregator.RecordEvent(event); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	// Derived listening statistics
	mux.HandleFunc("/api/v1/stats/artists", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, aggregator.DeriveArtistStats(catalogSongs(libSvc)))
	})
	mux.HandleFunc("/api/v1/stats/albums", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, aggregator.DeriveAlbumStats(catalogSongs(libSvc)))
	})

	// Playlist backup and restore
	mux.HandleFunc("/api/v1/backup", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			data, err := libSvc.ExportJSON()
			if err != nil {
				writeError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write(data)
		case http.MethodPost:
			importMode := library.ImportMerge
			if r.URL.Query().Get("mode") == "replace" {
				importMode = library.ImportReplace
			}
			raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 10<<20))
			if err != nil {
				http.Error(w, "read body", http.StatusBadRequest)
				return
			}
			summary, err := libSvc.ImportJSON(raw, importMode)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, summary)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

// catalogSongs flattens the last resolved catalog for stats derivation.
func catalogSongs(libSvc *library.Service) []library.Song {
	snapshot := libSvc.Snapshot()
	if snapshot == nil {
		return nil
	}
	return library.Flatten(snapshot.Albums, snapshot.Songs)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, library.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, library.ErrExpired):
		status = http.StatusForbidden
	case errors.Is(err, mode.ErrBlocked):
		status = http.StatusConflict
	case errors.Is(err, library.ErrUnsupportedFormat):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, library.ErrPlaylistNotFound):
		status = http.StatusNotFound
	}

	var impErr *library.ImportError
	if errors.As(err, &impErr) {
		status = http.StatusBadRequest
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
