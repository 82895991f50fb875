// Package remote implements the HTTP client for the library server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/auralis-music/auralis-core/internal/domain/library"
	"github.com/auralis-music/auralis-core/internal/version"
)

const (
	// DefaultTimeout for HTTP requests.
	DefaultTimeout = 30 * time.Second
)

// Client talks to the library server. One song identifier maps to one audio
// and one artwork endpoint, so the client also serves as the download fetcher.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   baseURL,
		userAgent: version.Name + "/" + version.Version,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type catalogResponse struct {
	Songs []library.Song `json:"songs"`
}

type versionResponse struct {
	Version string `json:"version"`
}

type pushPlaylistsRequest struct {
	Playlists []library.BackupPlaylist `json:"playlists"`
}

// FetchCatalog retrieves the full song list.
func (c *Client) FetchCatalog(ctx context.Context, authHeader string) ([]library.Song, error) {
	body, err := c.get(ctx, "/v1/library/songs", authHeader)
	if err != nil {
		return nil, err
	}

	var resp catalogResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse catalog response: %w", err)
	}

	log.Debug().Int("songs", len(resp.Songs)).Msg("Catalog fetched from remote")
	return resp.Songs, nil
}

// FetchLibraryVersion retrieves the opaque library version marker.
func (c *Client) FetchLibraryVersion(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/v1/library/version", "")
	if err != nil {
		return "", err
	}

	var resp versionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse version response: %w", err)
	}
	return resp.Version, nil
}

// PushPlaylists uploads playlist snapshots to the server.
func (c *Client) PushPlaylists(ctx context.Context, authHeader string, playlists []library.BackupPlaylist) error {
	payload, err := json.Marshal(pushPlaylistsRequest{Playlists: playlists})
	if err != nil {
		return fmt.Errorf("marshal playlists: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, "/v1/playlists", authHeader, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		return err
	}
	log.Debug().Int("count", len(playlists)).Msg("Playlists pushed to remote")
	return nil
}

// Ping confirms the server answers. Used as the offline-exit probe.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "/v1/ping", "")
	return err
}

// Disconnect invalidates the session server-side.
func (c *Client) Disconnect(ctx context.Context, authHeader string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/session/disconnect", authHeader, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	return checkStatus(resp.StatusCode)
}

// FetchAudio downloads the audio bytes for one song.
func (c *Client) FetchAudio(ctx context.Context, songID string) ([]byte, error) {
	return c.get(ctx, "/v1/songs/"+url.PathEscape(songID)+"/audio", "")
}

// FetchArtwork downloads the artwork bytes for one song.
func (c *Client) FetchArtwork(ctx context.Context, songID string) ([]byte, error) {
	return c.get(ctx, "/v1/songs/"+url.PathEscape(songID)+"/artwork", "")
}

func (c *Client) newRequest(ctx context.Context, method, path, authHeader string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	return req, nil
}

func (c *Client) get(ctx context.Context, path, authHeader string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, authHeader, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// checkStatus maps credential rejections onto the library error taxonomy so
// callers can distinguish them from transport failures.
func checkStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: server rejected credential", library.ErrUnauthenticated)
	case status == http.StatusForbidden:
		return fmt.Errorf("%w: server reports credential expired", library.ErrExpired)
	default:
		return fmt.Errorf("unexpected status: %d", status)
	}
}
