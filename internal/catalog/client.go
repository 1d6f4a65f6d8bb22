package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/voyagen/tvcatalog/internal/models"
)

const defaultHTTPTimeout = 2 * time.Minute

// Client talks to the ingestion service over HTTP. baseURL is the API root,
// e.g. "http://localhost:8080/api".
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a catalog client. httpClient may be nil.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// errorResponse captures the service error envelope.
type errorResponse struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (c *Client) ListChannels(ctx context.Context, category, search string) ([]models.Channel, error) {
	q := url.Values{}
	if !models.IsAllCategory(category) {
		q.Set("category", category)
	}
	if search != "" {
		q.Set("search", search)
	}
	path := "/playlists/channels"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []models.Channel
	if err := c.do(ctx, "list channels", http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Channel{}
	}
	return out, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, "list categories", http.MethodGet, "/playlists/categories", "", nil, &out); err != nil {
		return nil, err
	}
	return models.WithAllCategory(out), nil
}

func (c *Client) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var out []models.Playlist
	if err := c.do(ctx, "list playlists", http.MethodGet, "/playlists/", "", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Playlist{}
	}
	return out, nil
}

// UploadPlaylist validates filename and sends the file as multipart form
// data with fields "file" and "name".
func (c *Client) UploadPlaylist(ctx context.Context, filename, name string, r io.Reader) (*models.Playlist, error) {
	if err := ValidatePlaylistFile(filename); err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("multipart: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.WriteField("name", name); err != nil {
		return nil, fmt.Errorf("multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("multipart: %w", err)
	}

	var p models.Playlist
	if err := c.do(ctx, "upload playlist", http.MethodPost, "/playlists/upload", mw.FormDataContentType(), &body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

type addURLRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// AddPlaylistURL validates rawURL and asks the service to ingest it.
func (c *Client) AddPlaylistURL(ctx context.Context, name, rawURL string) (*models.Playlist, error) {
	if err := ValidatePlaylistURL(rawURL); err != nil {
		return nil, err
	}
	data, err := json.Marshal(addURLRequest{Name: name, URL: rawURL})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	var p models.Playlist
	if err := c.do(ctx, "add playlist url", http.MethodPost, "/playlists/url", "application/json", bytes.NewReader(data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeletePlaylist(ctx context.Context, id string) error {
	return c.do(ctx, "delete playlist", http.MethodDelete, "/playlists/"+url.PathEscape(id), "", nil, nil)
}

func (c *Client) RefreshPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	var p models.Playlist
	if err := c.do(ctx, "refresh playlist", http.MethodPut, "/playlists/"+url.PathEscape(id)+"/refresh", "", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// do sends one request and decodes a JSON response into out (if non-nil).
// Every failure is returned as a *TransportError.
func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("new request: %w", err)}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr errorResponse
		_ = json.Unmarshal(respBody, &apiErr)
		return &TransportError{
			Op:     op,
			Status: resp.StatusCode,
			Detail: apiErr.Detail,
			Err:    fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	return nil
}
