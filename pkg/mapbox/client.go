package mapbox

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

	"github.com/paulmach/orb/geojson"
)

// API is what the tileset publisher needs from Mapbox.
type API interface {
	CreateTileset(ctx context.Context, id string, fc *geojson.FeatureCollection, name, description string) (string, error)
	RemoveTileset(ctx context.Context, id string) error
	PublishStatus(ctx context.Context, id string) (bool, error)
}

// Client talks to the Mapbox Tiling Service.
type Client struct {
	baseURL  string
	username string
	token    string
	http     *http.Client
}

var _ API = (*Client)(nil)

func NewClient(baseURL, username, token string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		token:    token,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

type recipeLayer struct {
	Source  string `json:"source"`
	MinZoom int    `json:"minzoom"`
	MaxZoom int    `json:"maxzoom"`
}

type recipe struct {
	Version int                    `json:"version"`
	Layers  map[string]recipeLayer `json:"layers"`
}

type attribution struct {
	Text string `json:"text"`
	Link string `json:"link"`
}

type tilesetRequest struct {
	Recipe      recipe        `json:"recipe"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Attribution []attribution `json:"attribution"`
}

// CreateTileset uploads fc as a tileset source, creates a tileset reading
// from it and starts publishing. The returned id is the one to store.
func (c *Client) CreateTileset(ctx context.Context, id string, fc *geojson.FeatureCollection, name, description string) (string, error) {
	body, err := c.postSource(ctx, id, fc)
	if err != nil {
		return "", err
	}
	var source struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &source); err != nil {
		return "", fmt.Errorf("failed to decode tileset source: %w", err)
	}

	req := tilesetRequest{
		Recipe: recipe{
			Version: 1,
			Layers:  map[string]recipeLayer{id: {Source: source.ID, MinZoom: 0, MaxZoom: 14}},
		},
		Name:        name,
		Description: description,
		Attribution: []attribution{{Text: fmt.Sprintf("© %d Terraso", time.Now().Year())}},
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	if _, err := c.do(ctx, "create tileset", http.MethodPost, c.tilesetURL(id, ""), "application/json", bytes.NewReader(payload), http.StatusOK); err != nil {
		return "", err
	}
	if _, err := c.do(ctx, "publish tileset", http.MethodPost, c.tilesetURL(id, "/publish"), "", nil, http.StatusOK); err != nil {
		return "", err
	}
	return id, nil
}

// RemoveTileset deletes the tileset and then its source.
func (c *Client) RemoveTileset(ctx context.Context, id string) error {
	if _, err := c.do(ctx, "delete tileset", http.MethodDelete, c.tilesetURL(id, ""), "", nil, http.StatusOK); err != nil {
		return err
	}
	_, err := c.do(ctx, "delete tileset source", http.MethodDelete, c.sourceURL(id), "", nil, http.StatusNoContent)
	return err
}

// PublishStatus reports whether a publish job for the tileset succeeded.
func (c *Client) PublishStatus(ctx context.Context, id string) (bool, error) {
	target := c.tilesetURL(id, "/jobs") + "&stage=success"
	body, err := c.do(ctx, "tileset jobs", http.MethodGet, target, "", nil, http.StatusOK)
	if err != nil {
		return false, err
	}
	var jobs []json.RawMessage
	if err := json.Unmarshal(body, &jobs); err != nil {
		return false, fmt.Errorf("failed to decode tileset jobs: %w", err)
	}
	return len(jobs) > 0, nil
}

// postSource uploads the features as line delimited GeoJSON.
func (c *Client) postSource(ctx context.Context, id string, fc *geojson.FeatureCollection) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", id+".ndjson")
	if err != nil {
		return nil, err
	}
	for i, f := range fc.Features {
		line, err := f.MarshalJSON()
		if err != nil {
			return nil, err
		}
		if i > 0 {
			_, _ = part.Write([]byte{'\n'})
		}
		_, _ = part.Write(line)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return c.do(ctx, "create tileset source", http.MethodPost, c.sourceURL(id), mw.FormDataContentType(), &buf, http.StatusOK)
}

func (c *Client) tilesetURL(id, suffix string) string {
	return fmt.Sprintf("%s/tilesets/v1/%s.%s%s?access_token=%s", c.baseURL, c.username, id, suffix, url.QueryEscape(c.token))
}

func (c *Client) sourceURL(id string) string {
	return fmt.Sprintf("%s/tilesets/v1/sources/%s/%s?access_token=%s", c.baseURL, c.username, id, url.QueryEscape(c.token))
}

func (c *Client) do(ctx context.Context, op, method, target, contentType string, body io.Reader, want int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mapbox %s: %w", op, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != want {
		return nil, fmt.Errorf("mapbox %s returned %d: %s", op, resp.StatusCode, bytes.TrimSpace(data))
	}
	return data, nil
}
