package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	Method string
	Path   string
	Token  string
	Body   string
}

func newMapboxServer(t *testing.T, status map[string]int) (*httptest.Server, *[]recordedCall) {
	t.Helper()
	var mu sync.Mutex
	calls := []recordedCall{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := recordedCall{Method: r.Method, Path: r.URL.Path, Token: r.URL.Query().Get("access_token")}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			f, _, err := r.FormFile("file")
			require.NoError(t, err)
			data, _ := io.ReadAll(f)
			call.Body = string(data)
		} else {
			data, _ := io.ReadAll(r.Body)
			call.Body = string(data)
		}
		mu.Lock()
		calls = append(calls, call)
		mu.Unlock()

		key := r.Method + " " + r.URL.Path
		if code, ok := status[key]; ok {
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"message":"nope"}`))
			return
		}
		switch {
		case r.Method == http.MethodDelete && strings.Contains(r.URL.Path, "/sources/"):
			w.WriteHeader(http.StatusNoContent)
		case strings.Contains(r.URL.Path, "/sources/"):
			_, _ = w.Write([]byte(`{"id":"mapbox://tileset-source/terraso/abc"}`))
		case strings.HasSuffix(r.URL.Path, "/jobs"):
			assert.Equal(t, "success", r.URL.Query().Get("stage"))
			_, _ = w.Write([]byte(`[{"id":"job1","stage":"success"}]`))
		default:
			_, _ = w.Write([]byte(`{"message":"ok"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func twoPoints() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{-72.5, 41.3}))
	fc.Append(geojson.NewFeature(orb.Point{-72.6, 41.4}))
	return fc
}

func TestCreateTileset(t *testing.T) {
	srv, calls := newMapboxServer(t, nil)
	c := NewClient(srv.URL+"/", "terraso", "tok")

	id, err := c.CreateTileset(context.Background(), "abc", twoPoints(), "Wells", "Wells - north basin")
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	require.Len(t, *calls, 3)
	source, create, publish := (*calls)[0], (*calls)[1], (*calls)[2]

	assert.Equal(t, "POST /tilesets/v1/sources/terraso/abc", source.Method+" "+source.Path)
	assert.Equal(t, "tok", source.Token)
	lines := strings.Split(source.Body, "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"coordinates":[-72.5,41.3]`)

	assert.Equal(t, "POST /tilesets/v1/terraso.abc", create.Method+" "+create.Path)
	var req tilesetRequest
	require.NoError(t, json.Unmarshal([]byte(create.Body), &req))
	assert.Equal(t, "Wells", req.Name)
	assert.Equal(t, "mapbox://tileset-source/terraso/abc", req.Recipe.Layers["abc"].Source)
	assert.Equal(t, 14, req.Recipe.Layers["abc"].MaxZoom)

	assert.Equal(t, "POST /tilesets/v1/terraso.abc/publish", publish.Method+" "+publish.Path)
}

func TestCreateTilesetStopsOnSourceError(t *testing.T) {
	srv, calls := newMapboxServer(t, map[string]int{"POST /tilesets/v1/sources/terraso/abc": http.StatusUnprocessableEntity})
	c := NewClient(srv.URL, "terraso", "tok")

	_, err := c.CreateTileset(context.Background(), "abc", twoPoints(), "Wells", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Len(t, *calls, 1)
}

func TestRemoveTileset(t *testing.T) {
	srv, calls := newMapboxServer(t, nil)
	c := NewClient(srv.URL, "terraso", "tok")

	require.NoError(t, c.RemoveTileset(context.Background(), "abc"))
	require.Len(t, *calls, 2)
	assert.Equal(t, "DELETE /tilesets/v1/terraso.abc", (*calls)[0].Method+" "+(*calls)[0].Path)
	assert.Equal(t, "DELETE /tilesets/v1/sources/terraso/abc", (*calls)[1].Method+" "+(*calls)[1].Path)
}

func TestPublishStatus(t *testing.T) {
	srv, _ := newMapboxServer(t, nil)
	c := NewClient(srv.URL, "terraso", "tok")
	ready, err := c.PublishStatus(context.Background(), "abc")
	require.NoError(t, err)
	assert.True(t, ready)

	srv, _ = newMapboxServer(t, map[string]int{"GET /tilesets/v1/terraso.abc/jobs": http.StatusNotFound})
	c = NewClient(srv.URL, "terraso", "tok")
	ready, err = c.PublishStatus(context.Background(), "abc")
	assert.Error(t, err)
	assert.False(t, ready)
}
