package endpoints

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unitSquare = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}]}`

func TestHandleCalculateArea(t *testing.T) {
	t.Run("polygon", func(t *testing.T) {
		w := httptest.NewRecorder()
		handleCalculateArea()(w, httptest.NewRequest("POST", "/api/v1/gis/area", strings.NewReader(unitSquare)))

		require.Equal(t, http.StatusOK, w.Code)
		var res areaResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.InEpsilon(t, 12391399902.0, res.AreaM2, 0.01)
		assert.InEpsilon(t, res.AreaM2/10000, res.AreaHectares, 0.0001)
		require.NotNil(t, res.Center)
		assert.InDelta(t, 0.5, res.Center.Lat, 0.01)
	})

	t.Run("empty collection has no area", func(t *testing.T) {
		w := httptest.NewRecorder()
		handleCalculateArea()(w, httptest.NewRequest("POST", "/", strings.NewReader(`{"type":"FeatureCollection","features":[]}`)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"areaM2":0`)
	})

	t.Run("garbage", func(t *testing.T) {
		w := httptest.NewRecorder()
		handleCalculateArea()(w, httptest.NewRequest("POST", "/", strings.NewReader(`not json`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_geojson", decodeError(t, w).Code)
	})
}

func multipartFile(t *testing.T, field, name, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest("POST", "/api/v1/gis/parse", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleParseGISFile(t *testing.T) {
	t.Run("geojson passes through", func(t *testing.T) {
		w := httptest.NewRecorder()
		handleParseGISFile()(w, multipartFile(t, "file", "boundary.geojson", unitSquare))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "FeatureCollection")
	})

	t.Run("missing field", func(t *testing.T) {
		w := httptest.NewRecorder()
		handleParseGISFile()(w, multipartFile(t, "other", "boundary.geojson", unitSquare))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_upload", decodeError(t, w).Code)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		w := httptest.NewRecorder()
		handleParseGISFile()(w, multipartFile(t, "file", "boundary.docx", "hello"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
