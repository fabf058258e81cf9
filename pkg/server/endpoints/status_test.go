package endpoints

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/techmatters/terraso-go/pkg/server/store"
)

func TestHandleStatus(t *testing.T) {
	t.Run("returns HTML status page", func(t *testing.T) {
		handler := handleStatus("http://localhost:8000/", "http://localhost:3000")

		req := httptest.NewRequest("GET", "/", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "Your Terraso server is running!")
		assert.Contains(t, w.Body.String(), "http://localhost:8000/api/v1")
	})

	t.Run("returns JSON when Accept header is application/json", func(t *testing.T) {
		handler := handleStatus("", "")

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Accept", "application/json")
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
		assert.JSONEq(t, `{"version":"dev"}`, w.Body.String())
	})
}

func TestHandleHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		health := &MockHealthStore{}
		health.On("SchemaStatus", mock.Anything).Return(store.SchemaStatus{Version: 5}, nil)

		w := httptest.NewRecorder()
		handleHealth(health)(w, httptest.NewRequest("GET", "/healthz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok","database":"ok","schemaVersion":5}`, w.Body.String())
	})

	t.Run("dirty migration", func(t *testing.T) {
		health := &MockHealthStore{}
		health.On("SchemaStatus", mock.Anything).Return(store.SchemaStatus{Version: 3, Dirty: true}, nil)

		w := httptest.NewRecorder()
		handleHealth(health)(w, httptest.NewRequest("GET", "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "migration 3 is dirty")
	})

	t.Run("database down", func(t *testing.T) {
		health := &MockHealthStore{}
		health.On("SchemaStatus", mock.Anything).Return(store.SchemaStatus{}, errors.New("connection refused"))

		w := httptest.NewRecorder()
		handleHealth(health)(w, httptest.NewRequest("GET", "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "connection refused")
	})
}
