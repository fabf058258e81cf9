package endpoints

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestTokenFromQuery(t *testing.T) {
	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	})

	tokenFromQuery(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/ws/notifications?token=abc", nil))
	assert.Equal(t, "Bearer abc", got)

	req := httptest.NewRequest("GET", "/ws/notifications?token=abc", nil)
	req.Header.Set("Authorization", "Bearer header")
	tokenFromQuery(next).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "Bearer header", got)
}

func TestHandleNotifications(t *testing.T) {
	user := newTestUser("ana@example.org")
	hub := &MockPusher{}
	hub.On("ServeWS", mock.Anything, mock.Anything, user.ID).Return(nil)

	handleNotifications(hub)(httptest.NewRecorder(), newRequest(t, "GET", "/ws/notifications", nil, user, nil))

	hub.AssertExpectations(t)
}
