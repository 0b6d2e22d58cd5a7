package reschedule

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotkeeper/internal/middleware"
	"slotkeeper/internal/pkg/jwt"
	"slotkeeper/internal/pkg/logging"
)

func newRouter(t *testing.T, f *fixture, tokens *jwt.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(f.service(slotStart.Add(-100 * time.Hour)))
	h.RegisterRoutes(r.Group("/api/v1"), middleware.ManageTokenAuth(tokens, logging.Discard()))
	return r
}

func post(r http.Handler, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_RescheduleRequiresToken(t *testing.T) {
	f := newFixture(t)
	tokens := jwt.New("secret", time.Hour)
	r := newRouter(t, f, tokens)

	w := post(r, "/api/v1/bookings/rb-1/reschedule", "", []byte(`{"start":"2025-11-24T10:00:00Z"}`))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, f.sched.updates)
}

func TestHandler_RescheduleWithToken(t *testing.T) {
	f := newFixture(t)
	tokens := jwt.New("secret", time.Hour)
	token, err := tokens.GenerateToken(f.booking.ID, "rb-1", "ada@example.com")
	require.NoError(t, err)

	w := post(newRouter(t, f, tokens), "/api/v1/bookings/rb-1/reschedule", token, []byte(`{"start":"2025-11-24T10:00:00Z"}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, f.sched.updates, 1)
}

func TestHandler_TokenForOtherBookingIsForbidden(t *testing.T) {
	f := newFixture(t)
	tokens := jwt.New("secret", time.Hour)
	token, err := tokens.GenerateToken("other", "rb-2", "eve@example.com")
	require.NoError(t, err)

	w := post(newRouter(t, f, tokens), "/api/v1/bookings/rb-1/cancel", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, f.sched.cancels)
}

func TestHandler_CutoffViolationIsConflict(t *testing.T) {
	f := newFixture(t)
	tokens := jwt.New("secret", time.Hour)
	token, err := tokens.GenerateToken(f.booking.ID, "rb-1", "ada@example.com")
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(f.service(slotStart.Add(-10*time.Hour))).
		RegisterRoutes(r.Group("/api/v1"), middleware.ManageTokenAuth(tokens, logging.Discard()))

	w := post(r, "/api/v1/bookings/rb-1/cancel", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "hours_remaining")
}
