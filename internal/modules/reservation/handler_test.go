package reservation

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"slotkeeper/internal/clock"
	"slotkeeper/internal/pkg/logging"
)

func performRequest(r http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newRouter(t *testing.T, sched *spyScheduler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc := NewService(testCatalog(t), sched, &spyStore{}, clock.NewFixed(time.Now()), logging.Discard())
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestHandler_Reserve(t *testing.T) {
	sched := &spyScheduler{remoteID: "hb-9"}
	w := performRequest(newRouter(t, sched), http.MethodPost, "/api/v1/reservations",
		[]byte(`{"service_id":"x","start":"2025-11-17T10:00:00Z","end":"2025-11-17T11:00:00Z","customer":{"email":"ada@example.com"}}`))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"remote_booking_id":"hb-9"`)
	assert.Contains(t, w.Body.String(), `"is_temporary":true`)
}

func TestHandler_ReserveRejectsBadInput(t *testing.T) {
	sched := &spyScheduler{remoteID: "hb-9"}
	r := newRouter(t, sched)

	w := performRequest(r, http.MethodPost, "/api/v1/reservations", []byte(`{"service_id":"x","start":"2025-11-17T10:00:00Z","end":"2025-11-17T09:00:00Z"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_REQUEST")

	w = performRequest(r, http.MethodPost, "/api/v1/reservations", []byte(`{"service_id":"x","start":"2025-11-17T10:00:00Z","customer":{"email":"not-an-email"}}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(r, http.MethodPost, "/api/v1/reservations", []byte(`{`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, 0, sched.calls)
}
