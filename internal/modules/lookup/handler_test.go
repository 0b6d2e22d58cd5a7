package lookup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotkeeper/internal/database"
	"slotkeeper/internal/domain"
	"slotkeeper/internal/middleware"
	"slotkeeper/internal/pkg/jwt"
	"slotkeeper/internal/pkg/logging"
	"slotkeeper/internal/repository"
	"slotkeeper/internal/scheduling"
)

type stubRemote struct {
	locations  []string
	projectErr error
}

func (s *stubRemote) ListResources(_ context.Context, locationID string) ([]scheduling.Resource, error) {
	s.locations = append(s.locations, locationID)
	return []scheduling.Resource{{ID: "res-1", Name: "Room A", IsEnabled: true}}, nil
}

func (s *stubRemote) GetProject(context.Context) (*scheduling.Project, error) {
	if s.projectErr != nil {
		return nil, s.projectErr
	}
	return &scheduling.Project{ID: "p1"}, nil
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

type fixture struct {
	router *gin.Engine
	remote *stubRemote
	tokens *jwt.Service
	id     string
}

func newFixture(t *testing.T, storeErr error) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db))

	bookings := repository.NewBookingRepository(db)
	events := repository.NewEventRepository(db)
	start := time.Date(2025, 11, 17, 10, 0, 0, 0, time.UTC)
	b, err := bookings.UpsertHold(context.Background(), &domain.Booking{
		RemoteBookingID: "rb-1", ServiceID: "svc-x", StartAt: start, EndAt: start.Add(time.Hour),
		State: domain.StateHolding,
	})
	require.NoError(t, err)
	require.NoError(t, events.Append(context.Background(), b.ID, domain.EventFinalized, map[string]any{"payment_intent_id": "pi_1"}))

	f := &fixture{remote: &stubRemote{}, tokens: jwt.New("secret", time.Hour), id: b.ID}
	h := NewHandler(NewService(bookings, events, f.remote, stubPinger{err: storeErr}, "loc-default"))
	r := gin.New()
	h.RegisterProbes(r)
	h.RegisterRoutes(r.Group("/api/v1"), middleware.ManageTokenAuth(f.tokens, logging.Discard()))
	f.router = r
	return f
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBooking_RequiresManageToken(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, http.StatusUnauthorized, get(f.router, "/api/v1/bookings/rb-1", "").Code)

	token, err := f.tokens.GenerateToken(f.id, "rb-1", "ada@example.com")
	require.NoError(t, err)
	w := get(f.router, "/api/v1/bookings/rb-1", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authoritative":false`)
	assert.Contains(t, w.Body.String(), `"type":"finalized"`)
}

func TestBooking_UnknownIsNotFound(t *testing.T) {
	f := newFixture(t, nil)
	token, err := f.tokens.GenerateToken("x", "rb-404", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, get(f.router, "/api/v1/bookings/rb-404", token).Code)
}

func TestResources_DefaultsLocation(t *testing.T) {
	f := newFixture(t, nil)
	w := get(f.router, "/api/v1/resources", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "res-1")

	get(f.router, "/api/v1/resources?location=loc-2", "")
	assert.Equal(t, []string{"loc-default", "loc-2"}, f.remote.locations)
}

func TestProbes(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, http.StatusOK, get(f.router, "/health", "").Code)
	assert.Equal(t, http.StatusOK, get(f.router, "/ready", "").Code)

	down := newFixture(t, errors.New("connection refused"))
	w := get(down.router, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}
