package livestatus

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotkeeper/internal/domain"
	"slotkeeper/internal/pkg/logging"
)

func TestHub_PublishIsNonBlocking(t *testing.T) {
	h := NewHub()
	c := h.register("hb-1")

	for i := 0; i < sendBuffer+5; i++ {
		h.Publish("hb-1", domain.StateConfirmed)
	}
	assert.Len(t, c.send, sendBuffer)
	assert.Equal(t, 0, h.Publish("hb-unknown", domain.StateConfirmed))

	h.unregister("hb-1", c)
	assert.Equal(t, 0, h.SubscriberCount("hb-1"))
}

func TestHandler_StreamsStateChanges(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	router := gin.New()
	NewHandler(hub, nil, logging.Discard()).RegisterRoutes(router.Group("/api/v1"), func(c *gin.Context) { c.Next() })

	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/bookings/hb-1/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.SubscriberCount("hb-1") == 1 }, time.Second, 10*time.Millisecond)
	hub.Publish("hb-1", domain.StateConfirmed)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg StateMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "booking_state", msg.Type)
	assert.Equal(t, "hb-1", msg.BookingID)
	assert.Equal(t, domain.StateConfirmed, msg.State)
}
