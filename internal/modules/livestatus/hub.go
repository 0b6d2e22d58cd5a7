package livestatus

import (
	"sync"

	"slotkeeper/internal/domain"
)

const sendBuffer = 16

// StateMessage is pushed to subscribers whenever a booking's state changes.
type StateMessage struct {
	Type      string                `json:"type"`
	BookingID string                `json:"booking_id"`
	State     domain.LifecycleState `json:"state"`
}

type client struct {
	send chan StateMessage
}

// Hub fans booking state changes out to websocket subscribers keyed by
// remote booking id.
type Hub struct {
	subscribers map[string]map[*client]struct{}
	mutex       sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*client]struct{}),
	}
}

func (h *Hub) register(bookingID string) *client {
	c := &client{send: make(chan StateMessage, sendBuffer)}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.subscribers[bookingID] == nil {
		h.subscribers[bookingID] = make(map[*client]struct{})
	}
	h.subscribers[bookingID][c] = struct{}{}
	return c
}

func (h *Hub) unregister(bookingID string, c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	subs, ok := h.subscribers[bookingID]
	if !ok {
		return
	}
	if _, ok := subs[c]; ok {
		delete(subs, c)
		close(c.send)
	}
	if len(subs) == 0 {
		delete(h.subscribers, bookingID)
	}
}

// Publish never blocks: a subscriber whose buffer is full misses the message.
func (h *Hub) Publish(bookingID string, state domain.LifecycleState) int {
	msg := StateMessage{Type: "booking_state", BookingID: bookingID, State: state}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	delivered := 0
	for c := range h.subscribers[bookingID] {
		select {
		case c.send <- msg:
			delivered++
		default:
		}
	}
	return delivered
}

func (h *Hub) SubscriberCount(bookingID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.subscribers[bookingID])
}

func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for bookingID, subs := range h.subscribers {
		for c := range subs {
			close(c.send)
		}
		delete(h.subscribers, bookingID)
	}
}
