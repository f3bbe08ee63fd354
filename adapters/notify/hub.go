package notify

import (
	"context"
	"sync"

	"github.com/container-engine/container-engine/domain"
	"github.com/container-engine/container-engine/domain/model"
	"github.com/container-engine/container-engine/internal/logging"
)

// Hub is an in-process event fan-out keyed by user. Events for users with no
// active subscribers are dropped; slow subscribers lose events rather than
// blocking the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[int]chan model.Event
	next int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan model.Event)}
}

// Publish delivers an event to every subscriber of its user.
func (h *Hub) Publish(ctx context.Context, ev model.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	chans, ok := h.subs[ev.UserID]
	if !ok || len(chans) == 0 {
		return
	}
	logger := logging.FromContext(ctx)
	for _, ch := range chans {
		select {
		case ch <- ev:
		default:
			logger.Warn(ctx, "dropping event for slow subscriber", "userID", ev.UserID, "type", ev.Type)
		}
	}
}

// Subscribe registers a live event stream for a user. The returned cancel
// function must be called to release the subscription.
func (h *Hub) Subscribe(_ context.Context, userID string) (<-chan model.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[int]chan model.Event)
	}
	id := h.next
	h.next++
	ch := make(chan model.Event, 16)
	h.subs[userID][id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if chans, ok := h.subs[userID]; ok {
			if c, ok := chans[id]; ok {
				delete(chans, id)
				close(c)
			}
			if len(chans) == 0 {
				delete(h.subs, userID)
			}
		}
	}
	return ch, cancel
}

var _ domain.Notifier = (*Hub)(nil)
