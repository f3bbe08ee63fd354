package notify

import (
	"context"
	"testing"
	"time"

	"github.com/container-engine/container-engine/domain/model"
)

func TestHubDeliversToSubscriber(t *testing.T) {
	ctx := context.Background()
	h := NewHub()
	ch, cancel := h.Subscribe(ctx, "user-1")
	defer cancel()

	h.Publish(ctx, model.Event{UserID: "user-1", Type: model.EventDeploymentStatus, Status: model.StatusRunning})

	select {
	case ev := <-ch:
		if ev.Status != model.StatusRunning {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("event not delivered")
	}
}

func TestHubDropsWithoutSubscriber(t *testing.T) {
	ctx := context.Background()
	h := NewHub()
	// Nobody listening for user-2; must not block or panic.
	h.Publish(ctx, model.Event{UserID: "user-2", Type: model.EventDeploymentStatus})
}

func TestHubIsolatesUsers(t *testing.T) {
	ctx := context.Background()
	h := NewHub()
	ch1, cancel1 := h.Subscribe(ctx, "user-1")
	defer cancel1()
	_, cancel2 := h.Subscribe(ctx, "user-2")
	defer cancel2()

	h.Publish(ctx, model.Event{UserID: "user-2", Type: model.EventDeploymentStatus})

	select {
	case ev := <-ch1:
		t.Fatalf("user-1 received user-2 event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	ctx := context.Background()
	h := NewHub()
	ch, cancel := h.Subscribe(ctx, "user-1")
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("channel not closed after cancel")
	}
	// Publishing after cancel must not panic.
	h.Publish(ctx, model.Event{UserID: "user-1"})
}
