package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/container-engine/container-engine/adapters/store/memory"
	"github.com/container-engine/container-engine/domain/model"
)

func registerHook(t *testing.T, repo *memory.InMemoryWebhookRepository, userID, url, secret string, events []string) *model.Webhook {
	t.Helper()
	hook := &model.Webhook{UserID: userID, URL: url, Secret: secret, Events: events, Active: true}
	if err := repo.Create(context.Background(), hook); err != nil {
		t.Fatalf("create webhook: %v", err)
	}
	return hook
}

func TestDispatchDeliversPayload(t *testing.T) {
	var gotBody []byte
	var gotSig, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get(headerSignature)
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	repo := memory.NewInMemoryWebhookRepository()
	registerHook(t, repo, "user-1", srv.URL, "s3cret", []string{model.EventDeploymentStatus})

	d := NewDispatcher(repo)
	d.Dispatch(context.Background(), model.Event{
		DeploymentID: "dep-1",
		UserID:       "user-1",
		Type:         model.EventDeploymentStatus,
		Status:       model.StatusRunning,
		AppName:      "my-app",
		URL:          "http://my-app.example.org",
		Timestamp:    time.Now(),
	})

	var p payload
	if err := json.Unmarshal(gotBody, &p); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if p.DeploymentID != "dep-1" || p.Status != "running" || p.AppName != "my-app" {
		t.Fatalf("payload = %+v", p)
	}
	if gotUA != userAgent {
		t.Fatalf("user agent = %s", gotUA)
	}
	if gotSig != Sign("s3cret", gotBody) {
		t.Fatalf("signature mismatch: %s", gotSig)
	}
}

func TestDispatchCarriesFailureDetail(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	repo := memory.NewInMemoryWebhookRepository()
	registerHook(t, repo, "user-1", srv.URL, "", []string{model.EventDeploymentFailed})

	d := NewDispatcher(repo)
	d.Dispatch(context.Background(), model.Event{
		DeploymentID: "dep-1",
		UserID:       "user-1",
		Type:         model.EventDeploymentFailed,
		Status:       model.StatusFailed,
		AppName:      "my-app",
		ErrorMsg:     "image quota exceeded",
		Timestamp:    time.Now(),
	})

	var raw map[string]any
	if err := json.Unmarshal(gotBody, &raw); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if raw["error_message"] != "image quota exceeded" {
		t.Fatalf("error_message = %v, failure detail lost", raw["error_message"])
	}
}

func TestDispatchFiltersEvents(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	repo := memory.NewInMemoryWebhookRepository()
	registerHook(t, repo, "user-1", srv.URL, "", []string{model.EventDomainVerified})

	d := NewDispatcher(repo)
	d.Dispatch(context.Background(), model.Event{UserID: "user-1", Type: model.EventDeploymentStatus})
	if calls.Load() != 0 {
		t.Fatalf("unsubscribed webhook was called")
	}

	d.Dispatch(context.Background(), model.Event{UserID: "user-1", Type: model.EventDomainVerified})
	if calls.Load() != 1 {
		t.Fatalf("subscribed webhook was not called")
	}
}

func TestDispatchAllWildcard(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	repo := memory.NewInMemoryWebhookRepository()
	registerHook(t, repo, "user-1", srv.URL, "", []string{model.EventAll})

	d := NewDispatcher(repo)
	d.Dispatch(context.Background(), model.Event{UserID: "user-1", Type: model.EventDeploymentStatus})
	d.Dispatch(context.Background(), model.Event{UserID: "user-1", Type: model.EventCertIssued})
	if calls.Load() != 2 {
		t.Fatalf("wildcard webhook calls = %d, want 2", calls.Load())
	}
}

func TestDispatchSkipsInactive(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	repo := memory.NewInMemoryWebhookRepository()
	hook := registerHook(t, repo, "user-1", srv.URL, "", []string{model.EventAll})
	hook.Active = false
	if err := repo.Update(context.Background(), hook); err != nil {
		t.Fatalf("update webhook: %v", err)
	}

	d := NewDispatcher(repo)
	d.Dispatch(context.Background(), model.Event{UserID: "user-1", Type: model.EventDeploymentStatus})
	if calls.Load() != 0 {
		t.Fatalf("inactive webhook was called")
	}
}

func TestDispatchSurvivesEndpointErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	repo := memory.NewInMemoryWebhookRepository()
	registerHook(t, repo, "user-1", srv.URL, "", []string{model.EventAll})

	d := NewDispatcher(repo)
	// Must not panic or propagate the failure.
	d.Dispatch(context.Background(), model.Event{UserID: "user-1", Type: model.EventDeploymentStatus})
}
