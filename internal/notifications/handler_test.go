package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nniahq/portal-api/pkg/logging"
)

type stubStore struct {
	notifs []Notification
	unread int
	readID string
}

func (s *stubStore) ListByClient(_ context.Context, clientID string) ([]Notification, error) {
	return s.notifs, nil
}

func (s *stubStore) Create(_ context.Context, n Notification) (*Notification, error) {
	if n.Title == "" {
		return nil, fmt.Errorf("notifications: title is required")
	}
	n.ID = "new-id"
	n.CreatedAt = time.Now().UTC()
	return &n, nil
}

func (s *stubStore) MarkRead(_ context.Context, id string) error {
	if id == "missing" {
		return fmt.Errorf("notifications: %s not found", id)
	}
	s.readID = id
	return nil
}

func (s *stubStore) UnreadCount(_ context.Context, clientID string) (int, error) {
	return s.unread, nil
}

func TestListIncludesUnreadCount(t *testing.T) {
	h := NewHandler(&stubStore{
		notifs: []Notification{{ID: "n1", ClientID: "client-1", Title: "hello"}},
		unread: 1,
	}, logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/nnia/notifications?clientId=client-1", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Notifications []Notification `json:"notifications"`
		Unread        int            `json:"unread"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Notifications) != 1 || resp.Unread != 1 {
		t.Errorf("unexpected payload: %+v", resp)
	}
}

func TestListRequiresClientID(t *testing.T) {
	h := NewHandler(&stubStore{}, logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/nnia/notifications", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateReturnsCreated(t *testing.T) {
	h := NewHandler(&stubStore{}, logging.Default())

	body, _ := json.Marshal(Notification{ClientID: "client-1", Title: "New request"})
	req := httptest.NewRequest(http.MethodPost, "/nnia/notifications", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
}

func TestCreateRejectsMissingTitle(t *testing.T) {
	h := NewHandler(&stubStore{}, logging.Default())

	body, _ := json.Marshal(Notification{ClientID: "client-1"})
	req := httptest.NewRequest(http.MethodPost, "/nnia/notifications", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMarkReadRoutes(t *testing.T) {
	store := &stubStore{}
	h := NewHandler(store, logging.Default())

	r := chi.NewRouter()
	r.Post("/nnia/notifications/{id}/read", h.MarkRead)

	req := httptest.NewRequest(http.MethodPost, "/nnia/notifications/n1/read", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.readID != "n1" {
		t.Errorf("read id = %q, want n1", store.readID)
	}

	req = httptest.NewRequest(http.MethodPost, "/nnia/notifications/missing/read", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
