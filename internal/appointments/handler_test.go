package appointments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/nniahq/portal-api/pkg/logging"
)

type stubStore struct {
	appts   []Appointment
	listErr error

	created   *Appointment
	deletedID string
}

func (s *stubStore) ListByClient(_ context.Context, clientID string) ([]Appointment, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.appts, nil
}

func (s *stubStore) Create(_ context.Context, a Appointment) (*Appointment, error) {
	a.ID = "new-id"
	s.created = &a
	return &a, nil
}

func (s *stubStore) Update(_ context.Context, id string, params UpdateParams) (*Appointment, error) {
	if id == "missing" {
		return nil, fmt.Errorf("appointments: %s not found", id)
	}
	a := Appointment{ID: id, ClientID: "client-1"}
	if params.Status != nil {
		a.Status = *params.Status
	}
	return &a, nil
}

func (s *stubStore) Delete(_ context.Context, id string) error {
	if id == "missing" {
		return fmt.Errorf("appointments: %s not found", id)
	}
	s.deletedID = id
	return nil
}

func newTestHandler(store *stubStore) *Handler {
	return NewHandler(store, logging.Default())
}

func TestHandlerListRequiresClientID(t *testing.T) {
	h := newTestHandler(&stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/nnia/appointments", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerListReturnsEnvelope(t *testing.T) {
	h := newTestHandler(&stubStore{appts: []Appointment{
		{ID: "a1", ClientID: "client-1", Date: "2024-01-10", Time: "09:00", Status: StatusPending},
	}})

	req := httptest.NewRequest(http.MethodGet, "/nnia/appointments?clientId=client-1", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Appointments []Appointment `json:"appointments"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Appointments) != 1 || resp.Appointments[0].ID != "a1" {
		t.Errorf("unexpected payload: %+v", resp)
	}
}

func TestHandlerListEmptyIsNotNull(t *testing.T) {
	h := newTestHandler(&stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/nnia/appointments?clientId=client-1", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if got := rec.Body.String(); !bytes.Contains([]byte(got), []byte(`"appointments":[]`)) {
		t.Fatalf("expected empty array in body, got %s", got)
	}
}

func TestHandlerCreateValidatesDateTime(t *testing.T) {
	h := newTestHandler(&stubStore{})

	body, _ := json.Marshal(Appointment{ClientID: "client-1", Date: "soon", Time: "09:00"})
	req := httptest.NewRequest(http.MethodPost, "/nnia/appointments", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerCreateReturnsAppointment(t *testing.T) {
	store := &stubStore{}
	h := newTestHandler(store)

	body, _ := json.Marshal(Appointment{ClientID: "client-1", Date: "2024-01-10", Time: "09:00"})
	req := httptest.NewRequest(http.MethodPost, "/nnia/appointments", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	var resp struct {
		Appointment Appointment `json:"appointment"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Appointment.ID != "new-id" {
		t.Errorf("ID = %q, want new-id", resp.Appointment.ID)
	}
}

func TestHandlerUpdateNotFound(t *testing.T) {
	h := newTestHandler(&stubStore{})

	r := chi.NewRouter()
	r.Put("/nnia/appointments/{id}", h.Update)

	body, _ := json.Marshal(map[string]string{"status": "confirmed"})
	req := httptest.NewRequest(http.MethodPut, "/nnia/appointments/missing", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandlerDeleteSuccess(t *testing.T) {
	store := &stubStore{}
	h := newTestHandler(store)

	r := chi.NewRouter()
	r.Delete("/nnia/appointments/{id}", h.Delete)

	req := httptest.NewRequest(http.MethodDelete, "/nnia/appointments/appt-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.deletedID != "appt-1" {
		t.Errorf("deleted id = %q, want appt-1", store.deletedID)
	}
	var resp map[string]bool
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp["success"] {
		t.Errorf("expected success true")
	}
}
