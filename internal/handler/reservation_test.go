package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/salasapp/reserva-salas/internal/model"
	"github.com/salasapp/reserva-salas/internal/repository"
	"github.com/salasapp/reserva-salas/internal/schedule"
	"github.com/salasapp/reserva-salas/internal/service"
)

// fakeStore is an in-memory service.ReservationStore for HTTP tests. It
// mirrors the repository contract: sql.ErrNoRows for missing rows and
// repository.ErrSlotTaken when an insert or update loses to an overlap.
type fakeStore struct {
	nextID uint64
	items  []model.Reservation
}

func (s *fakeStore) ListByOwner(_ context.Context, ownerID uint64) ([]model.Reservation, error) {
	var out []model.Reservation
	for _, r := range s.items {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) GetByIDForOwner(_ context.Context, id, ownerID uint64) (model.Reservation, error) {
	for _, r := range s.items {
		if r.ID == id && r.OwnerID == ownerID {
			return r, nil
		}
	}
	return model.Reservation{}, sql.ErrNoRows
}

func (s *fakeStore) ListForRoomDay(_ context.Context, room string, day time.Time) ([]model.Reservation, error) {
	var out []model.Reservation
	for _, r := range s.items {
		if r.Room == room && r.Day.Equal(day) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) HasConflict(_ context.Context, room string, day time.Time, start, end string, excludeID uint64) (bool, error) {
	for _, r := range s.items {
		if r.ID == excludeID || r.Room != room || !r.Day.Equal(day) {
			continue
		}
		if schedule.Overlaps(r.StartTime, r.EndTime, start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) Insert(ctx context.Context, res *model.Reservation) error {
	if conflict, _ := s.HasConflict(ctx, res.Room, res.Day, res.StartTime, res.EndTime, 0); conflict {
		return repository.ErrSlotTaken
	}
	s.nextID++
	res.ID = s.nextID
	res.CreatedAt = time.Now().UTC()
	res.UpdatedAt = res.CreatedAt
	s.items = append(s.items, *res)
	return nil
}

func (s *fakeStore) Update(ctx context.Context, res *model.Reservation) error {
	if conflict, _ := s.HasConflict(ctx, res.Room, res.Day, res.StartTime, res.EndTime, res.ID); conflict {
		return repository.ErrSlotTaken
	}
	for i, r := range s.items {
		if r.ID == res.ID && r.OwnerID == res.OwnerID {
			res.CreatedAt = r.CreatedAt
			res.UpdatedAt = time.Now().UTC()
			s.items[i] = *res
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *fakeStore) Delete(_ context.Context, id, ownerID uint64) error {
	for i, r := range s.items {
		if r.ID == id && r.OwnerID == ownerID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

// newTestServer wires the reservation routes behind a middleware that
// stamps the given user id into the context, standing in for JWTAuth.
func newTestServer(uid uint64) (*echo.Echo, *fakeStore) {
	store := &fakeStore{}
	h := NewReservationHandler(service.NewReservationService(store), nil)

	e := echo.New()
	g := e.Group("/v1")
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if uid != 0 {
				c.Set("user_id", uid)
			}
			return next(c)
		}
	})
	g.GET("/reservations", h.List)
	g.POST("/reservations", h.Create)
	g.PATCH("/reservations/:id", h.Update)
	g.DELETE("/reservations/:id", h.Delete)
	g.GET("/rooms/:room/availability", h.Availability)
	return e, store
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestCreateReservation_Succeeds(t *testing.T) {
	e, _ := newTestServer(7)
	rec := doJSON(e, http.MethodPost, "/v1/reservations",
		`{"room":"Sala3","date":"15/07/2030","startTime":"09:00","endTime":"10:30"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["room"] != "Sala3" || body["date"] != "15/07/2030" {
		t.Errorf("unexpected payload: %v", body)
	}
	if body["startTime"] != "09:00" || body["endTime"] != "10:30" {
		t.Errorf("unexpected times: %v", body)
	}
	if id, _ := body["id"].(float64); id == 0 {
		t.Errorf("missing id in %v", body)
	}
}

func TestCreateReservation_ValidationErrors(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"missing room", `{"date":"15/07/2030","startTime":"09:00","endTime":"10:00"}`, "missing_field"},
		{"unknown room", `{"room":"Sala11","date":"15/07/2030","startTime":"09:00","endTime":"10:00"}`, "invalid_room"},
		{"bad date", `{"room":"Sala1","date":"31/02/2030","startTime":"09:00","endTime":"10:00"}`, "invalid_format"},
		{"unaligned time", `{"room":"Sala1","date":"15/07/2030","startTime":"09:10","endTime":"10:10"}`, "invalid_format"},
		{"past date", `{"room":"Sala1","date":"15/07/2020","startTime":"09:00","endTime":"10:00"}`, "past_date"},
	}
	e, _ := newTestServer(7)
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := doJSON(e, http.MethodPost, "/v1/reservations", c.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
			}
			if body := decode(t, rec); body["code"] != c.wantCode {
				t.Errorf("code = %v, want %s", body["code"], c.wantCode)
			}
		})
	}
}

func TestCreateReservation_ConflictIs409(t *testing.T) {
	e, _ := newTestServer(7)
	first := doJSON(e, http.MethodPost, "/v1/reservations",
		`{"room":"Sala1","date":"15/07/2030","startTime":"10:00","endTime":"11:00"}`)
	if first.Code != http.StatusCreated {
		t.Fatalf("setup booking failed: %d", first.Code)
	}
	rec := doJSON(e, http.MethodPost, "/v1/reservations",
		`{"room":"Sala1","date":"15/07/2030","startTime":"10:30","endTime":"11:30"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body = %s", rec.Code, rec.Body.String())
	}
	if body := decode(t, rec); body["code"] != "slot_conflict" {
		t.Errorf("code = %v, want slot_conflict", body["code"])
	}
	// Back to back is not a conflict.
	rec = doJSON(e, http.MethodPost, "/v1/reservations",
		`{"room":"Sala1","date":"15/07/2030","startTime":"11:00","endTime":"12:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("back-to-back booking: status = %d, want 201", rec.Code)
	}
}

func TestUpdateReservation_PartialPatch(t *testing.T) {
	e, _ := newTestServer(7)
	created := decode(t, doJSON(e, http.MethodPost, "/v1/reservations",
		`{"room":"Sala2","date":"15/07/2030","startTime":"09:00","endTime":"10:00"}`))
	id := int(created["id"].(float64))

	rec := doJSON(e, http.MethodPatch, "/v1/reservations/"+strconv.Itoa(id), `{"startTime":"14:00","endTime":"15:00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["room"] != "Sala2" || body["date"] != "15/07/2030" {
		t.Errorf("untouched fields changed: %v", body)
	}
	if body["startTime"] != "14:00" || body["endTime"] != "15:00" {
		t.Errorf("patch not applied: %v", body)
	}
}

func TestUpdateReservation_UnknownIDIs404(t *testing.T) {
	e, _ := newTestServer(7)
	for _, target := range []string{"/v1/reservations/999", "/v1/reservations/abc"} {
		rec := doJSON(e, http.MethodPatch, target, `{"startTime":"14:00"}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("PATCH %s: status = %d, want 404", target, rec.Code)
		}
	}
}

func TestDeleteReservation_EchoesDeletedRecord(t *testing.T) {
	e, store := newTestServer(7)
	created := decode(t, doJSON(e, http.MethodPost, "/v1/reservations",
		`{"room":"Sala4","date":"15/07/2030","startTime":"16:00","endTime":"17:00"}`))
	id := int(created["id"].(float64))

	rec := doJSON(e, http.MethodDelete, "/v1/reservations/"+strconv.Itoa(id), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	deleted, ok := decode(t, rec)["deleted"].(map[string]any)
	if !ok || deleted["room"] != "Sala4" {
		t.Errorf("unexpected delete payload: %s", rec.Body.String())
	}
	if len(store.items) != 0 {
		t.Errorf("reservation still stored after delete")
	}
	// Deleting again reports not found.
	if rec := doJSON(e, http.MethodDelete, "/v1/reservations/"+strconv.Itoa(id), ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", rec.Code)
	}
}

func TestAvailability(t *testing.T) {
	e, _ := newTestServer(7)
	if rec := doJSON(e, http.MethodPost, "/v1/reservations",
		`{"room":"Sala5","date":"15/07/2030","startTime":"09:00","endTime":"10:30"}`); rec.Code != http.StatusCreated {
		t.Fatalf("setup booking failed: %d", rec.Code)
	}

	rec := doJSON(e, http.MethodGet, "/v1/rooms/Sala5/availability?date=15/07/2030", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	slots, _ := body["freeSlots"].([]any)
	if len(slots) != schedule.SlotsPerDay-3 {
		t.Fatalf("len(freeSlots) = %d, want %d", len(slots), schedule.SlotsPerDay-3)
	}
	if slots[0] != "10:30" {
		t.Errorf("first free slot = %v, want 10:30", slots[0])
	}

	// The booking only blocks its own room and day.
	other := decode(t, doJSON(e, http.MethodGet, "/v1/rooms/Sala6/availability?date=15/07/2030", ""))
	if got, _ := other["freeSlots"].([]any); len(got) != schedule.SlotsPerDay {
		t.Errorf("other room freeSlots = %d, want %d", len(got), schedule.SlotsPerDay)
	}

	if rec := doJSON(e, http.MethodGet, "/v1/rooms/Sala99/availability?date=15/07/2030", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown room: status = %d, want 400", rec.Code)
	}
	if rec := doJSON(e, http.MethodGet, "/v1/rooms/Sala5/availability", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing date: status = %d, want 400", rec.Code)
	}
}

func TestReservations_RequireAuthenticatedUser(t *testing.T) {
	e, _ := newTestServer(0) // middleware sets no user_id
	rec := doJSON(e, http.MethodGet, "/v1/reservations", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
