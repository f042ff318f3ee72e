package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/salasapp/reserva-salas/internal/model"
	"github.com/salasapp/reserva-salas/internal/repository"
	"github.com/salasapp/reserva-salas/internal/schedule"
)

// memStore is an in-memory ReservationStore with the same contract as the
// MySQL repository: sql.ErrNoRows for missing owned rows and
// repository.ErrSlotTaken for overlap races. insertErr, when set, is
// returned by Insert once to simulate losing a concurrent write.
type memStore struct {
	nextID    uint64
	rows      map[uint64]model.Reservation
	insertErr error
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, rows: make(map[uint64]model.Reservation)}
}

func (m *memStore) ListByOwner(_ context.Context, ownerID uint64) ([]model.Reservation, error) {
	out := make([]model.Reservation, 0)
	for _, r := range m.rows {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) GetByIDForOwner(_ context.Context, id, ownerID uint64) (model.Reservation, error) {
	r, ok := m.rows[id]
	if !ok || r.OwnerID != ownerID {
		return model.Reservation{}, sql.ErrNoRows
	}
	return r, nil
}

func (m *memStore) ListForRoomDay(_ context.Context, room string, day time.Time) ([]model.Reservation, error) {
	out := make([]model.Reservation, 0)
	for _, r := range m.rows {
		if r.Room == room && r.Day.Equal(day) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) HasConflict(_ context.Context, room string, day time.Time, start, end string, excludeID uint64) (bool, error) {
	for _, r := range m.rows {
		if r.ID == excludeID || r.Room != room || !r.Day.Equal(day) {
			continue
		}
		if schedule.Overlaps(r.StartTime, r.EndTime, start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Insert(ctx context.Context, res *model.Reservation) error {
	if m.insertErr != nil {
		err := m.insertErr
		m.insertErr = nil
		return err
	}
	if conflict, _ := m.HasConflict(ctx, res.Room, res.Day, res.StartTime, res.EndTime, 0); conflict {
		return repository.ErrSlotTaken
	}
	res.ID = m.nextID
	m.nextID++
	m.rows[res.ID] = *res
	return nil
}

func (m *memStore) Update(ctx context.Context, res *model.Reservation) error {
	current, ok := m.rows[res.ID]
	if !ok || current.OwnerID != res.OwnerID {
		return sql.ErrNoRows
	}
	if conflict, _ := m.HasConflict(ctx, res.Room, res.Day, res.StartTime, res.EndTime, res.ID); conflict {
		return repository.ErrSlotTaken
	}
	m.rows[res.ID] = *res
	return nil
}

func (m *memStore) Delete(_ context.Context, id, ownerID uint64) error {
	r, ok := m.rows[id]
	if !ok || r.OwnerID != ownerID {
		return sql.ErrNoRows
	}
	delete(m.rows, id)
	return nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestService(store ReservationStore) *ReservationService {
	// A fixed "today" keeps the date-not-in-past rule deterministic.
	return &ReservationService{
		store: store,
		clock: fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
}

func create(t *testing.T, svc *ReservationService, owner uint64, room, date, start, end string) model.Reservation {
	t.Helper()
	res, err := svc.Create(context.Background(), CreateInput{
		OwnerID: owner, Room: room, Date: date, StartTime: start, EndTime: end,
	})
	if err != nil {
		t.Fatalf("Create(%s %s %s-%s) error: %v", room, date, start, end, err)
	}
	return res
}

func TestCreate_MissingFields(t *testing.T) {
	svc := newTestService(newMemStore())
	cases := []struct {
		name string
		in   CreateInput
	}{
		{"ownerId", CreateInput{Room: "Sala1", Date: "10/03/2026", StartTime: "09:00", EndTime: "10:00"}},
		{"room", CreateInput{OwnerID: 1, Date: "10/03/2026", StartTime: "09:00", EndTime: "10:00"}},
		{"date", CreateInput{OwnerID: 1, Room: "Sala1", StartTime: "09:00", EndTime: "10:00"}},
		{"startTime", CreateInput{OwnerID: 1, Room: "Sala1", Date: "10/03/2026", EndTime: "10:00"}},
		{"endTime", CreateInput{OwnerID: 1, Room: "Sala1", Date: "10/03/2026", StartTime: "09:00"}},
	}
	for _, c := range cases {
		_, err := svc.Create(context.Background(), c.in)
		if CodeOf(err) != CodeMissingField {
			t.Errorf("%s: code = %q, want %q", c.name, CodeOf(err), CodeMissingField)
		}
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(newMemStore())
	cases := []struct {
		name string
		in   CreateInput
		want Code
	}{
		{"unknown room", CreateInput{OwnerID: 1, Room: "Sala11", Date: "10/03/2026", StartTime: "09:00", EndTime: "10:00"}, CodeInvalidRoom},
		{"impossible date", CreateInput{OwnerID: 1, Room: "Sala1", Date: "31/02/2026", StartTime: "09:00", EndTime: "10:00"}, CodeInvalidFormat},
		{"end before start", CreateInput{OwnerID: 1, Room: "Sala1", Date: "10/03/2026", StartTime: "11:00", EndTime: "10:00"}, CodeInvalidFormat},
		{"too long", CreateInput{OwnerID: 1, Room: "Sala1", Date: "10/03/2026", StartTime: "09:00", EndTime: "13:00"}, CodeInvalidFormat},
		{"off grid", CreateInput{OwnerID: 1, Room: "Sala1", Date: "10/03/2026", StartTime: "09:15", EndTime: "10:15"}, CodeInvalidFormat},
		{"yesterday", CreateInput{OwnerID: 1, Room: "Sala1", Date: "28/02/2026", StartTime: "09:00", EndTime: "10:00"}, CodePastDate},
	}
	for _, c := range cases {
		_, err := svc.Create(context.Background(), c.in)
		if CodeOf(err) != c.want {
			t.Errorf("%s: code = %q, want %q", c.name, CodeOf(err), c.want)
		}
	}
}

func TestCreate_BackToBackBookingsDoNotConflict(t *testing.T) {
	svc := newTestService(newMemStore())
	create(t, svc, 1, "Sala1", "10/03/2026", "09:00", "10:00")
	create(t, svc, 2, "Sala1", "10/03/2026", "10:00", "11:00") // adjacent, allowed
}

func TestCreate_OverlapConflicts(t *testing.T) {
	svc := newTestService(newMemStore())
	create(t, svc, 1, "Sala1", "10/03/2026", "09:00", "10:00")
	_, err := svc.Create(context.Background(), CreateInput{
		OwnerID: 2, Room: "Sala1", Date: "10/03/2026", StartTime: "09:30", EndTime: "10:30",
	})
	if CodeOf(err) != CodeSlotConflict {
		t.Fatalf("code = %q, want %q", CodeOf(err), CodeSlotConflict)
	}
}

func TestCreate_ConflictScopedToRoomAndDay(t *testing.T) {
	svc := newTestService(newMemStore())
	create(t, svc, 1, "Sala1", "10/03/2026", "09:00", "10:00")
	create(t, svc, 2, "Sala2", "10/03/2026", "09:00", "10:00") // other room
	create(t, svc, 3, "Sala1", "11/03/2026", "09:00", "10:00") // other day
}

func TestCreate_RacingInsertSurfacesAsSlotConflict(t *testing.T) {
	// The pre-check passes but the store rejects the write, as happens
	// when a concurrent request commits first.
	store := newMemStore()
	store.insertErr = repository.ErrSlotTaken
	svc := newTestService(store)
	_, err := svc.Create(context.Background(), CreateInput{
		OwnerID: 1, Room: "Sala1", Date: "10/03/2026", StartTime: "09:00", EndTime: "10:00",
	})
	if CodeOf(err) != CodeSlotConflict {
		t.Fatalf("code = %q, want %q", CodeOf(err), CodeSlotConflict)
	}
}

func strptr(s string) *string { return &s }

func TestUpdate_MergesPatchAndExcludesSelf(t *testing.T) {
	svc := newTestService(newMemStore())
	res := create(t, svc, 1, "Sala1", "10/03/2026", "09:00", "10:00")

	// Moving a booking within its own old window must not conflict with itself.
	got, err := svc.Update(context.Background(), 1, res.ID, UpdatePatch{
		StartTime: strptr("09:30"), EndTime: strptr("10:30"),
	})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if got.StartTime != "09:30" || got.EndTime != "10:30" {
		t.Errorf("range = %s-%s, want 09:30-10:30", got.StartTime, got.EndTime)
	}
	if got.Room != "Sala1" || !got.Day.Equal(res.Day) {
		t.Errorf("unpatched fields changed: room=%s day=%v", got.Room, got.Day)
	}
}

func TestUpdate_ConflictWithOtherReservation(t *testing.T) {
	svc := newTestService(newMemStore())
	create(t, svc, 1, "Sala1", "10/03/2026", "09:00", "10:00")
	second := create(t, svc, 1, "Sala1", "10/03/2026", "11:00", "12:00")

	_, err := svc.Update(context.Background(), 1, second.ID, UpdatePatch{
		StartTime: strptr("09:30"), EndTime: strptr("10:30"),
	})
	if CodeOf(err) != CodeSlotConflict {
		t.Fatalf("code = %q, want %q", CodeOf(err), CodeSlotConflict)
	}
}

func TestUpdate_ValidatesMergedRecord(t *testing.T) {
	svc := newTestService(newMemStore())
	res := create(t, svc, 1, "Sala1", "10/03/2026", "09:00", "10:00")

	// Patch only the end time: validation must run against the merged
	// view (09:00-13:00 exceeds the 3 hour maximum).
	_, err := svc.Update(context.Background(), 1, res.ID, UpdatePatch{EndTime: strptr("13:00")})
	if CodeOf(err) != CodeInvalidFormat {
		t.Fatalf("code = %q, want %q", CodeOf(err), CodeInvalidFormat)
	}
}

func TestUpdate_CrossOwnerIsNotFound(t *testing.T) {
	svc := newTestService(newMemStore())
	res := create(t, svc, 1, "Sala1", "10/03/2026", "09:00", "10:00")

	_, err := svc.Update(context.Background(), 2, res.ID, UpdatePatch{StartTime: strptr("11:00"), EndTime: strptr("12:00")})
	if CodeOf(err) != CodeNotFound {
		t.Fatalf("update by non-owner: code = %q, want %q", CodeOf(err), CodeNotFound)
	}
}

func TestDelete(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	res := create(t, svc, 1, "Sala1", "10/03/2026", "09:00", "10:00")

	if _, err := svc.Delete(context.Background(), 2, res.ID); CodeOf(err) != CodeNotFound {
		t.Fatalf("delete by non-owner: code = %q, want %q", CodeOf(err), CodeNotFound)
	}
	echo, err := svc.Delete(context.Background(), 1, res.ID)
	if err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if echo.ID != res.ID || echo.Room != "Sala1" {
		t.Errorf("deleted echo = %+v, want original record", echo)
	}
	if _, err := svc.Delete(context.Background(), 1, res.ID); CodeOf(err) != CodeNotFound {
		t.Fatalf("second delete: code = %q, want %q", CodeOf(err), CodeNotFound)
	}
}

func TestAvailability(t *testing.T) {
	svc := newTestService(newMemStore())
	create(t, svc, 1, "Sala3", "10/03/2026", "09:00", "10:30")

	got, err := svc.Availability(context.Background(), "Sala3", "10/03/2026")
	if err != nil {
		t.Fatalf("Availability error: %v", err)
	}
	if len(got.FreeSlots) != schedule.SlotsPerDay-3 {
		t.Fatalf("len(FreeSlots) = %d, want %d", len(got.FreeSlots), schedule.SlotsPerDay-3)
	}
	if got.FreeSlots[0] != "10:30" {
		t.Errorf("first free slot = %s, want 10:30", got.FreeSlots[0])
	}
	if got.FreeSlots[len(got.FreeSlots)-1] != "17:30" {
		t.Errorf("last free slot = %s, want 17:30", got.FreeSlots[len(got.FreeSlots)-1])
	}

	if _, err := svc.Availability(context.Background(), "Auditorium", "10/03/2026"); CodeOf(err) != CodeInvalidRoom {
		t.Errorf("unknown room: code = %q, want %q", CodeOf(err), CodeInvalidRoom)
	}
	if _, err := svc.Availability(context.Background(), "Sala3", "2026-03-10"); CodeOf(err) != CodeInvalidFormat {
		t.Errorf("bad date: code = %q, want %q", CodeOf(err), CodeInvalidFormat)
	}
	if _, err := svc.Availability(context.Background(), "", "10/03/2026"); CodeOf(err) != CodeMissingField {
		t.Errorf("missing room: code = %q, want %q", CodeOf(err), CodeMissingField)
	}
}
