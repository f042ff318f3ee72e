// Package service contains the reservation lifecycle manager. It owns
// the booking rules end to end: input validation through the schedule
// package, conflict detection against the store, ownership-scoped
// mutation, and availability queries. Persistence is consumed through
// the ReservationStore interface so the manager itself stays free of SQL.
package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/salasapp/reserva-salas/internal/model"
	"github.com/salasapp/reserva-salas/internal/repository"
	"github.com/salasapp/reserva-salas/internal/schedule"
)

// ReservationStore is the persistence contract the lifecycle manager
// needs. Missing rows surface as sql.ErrNoRows; racing overlap writes
// surface as repository.ErrSlotTaken. Insert and Update must be atomic:
// the store re-checks for overlaps under its own lock so that two
// concurrent writers cannot both commit (the service-level HasConflict
// call is only the fast path to a friendly error).
type ReservationStore interface {
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.Reservation, error)
	GetByIDForOwner(ctx context.Context, id, ownerID uint64) (model.Reservation, error)
	ListForRoomDay(ctx context.Context, room string, day time.Time) ([]model.Reservation, error)
	HasConflict(ctx context.Context, room string, day time.Time, start, end string, excludeID uint64) (bool, error)
	Insert(ctx context.Context, res *model.Reservation) error
	Update(ctx context.Context, res *model.Reservation) error
	Delete(ctx context.Context, id, ownerID uint64) error
}

// Clock abstracts time.Now so the date-not-in-past rule is testable.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// ReservationService orchestrates create, update, delete, list and
// availability for reservations. It is stateless between calls; every
// operation is a self-contained read-check-write sequence.
type ReservationService struct {
	store ReservationStore
	clock Clock
}

// NewReservationService returns a service using the real clock.
func NewReservationService(store ReservationStore) *ReservationService {
	return &ReservationService{store: store, clock: realClock{}}
}

// CreateInput carries a candidate reservation. All fields are required.
type CreateInput struct {
	OwnerID   uint64
	Room      string
	Date      string // DD/MM/YYYY
	StartTime string // HH:MM
	EndTime   string // HH:MM
}

// Create validates the candidate, checks for conflicts and persists it.
// The first failing field determines the error; nothing is written unless
// every check passes.
func (s *ReservationService) Create(ctx context.Context, in CreateInput) (model.Reservation, error) {
	switch {
	case in.OwnerID == 0:
		return model.Reservation{}, errMissingField("ownerId")
	case in.Room == "":
		return model.Reservation{}, errMissingField("room")
	case in.Date == "":
		return model.Reservation{}, errMissingField("date")
	case in.StartTime == "":
		return model.Reservation{}, errMissingField("startTime")
	case in.EndTime == "":
		return model.Reservation{}, errMissingField("endTime")
	}
	if !model.ValidRoom(in.Room) {
		return model.Reservation{}, errInvalidRoom()
	}
	day, err := schedule.ParseDate(in.Date)
	if err != nil {
		return model.Reservation{}, errInvalidFormat(err.Error())
	}
	if err := schedule.ValidateRange(in.StartTime, in.EndTime); err != nil {
		return model.Reservation{}, errInvalidFormat(err.Error())
	}
	if err := schedule.ValidateNotPast(day, s.clock.Now()); err != nil {
		return model.Reservation{}, errPastDate()
	}

	conflict, err := s.store.HasConflict(ctx, in.Room, day, in.StartTime, in.EndTime, 0)
	if err != nil {
		return model.Reservation{}, errStore(err)
	}
	if conflict {
		return model.Reservation{}, errSlotConflict()
	}

	res := model.Reservation{
		OwnerID:   in.OwnerID,
		Room:      in.Room,
		Day:       day,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
	}
	if err := s.store.Insert(ctx, &res); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			// Lost a concurrent race that the pre-check could not see.
			return model.Reservation{}, errSlotConflict()
		}
		return model.Reservation{}, errStore(err)
	}
	return res, nil
}

// UpdatePatch lists the fields an update may replace. Nil fields keep
// their current values; validation always runs against the merged record,
// never against the patch alone.
type UpdatePatch struct {
	Room      *string
	Date      *string // DD/MM/YYYY
	StartTime *string // HH:MM
	EndTime   *string // HH:MM
}

// Update applies a partial patch to a reservation owned by ownerID. A
// reservation owned by someone else is reported as not found, never as
// forbidden. The record being updated is excluded from the conflict scan,
// so shrinking or moving a booking within its own old window succeeds.
func (s *ReservationService) Update(ctx context.Context, ownerID, id uint64, patch UpdatePatch) (model.Reservation, error) {
	current, err := s.store.GetByIDForOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Reservation{}, errNotFound()
		}
		return model.Reservation{}, errStore(err)
	}

	merged := current
	if patch.Room != nil {
		merged.Room = *patch.Room
	}
	if patch.Date != nil {
		day, err := schedule.ParseDate(*patch.Date)
		if err != nil {
			return model.Reservation{}, errInvalidFormat(err.Error())
		}
		merged.Day = day
	}
	if patch.StartTime != nil {
		merged.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		merged.EndTime = *patch.EndTime
	}

	if !model.ValidRoom(merged.Room) {
		return model.Reservation{}, errInvalidRoom()
	}
	if err := schedule.ValidateRange(merged.StartTime, merged.EndTime); err != nil {
		return model.Reservation{}, errInvalidFormat(err.Error())
	}
	if patch.Date != nil {
		if err := schedule.ValidateNotPast(merged.Day, s.clock.Now()); err != nil {
			return model.Reservation{}, errPastDate()
		}
	}

	conflict, err := s.store.HasConflict(ctx, merged.Room, merged.Day, merged.StartTime, merged.EndTime, id)
	if err != nil {
		return model.Reservation{}, errStore(err)
	}
	if conflict {
		return model.Reservation{}, errSlotConflict()
	}

	if err := s.store.Update(ctx, &merged); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotTaken):
			return model.Reservation{}, errSlotConflict()
		case errors.Is(err, sql.ErrNoRows):
			return model.Reservation{}, errNotFound()
		default:
			return model.Reservation{}, errStore(err)
		}
	}
	return merged, nil
}

// Delete removes a reservation owned by ownerID and returns the deleted
// record. Someone else's reservation is reported as not found.
func (s *ReservationService) Delete(ctx context.Context, ownerID, id uint64) (model.Reservation, error) {
	res, err := s.store.GetByIDForOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Reservation{}, errNotFound()
		}
		return model.Reservation{}, errStore(err)
	}
	if err := s.store.Delete(ctx, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Reservation{}, errNotFound()
		}
		return model.Reservation{}, errStore(err)
	}
	return res, nil
}

// List returns all reservations owned by ownerID, ordered by day and
// start time.
func (s *ReservationService) List(ctx context.Context, ownerID uint64) ([]model.Reservation, error) {
	out, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, errStore(err)
	}
	return out, nil
}

// Availability describes the free 30-minute slots of a room on a day.
type Availability struct {
	Room      string
	Day       time.Time
	FreeSlots []string
}

// Availability enumerates the bookable slot start times for a room and
// date by subtracting existing reservations from the business-hours grid.
func (s *ReservationService) Availability(ctx context.Context, room, date string) (Availability, error) {
	if room == "" {
		return Availability{}, errMissingField("room")
	}
	if date == "" {
		return Availability{}, errMissingField("date")
	}
	if !model.ValidRoom(room) {
		return Availability{}, errInvalidRoom()
	}
	day, err := schedule.ParseDate(date)
	if err != nil {
		return Availability{}, errInvalidFormat(err.Error())
	}

	existing, err := s.store.ListForRoomDay(ctx, room, day)
	if err != nil {
		return Availability{}, errStore(err)
	}
	busy := make([]schedule.Interval, 0, len(existing))
	for _, res := range existing {
		busy = append(busy, schedule.Interval{Start: res.StartTime, End: res.EndTime})
	}
	return Availability{Room: room, Day: day, FreeSlots: schedule.FreeSlots(busy)}, nil
}
