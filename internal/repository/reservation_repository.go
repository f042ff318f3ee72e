package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/salasapp/reserva-salas/internal/model"
)

// ReservationRepo provides CRUD operations for room reservations. Days
// are stored in a DATE column and scanned back as UTC midnight (the DSN
// sets parseTime=true and loc=UTC); times are stored as zero-padded
// "HH:MM" strings so lexicographic comparison works in SQL.
//
// Writes are serialized per (room, day) through the room_days table: a
// transaction inserts the row if missing and then selects it FOR UPDATE
// before scanning for overlaps. Two concurrent bookings for the same room
// and day therefore cannot both pass the overlap scan; the second one
// blocks until the first commits and then fails with ErrSlotTaken.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationCols = `id, owner_id, room, day, start_time, end_time, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }, res *model.Reservation) error {
	return row.Scan(&res.ID, &res.OwnerID, &res.Room, &res.Day,
		&res.StartTime, &res.EndTime, &res.CreatedAt, &res.UpdatedAt)
}

func dayArg(day time.Time) string { return day.UTC().Format("2006-01-02") }

// ListByOwner returns all reservations belonging to a user, ordered by
// day and start time. When none exist an empty slice is returned.
func (r *ReservationRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
	           WHERE owner_id = ? ORDER BY day, start_time`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		var res model.Reservation
		if err := scanReservation(rows, &res); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// GetByIDForOwner returns a single reservation scoped to both id and
// owner. A reservation owned by someone else is indistinguishable from a
// missing one: both produce sql.ErrNoRows.
func (r *ReservationRepo) GetByIDForOwner(ctx context.Context, id, ownerID uint64) (model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
	           WHERE id = ? AND owner_id = ?`
	var res model.Reservation
	err := scanReservation(r.db.QueryRowContext(ctx, q, id, ownerID), &res)
	return res, err
}

// ListForRoomDay returns every reservation for a room on a given day,
// ordered by start time. Used by the availability calculator.
func (r *ReservationRepo) ListForRoomDay(ctx context.Context, room string, day time.Time) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
	           WHERE room = ? AND day = ? ORDER BY start_time`
	rows, err := r.db.QueryContext(ctx, q, room, dayArg(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		var res model.Reservation
		if err := scanReservation(rows, &res); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// HasConflict reports whether any reservation for the room and day
// overlaps the half-open range [start, end). excludeID skips the record
// being updated; pass 0 when creating. This is the fast unlocked
// pre-check; the authoritative scan runs inside Insert and Update.
func (r *ReservationRepo) HasConflict(ctx context.Context, room string, day time.Time, start, end string, excludeID uint64) (bool, error) {
	return hasConflict(ctx, r.db, room, dayArg(day), start, end, excludeID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func hasConflict(ctx context.Context, q querier, room, day, start, end string, excludeID uint64) (bool, error) {
	// Half-open overlap: existing.start < end AND start < existing.end.
	const query = `SELECT EXISTS(
	        SELECT 1 FROM reservations
	        WHERE room = ? AND day = ? AND start_time < ? AND end_time > ? AND id <> ?)`
	var exists bool
	err := q.QueryRowContext(ctx, query, room, day, end, start, excludeID).Scan(&exists)
	return exists, err
}

// lockRoomDay takes the per-room-day write lock inside tx. The INSERT
// IGNORE creates the lock row on first use; the SELECT ... FOR UPDATE
// then blocks any other transaction targeting the same room and day.
func lockRoomDay(ctx context.Context, tx *sql.Tx, room, day string) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT IGNORE INTO room_days (room, day) VALUES (?, ?)`, room, day); err != nil {
		return err
	}
	var r string
	return tx.QueryRowContext(ctx,
		`SELECT room FROM room_days WHERE room = ? AND day = ? FOR UPDATE`, room, day).Scan(&r)
}

// Insert persists a new reservation, re-running the overlap scan under
// the room-day lock so that concurrent creates cannot double-book. On
// success the generated id and the database timestamps are populated on
// the provided record. Returns ErrSlotTaken when the range overlaps an
// existing booking.
func (r *ReservationRepo) Insert(ctx context.Context, res *model.Reservation) error {
	day := dayArg(res.Day)
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := lockRoomDay(ctx, tx, res.Room, day); err != nil {
		return err
	}
	conflict, err := hasConflict(ctx, tx, res.Room, day, res.StartTime, res.EndTime, 0)
	if err != nil {
		return err
	}
	if conflict {
		return ErrSlotTaken
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (owner_id, room, day, start_time, end_time) VALUES (?, ?, ?, ?, ?)`,
		res.OwnerID, res.Room, day, res.StartTime, res.EndTime)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	// Query back the full row to populate timestamps and defaults.
	if err := scanReservation(tx.QueryRowContext(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE id = ?`, res.ID), res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Update replaces the mutable fields of a reservation identified by both
// id and owner. The row is locked first so the merged values checked by
// the service cannot drift, then the room-day lock and overlap scan run
// exactly as for Insert. Returns sql.ErrNoRows when no owned row matches
// and ErrSlotTaken when the new range overlaps another booking.
func (r *ReservationRepo) Update(ctx context.Context, res *model.Reservation) error {
	day := dayArg(res.Day)
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock the row first, then the room-day; all writers follow this
	// order so the two locks cannot deadlock.
	var current uint64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM reservations WHERE id = ? AND owner_id = ? FOR UPDATE`,
		res.ID, res.OwnerID).Scan(&current)
	if err != nil {
		return err
	}
	if err := lockRoomDay(ctx, tx, res.Room, day); err != nil {
		return err
	}
	conflict, err := hasConflict(ctx, tx, res.Room, day, res.StartTime, res.EndTime, res.ID)
	if err != nil {
		return err
	}
	if conflict {
		return ErrSlotTaken
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE reservations SET room = ?, day = ?, start_time = ?, end_time = ? WHERE id = ? AND owner_id = ?`,
		res.Room, day, res.StartTime, res.EndTime, res.ID, res.OwnerID); err != nil {
		return err
	}
	if err := scanReservation(tx.QueryRowContext(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE id = ?`, res.ID), res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Delete removes a reservation scoped to id and owner. Returns
// sql.ErrNoRows when no owned row matched.
func (r *ReservationRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM reservations WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
