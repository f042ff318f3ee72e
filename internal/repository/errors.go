// Package repository implements MySQL persistence for users, refresh
// tokens and reservations. Sentinel errors defined here let handlers and
// the service layer distinguish failure scenarios with errors.Is instead
// of inspecting driver-specific error strings. Missing rows are reported
// as sql.ErrNoRows, matching database/sql conventions.
package repository

import "errors"

// ErrSlotTaken is returned by Insert and Update when the requested time
// range overlaps an existing reservation for the same room and day. The
// check runs inside the writing transaction after the per-room-day lock
// is held, so it also catches the loser of a concurrent double-booking
// race that passed the service-level pre-check.
var ErrSlotTaken = errors.New("slot taken")
