package model

import "time"

// Reservation records a user's booking of a room for a time slot on a
// single calendar day. Times are textual "HH:MM" values on a 24-hour
// clock; with the fixed zero-padded format, lexicographic comparison
// matches chronological order, both here and in SQL. Day carries no time
// component and is normalized to midnight UTC.
//
// Fields:
//  ID        – primary key identifier, assigned by the store at creation.
//  OwnerID   – user who owns the reservation; set at creation, immutable.
//  Room      – one of the fixed room identifiers (see Rooms).
//  Day       – calendar day of the booking.
//  StartTime – slot start, "HH:MM", within business hours.
//  EndTime   – slot end, "HH:MM", within business hours.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Reservation struct {
	ID        uint64    // reservations.id
	OwnerID   uint64    // reservations.owner_id
	Room      string    // reservations.room
	Day       time.Time // reservations.day
	StartTime string    // reservations.start_time
	EndTime   string    // reservations.end_time
	CreatedAt time.Time // reservations.created_at
	UpdatedAt time.Time // reservations.updated_at
}
