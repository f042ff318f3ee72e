// Package queue defines the reservation events exchanged over the
// message broker, the publisher that emits them and the background
// consumer that turns them into an audit log.
package queue

// ReservationEvent is published whenever a reservation is created,
// updated or deleted. It carries enough information for downstream
// consumers to log or notify without querying the primary database.
type ReservationEvent struct {
	EventID       string `json:"event_id"` // random UUID, unique per event
	Action        string `json:"action"`   // "created" | "updated" | "deleted"
	ReservationID uint64 `json:"reservation_id"`
	OwnerID       uint64 `json:"owner_id"`
	Room          string `json:"room"`
	Date          string `json:"date"` // DD/MM/YYYY
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	OccurredAt    string `json:"occurred_at"` // RFC3339 UTC
}

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

const reservationQueueName = "reservation.booked"
