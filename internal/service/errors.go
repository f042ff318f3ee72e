package service

import "errors"

// Code classifies a service failure. Handlers map codes to HTTP statuses;
// the messages are safe to return to callers.
type Code string

const (
	CodeMissingField  Code = "missing_field"
	CodeInvalidFormat Code = "invalid_format"
	CodePastDate      Code = "past_date"
	CodeInvalidRoom   Code = "invalid_room"
	CodeSlotConflict  Code = "slot_conflict"
	CodeNotFound      Code = "not_found"
	CodeStoreFailure  Code = "store_failure"
)

// Error is the failure type returned by every service operation. All
// validation errors are produced before any mutation, so a returned Error
// implies nothing was written.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

// CodeOf extracts the Code from an error returned by the service, or ""
// when the error is not a service Error.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

func errMissingField(field string) error {
	return &Error{Code: CodeMissingField, Message: field + " is required"}
}

func errInvalidFormat(msg string) error {
	return &Error{Code: CodeInvalidFormat, Message: msg}
}

func errPastDate() error {
	return &Error{Code: CodePastDate, Message: "reservation date must not be before today"}
}

func errInvalidRoom() error {
	return &Error{Code: CodeInvalidRoom, Message: "unknown room"}
}

func errSlotConflict() error {
	return &Error{Code: CodeSlotConflict, Message: "the room is already booked for the selected time"}
}

func errNotFound() error {
	return &Error{Code: CodeNotFound, Message: "reservation not found"}
}

func errStore(err error) error {
	return &Error{Code: CodeStoreFailure, Message: "storage error: " + err.Error()}
}
