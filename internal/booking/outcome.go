package booking

import (
	"github.com/user/contestcal/internal/apperr"
	"github.com/user/contestcal/internal/contest"
)

// Status discriminates the result of a booking operation.
type Status string

const (
	StatusBooked          Status = "booked"
	StatusConflict        Status = "conflict"
	StatusNotFound        Status = "not_found"
	StatusInvalid         Status = "invalid"
	StatusExternalFailure Status = "external_failure"
	StatusStorageFailure  Status = "storage_failure"
	StatusDeleted         Status = "deleted"
)

// Outcome is returned by every engine operation instead of a bare error.
type Outcome struct {
	Status    Status           `json:"status"`
	Contest   *contest.Contest `json:"contest,omitempty"`
	EventID   string           `json:"event_id,omitempty"`
	Link      string           `json:"link,omitempty"`
	Reminders []int            `json:"reminders,omitempty"`
	Message   string           `json:"message,omitempty"`
	Err       error            `json:"-"`
}

// OK reports whether the operation did what was asked.
func (o Outcome) OK() bool {
	return o.Status == StatusBooked || o.Status == StatusDeleted
}

// failure maps an error to its outcome by apperr code.
func failure(err error) Outcome {
	o := Outcome{Err: err, Message: err.Error()}
	switch apperr.CodeOf(err) {
	case apperr.NotFound:
		o.Status = StatusNotFound
	case apperr.InvalidInput:
		o.Status = StatusInvalid
	case apperr.ExternalFailure:
		o.Status = StatusExternalFailure
	case apperr.BookingConflict:
		o.Status = StatusConflict
	default:
		o.Status = StatusStorageFailure
	}
	return o
}
