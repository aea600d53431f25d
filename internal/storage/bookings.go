package storage

import (
	"context"
)

// RecordBooking stores the mapping from a calendar event to a contest.
// Writing the same event id again overwrites the row.
func (s *Store) RecordBooking(ctx context.Context, eventID, contestID string) error {
	query := `
		INSERT INTO calendar_events (event_id, contest_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(event_id) DO UPDATE SET
			contest_id = excluded.contest_id,
			created_at = excluded.created_at
	`
	if _, err := s.db.ExecContext(ctx, query, eventID, contestID, formatTime(s.now())); err != nil {
		return storageErr("record booking "+eventID, err)
	}
	return nil
}

// FindBooking reports whether the contest has a booking and returns the
// most recently recorded event id.
func (s *Store) FindBooking(ctx context.Context, contestID string) (string, bool, error) {
	var eventIDs []string
	query := `
		SELECT event_id FROM calendar_events
		WHERE contest_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`
	if err := s.db.SelectContext(ctx, &eventIDs, query, contestID); err != nil {
		return "", false, storageErr("find booking for "+contestID, err)
	}
	if len(eventIDs) == 0 {
		return "", false, nil
	}
	return eventIDs[0], true, nil
}

// ListBookings returns every booking for a contest, newest first.
func (s *Store) ListBookings(ctx context.Context, contestID string) ([]Booking, error) {
	var rows []bookingRow
	query := `
		SELECT * FROM calendar_events
		WHERE contest_id = ?
		ORDER BY created_at DESC, rowid DESC
	`
	if err := s.db.SelectContext(ctx, &rows, query, contestID); err != nil {
		return nil, storageErr("list bookings for "+contestID, err)
	}

	bookings := make([]Booking, 0, len(rows))
	for _, r := range rows {
		b, err := r.toBooking()
		if err != nil {
			return nil, storageErr("decode booking", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

// DeleteBooking removes the mapping for an event id. It reports whether a
// row existed.
func (s *Store) DeleteBooking(ctx context.Context, eventID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM calendar_events WHERE event_id = ?`, eventID)
	if err != nil {
		return false, storageErr("delete booking "+eventID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("delete booking "+eventID, err)
	}
	return n > 0, nil
}
