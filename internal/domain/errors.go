package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidInterval  = errors.New("invalid interval: end must be after start")
	ErrPastStart        = errors.New("start time is in the past")
	ErrNotFound         = errors.New("not found")
	ErrInactiveResource = errors.New("parking space is not available")
	ErrSlotUnavailable  = errors.New("slot unavailable")
	ErrNotAuthorized    = errors.New("not authorized")
	ErrInvalidState     = errors.New("invalid state transition")
	ErrStorage          = errors.New("storage error")
	ErrInvalidInput     = errors.New("invalid input")
)

// SlotUnavailableError names the bookings that conflict with a requested interval.
type SlotUnavailableError struct {
	BookingIDs []uuid.UUID
}

func (e *SlotUnavailableError) Error() string {
	ids := make([]string, len(e.BookingIDs))
	for i, id := range e.BookingIDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("%s: conflicts with booking(s) %s", ErrSlotUnavailable, strings.Join(ids, ", "))
}

func (e *SlotUnavailableError) Is(target error) bool {
	return target == ErrSlotUnavailable
}

// ConflictingBookingIDs extracts the conflicting ids carried by err, if any.
func ConflictingBookingIDs(err error) []uuid.UUID {
	var conflict *SlotUnavailableError
	if errors.As(err, &conflict) {
		return conflict.BookingIDs
	}
	return nil
}

func StorageError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
