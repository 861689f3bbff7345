package booking

import (
	"context"
	"slices"

	"github.com/dparkr/dparkr/internal/domain"
	"github.com/dparkr/dparkr/internal/repository"
	"github.com/google/uuid"
)

// Evaluate reports every active booking in existing that overlaps interval,
// ignoring exclude (uuid.Nil excludes nothing). Offenders are listed in start
// order inside a *domain.SlotUnavailableError.
func Evaluate(existing []domain.Booking, interval domain.Interval, exclude uuid.UUID) error {
	var conflicts []domain.Booking
	for _, b := range existing {
		if !b.Status.Active() {
			continue
		}
		if exclude != uuid.Nil && b.ID == exclude {
			continue
		}
		if domain.Overlaps(b.Interval(), interval) {
			conflicts = append(conflicts, b)
		}
	}
	if len(conflicts) == 0 {
		return nil
	}

	slices.SortStableFunc(conflicts, func(a, b domain.Booking) int {
		return a.StartTime.Compare(b.StartTime)
	})
	ids := make([]uuid.UUID, len(conflicts))
	for i, b := range conflicts {
		ids[i] = b.ID
	}
	return &domain.SlotUnavailableError{BookingIDs: ids}
}

type AvailabilityChecker struct {
	bookings repository.BookingRepository
}

func NewAvailabilityChecker(bookings repository.BookingRepository) *AvailabilityChecker {
	return &AvailabilityChecker{bookings: bookings}
}

// CheckAvailable is a point-in-time read. Inserts must go through
// BookingRepository.CreateIfAvailable to be race free.
func (c *AvailabilityChecker) CheckAvailable(ctx context.Context, parkingID uuid.UUID, interval domain.Interval, exclude uuid.UUID) error {
	existing, err := c.bookings.ListActiveByParking(ctx, parkingID)
	if err != nil {
		return err
	}
	return Evaluate(existing, interval, exclude)
}
