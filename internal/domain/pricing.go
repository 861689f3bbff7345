package domain

import (
	"fmt"
	"time"
)

// BillableHours rounds the interval length up to whole hours.
func BillableHours(start, end time.Time) int64 {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	hours := int64(d / time.Hour)
	if d%time.Hour != 0 {
		hours++
	}
	return hours
}

// ComputePrice bills every started hour at ratePerHourCents.
func ComputePrice(start, end time.Time, ratePerHourCents int64) (int64, int64, error) {
	hours := BillableHours(start, end)
	if hours <= 0 {
		return 0, 0, ErrInvalidInterval
	}
	if ratePerHourCents < 0 {
		return 0, 0, fmt.Errorf("%w: negative hourly rate", ErrInvalidInput)
	}
	return hours, hours * ratePerHourCents, nil
}
