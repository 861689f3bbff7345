package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dparkr/dparkr/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingConfirmed = "booking_confirmed"
	EventBookingCancelled = "booking_cancelled"
	EventBookingExpired   = "booking_expired"
)

type BookingEvent struct {
	Type            string    `json:"type"`
	BookingID       uuid.UUID `json:"booking_id"`
	ParkingID       uuid.UUID `json:"parking_id"`
	UserID          string    `json:"user_id"`
	OwnerID         string    `json:"owner_id"`
	Status          string    `json:"status"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	TotalPriceCents int64     `json:"total_price_cents"`
	OccurredAt      time.Time `json:"occurred_at"`
}

func NewBookingEvent(eventType string, b *domain.OwnedBooking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:            eventType,
		BookingID:       b.ID,
		ParkingID:       b.ParkingID,
		UserID:          b.UserID,
		OwnerID:         b.OwnerID,
		Status:          string(b.Status),
		StartTime:       b.StartTime.UTC(),
		EndTime:         b.EndTime.UTC(),
		TotalPriceCents: b.TotalPriceCents,
		OccurredAt:      at.UTC(),
	}
}

// Key partitions events of one booking onto the same partition.
func (e BookingEvent) Key() string {
	return e.BookingID.String()
}

func DecodeBookingEvent(msg kafka.Message) (BookingEvent, error) {
	var event BookingEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return BookingEvent{}, fmt.Errorf("decode booking event at offset %d: %w", msg.Offset, err)
	}
	return event, nil
}
