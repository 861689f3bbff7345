package notify

import (
	"context"
	"fmt"

	"github.com/dparkr/dparkr/internal/kafka"
	"go.uber.org/zap"
)

// Notification is a message addressed to one marketplace user.
type Notification struct {
	RecipientID string
	Subject     string
	Body        string
}

type Sender struct {
	log *zap.Logger
}

func NewSender(log *zap.Logger) *Sender {
	return &Sender{log: log.With(zap.String("component", "notifier"))}
}

// Compose turns a booking event into the notification its counterparty should
// receive. Owners hear about new requests; drivers hear about decisions.
func Compose(event kafka.BookingEvent) (Notification, bool) {
	window := fmt.Sprintf("%s - %s", event.StartTime.Format("2006-01-02 15:04"), event.EndTime.Format("2006-01-02 15:04 MST"))

	switch event.Type {
	case kafka.EventBookingCreated:
		return Notification{
			RecipientID: event.OwnerID,
			Subject:     "New booking request",
			Body:        fmt.Sprintf("Booking %s requests parking %s for %s.", event.BookingID, event.ParkingID, window),
		}, true
	case kafka.EventBookingConfirmed:
		return Notification{
			RecipientID: event.UserID,
			Subject:     "Booking confirmed",
			Body:        fmt.Sprintf("Your booking %s for %s was confirmed.", event.BookingID, window),
		}, true
	case kafka.EventBookingCancelled:
		return Notification{
			RecipientID: event.UserID,
			Subject:     "Booking cancelled",
			Body:        fmt.Sprintf("Booking %s for %s was cancelled.", event.BookingID, window),
		}, true
	case kafka.EventBookingExpired:
		return Notification{
			RecipientID: event.UserID,
			Subject:     "Booking request expired",
			Body:        fmt.Sprintf("Booking %s for %s was not confirmed before it started.", event.BookingID, window),
		}, true
	}
	return Notification{}, false
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	n, ok := Compose(event)
	if !ok {
		s.log.Debug("ignoring event", zap.String("type", event.Type))
		return nil
	}
	if n.RecipientID == "" {
		s.log.Warn("event without recipient", zap.String("type", event.Type), zap.Stringer("booking_id", event.BookingID))
		return nil
	}

	s.log.Info("notification sent",
		zap.String("recipient", n.RecipientID),
		zap.String("subject", n.Subject),
		zap.String("body", n.Body),
	)
	return ctx.Err()
}
