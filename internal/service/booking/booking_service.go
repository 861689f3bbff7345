package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dparkr/dparkr/internal/domain"
	"github.com/dparkr/dparkr/internal/kafka"
	"github.com/dparkr/dparkr/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, bookingID uuid.UUID, actorID string, action domain.Action) (*domain.OwnedBooking, error)
	ConfirmBooking(ctx context.Context, bookingID uuid.UUID, actorID string) (*domain.OwnedBooking, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID, actorID string) (*domain.OwnedBooking, error)
	CheckAvailability(ctx context.Context, parkingID uuid.UUID, start, end time.Time) (*Availability, error)
	ListUserBookings(ctx context.Context, userID string) ([]domain.Booking, error)
	ListOwnerBookings(ctx context.Context, ownerID string) ([]domain.OwnedBooking, error)
	ExpireStalePending(ctx context.Context) (int, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	parkings           repository.ParkingRepository
	checker            *AvailabilityChecker
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	log                *zap.Logger
	now                func() time.Time
}

type CreateBookingInput struct {
	UserID    string
	ParkingID uuid.UUID
	StartTime time.Time
	EndTime   time.Time
}

// Availability is the answer of a read-only availability query.
type Availability struct {
	Available             bool
	ConflictingBookingIDs []uuid.UUID
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

// NewBookingService wires the service. producer may be nil, in which case no
// events are emitted.
func NewBookingService(
	bookings repository.BookingRepository,
	parkings repository.ParkingRepository,
	producer Producer,
	bookingTopic string,
	log *zap.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		parkings:     parkings,
		checker:      NewAvailabilityChecker(bookings),
		producer:     producer,
		bookingTopic: bookingTopic,
		log:          log.With(zap.String("service", "booking")),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBooking is the only path that inserts bookings.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if input.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	// Postgres keeps microseconds; price and check the interval that gets stored.
	interval := domain.Interval{
		Start: input.StartTime.Truncate(time.Microsecond),
		End:   input.EndTime.Truncate(time.Microsecond),
	}
	if err := interval.Validate(); err != nil {
		return nil, err
	}
	if interval.Start.Before(s.now()) {
		return nil, domain.ErrPastStart
	}

	parking, err := s.parkings.GetByID(ctx, input.ParkingID)
	if err != nil {
		return nil, err
	}
	if !parking.Bookable() {
		return nil, fmt.Errorf("parking %s: %w", parking.ID, domain.ErrInactiveResource)
	}

	_, price, err := domain.ComputePrice(interval.Start, interval.End, parking.PricePerHourCents)
	if err != nil {
		return nil, err
	}

	booking := &domain.Booking{
		ID:              uuid.New(),
		UserID:          input.UserID,
		ParkingID:       parking.ID,
		StartTime:       interval.Start,
		EndTime:         interval.End,
		TotalPriceCents: price,
		Status:          domain.BookingStatusPending,
	}

	err = s.bookings.CreateIfAvailable(ctx, booking, func(existing []domain.Booking) error {
		return Evaluate(existing, interval, uuid.Nil)
	})
	if err != nil {
		if errors.Is(err, domain.ErrSlotUnavailable) {
			s.log.Info("slot unavailable",
				zap.Stringer("parking_id", parking.ID),
				zap.Int("conflicts", len(domain.ConflictingBookingIDs(err))),
			)
		} else {
			s.log.Error("failed to create booking", zap.Stringer("parking_id", parking.ID), zap.Error(err))
		}
		return nil, err
	}

	s.log.Info("booking created", zap.Stringer("booking_id", booking.ID), zap.Stringer("parking_id", parking.ID))
	s.publish(ctx, kafka.EventBookingCreated, &domain.OwnedBooking{Booking: *booking, OwnerID: parking.OwnerID})
	return booking, nil
}

// UpdateStatus applies action on behalf of actorID. Confirmation does not
// re-check availability: the slot was reserved when the booking was created.
func (s *BookingService) UpdateStatus(ctx context.Context, bookingID uuid.UUID, actorID string, action domain.Action) (*domain.OwnedBooking, error) {
	eventType := kafka.EventBookingCancelled
	if action == domain.ActionConfirm {
		eventType = kafka.EventBookingConfirmed
	}

	updated, err := s.bookings.TransitionStatus(ctx, bookingID, func(current *domain.OwnedBooking) (domain.BookingStatus, error) {
		return domain.Transition(current, actorID, action)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("booking status changed",
		zap.Stringer("booking_id", bookingID),
		zap.String("actor", actorID),
		zap.String("status", string(updated.Status)),
	)
	s.publish(ctx, eventType, updated)
	return updated, nil
}

func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID uuid.UUID, actorID string) (*domain.OwnedBooking, error) {
	return s.UpdateStatus(ctx, bookingID, actorID, domain.ActionConfirm)
}

func (s *BookingService) CancelBooking(ctx context.Context, bookingID uuid.UUID, actorID string) (*domain.OwnedBooking, error) {
	return s.UpdateStatus(ctx, bookingID, actorID, domain.ActionCancel)
}

func (s *BookingService) CheckAvailability(ctx context.Context, parkingID uuid.UUID, start, end time.Time) (*Availability, error) {
	interval := domain.Interval{Start: start, End: end}
	if err := interval.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.parkings.GetByID(ctx, parkingID); err != nil {
		return nil, err
	}

	err := s.checker.CheckAvailable(ctx, parkingID, interval, uuid.Nil)
	if err == nil {
		return &Availability{Available: true, ConflictingBookingIDs: []uuid.UUID{}}, nil
	}
	if errors.Is(err, domain.ErrSlotUnavailable) {
		return &Availability{ConflictingBookingIDs: domain.ConflictingBookingIDs(err)}, nil
	}
	return nil, err
}

// ListUserBookings returns the driver's pending and confirmed bookings, latest start first.
func (s *BookingService) ListUserBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	return s.bookings.ListByUser(ctx, userID, domain.ActiveBookingStatuses)
}

func (s *BookingService) ListOwnerBookings(ctx context.Context, ownerID string) ([]domain.OwnedBooking, error) {
	return s.bookings.ListByOwner(ctx, ownerID)
}

// ExpireStalePending cancels pending bookings whose start time has passed
// without confirmation. It returns how many bookings were expired.
func (s *BookingService) ExpireStalePending(ctx context.Context) (int, error) {
	now := s.now()
	ids, err := s.bookings.ListStalePending(ctx, now)
	if err != nil {
		return 0, err
	}

	var (
		expired int
		errs    []error
	)
	for _, id := range ids {
		updated, err := s.bookings.TransitionStatus(ctx, id, func(current *domain.OwnedBooking) (domain.BookingStatus, error) {
			if current.Status != domain.BookingStatusPending {
				return "", fmt.Errorf("%w: booking is %s", domain.ErrInvalidState, current.Status)
			}
			return domain.Transition(current, domain.SystemActor, domain.ActionCancel)
		})
		if err != nil {
			// Confirmed or cancelled between the scan and the lock.
			if errors.Is(err, domain.ErrInvalidState) || errors.Is(err, domain.ErrNotFound) {
				s.log.Debug("skipping stale booking", zap.Stringer("booking_id", id), zap.Error(err))
				continue
			}
			s.log.Error("failed to expire booking", zap.Stringer("booking_id", id), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		expired++
		s.publish(ctx, kafka.EventBookingExpired, updated)
	}

	if expired > 0 {
		s.log.Info("expired stale pending bookings", zap.Int("count", expired))
	}
	return expired, errors.Join(errs...)
}

// publish emits event to the booking topic and, if configured, the
// notifications topic. Failures are logged and never undo the committed change.
func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.OwnedBooking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.NewBookingEvent(eventType, booking, s.now())

	if err := s.producer.Publish(ctx, s.bookingTopic, event.Key(), event); err != nil {
		s.log.Warn("failed to publish event",
			zap.String("type", eventType),
			zap.String("topic", s.bookingTopic),
			zap.Stringer("booking_id", booking.ID),
			zap.Error(err),
		)
	}
	if s.notificationsTopic == "" {
		return
	}
	if err := s.producer.Publish(ctx, s.notificationsTopic, event.Key(), event); err != nil {
		s.log.Warn("failed to publish notification",
			zap.String("type", eventType),
			zap.String("topic", s.notificationsTopic),
			zap.Stringer("booking_id", booking.ID),
			zap.Error(err),
		)
	}
}

var _ BookingUseCase = (*BookingService)(nil)
