package booking

import (
	"context"
	"sync"
	"time"

	"github.com/dparkr/dparkr/internal/domain"
	"github.com/dparkr/dparkr/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockBookingRepository struct {
	mock.Mock
}

// CreateIfAvailable runs check against the bookings configured as the first
// return value, mirroring what the store does under its lock.
func (m *MockBookingRepository) CreateIfAvailable(ctx context.Context, booking *domain.Booking, check repository.AvailabilityCheck) error {
	args := m.Called(ctx, booking)
	if existing, ok := args.Get(0).([]domain.Booking); ok {
		if err := check(existing); err != nil {
			return err
		}
	}
	return args.Error(1)
}

func (m *MockBookingRepository) ListActiveByParking(ctx context.Context, parkingID uuid.UUID) ([]domain.Booking, error) {
	args := m.Called(ctx, parkingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

// TransitionStatus applies change to a copy of the configured current booking.
func (m *MockBookingRepository) TransitionStatus(ctx context.Context, id uuid.UUID, change repository.StatusChange) (*domain.OwnedBooking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	current := *args.Get(0).(*domain.OwnedBooking)
	next, err := change(&current)
	if err != nil {
		return nil, err
	}
	if err := args.Error(1); err != nil {
		return nil, err
	}
	current.Status = next
	return &current, nil
}

func (m *MockBookingRepository) ListByUser(ctx context.Context, userID string, statuses []domain.BookingStatus) ([]domain.Booking, error) {
	args := m.Called(ctx, userID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.OwnedBooking, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OwnedBooking), args.Error(1)
}

func (m *MockBookingRepository) ListStalePending(ctx context.Context, startedBy time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, startedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockParkingRepository struct {
	mock.Mock
}

func (m *MockParkingRepository) Create(ctx context.Context, p *domain.ParkingSpace) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockParkingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ParkingSpace, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParkingSpace), args.Error(1)
}

func (m *MockParkingRepository) Update(ctx context.Context, p *domain.ParkingSpace) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockParkingRepository) SoftDelete(ctx context.Context, id uuid.UUID, ownerID string) (*domain.ParkingSpace, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParkingSpace), args.Error(1)
}

func (m *MockParkingRepository) ListActive(ctx context.Context) ([]domain.ParkingSpace, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.ParkingSpace), args.Error(1)
}

func (m *MockParkingRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.ParkingSpace, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]domain.ParkingSpace), args.Error(1)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value any) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

// memoryBookingRepository serializes CreateIfAvailable with a mutex the way
// the advisory lock does in PostgreSQL.
type memoryBookingRepository struct {
	mu       sync.Mutex
	bookings []domain.Booking
}

func (r *memoryBookingRepository) CreateIfAvailable(_ context.Context, booking *domain.Booking, check repository.AvailabilityCheck) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var existing []domain.Booking
	for _, b := range r.bookings {
		if b.ParkingID == booking.ParkingID && b.Status.Active() {
			existing = append(existing, b)
		}
	}
	if err := check(existing); err != nil {
		return err
	}
	r.bookings = append(r.bookings, *booking)
	return nil
}

func (r *memoryBookingRepository) ListActiveByParking(_ context.Context, parkingID uuid.UUID) ([]domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Booking
	for _, b := range r.bookings {
		if b.ParkingID == parkingID && b.Status.Active() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memoryBookingRepository) TransitionStatus(context.Context, uuid.UUID, repository.StatusChange) (*domain.OwnedBooking, error) {
	return nil, domain.ErrNotFound
}

func (r *memoryBookingRepository) ListByUser(context.Context, string, []domain.BookingStatus) ([]domain.Booking, error) {
	return nil, nil
}

func (r *memoryBookingRepository) ListByOwner(context.Context, string) ([]domain.OwnedBooking, error) {
	return nil, nil
}

func (r *memoryBookingRepository) ListStalePending(context.Context, time.Time) ([]uuid.UUID, error) {
	return nil, nil
}

var testNow = time.Date(2030, 3, 14, 8, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2030, 3, 14, hour, minute, 0, 0, time.UTC)
}

func newTestService(bookings repository.BookingRepository, parkings repository.ParkingRepository, producer Producer) *BookingService {
	return &BookingService{
		bookings:     bookings,
		parkings:     parkings,
		checker:      NewAvailabilityChecker(bookings),
		producer:     producer,
		bookingTopic: "booking_topic",
		log:          zap.NewNop(),
		now:          func() time.Time { return testNow },
	}
}

func activeParking(ownerID string, rate int64) *domain.ParkingSpace {
	return &domain.ParkingSpace{
		ID:                uuid.New(),
		OwnerID:           ownerID,
		Title:             "Driveway",
		PricePerHourCents: rate,
		IsActive:          true,
	}
}

func bookingAt(parkingID uuid.UUID, status domain.BookingStatus, start, end time.Time) domain.Booking {
	return domain.Booking{
		ID:        uuid.New(),
		UserID:    "driver-0",
		ParkingID: parkingID,
		StartTime: start,
		EndTime:   end,
		Status:    status,
	}
}
