package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dparkr/dparkr/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingRowColumns = []string{"id", "user_id", "parking_id", "start_time", "end_time", "total_price_cents", "status", "created_at", "updated_at"}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func newPendingBooking() *domain.Booking {
	start := time.Date(2030, 3, 14, 10, 0, 0, 0, time.UTC)
	return &domain.Booking{
		ID:              uuid.New(),
		UserID:          "driver-1",
		ParkingID:       uuid.New(),
		StartTime:       start,
		EndTime:         start.Add(2 * time.Hour),
		TotalPriceCents: 200,
		Status:          domain.BookingStatusPending,
	}
}

func expectLockAndParking(mock pgxmock.PgxPoolIface, b *domain.Booking, bookable bool) {
	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).
		WithArgs(b.ParkingID.String()).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`FROM parkings WHERE id = \$1 FOR SHARE`).
		WithArgs(b.ParkingID).
		WillReturnRows(pgxmock.NewRows([]string{"bookable"}).AddRow(bookable))
}

func TestNewBookingRepository(t *testing.T) {
	repo := NewBookingRepository(newMockPool(t))
	assert.NotNil(t, repo)
}

func TestStatusStrings(t *testing.T) {
	assert.Equal(t, []string{"PENDING", "CONFIRMED"}, statusStrings(domain.ActiveBookingStatuses))
	assert.Empty(t, statusStrings(nil))
}

func TestPGBookingRepository_CreateIfAvailable(t *testing.T) {
	mock := newMockPool(t)
	repo := NewBookingRepository(mock)
	b := newPendingBooking()
	created := time.Date(2030, 3, 14, 8, 0, 0, 0, time.UTC)

	existing := domain.Booking{
		ID:              uuid.New(),
		UserID:          "driver-2",
		ParkingID:       b.ParkingID,
		StartTime:       b.EndTime,
		EndTime:         b.EndTime.Add(time.Hour),
		TotalPriceCents: 100,
		Status:          domain.BookingStatusConfirmed,
		CreatedAt:       created,
		UpdatedAt:       created,
	}

	expectLockAndParking(mock, b, true)
	mock.ExpectQuery(`FROM bookings b\s+WHERE b.parking_id = \$1 AND b.status = ANY\(\$2\)`).
		WithArgs(b.ParkingID, statusStrings(domain.ActiveBookingStatuses)).
		WillReturnRows(pgxmock.NewRows(bookingRowColumns).AddRow(
			existing.ID, existing.UserID, existing.ParkingID, existing.StartTime, existing.EndTime,
			existing.TotalPriceCents, existing.Status, existing.CreatedAt, existing.UpdatedAt,
		))
	mock.ExpectQuery(`INSERT INTO bookings`).
		WithArgs(b.ID, b.UserID, b.ParkingID, b.StartTime, b.EndTime, b.TotalPriceCents, string(b.Status)).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, created))
	mock.ExpectCommit()

	var seen []domain.Booking
	err := repo.CreateIfAvailable(context.Background(), b, func(bookings []domain.Booking) error {
		seen = bookings
		return nil
	})

	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, existing.ID, seen[0].ID)
	assert.Equal(t, created, b.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGBookingRepository_CreateIfAvailable_CheckFails(t *testing.T) {
	mock := newMockPool(t)
	repo := NewBookingRepository(mock)
	b := newPendingBooking()
	conflict := &domain.SlotUnavailableError{BookingIDs: []uuid.UUID{uuid.New()}}

	expectLockAndParking(mock, b, true)
	mock.ExpectQuery(`FROM bookings b`).
		WithArgs(b.ParkingID, statusStrings(domain.ActiveBookingStatuses)).
		WillReturnRows(pgxmock.NewRows(bookingRowColumns))
	mock.ExpectRollback()

	err := repo.CreateIfAvailable(context.Background(), b, func([]domain.Booking) error {
		return conflict
	})

	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	assert.Equal(t, conflict.BookingIDs, domain.ConflictingBookingIDs(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGBookingRepository_CreateIfAvailable_InsertFails(t *testing.T) {
	mock := newMockPool(t)
	repo := NewBookingRepository(mock)
	b := newPendingBooking()

	expectLockAndParking(mock, b, true)
	mock.ExpectQuery(`FROM bookings b`).
		WithArgs(b.ParkingID, statusStrings(domain.ActiveBookingStatuses)).
		WillReturnRows(pgxmock.NewRows(bookingRowColumns))
	mock.ExpectQuery(`INSERT INTO bookings`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.CreateIfAvailable(context.Background(), b, func([]domain.Booking) error { return nil })

	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGBookingRepository_CreateIfAvailable_ParkingNotBookable(t *testing.T) {
	mock := newMockPool(t)
	repo := NewBookingRepository(mock)
	b := newPendingBooking()

	expectLockAndParking(mock, b, false)
	mock.ExpectRollback()

	checked := false
	err := repo.CreateIfAvailable(context.Background(), b, func([]domain.Booking) error {
		checked = true
		return nil
	})

	assert.ErrorIs(t, err, domain.ErrInactiveResource)
	assert.False(t, checked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGBookingRepository_CreateIfAvailable_ParkingGone(t *testing.T) {
	mock := newMockPool(t)
	repo := NewBookingRepository(mock)
	b := newPendingBooking()

	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).
		WithArgs(b.ParkingID.String()).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery(`FOR SHARE`).
		WithArgs(b.ParkingID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := repo.CreateIfAvailable(context.Background(), b, func([]domain.Booking) error { return nil })

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGBookingRepository_TransitionStatus(t *testing.T) {
	b := newPendingBooking()
	b.CreatedAt = time.Date(2030, 3, 14, 8, 0, 0, 0, time.UTC)
	b.UpdatedAt = b.CreatedAt
	ownedColumns := append(append([]string{}, bookingRowColumns...), "owner_id")

	lockedRow := func() *pgxmock.Rows {
		return pgxmock.NewRows(ownedColumns).AddRow(
			b.ID, b.UserID, b.ParkingID, b.StartTime, b.EndTime,
			b.TotalPriceCents, b.Status, b.CreatedAt, b.UpdatedAt, "owner-1",
		)
	}

	t.Run("persists next status", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewBookingRepository(mock)
		updated := b.CreatedAt.Add(time.Minute)

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE OF b`).WithArgs(b.ID).WillReturnRows(lockedRow())
		mock.ExpectQuery(`UPDATE bookings SET status = \$1`).
			WithArgs(string(domain.BookingStatusConfirmed), b.ID).
			WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(updated))
		mock.ExpectCommit()

		var current *domain.OwnedBooking
		got, err := repo.TransitionStatus(context.Background(), b.ID, func(ob *domain.OwnedBooking) (domain.BookingStatus, error) {
			current = ob
			return domain.BookingStatusConfirmed, nil
		})

		require.NoError(t, err)
		assert.Equal(t, "owner-1", current.OwnerID)
		assert.Equal(t, domain.BookingStatusPending, current.Status)
		assert.Equal(t, domain.BookingStatusConfirmed, got.Status)
		assert.Equal(t, updated, got.UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejected change does not update", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewBookingRepository(mock)

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE OF b`).WithArgs(b.ID).WillReturnRows(lockedRow())
		mock.ExpectRollback()

		_, err := repo.TransitionStatus(context.Background(), b.ID, func(*domain.OwnedBooking) (domain.BookingStatus, error) {
			return "", domain.ErrNotAuthorized
		})

		assert.ErrorIs(t, err, domain.ErrNotAuthorized)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing booking", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewBookingRepository(mock)

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE OF b`).WithArgs(b.ID).WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		_, err := repo.TransitionStatus(context.Background(), b.ID, func(*domain.OwnedBooking) (domain.BookingStatus, error) {
			return domain.BookingStatusCancelled, nil
		})

		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
