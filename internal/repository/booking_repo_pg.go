package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dparkr/dparkr/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AvailabilityCheck inspects the active bookings of a space while its lock is
// held. A non-nil error aborts the insert and is returned unchanged.
type AvailabilityCheck func(existing []domain.Booking) error

// StatusChange computes the next status of a locked booking.
type StatusChange func(current *domain.OwnedBooking) (domain.BookingStatus, error)

type BookingRepository interface {
	CreateIfAvailable(ctx context.Context, booking *domain.Booking, check AvailabilityCheck) error
	ListActiveByParking(ctx context.Context, parkingID uuid.UUID) ([]domain.Booking, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, change StatusChange) (*domain.OwnedBooking, error)
	ListByUser(ctx context.Context, userID string, statuses []domain.BookingStatus) ([]domain.Booking, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.OwnedBooking, error)
	ListStalePending(ctx context.Context, startedBy time.Time) ([]uuid.UUID, error)
}

type PGBookingRepository struct {
	db DB
}

func NewBookingRepository(db DB) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `b.id, b.user_id, b.parking_id, b.start_time, b.end_time, b.total_price_cents, b.status, b.created_at, b.updated_at`

func scanBooking(row pgx.Row, b *domain.Booking, extra ...any) error {
	dest := append([]any{&b.ID, &b.UserID, &b.ParkingID, &b.StartTime, &b.EndTime, &b.TotalPriceCents, &b.Status, &b.CreatedAt, &b.UpdatedAt}, extra...)
	return row.Scan(dest...)
}

func statusStrings(statuses []domain.BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// CreateIfAvailable serializes creators per parking space with a transaction
// scoped advisory lock, so the read of existing bookings and the insert form a
// single atomic step. The parking row is share-locked and re-checked so a
// concurrent soft delete cannot slip in between.
func (r *PGBookingRepository) CreateIfAvailable(ctx context.Context, booking *domain.Booking, check AvailabilityCheck) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.StorageError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, booking.ParkingID.String()); err != nil {
		return domain.StorageError(fmt.Errorf("lock parking %s: %w", booking.ParkingID, err))
	}

	var bookable bool
	if err := tx.QueryRow(ctx, `SELECT is_active AND deleted_at IS NULL FROM parkings WHERE id = $1 FOR SHARE`, booking.ParkingID).
		Scan(&bookable); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("parking %s: %w", booking.ParkingID, domain.ErrNotFound)
		}
		return domain.StorageError(fmt.Errorf("lock parking row %s: %w", booking.ParkingID, err))
	}
	if !bookable {
		return fmt.Errorf("parking %s: %w", booking.ParkingID, domain.ErrInactiveResource)
	}

	existing, err := listActiveByParking(ctx, tx, booking.ParkingID)
	if err != nil {
		return err
	}
	if err := check(existing); err != nil {
		return err
	}

	if err := tx.QueryRow(ctx, `INSERT INTO bookings (id, user_id, parking_id, start_time, end_time, total_price_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		booking.ID, booking.UserID, booking.ParkingID, booking.StartTime, booking.EndTime, booking.TotalPriceCents, string(booking.Status)).
		Scan(&booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return domain.StorageError(fmt.Errorf("insert booking: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.StorageError(fmt.Errorf("commit booking: %w", err))
	}
	return nil
}

func (r *PGBookingRepository) ListActiveByParking(ctx context.Context, parkingID uuid.UUID) ([]domain.Booking, error) {
	return listActiveByParking(ctx, r.db, parkingID)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listActiveByParking(ctx context.Context, q querier, parkingID uuid.UUID) ([]domain.Booking, error) {
	rows, err := q.Query(ctx, `SELECT `+bookingColumns+` FROM bookings b
		WHERE b.parking_id = $1 AND b.status = ANY($2)
		ORDER BY b.start_time`, parkingID, statusStrings(domain.ActiveBookingStatuses))
	if err != nil {
		return nil, domain.StorageError(fmt.Errorf("list bookings of parking %s: %w", parkingID, err))
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, domain.StorageError(err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError(err)
	}
	return bookings, nil
}

// TransitionStatus locks the booking row, lets change decide the next status
// and persists it in the same transaction.
func (r *PGBookingRepository) TransitionStatus(ctx context.Context, id uuid.UUID, change StatusChange) (*domain.OwnedBooking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, domain.StorageError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+bookingColumns+`, p.owner_id FROM bookings b
		JOIN parkings p ON p.id = b.parking_id
		WHERE b.id = $1
		FOR UPDATE OF b`, id)
	var ob domain.OwnedBooking
	if err := scanBooking(row, &ob.Booking, &ob.OwnerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
		}
		return nil, domain.StorageError(err)
	}

	next, err := change(&ob)
	if err != nil {
		return nil, err
	}

	if err := tx.QueryRow(ctx, `UPDATE bookings SET status = $1, updated_at = now() WHERE id = $2 RETURNING updated_at`, string(next), id).
		Scan(&ob.UpdatedAt); err != nil {
		return nil, domain.StorageError(fmt.Errorf("update booking %s: %w", id, err))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.StorageError(fmt.Errorf("commit booking %s: %w", id, err))
	}

	ob.Status = next
	return &ob, nil
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, userID string, statuses []domain.BookingStatus) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings b
		WHERE b.user_id = $1 AND b.status = ANY($2)
		ORDER BY b.start_time DESC`, userID, statusStrings(statuses))
	if err != nil {
		return nil, domain.StorageError(fmt.Errorf("list bookings of user: %w", err))
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, domain.StorageError(err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError(err)
	}
	return bookings, nil
}

func (r *PGBookingRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.OwnedBooking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+`, p.owner_id FROM bookings b
		JOIN parkings p ON p.id = b.parking_id
		WHERE p.owner_id = $1
		ORDER BY b.created_at DESC`, ownerID)
	if err != nil {
		return nil, domain.StorageError(fmt.Errorf("list bookings of owner: %w", err))
	}
	defer rows.Close()

	var bookings []domain.OwnedBooking
	for rows.Next() {
		var ob domain.OwnedBooking
		if err := scanBooking(rows, &ob.Booking, &ob.OwnerID); err != nil {
			return nil, domain.StorageError(err)
		}
		bookings = append(bookings, ob)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError(err)
	}
	return bookings, nil
}

// ListStalePending returns pending bookings whose start has been reached.
func (r *PGBookingRepository) ListStalePending(ctx context.Context, startedBy time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM bookings WHERE status = $1 AND start_time <= $2 ORDER BY start_time`,
		string(domain.BookingStatusPending), startedBy)
	if err != nil {
		return nil, domain.StorageError(fmt.Errorf("list stale pending bookings: %w", err))
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, domain.StorageError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError(err)
	}
	return ids, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
