package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dparkr/dparkr/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ParkingRepository interface {
	Create(ctx context.Context, p *domain.ParkingSpace) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ParkingSpace, error)
	Update(ctx context.Context, p *domain.ParkingSpace) error
	SoftDelete(ctx context.Context, id uuid.UUID, ownerID string) (*domain.ParkingSpace, error)
	ListActive(ctx context.Context) ([]domain.ParkingSpace, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.ParkingSpace, error)
}

type PGParkingRepository struct {
	db DB
}

func NewParkingRepository(db DB) ParkingRepository {
	return &PGParkingRepository{db: db}
}

const parkingColumns = `id, owner_id, title, description, price_per_hour_cents, latitude, longitude, address, is_active, deleted_at, created_at, updated_at`

func scanParking(row pgx.Row, p *domain.ParkingSpace) error {
	return row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.PricePerHourCents, &p.Latitude, &p.Longitude, &p.Address, &p.IsActive, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PGParkingRepository) Create(ctx context.Context, p *domain.ParkingSpace) error {
	if err := r.db.QueryRow(ctx, `INSERT INTO parkings (id, owner_id, title, description, price_per_hour_cents, latitude, longitude, address, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		p.ID, p.OwnerID, p.Title, p.Description, p.PricePerHourCents, p.Latitude, p.Longitude, p.Address, p.IsActive).
		Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.StorageError(fmt.Errorf("insert parking: %w", err))
	}
	return nil
}

// GetByID returns the space even when it is inactive or soft-deleted.
func (r *PGParkingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ParkingSpace, error) {
	row := r.db.QueryRow(ctx, `SELECT `+parkingColumns+` FROM parkings WHERE id = $1`, id)
	var p domain.ParkingSpace
	if err := scanParking(row, &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("parking %s: %w", id, domain.ErrNotFound)
		}
		return nil, domain.StorageError(err)
	}
	return &p, nil
}

// Update rewrites the mutable fields of a live space owned by p.OwnerID.
func (r *PGParkingRepository) Update(ctx context.Context, p *domain.ParkingSpace) error {
	err := r.db.QueryRow(ctx, `UPDATE parkings
		SET title = $3, description = $4, price_per_hour_cents = $5, latitude = $6, longitude = $7, address = $8, is_active = $9, updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
		RETURNING created_at, updated_at`,
		p.ID, p.OwnerID, p.Title, p.Description, p.PricePerHourCents, p.Latitude, p.Longitude, p.Address, p.IsActive).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("parking %s: %w", p.ID, domain.ErrNotFound)
		}
		return domain.StorageError(fmt.Errorf("update parking %s: %w", p.ID, err))
	}
	return nil
}

func (r *PGParkingRepository) SoftDelete(ctx context.Context, id uuid.UUID, ownerID string) (*domain.ParkingSpace, error) {
	row := r.db.QueryRow(ctx, `UPDATE parkings
		SET is_active = FALSE, deleted_at = now(), updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
		RETURNING `+parkingColumns, id, ownerID)
	var p domain.ParkingSpace
	if err := scanParking(row, &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("parking %s: %w", id, domain.ErrNotFound)
		}
		return nil, domain.StorageError(fmt.Errorf("delete parking %s: %w", id, err))
	}
	return &p, nil
}

func (r *PGParkingRepository) ListActive(ctx context.Context) ([]domain.ParkingSpace, error) {
	return r.list(ctx, `SELECT `+parkingColumns+` FROM parkings
		WHERE is_active AND deleted_at IS NULL
		ORDER BY created_at DESC`)
}

func (r *PGParkingRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.ParkingSpace, error) {
	return r.list(ctx, `SELECT `+parkingColumns+` FROM parkings
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`, ownerID)
}

func (r *PGParkingRepository) list(ctx context.Context, query string, args ...any) ([]domain.ParkingSpace, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.StorageError(fmt.Errorf("list parkings: %w", err))
	}
	defer rows.Close()

	parkings := make([]domain.ParkingSpace, 0)
	for rows.Next() {
		var p domain.ParkingSpace
		if err := scanParking(rows, &p); err != nil {
			return nil, domain.StorageError(err)
		}
		parkings = append(parkings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError(err)
	}
	return parkings, nil
}

var _ ParkingRepository = (*PGParkingRepository)(nil)
