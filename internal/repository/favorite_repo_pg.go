package repository

import (
	"context"
	"fmt"

	"github.com/dparkr/dparkr/internal/domain"
	"github.com/google/uuid"
)

type FavoriteRepository interface {
	Add(ctx context.Context, userID string, parkingID uuid.UUID) error
	Remove(ctx context.Context, userID string, parkingID uuid.UUID) error
	ListByUser(ctx context.Context, userID string) ([]domain.ParkingSpace, error)
}

type PGFavoriteRepository struct {
	db DB
}

func NewFavoriteRepository(db DB) FavoriteRepository {
	return &PGFavoriteRepository{db: db}
}

// Add is idempotent.
func (r *PGFavoriteRepository) Add(ctx context.Context, userID string, parkingID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `INSERT INTO favorites (user_id, parking_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, parkingID); err != nil {
		return domain.StorageError(fmt.Errorf("add favorite: %w", err))
	}
	return nil
}

func (r *PGFavoriteRepository) Remove(ctx context.Context, userID string, parkingID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND parking_id = $2`, userID, parkingID); err != nil {
		return domain.StorageError(fmt.Errorf("remove favorite: %w", err))
	}
	return nil
}

// ListByUser returns the favorited spaces that are still live, newest favorite first.
func (r *PGFavoriteRepository) ListByUser(ctx context.Context, userID string) ([]domain.ParkingSpace, error) {
	rows, err := r.db.Query(ctx, `SELECT p.id, p.owner_id, p.title, p.description, p.price_per_hour_cents, p.latitude, p.longitude, p.address, p.is_active, p.deleted_at, p.created_at, p.updated_at
		FROM favorites f
		JOIN parkings p ON p.id = f.parking_id
		WHERE f.user_id = $1 AND p.deleted_at IS NULL
		ORDER BY f.created_at DESC`, userID)
	if err != nil {
		return nil, domain.StorageError(fmt.Errorf("list favorites: %w", err))
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

var _ FavoriteRepository = (*PGFavoriteRepository)(nil)
