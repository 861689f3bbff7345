package domain

import (
	"time"

	"github.com/google/uuid"
)

type ParkingSpace struct {
	ID                uuid.UUID
	OwnerID           string
	Title             string
	Description       string
	PricePerHourCents int64
	Latitude          float64
	Longitude         float64
	Address           string
	IsActive          bool
	DeletedAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Bookable reports whether new bookings may be placed on the space.
func (p *ParkingSpace) Bookable() bool {
	return p.IsActive && p.DeletedAt == nil
}

type Favorite struct {
	UserID    string
	ParkingID uuid.UUID
	CreatedAt time.Time
}

// NearbyParking is a parking space annotated with its distance from a search point.
type NearbyParking struct {
	ParkingSpace
	DistanceKm float64
}
