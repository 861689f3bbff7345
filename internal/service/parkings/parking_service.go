package parkings

import (
	"context"
	"errors"
	"fmt"

	"github.com/dparkr/dparkr/internal/domain"
	"github.com/dparkr/dparkr/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultNearestLimit = 5

type ParkingUseCase interface {
	CreateParking(ctx context.Context, ownerID string, input ParkingInput) (*domain.ParkingSpace, error)
	UpdateParking(ctx context.Context, ownerID string, id uuid.UUID, input ParkingInput) (*domain.ParkingSpace, error)
	DeleteParking(ctx context.Context, ownerID string, id uuid.UUID) error
	ListActive(ctx context.Context) ([]domain.ParkingSpace, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.ParkingSpace, error)
	Nearest(ctx context.Context, lat, lng float64, limit int) ([]domain.NearbyParking, error)
	AddFavorite(ctx context.Context, userID string, parkingID uuid.UUID) error
	RemoveFavorite(ctx context.Context, userID string, parkingID uuid.UUID) error
	ListFavorites(ctx context.Context, userID string) ([]domain.ParkingSpace, error)
}

type ParkingCache interface {
	GetActiveParkings(ctx context.Context) ([]domain.ParkingSpace, error)
	SetActiveParkings(ctx context.Context, parkings []domain.ParkingSpace) error
	InvalidateActiveParkings(ctx context.Context) error
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (float64, float64, error)
}

// ParkingInput carries the owner-editable fields of a parking space.
// IsActive defaults to true on create and is left unchanged on update when nil.
type ParkingInput struct {
	Title             string  `json:"title" validate:"required,max=200"`
	Description       string  `json:"description" validate:"max=2000"`
	PricePerHourCents int64   `json:"price_per_hour_cents" validate:"gte=0"`
	Latitude          float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude         float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Address           string  `json:"address" validate:"max=500"`
	IsActive          *bool   `json:"is_active"`
}

type ParkingService struct {
	repo         repository.ParkingRepository
	favorites    repository.FavoriteRepository
	cache        ParkingCache
	geocoder     Geocoder
	validate     *validator.Validate
	nearestLimit int
	log          *zap.Logger
}

type ParkingServiceOption func(*ParkingService)

func WithCache(cache ParkingCache) ParkingServiceOption {
	return func(s *ParkingService) {
		s.cache = cache
	}
}

func WithGeocoder(geocoder Geocoder) ParkingServiceOption {
	return func(s *ParkingService) {
		s.geocoder = geocoder
	}
}

func WithNearestLimit(limit int) ParkingServiceOption {
	return func(s *ParkingService) {
		if limit > 0 {
			s.nearestLimit = limit
		}
	}
}

func NewParkingService(repo repository.ParkingRepository, favorites repository.FavoriteRepository, log *zap.Logger, opts ...ParkingServiceOption) *ParkingService {
	service := &ParkingService{
		repo:         repo,
		favorites:    favorites,
		validate:     validator.New(),
		nearestLimit: defaultNearestLimit,
		log:          log.With(zap.String("service", "parkings")),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *ParkingService) CreateParking(ctx context.Context, ownerID string, input ParkingInput) (*domain.ParkingSpace, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", domain.ErrInvalidInput)
	}
	if err := s.prepare(ctx, &input); err != nil {
		return nil, err
	}

	parking := &domain.ParkingSpace{
		ID:       uuid.New(),
		OwnerID:  ownerID,
		IsActive: true,
	}
	apply(parking, input)

	if err := s.repo.Create(ctx, parking); err != nil {
		s.log.Error("failed to create parking", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, err
	}

	s.log.Info("parking created", zap.Stringer("parking_id", parking.ID), zap.String("owner_id", ownerID))
	s.invalidate(ctx)
	return parking, nil
}

// UpdateParking rewrites a live space. Spaces owned by someone else are
// reported as not found.
func (s *ParkingService) UpdateParking(ctx context.Context, ownerID string, id uuid.UUID, input ParkingInput) (*domain.ParkingSpace, error) {
	if err := s.prepare(ctx, &input); err != nil {
		return nil, err
	}

	parking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if parking.OwnerID != ownerID || parking.DeletedAt != nil {
		return nil, fmt.Errorf("parking %s: %w", id, domain.ErrNotFound)
	}

	apply(parking, input)
	if err := s.repo.Update(ctx, parking); err != nil {
		return nil, err
	}

	s.log.Info("parking updated", zap.Stringer("parking_id", id))
	s.invalidate(ctx)
	return parking, nil
}

// DeleteParking soft-deletes the space. Its bookings are kept.
func (s *ParkingService) DeleteParking(ctx context.Context, ownerID string, id uuid.UUID) error {
	if _, err := s.repo.SoftDelete(ctx, id, ownerID); err != nil {
		return err
	}
	s.log.Info("parking deleted", zap.Stringer("parking_id", id))
	s.invalidate(ctx)
	return nil
}

func (s *ParkingService) ListActive(ctx context.Context) ([]domain.ParkingSpace, error) {
	if s.cache != nil {
		cached, err := s.cache.GetActiveParkings(ctx)
		if err != nil {
			s.log.Warn("parkings cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	parkings, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetActiveParkings(ctx, parkings); err != nil {
			s.log.Warn("parkings cache write failed", zap.Error(err))
		}
	}
	return parkings, nil
}

func (s *ParkingService) ListByOwner(ctx context.Context, ownerID string) ([]domain.ParkingSpace, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Nearest ranks active spaces by great-circle distance from (lat, lng).
func (s *ParkingService) Nearest(ctx context.Context, lat, lng float64, limit int) ([]domain.NearbyParking, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = s.nearestLimit
	}

	parkings, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return domain.NearestParkings(parkings, lat, lng, limit), nil
}

// AddFavorite is idempotent. The space must exist and not be deleted.
func (s *ParkingService) AddFavorite(ctx context.Context, userID string, parkingID uuid.UUID) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	parking, err := s.repo.GetByID(ctx, parkingID)
	if err != nil {
		return err
	}
	if parking.DeletedAt != nil {
		return fmt.Errorf("parking %s: %w", parkingID, domain.ErrNotFound)
	}
	return s.favorites.Add(ctx, userID, parkingID)
}

func (s *ParkingService) RemoveFavorite(ctx context.Context, userID string, parkingID uuid.UUID) error {
	return s.favorites.Remove(ctx, userID, parkingID)
}

func (s *ParkingService) ListFavorites(ctx context.Context, userID string) ([]domain.ParkingSpace, error) {
	return s.favorites.ListByUser(ctx, userID)
}

// prepare validates input and fills coordinates from the address when the
// caller left both at zero.
func (s *ParkingService) prepare(ctx context.Context, input *ParkingInput) error {
	if err := s.validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, verrs.Error())
		}
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, err.Error())
	}

	if input.Latitude == 0 && input.Longitude == 0 && input.Address != "" && s.geocoder != nil {
		lat, lng, err := s.geocoder.Geocode(ctx, input.Address)
		if err != nil {
			s.log.Warn("geocoding failed", zap.String("address", input.Address), zap.Error(err))
			return err
		}
		input.Latitude, input.Longitude = lat, lng
	}
	return nil
}

func (s *ParkingService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateActiveParkings(ctx); err != nil {
		s.log.Warn("parkings cache invalidation failed", zap.Error(err))
	}
}

func apply(p *domain.ParkingSpace, input ParkingInput) {
	p.Title = input.Title
	p.Description = input.Description
	p.PricePerHourCents = input.PricePerHourCents
	p.Latitude = input.Latitude
	p.Longitude = input.Longitude
	p.Address = input.Address
	if input.IsActive != nil {
		p.IsActive = *input.IsActive
	}
}

var _ ParkingUseCase = (*ParkingService)(nil)
