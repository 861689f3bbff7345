package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dparkr/dparkr/config"
	"github.com/dparkr/dparkr/internal/bootstrap"
	"github.com/dparkr/dparkr/internal/cache"
	"github.com/dparkr/dparkr/internal/geocode"
	"github.com/dparkr/dparkr/internal/kafka"
	"github.com/dparkr/dparkr/internal/logger"
	"github.com/dparkr/dparkr/internal/repository"
	"github.com/dparkr/dparkr/internal/service/booking"
	"github.com/dparkr/dparkr/internal/service/parkings"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logg, err := logger.New(cfg.Log, "app")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := repository.NewPool(ctx, cfg.Database)
	if err != nil {
		logg.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		logg.Fatal("migrate schema", zap.Error(err))
	}

	healthChecks := map[string]bootstrap.HealthCheck{"postgres": pool.Ping}

	parkingOpts := []parkings.ParkingServiceOption{parkings.WithNearestLimit(cfg.Booking.NearestLimit)}
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cache.NewRedisClient(cfg.Redis), cfg.Booking.ParkingsCacheDuration())
		defer redisCache.Close()
		parkingOpts = append(parkingOpts, parkings.WithCache(redisCache))
		healthChecks["redis"] = redisCache.Ping
	}
	if cfg.Maps.APIKey != "" {
		geocoder, err := geocode.NewGeocoder(cfg.Maps.APIKey)
		if err != nil {
			logg.Fatal("init geocoder", zap.Error(err))
		}
		parkingOpts = append(parkingOpts, parkings.WithGeocoder(geocoder))
	}

	var producer booking.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, logg)
		defer kafkaProducer.Close()
		producer = kafkaProducer
		healthChecks["kafka"] = kafkaProducer.CheckConnection
	}

	parkingRepo := repository.NewParkingRepository(pool)
	parkingService := parkings.NewParkingService(parkingRepo, repository.NewFavoriteRepository(pool), logg, parkingOpts...)
	bookingService := booking.NewBookingService(
		repository.NewBookingRepository(pool),
		parkingRepo,
		producer,
		cfg.Kafka.BookingTopic,
		logg,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	err = bootstrap.Run(ctx, cfg, logg, bootstrap.Services{
		Bookings:     bookingService,
		Parkings:     parkingService,
		HealthChecks: healthChecks,
	})
	if err != nil {
		logg.Fatal("server error", zap.Error(err))
	}
}
