package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dparkr/dparkr/config"
	"github.com/dparkr/dparkr/internal/kafka"
	"github.com/dparkr/dparkr/internal/logger"
	"github.com/dparkr/dparkr/internal/notify"
	"github.com/dparkr/dparkr/internal/repository"
	"github.com/dparkr/dparkr/internal/service/booking"
	"github.com/dparkr/dparkr/internal/worker"
	"go.uber.org/zap"
)

const defaultSweepInterval = 5 * time.Minute

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logg, err := logger.New(cfg.Log, "worker")
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

	var producer booking.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, logg)
		defer kafkaProducer.Close()
		producer = kafkaProducer
	}

	bookingService := booking.NewBookingService(
		repository.NewBookingRepository(pool),
		repository.NewParkingRepository(pool),
		producer,
		cfg.Kafka.BookingTopic,
		logg,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	var source worker.MessageSource
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.NotificationsTopic != "" {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, logg)
		defer consumer.Close()
		source = consumer
	}

	interval := time.Duration(cfg.Worker.StalePendingSweepMinutes) * time.Minute
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	w := worker.New(bookingService, notify.NewSender(logg), source, interval, logg)
	logg.Info("worker started", zap.Duration("sweep_interval", interval))
	if err := w.Run(ctx); err != nil {
		logg.Fatal("worker stopped", zap.Error(err))
	}
	logg.Info("worker stopped")
}
