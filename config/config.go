package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. DPARKR_DATABASE_PASSWORD.
const EnvPrefix = "DPARKR"

type Config struct {
	HTTP     HTTPConfig     `yaml:"http" envconfig:"http"`
	GRPC     GRPCConfig     `yaml:"grpc" envconfig:"grpc"`
	Database DatabaseConfig `yaml:"database" envconfig:"database"`
	Redis    RedisConfig    `yaml:"redis" envconfig:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka" envconfig:"kafka"`
	Booking  BookingConfig  `yaml:"booking" envconfig:"booking"`
	Worker   WorkerConfig   `yaml:"worker" envconfig:"worker"`
	Log      LogConfig      `yaml:"log" envconfig:"log"`
	Maps     MapsConfig     `yaml:"maps" envconfig:"maps"`
}

type HTTPConfig struct {
	Address    string `yaml:"address" envconfig:"address" validate:"required"`
	SwaggerDir string `yaml:"swagger_dir" envconfig:"swagger_dir"`
}

type GRPCConfig struct {
	Address string `yaml:"address" envconfig:"address" validate:"required"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" envconfig:"host" validate:"required"`
	Port     int    `yaml:"port" envconfig:"port" validate:"gt=0"`
	User     string `yaml:"user" envconfig:"user" validate:"required"`
	Password string `yaml:"password" envconfig:"password"`
	Name     string `yaml:"name" envconfig:"name" validate:"required"`
	SSLMode  string `yaml:"ssl_mode" envconfig:"ssl_mode"`
	MaxConns int32  `yaml:"max_conns" envconfig:"max_conns" validate:"gte=0"`
}

func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, sslMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"addr"`
	Password string `yaml:"password" envconfig:"password"`
	DB       int    `yaml:"db" envconfig:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers" envconfig:"brokers"`
	BookingTopic       string   `yaml:"booking_topic" envconfig:"booking_topic"`
	NotificationsTopic string   `yaml:"notifications_topic" envconfig:"notifications_topic"`
	GroupID            string   `yaml:"group_id" envconfig:"group_id"`
}

type BookingConfig struct {
	ParkingsCacheTTL int `yaml:"parkings_cache_ttl_seconds" envconfig:"parkings_cache_ttl_seconds" validate:"gte=0"`
	NearestLimit     int `yaml:"nearest_limit" envconfig:"nearest_limit" validate:"gte=0"`
}

func (b BookingConfig) ParkingsCacheDuration() time.Duration {
	return time.Duration(b.ParkingsCacheTTL) * time.Second
}

type WorkerConfig struct {
	StalePendingSweepMinutes int `yaml:"stale_pending_sweep_minutes" envconfig:"stale_pending_sweep_minutes" validate:"gte=0"`
}

type LogConfig struct {
	Path  string `yaml:"path" envconfig:"path"`
	Debug bool   `yaml:"debug" envconfig:"debug"`
}

type MapsConfig struct {
	APIKey string `yaml:"api_key" envconfig:"api_key"`
}

// LoadConfig reads the YAML file at path, applies DPARKR_* environment overrides
// and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
