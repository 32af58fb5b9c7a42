package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AuthConfig struct {
	AccessSecret string
}

// RoutingConfig tunes the built-in distance stub and the unloaded approach
// leg defaults.
type RoutingConfig struct {
	AverageSpeedKmh   float64
	RoadFactor        float64
	CostPerKm         float64
	DefaultCountry    string
	EmptyDrivingKm    float64
	EmptyDrivingHours float64
}

type OffersConfig struct {
	DefaultMarginPercentage float64
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Routing     RoutingConfig
	Offers      OffersConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Routing: RoutingConfig{
			AverageSpeedKmh:   v.GetFloat64("ROUTING_AVERAGE_SPEED_KMH"),
			RoadFactor:        v.GetFloat64("ROUTING_ROAD_FACTOR"),
			CostPerKm:         v.GetFloat64("ROUTING_COST_PER_KM"),
			DefaultCountry:    v.GetString("ROUTING_DEFAULT_COUNTRY"),
			EmptyDrivingKm:    v.GetFloat64("ROUTING_EMPTY_DRIVING_KM"),
			EmptyDrivingHours: v.GetFloat64("ROUTING_EMPTY_DRIVING_HOURS"),
		},
		Offers: OffersConfig{
			DefaultMarginPercentage: v.GetFloat64("OFFERS_DEFAULT_MARGIN"),
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7090
	}
	if cfg.Routing.AverageSpeedKmh == 0 {
		cfg.Routing.AverageSpeedKmh = 70
	}
	if cfg.Routing.RoadFactor == 0 {
		cfg.Routing.RoadFactor = 1.3
	}
	if cfg.Routing.CostPerKm == 0 {
		cfg.Routing.CostPerKm = 0.35
	}
	if cfg.Routing.DefaultCountry == "" {
		cfg.Routing.DefaultCountry = "DE"
	}
	if cfg.Routing.EmptyDrivingKm == 0 {
		cfg.Routing.EmptyDrivingKm = 200
	}
	if cfg.Routing.EmptyDrivingHours == 0 {
		cfg.Routing.EmptyDrivingHours = 4
	}
	if cfg.Offers.DefaultMarginPercentage == 0 {
		cfg.Offers.DefaultMarginPercentage = 10
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	return nil
}
