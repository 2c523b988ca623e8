package config

import (
	"os"
	"strconv"
	"time"
)

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// MQConfig holds RabbitMQ settings.
type MQConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds Redis settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// WatiConfig holds the WhatsApp provider (WATI) API settings.
type WatiConfig struct {
	APIURL string `yaml:"api_url"`
	APIKey string `yaml:"api_key"`
}

// EscalationConfig tunes the escalation sweep. The maximum escalation
// level is fixed in the engine, not configurable.
type EscalationConfig struct {
	WaitDays      int    `yaml:"wait_days"`
	SweepInterval string `yaml:"sweep_interval"`
}

// SweepIntervalDuration parses the sweep interval, defaulting to 6 hours.
func (c EscalationConfig) SweepIntervalDuration() time.Duration {
	if c.SweepInterval == "" {
		return 6 * time.Hour
	}
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil || d <= 0 {
		return 6 * time.Hour
	}
	return d
}

// WaitThreshold returns the configured wait threshold as a duration,
// defaulting to 7 days.
func (c EscalationConfig) WaitThreshold() time.Duration {
	days := c.WaitDays
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

// OverrideDBFromEnv applies DB_* environment overrides.
func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
}

// OverrideMQFromEnv applies MQ_URL environment override.
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv applies REDIS_* environment overrides.
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideJWTFromEnv applies JWT_SECRET environment override.
func OverrideJWTFromEnv(cfg *JWTConfig) {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Secret = secret
	}
}

// OverrideServerFromEnv applies SERVER_PORT environment override.
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

// OverrideWatiFromEnv applies WATI_* environment overrides.
func OverrideWatiFromEnv(cfg *WatiConfig) {
	if url := os.Getenv("WATI_API_URL"); url != "" {
		cfg.APIURL = url
	}
	if key := os.Getenv("WATI_API_KEY"); key != "" {
		cfg.APIKey = key
	}
}

// OverrideEscalationFromEnv applies ESCALATION_* environment overrides.
func OverrideEscalationFromEnv(cfg *EscalationConfig) {
	if days := os.Getenv("ESCALATION_WAIT_DAYS"); days != "" {
		if d, err := strconv.Atoi(days); err == nil {
			cfg.WaitDays = d
		}
	}
	if interval := os.Getenv("ESCALATION_SWEEP_INTERVAL"); interval != "" {
		cfg.SweepInterval = interval
	}
}
