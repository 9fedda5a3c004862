package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Rules    RulesConfig    `mapstructure:"rules"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	// Store selects the repository: "postgres" or "memory"
	Store string `mapstructure:"store"`
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// AuthConfig holds the authentication configuration
type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	TokenHours    int    `mapstructure:"token_hours"`
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RulesConfig points at the allocation rules and the name-based classification
type RulesConfig struct {
	File               string `mapstructure:"file"`
	RentalMarker       string `mapstructure:"rental_marker"`
	SalaryCategoryName string `mapstructure:"salary_category"`
}

// KafkaConfig enables ledger event publishing when Brokers is set
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// BrokerList splits the comma separated broker list
func (k KafkaConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode,
	)
}

// defaults and the environment variable of every key
var keys = []struct {
	key string
	env string
	def interface{}
}{
	{"server.port", "SERVER_PORT", 8080},
	{"server.mode", "GIN_MODE", "release"},
	{"database.host", "DB_HOST", "localhost"},
	{"database.port", "DB_PORT", 5432},
	{"database.username", "DB_USERNAME", "postgres"},
	{"database.password", "DB_PASSWORD", "password"},
	{"database.name", "DB_NAME", "rentledger"},
	{"database.sslmode", "DB_SSLMODE", "disable"},
	{"database.max_open", "DB_MAX_OPEN", 25},
	{"database.max_idle", "DB_MAX_IDLE", 5},
	{"auth.jwt_secret", "JWT_SECRET", "your-secret-key-here"},
	{"auth.token_hours", "JWT_TOKEN_HOURS", 24},
	{"auth.admin_username", "ADMIN_USERNAME", "admin"},
	{"auth.admin_password", "ADMIN_PASSWORD", ""},
	{"log.level", "LOG_LEVEL", "info"},
	{"log.format", "LOG_FORMAT", "text"},
	{"rules.file", "RULES_FILE", ""},
	{"rules.rental_marker", "RENTAL_MARKER", "rent"},
	{"rules.salary_category", "SALARY_CATEGORY", "employee salary"},
	{"kafka.brokers", "KAFKA_BROKERS", ""},
	{"kafka.topic", "KAFKA_TOPIC", "rentledger.ledger-entries"},
	{"store", "STORE", "postgres"},
}

// LoadConfig loads the configuration from an optional YAML file and environment variables.
// Environment variables win over the file, the file wins over defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	for _, k := range keys {
		v.SetDefault(k.key, k.def)
		if err := v.BindEnv(k.key, k.env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k.env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Store {
	case "postgres", "memory":
	default:
		return fmt.Errorf("store must be postgres or memory, got %q", c.Store)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Auth.TokenHours <= 0 {
		return errors.New("auth.token_hours must be positive")
	}
	if len(c.Kafka.BrokerList()) > 0 && c.Kafka.Topic == "" {
		return errors.New("kafka.topic is required when brokers are set")
	}
	return nil
}
