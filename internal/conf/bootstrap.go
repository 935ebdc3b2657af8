// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables,
// with CLI flag overrides.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with CAMPUSLINK_.
//
// Configuration priority: CLI flags > Environment variables > Config file > Defaults
//
// Required environment variables:
//   - MYSQL_DSN or CAMPUSLINK_DATA_DATABASE_SOURCE: MySQL connection string
//
// Parameters:
//   - configPath: Path to the configuration file or directory
//
// Returns:
//   - *Bootstrap: Loaded configuration
//   - error: Configuration loading or validation error
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Enable environment variable support with CAMPUSLINK_ prefix
	v.SetEnvPrefix("CAMPUSLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow direct environment variable names (without CAMPUSLINK_ prefix) for compatibility
	// Bind specific environment variables for required fields
	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "CAMPUSLINK_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("data.redis.addr", "CAMPUSLINK_DATA_REDIS_ADDR")
	_ = v.BindEnv("services.service_token", "SERVICE_TOKEN", "CAMPUSLINK_SERVICES_SERVICE_TOKEN")

	// Load configuration file
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// If config file is specified but not found, return error
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	// Parse configuration into Bootstrap structure
	bc := &Bootstrap{
		Server: &Server{
			HTTP: &ServerHTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: v.GetDuration("server.http.timeout"),
			},
		},
		Data: &Data{
			Database: &Database{
				Driver: v.GetString("data.database.driver"),
				Source: v.GetString("data.database.source"),
			},
			Redis: &Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				Password:     v.GetString("data.redis.password"),
				ReadTimeout:  v.GetDuration("data.redis.read_timeout"),
				WriteTimeout: v.GetDuration("data.redis.write_timeout"),
			},
		},
		Client: &Client{
			MaxRetries:              v.GetInt("client.max_retries"),
			BaseBackoff:             v.GetDuration("client.base_backoff"),
			Timeout:                 v.GetDuration("client.timeout"),
			CircuitFailureThreshold: v.GetInt("client.circuit_failure_threshold"),
			CircuitOpenTimeout:      v.GetDuration("client.circuit_open_timeout"),
			ProxyURL:                v.GetString("client.proxy_url"),
		},
		Services: &Services{
			Gateway:       v.GetString("services.gateway"),
			Users:         v.GetString("services.users"),
			Booking:       v.GetString("services.booking"),
			GPA:           v.GetString("services.gpa"),
			Notifications: v.GetString("services.notifications"),
			ServiceToken:  v.GetString("services.service_token"),
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			OutputFile: v.GetString("log.output_file"),
			Env:        v.GetString("log.env"),
		},
	}

	// Validate required fields
	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 30*time.Second)

	// Data defaults
	v.SetDefault("data.database.driver", "mysql")
	// Note: data.database.source (MYSQL_DSN) is required from environment

	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	// Outbound client defaults
	v.SetDefault("client.max_retries", 3)
	v.SetDefault("client.base_backoff", 1*time.Second)
	v.SetDefault("client.timeout", 10*time.Second)
	v.SetDefault("client.circuit_failure_threshold", 5)
	v.SetDefault("client.circuit_open_timeout", 60*time.Second)

	// Peer service defaults (single-host development layout)
	v.SetDefault("services.gateway", "http://localhost:5001")
	v.SetDefault("services.users", "http://localhost:8002")
	v.SetDefault("services.booking", "http://localhost:8001")
	v.SetDefault("services.gpa", "http://localhost:8003")
	v.SetDefault("services.notifications", "http://localhost:8004")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that all required configuration fields are present and valid.
// It returns an error listing all missing required fields.
func Validate(bc *Bootstrap) error {
	var missingFields []string

	// Check required database configuration
	if bc.Data == nil || bc.Data.Database == nil || bc.Data.Database.Source == "" {
		missingFields = append(missingFields, "data.database.source (MYSQL_DSN)")
	}

	if bc.Services == nil || bc.Services.Notifications == "" {
		missingFields = append(missingFields, "services.notifications")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required configuration fields: %s", strings.Join(missingFields, ", "))
	}

	if bc.Client != nil && bc.Client.MaxRetries < 1 {
		return fmt.Errorf("client.max_retries must be >= 1, got %d", bc.Client.MaxRetries)
	}

	return nil
}
