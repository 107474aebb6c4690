package config

import (
	"os"
	"strconv"

	"github.com/rlpappan/pvcaptest/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Data     DataConfig
	Test     TestConfig
}

// DatabaseConfig holds database connection settings. URL may be empty: runs
// are then kept in memory only.
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
}

// DataConfig holds the measured/simulated dataset file locations
type DataConfig struct {
	DASFile string
	SimFile string
}

// TestConfig holds the default capacity-test parameters
type TestConfig struct {
	Nameplate float64
	Tolerance string
	POA       float64
	TAmb      float64
	WVel      float64
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Data: DataConfig{
			DASFile: os.Getenv("DAS_FILE"),
			SimFile: os.Getenv("SIM_FILE"),
		},
		Test: TestConfig{
			Nameplate: getEnvFloatOrDefault("NAMEPLATE", 0),
			Tolerance: getEnvOrDefault("TOLERANCE", "+/- 10"),
			POA:       getEnvFloatOrDefault("RC_POA", 0),
			TAmb:      getEnvFloatOrDefault("RC_T_AMB", 0),
			WVel:      getEnvFloatOrDefault("RC_W_VEL", 0),
		},
	}

	if err := validate(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validate(c *Config) error {
	if c.Server.Port == "" {
		return errors.ConfigInvalid("PORT cannot be empty")
	}
	if c.Test.Nameplate < 0 {
		return errors.ConfigInvalid("NAMEPLATE cannot be negative")
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloatOrDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
