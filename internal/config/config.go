package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// OutputDir is where analysis documents are written
	OutputDir string

	// TopLimit is how many rows the top command prints by default
	TopLimit int

	// DataDir holds the local play-history database
	DataDir string

	// LogLevel is the default log level (debug, info, warn, error)
	LogLevel string
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	// Set defaults
	v.SetDefault("output_dir", "replay-output")
	v.SetDefault("top_limit", 10)
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("log_level", "info")

	// Read config file (optional - don't fail if missing)
	_ = v.ReadInConfig()

	// Read from environment variables
	v.SetEnvPrefix("REPLAY")
	v.AutomaticEnv()

	// Map config to struct
	cfg := &Config{
		OutputDir: v.GetString("output_dir"),
		TopLimit:  v.GetInt("top_limit"),
		DataDir:   v.GetString("data_dir"),
		LogLevel:  v.GetString("log_level"),
	}

	return cfg, nil
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "replay")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// defaultDataDir returns the default local-data directory path
func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".local", "share", "replay")
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// Save writes configuration to file
func (c *Config) Save() error {
	v := viper.New()

	// Set config file path
	configDir := getConfigDir()
	configFile := filepath.Join(configDir, "config.yaml")

	// Set values in viper
	v.Set("output_dir", c.OutputDir)
	v.Set("top_limit", c.TopLimit)
	v.Set("data_dir", c.DataDir)
	v.Set("log_level", c.LogLevel)

	// Write to file
	return v.WriteConfigAs(configFile)
}
