// Package config provides configuration management for the museo exhibit server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the server.
type Config struct {
	// Server configuration
	Port string
	Env  string

	// Database configuration
	DatabaseURL string

	// CORS configuration
	CORSOrigin string

	// Serial link configuration
	SerialBaudRate         int
	SerialReadTimeout      time.Duration // Byte-level read timeout
	SerialHandshakeTimeout time.Duration // Window to receive the identification literal
	SerialScanInterval     time.Duration // Pause between full discovery passes
	SerialHandshake        string        // Literal the device sends to identify itself
	SerialAck              string        // Literal sent back on identification
	SerialReset            string        // Literal sent before closing the port

	// Device input configuration
	DeviceWireFormat  string  // "text" (KEY=VALUE) or "json"
	JoystickDeadzone  float64 // Normalized magnitude treated as centered
	JoystickThreshold float64 // Normalized magnitude that counts as a push
	InputCooldown     time.Duration

	// Sequence playback configuration
	AudioEnabled       bool
	AudioStartTimeout  time.Duration
	AudioSettleDelay   time.Duration
	TriviaResolveDelay time.Duration
	SequenceLoop       bool

	// Content locations
	SequenceDir  string
	AssetDir     string
	BindingsFile string
}

// Load loads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		// Server
		Port: getEnv("PORT", "4000"),
		Env:  getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "file:./museo.db"),

		// CORS
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),

		// Serial link
		SerialBaudRate:         getEnvInt("SERIAL_BAUD_RATE", 9600),
		SerialReadTimeout:      getEnvDuration("SERIAL_READ_TIMEOUT_MS", 50*time.Millisecond),
		SerialHandshakeTimeout: getEnvDuration("SERIAL_HANDSHAKE_TIMEOUT_MS", 1500*time.Millisecond),
		SerialScanInterval:     getEnvDuration("SERIAL_SCAN_INTERVAL_MS", 2*time.Second),
		SerialHandshake:        getEnv("SERIAL_HANDSHAKE", "Museo Digital"),
		SerialAck:              getEnv("SERIAL_ACK", "Te encontre"),
		SerialReset:            getEnv("SERIAL_RESET", "Reset Connection"),

		// Device input
		DeviceWireFormat:  getEnv("DEVICE_WIRE_FORMAT", "text"),
		JoystickDeadzone:  getEnvFloat("JOYSTICK_DEADZONE", 0.1),
		JoystickThreshold: getEnvFloat("JOYSTICK_THRESHOLD", 0.6),
		InputCooldown:     getEnvDuration("INPUT_COOLDOWN_MS", 300*time.Millisecond),

		// Playback
		AudioEnabled:       getEnvBool("AUDIO_ENABLED", true),
		AudioStartTimeout:  getEnvDuration("AUDIO_START_TIMEOUT_MS", 2*time.Second),
		AudioSettleDelay:   getEnvDuration("AUDIO_SETTLE_MS", 50*time.Millisecond),
		TriviaResolveDelay: getEnvDuration("TRIVIA_RESOLVE_DELAY_MS", 2500*time.Millisecond),
		SequenceLoop:       getEnvBool("SEQUENCE_LOOP", false),

		// Content
		SequenceDir:  getEnv("SEQUENCE_DIR", "./content/sequences"),
		AssetDir:     getEnv("ASSET_DIR", "./content/assets"),
		BindingsFile: getEnv("BINDINGS_FILE", "./content/bindings.yaml"),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default value.
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns the float value of an environment variable or a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration reads a millisecond count from an environment variable.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
