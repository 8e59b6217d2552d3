package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "4000" {
		t.Errorf("Expected default Port to be '4000', got '%s'", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("Expected default Env to be 'development', got '%s'", cfg.Env)
	}
	if cfg.SerialBaudRate != 9600 {
		t.Errorf("Expected SerialBaudRate to be 9600, got %d", cfg.SerialBaudRate)
	}
	if cfg.SerialHandshakeTimeout != 1500*time.Millisecond {
		t.Errorf("Expected SerialHandshakeTimeout to be 1.5s, got %v", cfg.SerialHandshakeTimeout)
	}
	if cfg.SerialHandshake != "Museo Digital" {
		t.Errorf("Expected SerialHandshake to be 'Museo Digital', got '%s'", cfg.SerialHandshake)
	}
	if cfg.SerialAck != "Te encontre" {
		t.Errorf("Expected SerialAck to be 'Te encontre', got '%s'", cfg.SerialAck)
	}
	if cfg.SerialReset != "Reset Connection" {
		t.Errorf("Expected SerialReset to be 'Reset Connection', got '%s'", cfg.SerialReset)
	}
	if cfg.DeviceWireFormat != "text" {
		t.Errorf("Expected DeviceWireFormat to be 'text', got '%s'", cfg.DeviceWireFormat)
	}
	if cfg.AudioStartTimeout != 2*time.Second {
		t.Errorf("Expected AudioStartTimeout to be 2s, got %v", cfg.AudioStartTimeout)
	}
	if cfg.AudioSettleDelay != 50*time.Millisecond {
		t.Errorf("Expected AudioSettleDelay to be 50ms, got %v", cfg.AudioSettleDelay)
	}
	if cfg.SequenceLoop {
		t.Error("Expected SequenceLoop to default to false")
	}
	if !cfg.AudioEnabled {
		t.Error("Expected AudioEnabled to default to true")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "file:./prod.db")
	t.Setenv("SERIAL_BAUD_RATE", "115200")
	t.Setenv("SERIAL_HANDSHAKE_TIMEOUT_MS", "3000")
	t.Setenv("SERIAL_HANDSHAKE", "Exhibit Two")
	t.Setenv("DEVICE_WIRE_FORMAT", "json")
	t.Setenv("JOYSTICK_DEADZONE", "0.25")
	t.Setenv("INPUT_COOLDOWN_MS", "500")
	t.Setenv("SEQUENCE_LOOP", "true")
	t.Setenv("AUDIO_ENABLED", "false")
	t.Setenv("SEQUENCE_DIR", "/srv/sequences")
	t.Setenv("CORS_ORIGIN", "http://example.com")

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Expected Port to be '8080', got '%s'", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("Expected Env to be 'production', got '%s'", cfg.Env)
	}
	if cfg.DatabaseURL != "file:./prod.db" {
		t.Errorf("Expected DatabaseURL to be 'file:./prod.db', got '%s'", cfg.DatabaseURL)
	}
	if cfg.SerialBaudRate != 115200 {
		t.Errorf("Expected SerialBaudRate to be 115200, got %d", cfg.SerialBaudRate)
	}
	if cfg.SerialHandshakeTimeout != 3*time.Second {
		t.Errorf("Expected SerialHandshakeTimeout to be 3s, got %v", cfg.SerialHandshakeTimeout)
	}
	if cfg.SerialHandshake != "Exhibit Two" {
		t.Errorf("Expected SerialHandshake to be 'Exhibit Two', got '%s'", cfg.SerialHandshake)
	}
	if cfg.DeviceWireFormat != "json" {
		t.Errorf("Expected DeviceWireFormat to be 'json', got '%s'", cfg.DeviceWireFormat)
	}
	if cfg.JoystickDeadzone != 0.25 {
		t.Errorf("Expected JoystickDeadzone to be 0.25, got %v", cfg.JoystickDeadzone)
	}
	if cfg.InputCooldown != 500*time.Millisecond {
		t.Errorf("Expected InputCooldown to be 500ms, got %v", cfg.InputCooldown)
	}
	if !cfg.SequenceLoop {
		t.Error("Expected SequenceLoop to be true")
	}
	if cfg.AudioEnabled {
		t.Error("Expected AudioEnabled to be false")
	}
	if cfg.SequenceDir != "/srv/sequences" {
		t.Errorf("Expected SequenceDir to be '/srv/sequences', got '%s'", cfg.SequenceDir)
	}
	if cfg.CORSOrigin != "http://example.com" {
		t.Errorf("Expected CORSOrigin to be 'http://example.com', got '%s'", cfg.CORSOrigin)
	}
}

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		env      string
		expected bool
	}{
		{"development", true},
		{"production", false},
		{"staging", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := &Config{Env: tt.env}
			if got := cfg.IsDevelopment(); got != tt.expected {
				t.Errorf("IsDevelopment() = %v, want %v for env '%s'", got, tt.expected, tt.env)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	tests := []struct {
		env      string
		expected bool
	}{
		{"production", true},
		{"development", false},
		{"staging", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := &Config{Env: tt.env}
			if got := cfg.IsProduction(); got != tt.expected {
				t.Errorf("IsProduction() = %v, want %v for env '%s'", got, tt.expected, tt.env)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_GET_ENV", "custom_value")

	result := getEnv("TEST_GET_ENV", "default")
	if result != "custom_value" {
		t.Errorf("Expected 'custom_value', got '%s'", result)
	}

	result = getEnv("NON_EXISTING_VAR_12345_UNIQUE", "default_value")
	if result != "default_value" {
		t.Errorf("Expected 'default_value', got '%s'", result)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("TEST_INT_VAR", "42")
	if result := getEnvInt("TEST_INT_VAR", 10); result != 42 {
		t.Errorf("Expected 42, got %d", result)
	}

	t.Setenv("TEST_INVALID_INT", "not_a_number")
	if result := getEnvInt("TEST_INVALID_INT", 10); result != 10 {
		t.Errorf("Expected default 10 for invalid int, got %d", result)
	}

	if result := getEnvInt("NON_EXISTING_INT_VAR_12345_UNIQUE", 100); result != 100 {
		t.Errorf("Expected default 100, got %d", result)
	}
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("TEST_FLOAT_VAR", "0.35")
	if result := getEnvFloat("TEST_FLOAT_VAR", 0.1); result != 0.35 {
		t.Errorf("Expected 0.35, got %v", result)
	}

	t.Setenv("TEST_INVALID_FLOAT", "lots")
	if result := getEnvFloat("TEST_INVALID_FLOAT", 0.1); result != 0.1 {
		t.Errorf("Expected default 0.1 for invalid float, got %v", result)
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		setEnv   bool
		expected time.Duration
	}{
		{"milliseconds", "250", true, 250 * time.Millisecond},
		{"zero", "0", true, 0},
		{"negative_returns_default", "-5", true, time.Second},
		{"invalid_returns_default", "soon", true, time.Second},
		{"unset_returns_default", "", false, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envKey := "TEST_DURATION_" + tt.name + "_UNIQUE"
			if tt.setEnv {
				t.Setenv(envKey, tt.value)
			}
			if got := getEnvDuration(envKey, time.Second); got != tt.expected {
				t.Errorf("getEnvDuration(%s) = %v, want %v", envKey, got, tt.expected)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		expected     bool
		setEnv       bool
	}{
		{"true_string", "true", false, true, true},
		{"false_string", "false", true, false, true},
		{"1_string", "1", false, true, true},
		{"0_string", "0", true, false, true},
		{"invalid_string_returns_default", "invalid", true, true, true},
		{"non_existing_returns_default_true", "", true, true, false},
		{"non_existing_returns_default_false", "", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envKey := "TEST_BOOL_VAR_" + tt.name + "_UNIQUE"
			if tt.setEnv {
				t.Setenv(envKey, tt.envValue)
			}

			result := getEnvBool(envKey, tt.defaultValue)
			if result != tt.expected {
				t.Errorf("getEnvBool(%s, %v) = %v, want %v", envKey, tt.defaultValue, result, tt.expected)
			}
		})
	}
}
