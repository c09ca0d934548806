// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Config holds all application configuration values.
type Config struct {
	// Serial
	SerialEnabled       bool
	SerialPort          string
	SerialBaudRate      int
	SerialReadTimeoutMS int
	// MockLayout selects the protocol the mock port speaks: "legacy" or "tagged"
	MockLayout string

	// MQTT (empty broker disables the MQTT sink)
	MQTTBroker          string
	MQTTClientIDWeb     string
	MQTTClientIDConsole string
	TopicLive           string

	// Web Server
	WebServerPort   int
	BroadcastBuffer int

	// Logging
	LogLevel  string
	LogFormat string

	// Hip direction
	HipCrossoverDeg  float64
	HipMidpointDeg   float64
	HipHysteresisDeg float64
	HipDeadzoneDeg   float64

	// Smoothing
	SmoothAlphaHip   float64
	SmoothAlphaKnee  float64
	SmoothAlphaAnkle float64

	// EMG
	EMGSensorID     int
	EMGWindowSize   int
	EMGEnvelopeBeta float64
	EMGSyncWindowMS float64

	// ResetFiltersOnStart clears hip direction and smoothing state at every
	// session start instead of carrying it across sessions.
	ResetFiltersOnStart bool
}

// Default returns the configuration used for keys absent from the file.
func Default() *Config {
	return &Config{
		SerialEnabled:       false,
		SerialPort:          "/dev/ttyUSB0",
		SerialBaudRate:      115200,
		SerialReadTimeoutMS: 500,
		MockLayout:          "legacy",

		MQTTClientIDWeb:     "rehab-web",
		MQTTClientIDConsole: "rehab-console-subscriber",
		TopicLive:           "rehab/live",

		WebServerPort:   8080,
		BroadcastBuffer: 64,

		LogLevel:  "info",
		LogFormat: "console",

		HipCrossoverDeg:  40,
		HipMidpointDeg:   90,
		HipHysteresisDeg: 10,
		HipDeadzoneDeg:   2,

		SmoothAlphaHip:   0.25,
		SmoothAlphaKnee:  0.3,
		SmoothAlphaAnkle: 0.3,

		EMGSensorID:     5,
		EMGWindowSize:   200,
		EMGEnvelopeBeta: 0.1,
		EMGSyncWindowMS: 80,
	}
}

// Package-level singleton, set once by InitGlobal and read through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads a KEY=VALUE configuration file on top of the defaults.
// Environment variables with the same key override the file.
func Load(configPath string) (*Config, error) {
	values, err := godotenv.Read(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return fromValues(values)
}

// LoadEnv builds a configuration from defaults and environment variables only.
func LoadEnv() (*Config, error) {
	return fromValues(nil)
}

func fromValues(values map[string]string) (*Config, error) {
	if values == nil {
		values = make(map[string]string)
	}
	for _, key := range knownKeys {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}

	// apply in a stable order so errors are reproducible
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cfg := Default()
	for _, key := range keys {
		if err := cfg.setValue(key, strings.TrimSpace(values[key])); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var knownKeys = []string{
	"SERIAL_ENABLED", "SERIAL_PORT", "SERIAL_BAUD_RATE", "SERIAL_READ_TIMEOUT_MS", "MOCK_LAYOUT",
	"MQTT_BROKER", "MQTT_CLIENT_ID_WEB", "MQTT_CLIENT_ID_CONSOLE", "TOPIC_LIVE",
	"WEB_SERVER_PORT", "BROADCAST_BUFFER", "LOG_LEVEL", "LOG_FORMAT",
	"HIP_CROSSOVER_DEG", "HIP_MIDPOINT_DEG", "HIP_HYSTERESIS_DEG", "HIP_DEADZONE_DEG",
	"SMOOTH_ALPHA_HIP", "SMOOTH_ALPHA_KNEE", "SMOOTH_ALPHA_ANKLE",
	"EMG_SENSOR_ID", "EMG_WINDOW_SIZE", "EMG_ENVELOPE_BETA", "EMG_SYNC_WINDOW_MS",
	"RESET_FILTERS_ON_START",
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Serial
	case "SERIAL_ENABLED":
		c.SerialEnabled, err = parseBool(key, value)
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = parseInt(key, value)
	case "SERIAL_READ_TIMEOUT_MS":
		c.SerialReadTimeoutMS, err = parseInt(key, value)
	case "MOCK_LAYOUT":
		c.MockLayout = strings.ToLower(value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "TOPIC_LIVE":
		c.TopicLive = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)
	case "BROADCAST_BUFFER":
		c.BroadcastBuffer, err = parseInt(key, value)

	// Logging
	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)
	case "LOG_FORMAT":
		c.LogFormat = strings.ToLower(value)

	// Hip direction
	case "HIP_CROSSOVER_DEG":
		c.HipCrossoverDeg, err = parseFloat(key, value)
	case "HIP_MIDPOINT_DEG":
		c.HipMidpointDeg, err = parseFloat(key, value)
	case "HIP_HYSTERESIS_DEG":
		c.HipHysteresisDeg, err = parseFloat(key, value)
	case "HIP_DEADZONE_DEG":
		c.HipDeadzoneDeg, err = parseFloat(key, value)

	// Smoothing
	case "SMOOTH_ALPHA_HIP":
		c.SmoothAlphaHip, err = parseAlpha(key, value)
	case "SMOOTH_ALPHA_KNEE":
		c.SmoothAlphaKnee, err = parseAlpha(key, value)
	case "SMOOTH_ALPHA_ANKLE":
		c.SmoothAlphaAnkle, err = parseAlpha(key, value)

	// EMG
	case "EMG_SENSOR_ID":
		c.EMGSensorID, err = parseInt(key, value)
	case "EMG_WINDOW_SIZE":
		c.EMGWindowSize, err = parseInt(key, value)
	case "EMG_ENVELOPE_BETA":
		c.EMGEnvelopeBeta, err = parseAlpha(key, value)
	case "EMG_SYNC_WINDOW_MS":
		c.EMGSyncWindowMS, err = parseFloat(key, value)

	case "RESET_FILTERS_ON_START":
		c.ResetFiltersOnStart, err = parseBool(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}
	return err
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseAlpha(key, value string) (float64, error) {
	v, err := parseFloat(key, value)
	if err != nil {
		return 0, err
	}
	if v <= 0 || v > 1 {
		return 0, fmt.Errorf("%s must be in (0, 1], got %v", key, v)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// validate checks that the assembled configuration is usable.
func (c *Config) validate() error {
	if c.SerialEnabled && c.SerialPort == "" {
		return fmt.Errorf("SERIAL_PORT is required when SERIAL_ENABLED=1")
	}
	if c.SerialBaudRate <= 0 {
		return fmt.Errorf("SERIAL_BAUD_RATE must be positive, got %d", c.SerialBaudRate)
	}
	if c.MockLayout != "legacy" && c.MockLayout != "tagged" {
		return fmt.Errorf("MOCK_LAYOUT must be legacy or tagged, got %q", c.MockLayout)
	}
	if c.MQTTBroker != "" && c.TopicLive == "" {
		return fmt.Errorf("TOPIC_LIVE is required when MQTT_BROKER is set")
	}
	if c.WebServerPort <= 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", c.WebServerPort)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	if c.BroadcastBuffer < 0 {
		return fmt.Errorf("BROADCAST_BUFFER must be non-negative, got %d", c.BroadcastBuffer)
	}
	if c.HipHysteresisDeg < 0 || c.HipCrossoverDeg <= 0 || c.HipDeadzoneDeg < 0 {
		return fmt.Errorf("hip thresholds must be non-negative")
	}
	if c.EMGWindowSize <= 0 {
		return fmt.Errorf("EMG_WINDOW_SIZE must be positive, got %d", c.EMGWindowSize)
	}
	if c.EMGSyncWindowMS < 0 {
		return fmt.Errorf("EMG_SYNC_WINDOW_MS must be non-negative, got %v", c.EMGSyncWindowMS)
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
			globalConfig, err = LoadEnv()
			return
		}
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
