package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Config struct {
	AppEnv    string
	LogLevel  slog.Level
	StationID string

	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTQoS      byte

	I2CBus        string
	EnvSensor     string
	SensorAddress uint16
	EnvPayload    string

	HeartRateInterval time.Duration
	EnvInterval       time.Duration
	GateOnConnection  bool

	LEDPin        string
	BLEAdapter    string
	BLEDeviceName string

	// StatusAddr is the listen address of the status endpoint. Empty disables it.
	StatusAddr string
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	mqttPortStr := envOr("MQTT_PORT", "1883")
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("MQTT_PORT out of range: %d", mqttPort)
	}

	qosStr := envOr("MQTT_QOS", "1")
	qos, err := strconv.ParseUint(qosStr, 10, 8)
	if err != nil || qos > 2 {
		return Config{}, fmt.Errorf("invalid MQTT_QOS %q (allowed: 0, 1, 2)", qosStr)
	}

	envSensor := strings.ToLower(envOr("ENV_SENSOR", "aht20"))
	var defaultAddr string
	switch envSensor {
	case "aht20":
		defaultAddr = "0x38"
	case "bme280":
		defaultAddr = "0x76"
	default:
		return Config{}, fmt.Errorf("invalid ENV_SENSOR %q (allowed: aht20, bme280)", envSensor)
	}

	sensorAddressStr := envOr("SENSOR_ADDRESS", defaultAddr)
	sensorAddress, err := strconv.ParseUint(sensorAddressStr, 0, 16)
	if err != nil {
		return Config{}, fmt.Errorf("invalid SENSOR_ADDRESS %q: %w", sensorAddressStr, err)
	}
	if sensorAddress > 0x7F {
		return Config{}, fmt.Errorf("SENSOR_ADDRESS must be a 7-bit address, got %#x", sensorAddress)
	}

	envPayload := strings.ToLower(envOr("ENV_PAYLOAD", "json"))
	switch envPayload {
	case "json", "binary":
	default:
		return Config{}, fmt.Errorf("invalid ENV_PAYLOAD %q (allowed: json, binary)", envPayload)
	}

	heartRateInterval, err := parseInterval("HEART_RATE_INTERVAL", "1s")
	if err != nil {
		return Config{}, err
	}
	envInterval, err := parseInterval("ENV_INTERVAL", "10s")
	if err != nil {
		return Config{}, err
	}

	gateStr := envOr("GATE_ON_CONNECTION", "false")
	gate, err := strconv.ParseBool(gateStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid GATE_ON_CONNECTION %q: %w", gateStr, err)
	}

	return Config{
		AppEnv:            appEnv,
		LogLevel:          level,
		StationID:         envOr("STATION_ID", "home"),
		MQTTBroker:        envOr("MQTT_BROKER", "localhost"),
		MQTTPort:          mqttPort,
		MQTTClientID:      envOr("MQTT_CLIENT_ID", defaultClientID()),
		MQTTQoS:           byte(qos),
		I2CBus:            strings.TrimSpace(os.Getenv("I2C_BUS")),
		EnvSensor:         envSensor,
		SensorAddress:     uint16(sensorAddress),
		EnvPayload:        envPayload,
		HeartRateInterval: heartRateInterval,
		EnvInterval:       envInterval,
		GateOnConnection:  gate,
		LEDPin:            strings.TrimSpace(os.Getenv("LED_PIN")),
		BLEAdapter:        envOr("BLE_ADAPTER", "hci0"),
		BLEDeviceName:     envOr("BLE_DEVICE_NAME", "cloudpico-hr"),
		StatusAddr:        strings.TrimSpace(os.Getenv("STATUS_ADDR")),
	}, nil
}

// defaultClientID is unique per process so two monitors on one broker do
// not take over each other's session.
func defaultClientID() string {
	return "cloudpico-envmon-" + uuid.NewString()[:8]
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func parseInterval(key, def string) (time.Duration, error) {
	s := envOr(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", key, d)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
