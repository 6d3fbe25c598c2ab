package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/relabs-tech/gps_simulator/internal/movement"
)

// DefaultPath is the config file every command looks for.
const DefaultPath = "gpssim_config.txt"

// Simulator outputs accepted by SIM_OUTPUT.
const (
	OutputHTTP    = "http"
	OutputMQTT    = "mqtt"
	OutputConsole = "console"
	OutputNMEA    = "nmea"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker            string
	MQTTClientIDSimulator string
	MQTTClientIDCollector string
	MQTTClientIDConsole   string

	// Topics
	TopicGPS     string
	TopicGPSLoss string

	// AMQP bridge (disabled when AMQPURL is empty)
	AMQPURL      string
	AMQPExchange string

	// Collector
	CollectorAddr        string
	CollectorURL         string
	HistoryCapacity      int
	FaultMaxDelayMS      int
	FaultLossProbability float64
	RequestTimeoutMS     int
	WebDir               string

	// Simulator
	DeviceID          string
	SimMode           string
	SimIntervalMS     int
	SimStartLat       float64
	SimStartLon       float64
	SimStepDeg        float64
	SimSignalLoss     float64 // per-tick probability
	SimSimulateIssues bool
	SimDeriveMetadata bool
	SimAccuracyM      float64
	SimSeed           uint64
	SimOutputs        []string
	PresetPathFile    string
	PublishTimeoutMS  int

	// NMEA output
	NMEASerialPort string // empty writes to stdout
	NMEABaudRate   int
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration that runs the simulator against a
// collector on localhost.
func Default() *Config {
	return &Config{
		MQTTBroker:            "tcp://localhost:1883",
		MQTTClientIDSimulator: "gpssim-simulator",
		MQTTClientIDCollector: "gpssim-collector",
		MQTTClientIDConsole:   "gpssim-console",

		TopicGPS:     "gpssim/fix",
		TopicGPSLoss: "gpssim/loss",

		AMQPExchange: "gps.fixes",

		CollectorAddr:        ":5000",
		CollectorURL:         "http://localhost:5000/api/gps",
		HistoryCapacity:      100,
		FaultMaxDelayMS:      3000,
		FaultLossProbability: 0.2,
		RequestTimeoutMS:     5000,
		WebDir:               "web",

		DeviceID:         "SIM001",
		SimMode:          movement.KindRandomWalk.String(),
		SimIntervalMS:    1000,
		SimStartLat:      37.7749,
		SimStartLon:      -122.4194,
		SimStepDeg:       movement.DefaultStepDeg,
		SimOutputs:       []string{OutputHTTP},
		PresetPathFile:   movement.DefaultPathFile,
		PublishTimeoutMS: 5000,

		NMEABaudRate: 9600,
	}
}

// Load reads the configuration file on top of Default(). Keys are applied
// in sorted order so errors are reported deterministically.
func Load(configPath string) (*Config, error) {
	values, err := godotenv.Read(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cfg := Default()
	for _, key := range keys {
		if err := cfg.setValue(key, strings.TrimSpace(values[key])); err != nil {
			return nil, fmt.Errorf("config %s: %w", configPath, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_SIMULATOR":
		c.MQTTClientIDSimulator = value
	case "MQTT_CLIENT_ID_COLLECTOR":
		c.MQTTClientIDCollector = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value

	// Topics
	case "TOPIC_GPS":
		c.TopicGPS = value
	case "TOPIC_GPS_LOSS":
		c.TopicGPSLoss = value

	// AMQP
	case "AMQP_URL":
		c.AMQPURL = value
	case "AMQP_EXCHANGE":
		c.AMQPExchange = value

	// Collector
	case "COLLECTOR_ADDR":
		c.CollectorAddr = value
	case "COLLECTOR_URL":
		c.CollectorURL = value
	case "HISTORY_CAPACITY":
		c.HistoryCapacity, err = positiveInt(key, value)
	case "FAULT_MAX_DELAY_MS":
		c.FaultMaxDelayMS, err = nonNegativeInt(key, value)
	case "FAULT_LOSS_PROBABILITY":
		c.FaultLossProbability, err = probability(key, value)
	case "REQUEST_TIMEOUT_MS":
		c.RequestTimeoutMS, err = positiveInt(key, value)
	case "WEB_DIR":
		c.WebDir = value

	// Simulator
	case "DEVICE_ID":
		c.DeviceID = value
	case "SIM_MODE":
		kind, perr := movement.ParseKind(value)
		if perr != nil {
			return fmt.Errorf("invalid SIM_MODE: %w", perr)
		}
		c.SimMode = kind.String()
	case "SIM_INTERVAL_MS":
		c.SimIntervalMS, err = positiveInt(key, value)
	case "SIM_START_LAT":
		c.SimStartLat, err = bounded(key, value, -90, 90)
	case "SIM_START_LON":
		c.SimStartLon, err = bounded(key, value, -180, 180)
	case "SIM_STEP_DEG":
		c.SimStepDeg, err = bounded(key, value, 0, 1)
	case "SIM_SIGNAL_LOSS":
		c.SimSignalLoss, err = probability(key, value)
	case "SIM_SIMULATE_ISSUES":
		c.SimSimulateIssues, err = boolean(key, value)
	case "SIM_DERIVE_METADATA":
		c.SimDeriveMetadata, err = boolean(key, value)
	case "SIM_ACCURACY_M":
		c.SimAccuracyM, err = bounded(key, value, 0, 10000)
	case "SIM_SEED":
		seed, perr := strconv.ParseUint(value, 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid SIM_SEED %q: %w", value, perr)
		}
		c.SimSeed = seed
	case "SIM_OUTPUT":
		outputs, perr := parseOutputs(value)
		if perr != nil {
			return perr
		}
		c.SimOutputs = outputs
	case "PRESET_PATH_FILE":
		c.PresetPathFile = value
	case "PUBLISH_TIMEOUT_MS":
		c.PublishTimeoutMS, err = positiveInt(key, value)

	// NMEA
	case "NMEA_SERIAL_PORT":
		c.NMEASerialPort = value
	case "NMEA_BAUD_RATE":
		c.NMEABaudRate, err = positiveInt(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.DeviceID == "" {
		return fmt.Errorf("DEVICE_ID is required")
	}
	if c.TopicGPS == "" {
		return fmt.Errorf("TOPIC_GPS is required")
	}
	if c.HasOutput(OutputMQTT) && c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required when SIM_OUTPUT includes mqtt")
	}
	if c.HasOutput(OutputHTTP) && c.CollectorURL == "" {
		return fmt.Errorf("COLLECTOR_URL is required when SIM_OUTPUT includes http")
	}
	if c.AMQPURL != "" && c.AMQPExchange == "" {
		return fmt.Errorf("AMQP_EXCHANGE is required when AMQP_URL is set")
	}
	return nil
}

// HasOutput reports whether SIM_OUTPUT names output.
func (c *Config) HasOutput(output string) bool {
	for _, o := range c.SimOutputs {
		if o == output {
			return true
		}
	}
	return false
}

func parseOutputs(value string) ([]string, error) {
	var outputs []string
	for _, part := range strings.Split(value, ",") {
		o := strings.ToLower(strings.TrimSpace(part))
		switch o {
		case "":
			continue
		case OutputHTTP, OutputMQTT, OutputConsole, OutputNMEA:
			outputs = append(outputs, o)
		default:
			return nil, fmt.Errorf("SIM_OUTPUT: unknown output %q (want http, mqtt, console or nmea)", o)
		}
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("SIM_OUTPUT must name at least one output")
	}
	return outputs, nil
}

func positiveInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be > 0, got %d", key, v)
	}
	return v, nil
}

func nonNegativeInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must be >= 0, got %d", key, v)
	}
	return v, nil
}

func bounded(key, value string, lo, hi float64) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be within [%g,%g], got %g", key, lo, hi, v)
	}
	return v, nil
}

func probability(key, value string) (float64, error) {
	return bounded(key, value, 0, 1)
}

func boolean(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// InitGlobal initializes the global configuration from file. A missing
// file falls back to Default(); any other error is returned.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("config: %s not found, using defaults", configPath)
			globalConfig, err = Default(), nil
		}
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
