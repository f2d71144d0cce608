// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/relabs-tech/audio_compass/internal/orientation"
	"github.com/relabs-tech/audio_compass/internal/spatial"
	"github.com/relabs-tech/audio_compass/internal/tone"
)

// Render backends.
const (
	BackendRecorder = "recorder"
	BackendWAV      = "wav"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDCompass  string
	MQTTClientIDGPS      string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDProducer string

	// Topics
	TopicHeading      string
	TopicHeadAttitude string
	TopicLocation     string
	TopicIMURaw       string
	TopicState        string
	TopicLock         string

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Fusion
	DeviceSmoothing      float64
	AudioSmoothing       float64
	HeadTimeoutMS        int // 0 disables the timeout
	CalibrationThreshold float64
	InboxSize            int

	// Spatial audio
	FrameIntervalMS        int
	StatePublishIntervalMS int
	SourceDistance         float64
	ElevationFactor        float64
	SourceVolume           float64
	RenderPath             string
	RenderBackend          string // "recorder" or "wav"
	RenderWAVPath          string
	SampleRate             int
	SynthWorkers           int

	CatalogPath string

	// Web Server
	WebServerPort int

	// Mock producer
	ProducerIntervalMS int

	LogDebug bool
}

// Package-level unexported variables for the singleton:
//   - globalConfig is only reachable through InitGlobal and Get.
//   - configOnce makes InitGlobal run once.
//   - configMu guards globalConfig; Get takes the read lock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	fusion := orientation.DefaultConfig()
	return &Config{
		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientIDCompass:  "audio-compass",
		MQTTClientIDGPS:      "audio-compass-gps",
		MQTTClientIDConsole:  "audio-compass-console",
		MQTTClientIDWeb:      "audio-compass-web",
		MQTTClientIDProducer: "audio-compass-producer",

		TopicHeading:      "compass/heading",
		TopicHeadAttitude: "compass/head",
		TopicLocation:     "compass/gps",
		TopicIMURaw:       "inertial/imu/left",
		TopicState:        "compass/state",
		TopicLock:         "compass/cmd/lock",

		GPSSerialPort: "/dev/serial0",
		GPSBaudRate:   9600,

		DeviceSmoothing:      fusion.DeviceSmoothing,
		AudioSmoothing:       fusion.AudioSmoothing,
		HeadTimeoutMS:        int(fusion.HeadTimeout / time.Millisecond),
		CalibrationThreshold: fusion.CalibrationThreshold,
		InboxSize:            fusion.InboxSize,

		FrameIntervalMS:        16,
		StatePublishIntervalMS: 100,
		SourceDistance:         2,
		ElevationFactor:        0.5,
		SourceVolume:           1,
		RenderPath:             "headphones",
		RenderBackend:          BackendRecorder,
		RenderWAVPath:          "compass.wav",
		SampleRate:             tone.DefaultSampleRate,
		SynthWorkers:           4,

		CatalogPath: "catalog.toml",

		WebServerPort: 8080,

		ProducerIntervalMS: 50,
	}
}

// Load reads the configuration file and returns a Config struct. Keys not
// present keep their Default value.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open config file")
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, errors.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, errors.Wrapf(err, "config line %d", lineNum)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading config file")
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
	case "MQTT_CLIENT_ID_COMPASS":
		c.MQTTClientIDCompass = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value

	// Topics
	case "TOPIC_HEADING":
		c.TopicHeading = value
	case "TOPIC_HEAD_ATTITUDE":
		c.TopicHeadAttitude = value
	case "TOPIC_LOCATION":
		c.TopicLocation = value
	case "TOPIC_IMU_RAW":
		c.TopicIMURaw = value
	case "TOPIC_STATE":
		c.TopicState = value
	case "TOPIC_LOCK":
		c.TopicLock = value

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = parseInt(key, value, 1, 921600)

	// Fusion
	case "DEVICE_SMOOTHING":
		c.DeviceSmoothing, err = parseFactor(key, value)
	case "AUDIO_SMOOTHING":
		c.AudioSmoothing, err = parseFactor(key, value)
	case "HEAD_TIMEOUT_MS":
		c.HeadTimeoutMS, err = parseInt(key, value, 0, 60000)
	case "CALIBRATION_THRESHOLD":
		c.CalibrationThreshold, err = parseFloat(key, value, 0, 180)
	case "INBOX_SIZE":
		c.InboxSize, err = parseInt(key, value, 1, 1<<16)

	// Spatial audio
	case "FRAME_INTERVAL_MS":
		c.FrameIntervalMS, err = parseInt(key, value, 1, 1000)
	case "STATE_PUBLISH_INTERVAL_MS":
		c.StatePublishIntervalMS, err = parseInt(key, value, 1, 60000)
	case "SOURCE_DISTANCE":
		c.SourceDistance, err = parseFloat(key, value, 0.1, 100)
	case "ELEVATION_FACTOR":
		c.ElevationFactor, err = parseFloat(key, value, 0, 10)
	case "SOURCE_VOLUME":
		c.SourceVolume, err = parseFloat(key, value, 0, 1)
	case "RENDER_PATH":
		c.RenderPath = value
	case "RENDER_BACKEND":
		if value != BackendRecorder && value != BackendWAV {
			return errors.Errorf("RENDER_BACKEND must be %q or %q, got %q", BackendRecorder, BackendWAV, value)
		}
		c.RenderBackend = value
	case "RENDER_WAV_PATH":
		c.RenderWAVPath = value
	case "SAMPLE_RATE":
		c.SampleRate, err = parseInt(key, value, 8000, 192000)
	case "SYNTH_WORKERS":
		c.SynthWorkers, err = parseInt(key, value, 1, 64)

	case "CATALOG_PATH":
		c.CatalogPath = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value, 1, 65535)

	case "PRODUCER_INTERVAL_MS":
		c.ProducerIntervalMS, err = parseInt(key, value, 1, 10000)

	case "LOG_DEBUG":
		c.LogDebug, err = strconv.ParseBool(value)
		if err != nil {
			return errors.Wrapf(err, "invalid LOG_DEBUG %q", value)
		}

	default:
		return errors.Errorf("unknown config key: %q", key)
	}

	return err
}

func parseInt(key, value string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s %q", key, value)
	}
	if v < lo || v > hi {
		return 0, errors.Errorf("%s must be %d-%d, got %d", key, lo, hi, v)
	}
	return v, nil
}

func parseFloat(key, value string, lo, hi float64) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s %q", key, value)
	}
	if math.IsNaN(v) || v < lo || v > hi {
		return 0, errors.Errorf("%s must be %g-%g, got %g", key, lo, hi, v)
	}
	return v, nil
}

// parseFactor accepts smoothing factors in (0, 1].
func parseFactor(key, value string) (float64, error) {
	v, err := parseFloat(key, value, 0, 1)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, errors.Errorf("%s must be greater than 0", key)
	}
	return v, nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return errors.New("MQTT_BROKER is required")
	}
	if c.TopicHeading == "" || c.TopicState == "" {
		return errors.New("TOPIC_HEADING and TOPIC_STATE are required")
	}
	if c.CatalogPath == "" {
		return errors.New("CATALOG_PATH is required")
	}
	if c.RenderBackend == BackendWAV && c.RenderWAVPath == "" {
		return errors.New("RENDER_WAV_PATH is required for the wav backend")
	}
	return nil
}

// Fusion returns the orientation engine settings.
func (c *Config) Fusion() orientation.Config {
	return orientation.Config{
		DeviceSmoothing:      c.DeviceSmoothing,
		AudioSmoothing:       c.AudioSmoothing,
		CalibrationThreshold: c.CalibrationThreshold,
		HeadTimeout:          time.Duration(c.HeadTimeoutMS) * time.Millisecond,
		InboxSize:            c.InboxSize,
	}
}

// Spatial returns the source manager settings.
func (c *Config) Spatial() spatial.Config {
	return spatial.Config{
		Distance:        c.SourceDistance,
		ElevationFactor: c.ElevationFactor,
		Volume:          c.SourceVolume,
		SampleRate:      c.SampleRate,
		Workers:         c.SynthWorkers,
		FrameInterval:   time.Duration(c.FrameIntervalMS) * time.Millisecond,
		RenderPath:      c.RenderPath,
	}
}

// StatePublishInterval returns how often the state topic is refreshed.
func (c *Config) StatePublishInterval() time.Duration {
	return time.Duration(c.StatePublishIntervalMS) * time.Millisecond
}

// ProducerInterval returns the mock producer sample period.
func (c *Config) ProducerInterval() time.Duration {
	return time.Duration(c.ProducerIntervalMS) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once so only the first call loads; later calls return nil.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
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
