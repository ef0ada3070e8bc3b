package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr   string `yaml:"http_addr"`
	HealthAddr string `yaml:"health_addr"` // gRPC health service; empty disables it

	Env string `yaml:"env"` // "dev" | "prod"

	Log LogConfig `yaml:"log"`

	// DB
	DBDriver string `yaml:"db_driver"` // "sqlite" | "postgres"
	DBPath   string `yaml:"db_path"`   // sqlite file, e.g. "./data/parkgate.db"
	DBDSN    string `yaml:"db_dsn"`    // postgres connection string

	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Images   ImageConfig    `yaml:"images"`
	Auth     AuthConfig     `yaml:"auth"`

	// Plate observation retention
	ObservationRetentionDays int `yaml:"observation_retention_days"` // 0 = keep forever
	PruneIntervalHours       int `yaml:"prune_interval_hours"`

	SeedSampleCredentials bool `yaml:"seed_sample_credentials"` // dev only
}

type LogConfig struct {
	Backend string `yaml:"backend"` // "zerolog" | "slog"
	Format  string `yaml:"format"`  // "json" | "console"
	Level   string `yaml:"level"`
}

type CameraConfig struct {
	Index        int           `yaml:"index"`
	Source       string        `yaml:"source"`      // "ffmpeg" | "file"
	DevicePath   string        `yaml:"device_path"` // defaults to /dev/video<index>
	FilePath     string        `yaml:"file_path"`   // still image for source=file
	Width        int           `yaml:"width"`
	Height       int           `yaml:"height"`
	FrameTimeout time.Duration `yaml:"frame_timeout"`
	AutoSave     bool          `yaml:"auto_save"`
	Confidence   float64       `yaml:"confidence"`
}

type DetectorConfig struct {
	URL     string        `yaml:"url"` // empty runs without plate detection
	Timeout time.Duration `yaml:"timeout"`
}

type MQTTConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Broker       string        `yaml:"broker"`
	Fallbacks    []string      `yaml:"fallbacks"`
	ClientID     string        `yaml:"client_id"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	TopicPrefix  string        `yaml:"topic_prefix"`
}

type ImageConfig struct {
	Backend  string `yaml:"backend"` // "local" | "s3" | "none"
	Dir      string `yaml:"dir"`
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	Access   string `yaml:"access_key"`
	Secret   string `yaml:"secret_key"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"` // empty leaves admin endpoints open
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

func Defaults() Config {
	return Config{
		HTTPAddr:   ":8080",
		HealthAddr: ":9090",
		Env:        "dev",
		Log:        LogConfig{Backend: "zerolog", Format: "json", Level: "info"},
		DBDriver:   "sqlite",
		DBPath:     "./data/parkgate.db",
		Camera: CameraConfig{
			Index:        0,
			Source:       "ffmpeg",
			Width:        1280,
			Height:       720,
			FrameTimeout: 2 * time.Second,
			Confidence:   0.5,
		},
		Detector: DetectorConfig{Timeout: 5 * time.Second},
		MQTT: MQTTConfig{
			Enabled:      true,
			Broker:       "tcp://test.mosquitto.org:1883",
			Fallbacks:    []string{"tcp://broker.hivemq.com:1883", "tcp://mqtt.eclipseprojects.io:1883"},
			ClientID:     "parkgate-server",
			ProbeTimeout: 3 * time.Second,
			TopicPrefix:  "yolouno/rfid",
		},
		Images:                   ImageConfig{Backend: "local", Dir: "./data/images"},
		Auth:                     AuthConfig{TokenTTL: 12 * time.Hour},
		ObservationRetentionDays: 30,
		PruneIntervalHours:       6,
		SeedSampleCredentials:    true,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// PARKGATE_CONFIG_FILE (if any), then PARKGATE_* environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("PARKGATE_CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = getenvDefault("PARKGATE_HTTP_ADDR", cfg.HTTPAddr)
	cfg.HealthAddr = getenvDefault("PARKGATE_HEALTH_ADDR", cfg.HealthAddr)

	cfg.Env = strings.ToLower(getenvDefault("PARKGATE_ENV", cfg.Env))
	if cfg.Env != "dev" && cfg.Env != "prod" {
		// fail-soft: treat unknown as dev
		cfg.Env = "dev"
	}

	cfg.Log.Backend = getenvDefault("PARKGATE_LOG_BACKEND", cfg.Log.Backend)
	cfg.Log.Format = getenvDefault("PARKGATE_LOG_FORMAT", cfg.Log.Format)
	cfg.Log.Level = getenvDefault("PARKGATE_LOG_LEVEL", cfg.Log.Level)

	cfg.DBDriver = strings.ToLower(getenvDefault("PARKGATE_DB_DRIVER", cfg.DBDriver))
	cfg.DBPath = getenvDefault("PARKGATE_DB_PATH", cfg.DBPath)
	cfg.DBDSN = getenvDefault("PARKGATE_DB_DSN", cfg.DBDSN)

	cfg.Camera.Index = getenvInt("PARKGATE_CAMERA_INDEX", cfg.Camera.Index)
	cfg.Camera.Source = getenvDefault("PARKGATE_CAMERA_SOURCE", cfg.Camera.Source)
	cfg.Camera.DevicePath = getenvDefault("PARKGATE_CAMERA_DEVICE", cfg.Camera.DevicePath)
	cfg.Camera.FilePath = getenvDefault("PARKGATE_CAMERA_FILE", cfg.Camera.FilePath)
	cfg.Camera.Width = getenvInt("PARKGATE_CAMERA_WIDTH", cfg.Camera.Width)
	cfg.Camera.Height = getenvInt("PARKGATE_CAMERA_HEIGHT", cfg.Camera.Height)
	cfg.Camera.FrameTimeout = getenvDuration("PARKGATE_CAMERA_FRAME_TIMEOUT", cfg.Camera.FrameTimeout)
	cfg.Camera.AutoSave = getenvBool("PARKGATE_CAMERA_AUTO_SAVE", cfg.Camera.AutoSave)
	cfg.Camera.Confidence = getenvFloat("PARKGATE_CAMERA_CONFIDENCE", cfg.Camera.Confidence)

	cfg.Detector.URL = getenvDefault("PARKGATE_DETECTOR_URL", cfg.Detector.URL)
	cfg.Detector.Timeout = getenvDuration("PARKGATE_DETECTOR_TIMEOUT", cfg.Detector.Timeout)

	cfg.MQTT.Enabled = getenvBool("PARKGATE_MQTT_ENABLED", cfg.MQTT.Enabled)
	cfg.MQTT.Broker = getenvDefault("PARKGATE_MQTT_BROKER", cfg.MQTT.Broker)
	if fb := splitCSV(os.Getenv("PARKGATE_MQTT_FALLBACKS")); fb != nil {
		cfg.MQTT.Fallbacks = fb
	}
	cfg.MQTT.ClientID = getenvDefault("PARKGATE_MQTT_CLIENT_ID", cfg.MQTT.ClientID)
	cfg.MQTT.Username = getenvDefault("PARKGATE_MQTT_USERNAME", cfg.MQTT.Username)
	cfg.MQTT.Password = getenvDefault("PARKGATE_MQTT_PASSWORD", cfg.MQTT.Password)
	cfg.MQTT.ProbeTimeout = getenvDuration("PARKGATE_MQTT_PROBE_TIMEOUT", cfg.MQTT.ProbeTimeout)
	cfg.MQTT.TopicPrefix = getenvDefault("PARKGATE_MQTT_TOPIC_PREFIX", cfg.MQTT.TopicPrefix)

	cfg.Images.Backend = strings.ToLower(getenvDefault("PARKGATE_IMAGES_BACKEND", cfg.Images.Backend))
	cfg.Images.Dir = getenvDefault("PARKGATE_IMAGES_DIR", cfg.Images.Dir)
	cfg.Images.Bucket = getenvDefault("PARKGATE_S3_BUCKET", cfg.Images.Bucket)
	cfg.Images.Region = getenvDefault("PARKGATE_S3_REGION", cfg.Images.Region)
	cfg.Images.Endpoint = getenvDefault("PARKGATE_S3_ENDPOINT", cfg.Images.Endpoint)
	cfg.Images.Access = getenvDefault("PARKGATE_S3_ACCESS_KEY", cfg.Images.Access)
	cfg.Images.Secret = getenvDefault("PARKGATE_S3_SECRET_KEY", cfg.Images.Secret)

	cfg.Auth.JWTSecret = getenvDefault("PARKGATE_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTL = getenvDuration("PARKGATE_TOKEN_TTL", cfg.Auth.TokenTTL)

	cfg.ObservationRetentionDays = getenvInt("PARKGATE_OBSERVATION_RETENTION_DAYS", cfg.ObservationRetentionDays)
	cfg.PruneIntervalHours = getenvInt("PARKGATE_PRUNE_INTERVAL_HOURS", cfg.PruneIntervalHours)
	cfg.SeedSampleCredentials = getenvBool("PARKGATE_SEED_SAMPLE_CREDENTIALS", cfg.SeedSampleCredentials)
}

// Validate reports the first configuration error found.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite":
		if strings.TrimSpace(c.DBPath) == "" {
			return errors.New("config: db_path is required for sqlite")
		}
	case "postgres":
		if strings.TrimSpace(c.DBDSN) == "" {
			return errors.New("config: db_dsn is required for postgres")
		}
	default:
		return fmt.Errorf("config: unknown db_driver %q", c.DBDriver)
	}

	if c.Camera.Index < 0 {
		return errors.New("config: camera index must be >= 0")
	}
	switch c.Camera.Source {
	case "ffmpeg":
	case "file":
		if c.Camera.FilePath == "" {
			return errors.New("config: camera file_path is required for source=file")
		}
	default:
		return fmt.Errorf("config: unknown camera source %q", c.Camera.Source)
	}
	if c.Camera.Confidence < 0 || c.Camera.Confidence > 1 {
		return fmt.Errorf("config: camera confidence %.2f outside [0,1]", c.Camera.Confidence)
	}

	switch c.Images.Backend {
	case "local", "none":
	case "s3":
		if c.Images.Bucket == "" {
			return errors.New("config: s3 bucket is required for images backend s3")
		}
	default:
		return fmt.Errorf("config: unknown images backend %q", c.Images.Backend)
	}

	if c.MQTT.Enabled && strings.TrimSpace(c.MQTT.Broker) == "" && len(c.MQTT.Fallbacks) == 0 {
		return errors.New("config: mqtt enabled but no broker configured")
	}
	return nil
}

// CameraDevice is the device node for the configured camera.
func (c CameraConfig) CameraDevice() string {
	if c.DevicePath != "" {
		return c.DevicePath
	}
	return "/dev/video" + strconv.Itoa(c.Index)
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true") || v == "1"
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
