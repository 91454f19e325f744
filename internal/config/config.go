package config

import (
	_ "embed"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Backend    BackendConfig
	Detector   DetectorConfig
	Camera     CameraConfig
	Engine     EngineConfig
	Attendance AttendanceConfig
	Database   DatabaseConfig
	MQTT       MQTTConfig
	Log        LogConfig
	Web        WebConfig
}

// BackendConfig points the engine at the identity and sighting service.
type BackendConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type DetectorConfig struct {
	URL     string // defaults to http://localhost:8000
	Timeout time.Duration
}

type CameraConfig struct {
	SnapshotURL    string        `yaml:"-"`
	SampleInterval time.Duration `yaml:"sample_interval"`
	Width          int           `yaml:"width"`
	Height         int           `yaml:"height"`
}

type EngineConfig struct {
	CyclePeriod          time.Duration `yaml:"cycle_period"`
	ClearAfter           int           `yaml:"clear_after"`
	RecognizeDistance    float64       `yaml:"recognize_distance"`
	RecognizedConfidence float64       `yaml:"recognized_confidence"`
	UncertainConfidence  float64       `yaml:"uncertain_confidence"`
	UnknownTTL           time.Duration `yaml:"unknown_ttl"`
	SignaturePrefix      int           `yaml:"signature_prefix"`
	CropMargin           int           `yaml:"crop_margin"`
	SnapshotDir          string        `yaml:"-"` // debug frames with overlay (optional)
}

type AttendanceConfig struct {
	Cooldown     time.Duration `yaml:"cooldown"`
	Timezone     string        `yaml:"timezone"`
	DefaultBreak BreakType     `yaml:"default_break"`
	BreakWindows []BreakWindow `yaml:"break_windows"`
}

// BreakType names a break classification returned on check-out.
type BreakType struct {
	Type  string `yaml:"type"`
	Label string `yaml:"label"`
}

// BreakWindow classifies check-outs whose local clock time falls in [Start, End).
// Start and End use "HH:MM".
type BreakWindow struct {
	Type  string `yaml:"type"`
	Label string `yaml:"label"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Location resolves the configured timezone, falling back to time.Local.
func (c *AttendanceConfig) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type MQTTConfig struct {
	Broker   string // empty disables MQTT publishing
	ClientID string
	Username string
	Password string
	Topic    string // defaults to gatewatch
}

type LogConfig struct {
	File  string
	Level slog.Level
}

type WebConfig struct {
	Host           string
	Port           int
	APIKey         string   // required X-API-Key for the service API when set
	AllowedOrigins []string // CORS origins in addition to localhost
}

type defaults struct {
	Engine     EngineConfig     `yaml:"engine"`
	Camera     CameraConfig     `yaml:"camera"`
	Attendance AttendanceConfig `yaml:"attendance"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a non-negative float from the environment.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

// envDuration reads a Go duration string ("2s", "500ms") from the environment.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// envList splits a comma-separated variable, dropping empty items
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadDefaults() defaults {
	var d defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return d
}

func Load() *Config {
	d := loadDefaults()

	return &Config{
		Backend: BackendConfig{
			URL:     os.Getenv("BACKEND_URL"),
			APIKey:  os.Getenv("BACKEND_API_KEY"),
			Timeout: envDuration("BACKEND_TIMEOUT", 10*time.Second),
		},
		Detector: DetectorConfig{
			URL:     os.Getenv("DETECTOR_URL"),
			Timeout: envDuration("DETECTOR_TIMEOUT", 10*time.Second),
		},
		Camera: CameraConfig{
			SnapshotURL:    os.Getenv("CAMERA_SNAPSHOT_URL"),
			SampleInterval: envDuration("CAMERA_SAMPLE_INTERVAL", d.Camera.SampleInterval),
			Width:          envInt("CAMERA_WIDTH", d.Camera.Width),
			Height:         envInt("CAMERA_HEIGHT", d.Camera.Height),
		},
		Engine: EngineConfig{
			CyclePeriod:          envDuration("CYCLE_PERIOD", d.Engine.CyclePeriod),
			ClearAfter:           envInt("ABSENCE_CLEAR_AFTER", d.Engine.ClearAfter),
			RecognizeDistance:    envFloat("RECOGNIZE_DISTANCE", d.Engine.RecognizeDistance),
			RecognizedConfidence: envFloat("RECOGNIZED_CONFIDENCE", d.Engine.RecognizedConfidence),
			UncertainConfidence:  envFloat("UNCERTAIN_CONFIDENCE", d.Engine.UncertainConfidence),
			UnknownTTL:           envDuration("UNKNOWN_TTL", d.Engine.UnknownTTL),
			SignaturePrefix:      envInt("SIGNATURE_PREFIX", d.Engine.SignaturePrefix),
			CropMargin:           envInt("CROP_MARGIN", d.Engine.CropMargin),
			SnapshotDir:          os.Getenv("SNAPSHOT_DIR"),
		},
		Attendance: AttendanceConfig{
			Cooldown:     envDuration("ATTENDANCE_COOLDOWN", d.Attendance.Cooldown),
			Timezone:     getEnv("ATTENDANCE_TIMEZONE", d.Attendance.Timezone),
			DefaultBreak: d.Attendance.DefaultBreak,
			BreakWindows: d.Attendance.BreakWindows,
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		MQTT: MQTTConfig{
			Broker:   os.Getenv("MQTT_BROKER"),
			ClientID: getEnv("MQTT_CLIENT_ID", "gatewatch"),
			Username: os.Getenv("MQTT_USERNAME"),
			Password: os.Getenv("MQTT_PASSWORD"),
			Topic:    getEnv("MQTT_TOPIC", "gatewatch"),
		},
		Log: LogConfig{
			File:  os.Getenv("LOG_FILE"),
			Level: parseLogLevel(getEnv("LOG_LEVEL", "INFO")),
		},
		Web: WebConfig{
			Host:           getEnv("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			APIKey:         os.Getenv("API_KEY"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}
