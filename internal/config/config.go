// YAML config loader with CUE validation and environment overrides
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"guidelight-panel/internal/errcode"
)

// Component is one line of the device status card.
type Component struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

// Device describes the (simulated) wearable the panel controls.
type Device struct {
	ID         string      `yaml:"id" json:"id"`
	Name       string      `yaml:"name" json:"name"`
	Status     string      `yaml:"status" json:"status"`
	Components []Component `yaml:"components" json:"components"`
}

// Video holds opaque references to the camera feed and the remote preview.
type Video struct {
	FeedPath    string `yaml:"feed_path"`
	DriveFileID string `yaml:"drive_file_id"`
}

// Log configures the bounded event log.
type Log struct {
	Capacity int      `yaml:"capacity"`
	Seed     []string `yaml:"seed"`
}

// Telemetry configures the periodic metric simulator.
type Telemetry struct {
	Period          time.Duration `yaml:"period"`
	TempMinC        float64       `yaml:"temp_min_c"`
	TempMaxC        float64       `yaml:"temp_max_c"`
	CPUMin          int           `yaml:"cpu_min"`
	CPUMax          int           `yaml:"cpu_max"`
	GPUMin          int           `yaml:"gpu_min"`
	GPUMax          int           `yaml:"gpu_max"`
	DisableGPU      bool          `yaml:"disable_gpu"`
	BatteryFloor    float64       `yaml:"battery_floor"`
	BatteryDrainMax float64       `yaml:"battery_drain_max"`
	SilentRecharge  bool          `yaml:"silent_recharge"`
}

// Commands configures the command acknowledgment pipeline.
type Commands struct {
	Delay       time.Duration `yaml:"delay"`
	Timeout     time.Duration `yaml:"timeout"`
	FailureRate float64       `yaml:"failure_rate"`
	Quick       []string      `yaml:"quick"`
}

// Admin configures the HTTP operator surface.
type Admin struct {
	Addr string `yaml:"addr"`
}

// PanelConfig is the root configuration of the control panel.
type PanelConfig struct {
	Device    Device    `yaml:"device"`
	Video     Video     `yaml:"video"`
	Log       Log       `yaml:"log"`
	Telemetry Telemetry `yaml:"telemetry"`
	Commands  Commands  `yaml:"commands"`
	Moods     []string  `yaml:"moods"`
	Admin     Admin     `yaml:"admin"`
}

// Default returns the stock panel configuration.
func Default() PanelConfig {
	return PanelConfig{
		Device: Device{
			ID:     "guidelight-01",
			Name:   "Guidelight AI",
			Status: "Connected",
			Components: []Component{
				{Name: "Pi", Value: "Connected"},
				{Name: "Stereo", Value: "Active"},
				{Name: "Object Detection", Value: "YOLOv5s (local)"},
				{Name: "Backend", Value: "FastAPI + Polly"},
				{Name: "Spotify", Value: "Connected"},
			},
		},
		Video: Video{
			FeedPath:    "/videos/livefeed.mp4",
			DriveFileID: "1A2B3C4D5E6F-example-file-id",
		},
		Log: Log{
			Capacity: 60,
			Seed: []string{
				"System initialized",
				"Pi module connected",
				"Listening for voice commands...",
			},
		},
		Telemetry: Telemetry{
			Period:          3 * time.Second,
			TempMinC:        35,
			TempMaxC:        38,
			CPUMin:          15,
			CPUMax:          40,
			GPUMin:          10,
			GPUMax:          40,
			BatteryFloor:    5,
			BatteryDrainMax: 0.1,
		},
		Commands: Commands{
			Delay:   800 * time.Millisecond,
			Timeout: 5 * time.Second,
			Quick: []string{
				"Capture Frame",
				"Send continuous frames",
				"Read text",
				"What is in front of me?",
				"Shuffle upbeat playlist",
			},
		},
		Moods: []string{"happy", "sad", "energetic", "calm", "neutral"},
		Admin: Admin{Addr: ":8080"},
	}
}

// envOverrides holds the GUIDELIGHT_* environment variables.
type envOverrides struct {
	DeviceID        string        `env:"GUIDELIGHT_DEVICE_ID"`
	DriveFileID     string        `env:"GUIDELIGHT_DRIVE_FILE_ID"`
	LogCapacity     int           `env:"GUIDELIGHT_LOG_CAPACITY"`
	TelemetryPeriod time.Duration `env:"GUIDELIGHT_TELEMETRY_PERIOD"`
	CommandDelay    time.Duration `env:"GUIDELIGHT_COMMAND_DELAY"`
	CommandTimeout  time.Duration `env:"GUIDELIGHT_COMMAND_TIMEOUT"`
	AdminAddr       string        `env:"GUIDELIGHT_ADMIN_ADDR"`
	Moods           []string      `env:"GUIDELIGHT_MOODS" envSeparator:","`
}

// Load reads the YAML file at configPath, validates it against the CUE
// schema at cueSchemaPath, layers environment overrides on top and checks the
// result. An empty configPath starts from Default; an empty cueSchemaPath
// skips schema validation.
func Load(configPath, cueSchemaPath string) (PanelConfig, error) {
	cfg := Default()
	if configPath != "" {
		if cueSchemaPath != "" {
			if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
				return PanelConfig{}, errcode.Wrap(errcode.InvalidConfig, "config.Load", err)
			}
		}
		data, err := os.ReadFile(configPath)
		if err != nil {
			return PanelConfig{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return PanelConfig{}, errcode.Wrap(errcode.InvalidConfig, "config.Load", err)
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return PanelConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return PanelConfig{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays non-empty GUIDELIGHT_* variables onto cfg.
func ApplyEnv(cfg *PanelConfig) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return errcode.Wrap(errcode.InvalidConfig, "config.ApplyEnv", fmt.Errorf("parse env: %w", err))
	}
	if o.DeviceID != "" {
		cfg.Device.ID = o.DeviceID
	}
	if o.DriveFileID != "" {
		cfg.Video.DriveFileID = o.DriveFileID
	}
	if o.LogCapacity != 0 {
		cfg.Log.Capacity = o.LogCapacity
	}
	if o.TelemetryPeriod != 0 {
		cfg.Telemetry.Period = o.TelemetryPeriod
	}
	if o.CommandDelay != 0 {
		cfg.Commands.Delay = o.CommandDelay
	}
	if o.CommandTimeout != 0 {
		cfg.Commands.Timeout = o.CommandTimeout
	}
	if o.AdminAddr != "" {
		cfg.Admin.Addr = o.AdminAddr
	}
	if len(o.Moods) > 0 {
		cfg.Moods = o.Moods
	}
	return nil
}

// Validate checks invariants the engine relies on.
func (c PanelConfig) Validate() error {
	invalid := func(format string, args ...any) error {
		return errcode.New(errcode.InvalidConfig, "config.Validate", fmt.Sprintf(format, args...))
	}
	t := c.Telemetry
	switch {
	case c.Log.Capacity <= 0:
		return invalid("log capacity must be positive, got %d", c.Log.Capacity)
	case t.Period <= 0:
		return invalid("telemetry period must be positive, got %s", t.Period)
	case t.TempMaxC <= t.TempMinC:
		return invalid("temperature range [%.1f,%.1f) is empty", t.TempMinC, t.TempMaxC)
	case t.CPUMax <= t.CPUMin:
		return invalid("cpu range [%d,%d) is empty", t.CPUMin, t.CPUMax)
	case !t.DisableGPU && t.GPUMax <= t.GPUMin:
		return invalid("gpu range [%d,%d) is empty", t.GPUMin, t.GPUMax)
	case t.BatteryFloor < 0 || t.BatteryFloor >= 100:
		return invalid("battery floor %.1f outside [0,100)", t.BatteryFloor)
	case t.BatteryDrainMax < 0:
		return invalid("battery drain must not be negative, got %.3f", t.BatteryDrainMax)
	case c.Commands.Delay < 0:
		return invalid("command delay must not be negative, got %s", c.Commands.Delay)
	case c.Commands.Timeout < 0:
		return invalid("command timeout must not be negative, got %s", c.Commands.Timeout)
	case c.Commands.FailureRate < 0 || c.Commands.FailureRate > 1:
		return invalid("command failure rate %.2f outside [0,1]", c.Commands.FailureRate)
	case len(c.Moods) == 0:
		return invalid("mood set must not be empty")
	}
	return nil
}

// DrivePreviewURL renders the embeddable preview URL for the configured
// Drive video, or "" when none is set.
func (v Video) DrivePreviewURL() string {
	if v.DriveFileID == "" {
		return ""
	}
	return fmt.Sprintf("https://drive.google.com/file/d/%s/preview", v.DriveFileID)
}
