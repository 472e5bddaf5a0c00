// Package config loads the overlay application settings from a YAML document.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/Carmen-Shannon/oxy-overlay/engine/compositor"
	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Window      WindowConfig      `yaml:"window"`
	Overlay     OverlayConfig     `yaml:"overlay"`
	SpriteSheet SpriteSheetConfig `yaml:"sprite_sheet"`
	Renderer    RendererConfig    `yaml:"renderer"`
	Compositor  CompositorConfig  `yaml:"compositor"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Profiling   bool              `yaml:"profiling"`
}

// WindowConfig describes the desktop window hosting the GPU surface.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// OverlayConfig describes the compositor overlay and its anchor.
type OverlayConfig struct {
	Key               string     `yaml:"key"`
	Name              string     `yaml:"name"`
	AnchorDeviceClass string     `yaml:"anchor_device_class"`
	AnchorOffset      [3]float32 `yaml:"anchor_offset"`
	SubmitRetries     int        `yaml:"submit_retries"`
}

// SpriteSheetConfig describes the animation source.
type SpriteSheetConfig struct {
	Path          string  `yaml:"path"`
	FrameWidth    int     `yaml:"frame_width"`
	FrameHeight   int     `yaml:"frame_height"`
	FrameInterval float64 `yaml:"frame_interval"`
	FlipWorkers   int     `yaml:"flip_workers"`
}

// RendererConfig describes the offscreen renderer.
type RendererConfig struct {
	ClearColor    string  `yaml:"clear_color"`
	ForceSoftware bool    `yaml:"force_software"`
	FrameLimit    float64 `yaml:"frame_limit"`
}

// CompositorConfig describes the compositor connection.
type CompositorConfig struct {
	RetryInterval time.Duration `yaml:"retry_interval"`
	TrackHMD      bool          `yaml:"track_hmd"`
}

// TelemetryConfig describes the optional MQTT status publisher. An empty Broker disables it.
type TelemetryConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:  "Animation Testing",
			Width:  300,
			Height: 300,
		},
		Overlay: OverlayConfig{
			Key:               "oxy.overlay.animation",
			Name:              "Anim Test",
			AnchorDeviceClass: "hmd",
		},
		SpriteSheet: SpriteSheetConfig{
			Path:          "Tiles/sheet1.png",
			FrameWidth:    233,
			FrameHeight:   233,
			FrameInterval: 0.1,
			FlipWorkers:   4,
		},
		Renderer: RendererConfig{
			ClearColor: "#334d4d",
		},
		Compositor: CompositorConfig{
			RetryInterval: 500 * time.Millisecond,
			TrackHMD:      true,
		},
		Telemetry: TelemetryConfig{
			Topic:    "oxy/overlay",
			ClientID: "oxy-overlay",
		},
	}
}

// Load reads the YAML file at path over the defaults and validates the result.
// An empty path returns the defaults.
//
// Parameters:
//   - path: the YAML file to read
//
// Returns:
//   - Config: the loaded configuration
//   - error: error if the file cannot be read, parsed or validated
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document over the defaults and validates the result.
// Unknown keys are rejected.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - Config: the parsed configuration
//   - error: error if decoding or validation fails
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to decode yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
//
// Returns:
//   - error: the first problem found, or nil
func (c Config) Validate() error {
	switch {
	case c.SpriteSheet.Path == "":
		return errors.New("sprite_sheet.path must be set")
	case c.SpriteSheet.FrameWidth <= 0 || c.SpriteSheet.FrameHeight <= 0:
		return fmt.Errorf("sprite_sheet frame size must be positive, got %dx%d", c.SpriteSheet.FrameWidth, c.SpriteSheet.FrameHeight)
	case c.SpriteSheet.FrameInterval <= 0:
		return fmt.Errorf("sprite_sheet.frame_interval must be positive, got %v", c.SpriteSheet.FrameInterval)
	case c.Overlay.Key == "":
		return errors.New("overlay.key must be set")
	case c.Overlay.SubmitRetries < 0:
		return fmt.Errorf("overlay.submit_retries must not be negative, got %d", c.Overlay.SubmitRetries)
	case c.Compositor.RetryInterval <= 0:
		return fmt.Errorf("compositor.retry_interval must be positive, got %s", c.Compositor.RetryInterval)
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	case c.Renderer.FrameLimit < 0:
		return fmt.Errorf("renderer.frame_limit must not be negative, got %v", c.Renderer.FrameLimit)
	}
	if _, err := compositor.ParseDeviceClass(c.Overlay.AnchorDeviceClass); err != nil {
		return fmt.Errorf("overlay.anchor_device_class: %w", err)
	}
	if _, err := c.ClearColor(); err != nil {
		return err
	}
	return nil
}

// AnchorClass returns the parsed anchor device class.
//
// Returns:
//   - compositor.DeviceClass: the device class the overlay anchors to
func (c Config) AnchorClass() compositor.DeviceClass {
	class, _ := compositor.ParseDeviceClass(c.Overlay.AnchorDeviceClass)
	return class
}

// FrameInterval returns the animation interval as a duration.
//
// Returns:
//   - time.Duration: the frame interval
func (c Config) FrameInterval() time.Duration {
	return time.Duration(c.SpriteSheet.FrameInterval * float64(time.Second))
}

// ClearColor parses the hex clear color and converts it to linear RGB, the space the sRGB render target blends in.
//
// Returns:
//   - common.Color: the linear clear color with full alpha
//   - error: error if the hex string is malformed
func (c Config) ClearColor() (common.Color, error) {
	col, err := colorful.Hex(c.Renderer.ClearColor)
	if err != nil {
		return common.Color{}, fmt.Errorf("renderer.clear_color: %w", err)
	}
	r, g, b := col.LinearRgb()
	return common.Color{R: r, G: g, B: b, A: 1}, nil
}
