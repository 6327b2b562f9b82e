// Package config handles viewer configuration loading and management.
package config

import (
	"fmt"

	"go.uber.org/multierr"
)

// Animation scheduling policies.
const (
	PolicyRoundRobin = "round_robin"
	PolicyEveryFrame = "every_frame"
)

// Config holds all viewer settings.
type Config struct {
	Window    WindowConfig    `yaml:"window"`
	Camera    CameraConfig    `yaml:"camera"`
	Assets    AssetsConfig    `yaml:"assets"`
	Animation AnimationConfig `yaml:"animation"`
	Overlay   OverlayConfig   `yaml:"overlay"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width" env:"WIDTH"`
	Height     int    `yaml:"height" env:"HEIGHT"`
	Fullscreen bool   `yaml:"fullscreen" env:"FULLSCREEN"`
	VSync      bool   `yaml:"vsync"`
}

// CameraConfig holds the perspective camera and orbit control settings.
// FOV is the vertical field of view in degrees.
type CameraConfig struct {
	FOV           float32    `yaml:"fov"`
	Near          float32    `yaml:"near"`
	Far           float32    `yaml:"far"`
	Position      [3]float32 `yaml:"position"`
	Target        [3]float32 `yaml:"target"`
	MinDistance   float32    `yaml:"min_distance"`
	MaxDistance   float32    `yaml:"max_distance"`
	Damping       bool       `yaml:"damping"`
	DampingFactor float32    `yaml:"damping_factor"`
}

// AssetsConfig lists the files the viewer loads at startup.
type AssetsConfig struct {
	Dir         string            `yaml:"dir" env:"ASSETS_DIR"`
	Archives    []string          `yaml:"archives" env:"ASSETS_ARCHIVES"`
	ArchiveRoot string            `yaml:"archive_root" env:"ASSETS_ARCHIVE_ROOT"`
	Characters  []CharacterConfig `yaml:"characters"`
	Environment EnvironmentConfig `yaml:"environment"`
	Lights      []LightConfig     `yaml:"lights"`
}

// CharacterConfig describes one animated character: a base model plus the
// file whose first clip is played on it.
type CharacterConfig struct {
	ID       string     `yaml:"id"`
	Model    string     `yaml:"model"`
	Clip     string     `yaml:"clip"`
	Scale    float32    `yaml:"scale"`
	Position [3]float32 `yaml:"position"`
}

// EnvironmentConfig describes the static scene. RotationY is in degrees.
type EnvironmentConfig struct {
	Path          string  `yaml:"path"`
	RotationY     float32 `yaml:"rotation_y"`
	ShadowBias    float32 `yaml:"shadow_bias"`
	ShadowMapSize int32   `yaml:"shadow_map_size"`
}

// LightConfig describes a light added to the scene in addition to the
// lights found in the environment file.
type LightConfig struct {
	Position  [3]float32 `yaml:"position"`
	Color     [3]float32 `yaml:"color"`
	Intensity float32    `yaml:"intensity"`
	Range     float32    `yaml:"range"`
}

// AnimationConfig selects how character animations are advanced.
type AnimationConfig struct {
	Policy string `yaml:"policy" env:"ANIMATION_POLICY"`
}

// OverlayConfig holds on-screen overlay settings.
type OverlayConfig struct {
	ShowFPS bool `yaml:"show_fps"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" env:"LOG_LEVEL"`
	LogFile string `yaml:"log_file" env:"LOG_FILE"`
}

// Default returns a Config with the stock castle scene and its three characters.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "Castleview",
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Camera: CameraConfig{
			FOV:           75,
			Near:          0.1,
			Far:           1000,
			Position:      [3]float32{3.2, 1, 2},
			Target:        [3]float32{3.1, 0, -0.3},
			MinDistance:   2,
			MaxDistance:   5,
			Damping:       true,
			DampingFactor: 0.05,
		},
		Assets: AssetsConfig{
			Dir:         "assets",
			ArchiveRoot: "data",
			Characters: []CharacterConfig{
				{
					ID:       "mutant",
					Model:    "models/Mutant.rsm",
					Clip:     "models/Old Man Idle.rsm",
					Scale:    0.005,
					Position: [3]float32{3, -0.67, 0},
				},
				{
					ID:       "vanguard",
					Model:    "models/vanguard_t_choonyung.rsm",
					Clip:     "models/Punching.rsm",
					Scale:    0.003,
					Position: [3]float32{3.2, -0.55, -0.5},
				},
				{
					ID:       "paladin",
					Model:    "models/Paladin WProp J Nordstrom.rsm",
					Clip:     "models/Idle.rsm",
					Scale:    0.003,
					Position: [3]float32{3.4, -0.56, -0.8},
				},
			},
			Environment: EnvironmentConfig{
				Path:          "models/montemor-o-novos_castle.glb",
				RotationY:     135,
				ShadowBias:    -0.003,
				ShadowMapSize: 2048,
			},
			Lights: []LightConfig{
				{
					Position:  [3]float32{-2.5, 7.5, 15},
					Color:     [3]float32{1, 1, 1},
					Intensity: 1,
				},
			},
		},
		Animation: AnimationConfig{
			Policy: PolicyRoundRobin,
		},
		Overlay: OverlayConfig{
			ShowFPS: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var err error

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		err = multierr.Append(err, fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height))
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		err = multierr.Append(err, fmt.Errorf("camera clip planes invalid: near=%g far=%g", c.Camera.Near, c.Camera.Far))
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 {
		err = multierr.Append(err, fmt.Errorf("camera fov must be in (0, 180), got %g", c.Camera.FOV))
	}
	if c.Camera.MinDistance > c.Camera.MaxDistance {
		err = multierr.Append(err, fmt.Errorf("camera min_distance %g exceeds max_distance %g", c.Camera.MinDistance, c.Camera.MaxDistance))
	}

	seen := make(map[string]bool, len(c.Assets.Characters))
	for i, ch := range c.Assets.Characters {
		if ch.ID == "" {
			err = multierr.Append(err, fmt.Errorf("character %d: empty id", i))
		} else if seen[ch.ID] {
			err = multierr.Append(err, fmt.Errorf("character %q: duplicate id", ch.ID))
		}
		seen[ch.ID] = true
		if ch.Model == "" || ch.Clip == "" {
			err = multierr.Append(err, fmt.Errorf("character %q: model and clip paths are required", ch.ID))
		}
		if ch.Scale <= 0 {
			err = multierr.Append(err, fmt.Errorf("character %q: scale must be positive", ch.ID))
		}
	}

	if c.Assets.Environment.Path != "" && c.Assets.Environment.ShadowMapSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("environment shadow_map_size must be positive"))
	}

	switch c.Animation.Policy {
	case PolicyRoundRobin, PolicyEveryFrame:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown animation policy %q", c.Animation.Policy))
	}

	return err
}
