// Package config handles viewer and import configuration.
package config

// Config holds all settings for the model pipeline and viewer.
type Config struct {
	Graphics  GraphicsConfig  `yaml:"graphics"`
	Import    ImportConfig    `yaml:"import"`
	Animation AnimationConfig `yaml:"animation"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GraphicsConfig holds display settings for the viewer.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
}

// ImportConfig holds per-import mesh conversion settings.
type ImportConfig struct {
	// Scale multiplies every imported position. 1.0 leaves geometry as
	// authored.
	Scale float32 `yaml:"scale"`
	// FlipV flips the texture V coordinate (v' = 1-v) for pipelines that
	// author V top-down. Resolved once at import time per mesh.
	FlipV bool `yaml:"flip_v"`
}

// AnimationConfig holds skinning settings.
type AnimationConfig struct {
	// Strategy selects the skinning path: "weighted" (internal) or
	// "delegated" (external evaluator).
	Strategy string `yaml:"strategy"`
	// Damping blends skinned positions with the bind pose in the weighted
	// path. 1.0 means fully skinned. This is an approximation knob, not
	// standard linear blend skinning.
	Damping float32 `yaml:"damping"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
		},
		Import: ImportConfig{
			Scale: 1.0,
			FlipV: false,
		},
		Animation: AnimationConfig{
			Strategy: "weighted",
			Damping:  0.85,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
