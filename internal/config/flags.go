package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagAssets      = flag.String("assets", "", "Assets directory")
	flagArchive     = flag.String("grf", "", "GRF archive searched before the assets directory")
	flagWindowed    = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen  = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth       = flag.Int("width", 0, "Window width")
	flagHeight      = flag.Int("height", 0, "Window height")
	flagEveryFrame  = flag.Bool("every-frame", false, "Advance every character each frame instead of round-robin")
	flagNoFPS       = flag.Bool("no-fps", false, "Hide the FPS overlay")
	flagWriteConfig = flag.Bool("write-config", false, "Write the effective config to the user config directory")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// WriteConfigRequested reports whether -write-config was given.
func WriteConfigRequested() bool {
	return *flagWriteConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagAssets != "" {
		cfg.Assets.Dir = *flagAssets
	}
	if *flagArchive != "" {
		cfg.Assets.Archives = append(cfg.Assets.Archives, *flagArchive)
	}
	if *flagWindowed {
		cfg.Window.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Window.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	if *flagEveryFrame {
		cfg.Animation.Policy = PolicyEveryFrame
	}
	if *flagNoFPS {
		cfg.Overlay.ShowFPS = false
	}
}
