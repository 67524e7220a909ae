package triangle

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// DefaultFramesInFlight enables double buffering: the CPU records one frame
// while the GPU executes the previous one.
const DefaultFramesInFlight = 2

// Config carries every knob the engine exposes. Zero values are not usable;
// start from DefaultConfig and override.
type Config struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`

	EngineName string `toml:"engine_name"`

	// FramesInFlight bounds how many frames may be recorded before the
	// oldest completes on the GPU. More frames buy parallelism at the cost
	// of GPU memory and input latency.
	FramesInFlight int `toml:"frames_in_flight"`

	// ArenaSize is the capacity in bytes of the scratch arena that backs
	// every transient query buffer during setup.
	ArenaSize int `toml:"arena_size"`

	VertexShader   string `toml:"vertex_shader"`
	FragmentShader string `toml:"fragment_shader"`

	// EnableValidation requests the Khronos validation layer. Setup fails if
	// the layer is requested but not installed.
	EnableValidation bool `toml:"enable_validation"`
}

func DefaultConfig() Config {
	return Config{
		Width:          800,
		Height:         600,
		Title:          "Vulkan Triangle",
		EngineName:     "No Engine",
		FramesInFlight: DefaultFramesInFlight,
		ArenaSize:      1 << 16,
		VertexShader:   "shaders/vert.spv",
		FragmentShader: "shaders/frag.spv",
	}
}

// LoadConfig reads a TOML file over the defaults, so a partial file only
// overrides the keys it names.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("window dimensions must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.FramesInFlight < 1 {
		return fmt.Errorf("frames in flight must be at least 1, got %d", c.FramesInFlight)
	}
	if c.ArenaSize <= 0 {
		return fmt.Errorf("arena size must be positive, got %d", c.ArenaSize)
	}
	if c.VertexShader == "" || c.FragmentShader == "" {
		return fmt.Errorf("both vertex and fragment shader paths are required")
	}
	return nil
}
