package bitsvg

import (
	"time"

	"github.com/pkg/errors"
)

// Config holds every tunable of the vectorization pipeline, the trace cache
// and the HTTP service. The mapstructure tags name the keys of the YAML
// configuration file read by the config package.
type Config struct {
	// Colors is the maximum number of color layers per image.
	Colors          int          `mapstructure:"colors" json:"colors"`
	SimplifyEpsilon float64      `mapstructure:"simplify_epsilon" json:"simplify_epsilon"`
	Snap            SnapConfig   `mapstructure:"snap" json:"snap"`
	Fit             FitConfig    `mapstructure:"fit" json:"fit"`
	QA              QAConfig     `mapstructure:"qa" json:"qa"`
	SVG             FormatConfig `mapstructure:"svg" json:"svg"`
	Cache           CacheConfig  `mapstructure:"cache" json:"cache"`
	Server          ServerConfig `mapstructure:"server" json:"server"`
}

type CacheConfig struct {
	Capacity int         `mapstructure:"capacity" json:"capacity"`
	Redis    RedisConfig `mapstructure:"redis" json:"redis"`
}

// RedisConfig configures the optional durable trace store. An empty Addr
// disables it.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" json:"addr"`
	Password string        `mapstructure:"password" json:"-"`
	DB       int           `mapstructure:"db" json:"db"`
	TTL      time.Duration `mapstructure:"ttl" json:"ttl"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" json:"port"`
	Mode string `mapstructure:"mode" json:"mode"`
	// MaxUploadSize bounds the request body of the upload endpoints, in bytes.
	MaxUploadSize int64 `mapstructure:"max_upload_size" json:"max_upload_size"`
	// Workers bounds the images of a batch request processed in parallel.
	Workers int `mapstructure:"workers" json:"workers"`
}

// DefaultConfig returns the configuration used when nothing else is specified.
func DefaultConfig() Config {
	return Config{
		Colors:          4,
		SimplifyEpsilon: 1.2,
		Snap: SnapConfig{
			CircleTolerance: 1.3,
			RectIoU:         0.95,
		},
		Fit: FitConfig{
			MaxError:    1.5,
			MaxSegments: 256,
		},
		QA: QAConfig{
			SupersampleScale: 4,
			SSIMThreshold:    0.97,
			EdgeIoUThreshold: 0.97,
		},
		SVG: FormatConfig{
			Decimals: 3,
		},
		Cache: CacheConfig{
			Capacity: DefaultCacheCapacity,
			Redis: RedisConfig{
				TTL: 24 * time.Hour,
			},
		},
		Server: ServerConfig{
			Port:          ":8080",
			Mode:          "debug",
			MaxUploadSize: 10 << 20,
			Workers:       4,
		},
	}
}

// Validate reports the first setting outside of its valid range.
func (c Config) Validate() error {
	switch {
	case c.Colors < 1:
		return errors.Errorf("colors must be at least 1, got %d", c.Colors)
	case c.SimplifyEpsilon < 0:
		return errors.Errorf("simplify_epsilon must not be negative, got %g", c.SimplifyEpsilon)
	case c.Snap.CircleTolerance < 0:
		return errors.Errorf("snap.circle_tolerance must not be negative, got %g", c.Snap.CircleTolerance)
	case c.Snap.RectIoU <= 0 || c.Snap.RectIoU > 1:
		return errors.Errorf("snap.rect_iou must be in (0, 1], got %g", c.Snap.RectIoU)
	case c.Fit.MaxError <= 0:
		return errors.Errorf("fit.max_error_px must be positive, got %g", c.Fit.MaxError)
	case c.Fit.MaxSegments < 1:
		return errors.Errorf("fit.max_segments must be at least 1, got %d", c.Fit.MaxSegments)
	case c.QA.SupersampleScale < 1:
		return errors.Errorf("qa.supersample_scale must be at least 1, got %d", c.QA.SupersampleScale)
	case c.SVG.Decimals < 0:
		return errors.Errorf("svg.decimals must not be negative, got %d", c.SVG.Decimals)
	case c.Cache.Capacity < 1:
		return errors.Errorf("cache.capacity must be at least 1, got %d", c.Cache.Capacity)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return errors.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}
	return nil
}
