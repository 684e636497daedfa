// Package config loads the bitsvg configuration from a YAML file and the environment.
package config

import (
	"strings"

	"github.com/esimov/bitsvg"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix prefixes the environment variables overriding file values,
// e.g. BITSVG_FIT_MAX_SEGMENTS or BITSVG_CACHE_REDIS_ADDR.
const EnvPrefix = "BITSVG"

// Load reads the configuration from the YAML file at configPath. Keys missing
// from the file keep their default values and every key can be overridden from
// the environment. An empty path loads the defaults and the environment only.
func Load(configPath string) (*bitsvg.Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	var cfg bitsvg.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// New loads the configuration from configPath and falls back to the
// defaults if the file cannot be used. The fallback is logged as a warning
// through the bitsvg package logger.
func New(configPath string) *bitsvg.Config {
	cfg, err := Load(configPath)
	if err != nil {
		bitsvg.Logger().Warn("using default configuration",
			zap.String("path", configPath),
			zap.Error(err),
		)
		def := bitsvg.DefaultConfig()
		return &def
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	def := bitsvg.DefaultConfig()

	v.SetDefault("colors", def.Colors)
	v.SetDefault("simplify_epsilon", def.SimplifyEpsilon)

	v.SetDefault("snap.circle_tolerance", def.Snap.CircleTolerance)
	v.SetDefault("snap.rect_iou", def.Snap.RectIoU)

	v.SetDefault("fit.max_error_px", def.Fit.MaxError)
	v.SetDefault("fit.max_segments", def.Fit.MaxSegments)

	v.SetDefault("qa.supersample_scale", def.QA.SupersampleScale)
	v.SetDefault("qa.ssim_threshold", def.QA.SSIMThreshold)
	v.SetDefault("qa.edge_iou_threshold", def.QA.EdgeIoUThreshold)

	v.SetDefault("svg.decimals", def.SVG.Decimals)
	v.SetDefault("svg.pretty", def.SVG.Pretty)

	v.SetDefault("cache.capacity", def.Cache.Capacity)
	v.SetDefault("cache.redis.addr", def.Cache.Redis.Addr)
	v.SetDefault("cache.redis.password", def.Cache.Redis.Password)
	v.SetDefault("cache.redis.db", def.Cache.Redis.DB)
	v.SetDefault("cache.redis.ttl", def.Cache.Redis.TTL)

	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.mode", def.Server.Mode)
	v.SetDefault("server.max_upload_size", def.Server.MaxUploadSize)
	v.SetDefault("server.workers", def.Server.Workers)
}
