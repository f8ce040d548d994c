package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BasisPointsDenominator is 100% expressed in basis points.
const BasisPointsDenominator int64 = 10_000

// CommerceConfig carries the tunables shared by the revenue split, the
// publish validator and the playback limiter.
type CommerceConfig struct {
	// CommissionBPS is the platform commission in basis points. It is the
	// only commission value in the system; creator shares are derived.
	CommissionBPS int64          `mapstructure:"commission_bps"`
	Currency      string         `mapstructure:"currency"`
	Tags          TagBounds      `mapstructure:"tags"`
	Playback      PlaybackLimits `mapstructure:"playback"`
}

type TagBounds struct {
	Min int `mapstructure:"min"`
	Max int `mapstructure:"max"`
}

type PlaybackLimits struct {
	TokenRate  float64 `mapstructure:"token_rate"`
	TokenBurst int     `mapstructure:"token_burst"`
}

func DefaultCommerceConfig() CommerceConfig {
	return CommerceConfig{
		CommissionBPS: 3000,
		Currency:      "KRW",
		Tags:          TagBounds{Min: 1, Max: 5},
		Playback:      PlaybackLimits{TokenRate: 0.5, TokenBurst: 10},
	}
}

type CommerceConfigHolder struct {
	current atomic.Value // holds CommerceConfig
}

// NewCommerceConfigHolder loads commerce.yml and keeps it hot-reloaded.
// A missing file falls back to DefaultCommerceConfig.
func NewCommerceConfigHolder(log *zap.Logger) (*CommerceConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("commerce.config")

	v := viper.New()

	v.SetConfigName("commerce")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/coursemart/config")
	v.AddConfigPath("/etc/coursemart")
	v.AddConfigPath(".")

	v.SetEnvPrefix("COURSEMART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCommerceConfig()
	v.SetDefault("commerce.commission_bps", defaults.CommissionBPS)
	v.SetDefault("commerce.currency", defaults.Currency)
	v.SetDefault("commerce.tags.min", defaults.Tags.Min)
	v.SetDefault("commerce.tags.max", defaults.Tags.Max)
	v.SetDefault("commerce.playback.token_rate", defaults.Playback.TokenRate)
	v.SetDefault("commerce.playback.token_burst", defaults.Playback.TokenBurst)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg CommerceConfig
	if err := v.UnmarshalKey("commerce", &cfg); err != nil {
		return nil, err
	}
	if err := ValidateCommerceConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticCommerceConfigHolder(cfg)
	if !fileLoaded {
		log.Info("commerce config file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CommerceConfig
		if err := v.UnmarshalKey("commerce", &updated); err != nil {
			log.Warn("commerce config reload failed", zap.Error(err))
			return
		}
		if err := ValidateCommerceConfig(updated); err != nil {
			log.Warn("invalid commerce config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("commerce config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticCommerceConfigHolder wraps a fixed config.
func NewStaticCommerceConfigHolder(cfg CommerceConfig) *CommerceConfigHolder {
	holder := &CommerceConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *CommerceConfigHolder) Get() CommerceConfig {
	if h == nil {
		return DefaultCommerceConfig()
	}
	cfg, ok := h.current.Load().(CommerceConfig)
	if !ok {
		return DefaultCommerceConfig()
	}
	return cfg
}

func ValidateCommerceConfig(cfg CommerceConfig) error {
	if cfg.CommissionBPS < 0 || cfg.CommissionBPS > BasisPointsDenominator {
		return fmt.Errorf("commerce.commission_bps must be within 0..%d", BasisPointsDenominator)
	}
	if strings.TrimSpace(cfg.Currency) == "" {
		return errors.New("commerce.currency cannot be empty")
	}
	if cfg.Tags.Min < 0 {
		return errors.New("commerce.tags.min cannot be negative")
	}
	if cfg.Tags.Max <= 0 || cfg.Tags.Max < cfg.Tags.Min {
		return errors.New("commerce.tags.max must be positive and not below min")
	}
	if cfg.Playback.TokenRate <= 0 || cfg.Playback.TokenBurst <= 0 {
		return errors.New("commerce.playback limits must be positive")
	}
	return nil
}
