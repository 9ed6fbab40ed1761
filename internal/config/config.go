package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"lppool/internal/fee"
	"lppool/internal/fixed"
	"lppool/internal/pool"
)

// PoolSettings holds the pool parameters shared by every command.
// Fees are percent values, so 0.9 means 0.9%.
type PoolSettings struct {
	Price           float64
	MinFee          float64
	MaxFee          float64
	LiquidityTarget float64
	FeeMode         string
	FeeSeed         uint64
	FixedFee        float64
}

// Config holds configuration for the demo command.
type Config struct {
	Pool     PoolSettings
	LogLevel string
}

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	Pool              PoolSettings
	In                string
	Out               string
	Checkpoint        string
	CheckpointEnabled bool
	PGDSN             string
	PoolName          string
	BatchSize         uint64
	MaxRetries        int
	RetryBackoff      time.Duration
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Pool:     poolSettings(v),
		LogLevel: v.GetString("log-level"),
	}, nil
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"out":                "./data/results.jsonl",
		"checkpoint":         "./data/checkpoint.json",
		"checkpoint-enabled": true,
		"pool-name":          "default",
		"batch-size":         uint64(500),
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	return ReplayConfig{
		Pool:              poolSettings(v),
		In:                v.GetString("in"),
		Out:               v.GetString("out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		PGDSN:             v.GetString("pg-dsn"),
		PoolName:          v.GetString("pool-name"),
		BatchSize:         v.GetUint64("batch-size"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		LogLevel:          v.GetString("log-level"),
	}, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("LPPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("price", 1.5)
	v.SetDefault("min-fee", 0.9)
	v.SetDefault("max-fee", 9.0)
	v.SetDefault("liquidity-target", 90.0)
	v.SetDefault("fee-mode", fee.ModeUniform)
	v.SetDefault("fee-seed", uint64(0))
	v.SetDefault("fixed-fee", 0.0)
	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func poolSettings(v *viper.Viper) PoolSettings {
	return PoolSettings{
		Price:           v.GetFloat64("price"),
		MinFee:          v.GetFloat64("min-fee"),
		MaxFee:          v.GetFloat64("max-fee"),
		LiquidityTarget: v.GetFloat64("liquidity-target"),
		FeeMode:         v.GetString("fee-mode"),
		FeeSeed:         v.GetUint64("fee-seed"),
		FixedFee:        v.GetFloat64("fixed-fee"),
	}
}

// PoolConfig converts the settings into fixed-point pool parameters.
func (s PoolSettings) PoolConfig() (pool.Config, error) {
	return pool.NewConfig(s.Price, s.MinFee, s.MaxFee, s.LiquidityTarget)
}

// Selector builds the configured fee selector.
func (s PoolSettings) Selector() (fee.Selector, error) {
	rate, ok := fixed.PercentFromFloat(s.FixedFee)
	if !ok {
		return nil, fmt.Errorf("invalid fixed fee: %v", s.FixedFee)
	}
	return fee.NewSelector(s.FeeMode, s.FeeSeed, rate)
}
