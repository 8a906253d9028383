// Package config loads the engine's runtime configuration the way the
// reference server loads its ServerConfig (pkg/types/config.go), but through
// viper rather than flag-only construction: AGENTE_-prefixed environment
// variables take precedence, then an optional config file, then the defaults
// below. Command-line flags are not bound into Config.
package config

import (
	"fmt"
	"strings"

	"github.com/atlas-desktop/agente/internal/economy/types"
	"github.com/spf13/viper"
)

// Config is the engine's full runtime configuration.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	Mode        string `mapstructure:"mode"`
	GracePeriod int    `mapstructure:"gracePeriod"`

	MetricStoreCapacity int `mapstructure:"metricStoreCapacity"`
	MediumWindow        int `mapstructure:"mediumWindow"`
	CoarseWindow        int `mapstructure:"coarseWindow"`

	ForwardTicks            int `mapstructure:"forwardTicks"`
	SimulationMinIterations int `mapstructure:"simulationMinIterations"`

	Thresholds types.Thresholds `mapstructure:"thresholds"`
}

// Default returns the configuration used when no flags, environment
// variables, or config file override it.
func Default() Config {
	return Config{
		Host:                    "127.0.0.1",
		Port:                    3100,
		Mode:                    string(types.ModeAutonomous),
		GracePeriod:             50,
		MetricStoreCapacity:     200,
		MediumWindow:            10,
		CoarseWindow:            50,
		ForwardTicks:            20,
		SimulationMinIterations: 100,
		Thresholds:              types.DefaultThresholds(),
	}
}

// Load builds a Config from, in ascending priority: the defaults above, an
// optional config file (agente.yaml/.json under configPath or the working
// directory, if present), and AGENTE_-prefixed environment variables. No
// command-line flags are bound.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	def := Default()

	v.SetConfigName("agente")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("AGENTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, def)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, def Config) {
	v.SetDefault("host", def.Host)
	v.SetDefault("port", def.Port)
	v.SetDefault("mode", def.Mode)
	v.SetDefault("gracePeriod", def.GracePeriod)
	v.SetDefault("metricStoreCapacity", def.MetricStoreCapacity)
	v.SetDefault("mediumWindow", def.MediumWindow)
	v.SetDefault("coarseWindow", def.CoarseWindow)
	v.SetDefault("forwardTicks", def.ForwardTicks)
	v.SetDefault("simulationMinIterations", def.SimulationMinIterations)

	t := def.Thresholds
	v.SetDefault("thresholds.giniWarn", t.GiniWarn)
	v.SetDefault("thresholds.giniRed", t.GiniRed)
	v.SetDefault("thresholds.netFlowWarn", t.NetFlowWarn)
	v.SetDefault("thresholds.poolCapPercent", t.PoolCapPercent)
	v.SetDefault("thresholds.poolOperatorShare", t.PoolOperatorShare)
	v.SetDefault("thresholds.poolWinRate", t.PoolWinRate)
	v.SetDefault("thresholds.cooldownTicks", t.CooldownTicks)
	v.SetDefault("thresholds.maxAdjustmentPercent", t.MaxAdjustmentPercent)
	v.SetDefault("thresholds.arbitrageIndexWarning", t.ArbitrageIndexWarning)
	v.SetDefault("thresholds.arbitrageIndexCritical", t.ArbitrageIndexCritical)
	v.SetDefault("thresholds.complexityBudgetMax", t.ComplexityBudgetMax)
	v.SetDefault("thresholds.replacementRateMultiplier", t.ReplacementRateMultiplier)
	v.SetDefault("thresholds.gracePeriod", t.GracePeriod)
	v.SetDefault("thresholds.simulationMinIterations", t.SimulationMinIterations)
	v.SetDefault("thresholds.satisfactionFloor", t.SatisfactionFloor)
	v.SetDefault("thresholds.eventCompletionFloor", t.EventCompletionFloor)
}
