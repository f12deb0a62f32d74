package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Forecast ForecastConfig `yaml:"forecast" mapstructure:"forecast"`
	Weights  WeightsConfig  `yaml:"weights" mapstructure:"weights"`
	Scoring  ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	Health   HealthConfig   `yaml:"health" mapstructure:"health"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // postgres or sqlite
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ForecastConfig configures the time-series forecaster and the optional
// external model service.
type ForecastConfig struct {
	ServiceURL           string  `yaml:"service_url" mapstructure:"service_url"`
	UseAdvanced          bool    `yaml:"use_advanced" mapstructure:"use_advanced"`
	TimeoutSecs          int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	HorizonDays          int     `yaml:"horizon_days" mapstructure:"horizon_days"`
	LookbackDays         int     `yaml:"lookback_days" mapstructure:"lookback_days"`
	MinRemoteHistoryDays int     `yaml:"min_remote_history_days" mapstructure:"min_remote_history_days"`
	RatePerSec           float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst            int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// Timeout returns the remote call timeout as a duration.
func (c ForecastConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// WeightsConfig holds the empirical blend and scenario calibration
// constants. Their values are business calibration decisions, not
// derived invariants, so every one of them is overridable.
type WeightsConfig struct {
	TimeSeriesWeight     float64 `yaml:"time_series_weight" mapstructure:"time_series_weight"`
	DealBasedWeight      float64 `yaml:"deal_based_weight" mapstructure:"deal_based_weight"`
	ConservativeHaircut  float64 `yaml:"conservative_haircut" mapstructure:"conservative_haircut"` // percentage points
	UpsideBoost          float64 `yaml:"upside_boost" mapstructure:"upside_boost"`                 // percentage points
	DefaultClosureUplift float64 `yaml:"default_closure_uplift" mapstructure:"default_closure_uplift"`
}

// ScoringConfig holds scorer thresholds and the placeholder values
// pending finance-module integration.
type ScoringConfig struct {
	HighRiskMinScore       float64 `yaml:"high_risk_min_score" mapstructure:"high_risk_min_score"`
	UpsellMinScore         float64 `yaml:"upsell_min_score" mapstructure:"upsell_min_score"`
	BaseUpsellValue        float64 `yaml:"base_upsell_value" mapstructure:"base_upsell_value"`
	LostCustomerMonthlyRev float64 `yaml:"lost_customer_monthly_rev" mapstructure:"lost_customer_monthly_rev"`
	TotalFeatureCount      int     `yaml:"total_feature_count" mapstructure:"total_feature_count"`
}

// HealthConfig configures the pipeline health aggregator.
type HealthConfig struct {
	MaxConcurrent   int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	StuckAfterDays  int `yaml:"stuck_after_days" mapstructure:"stuck_after_days"`
	ReadyWithinDays int `yaml:"ready_within_days" mapstructure:"ready_within_days"`
	TopStuck        int `yaml:"top_stuck" mapstructure:"top_stuck"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CRMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("forecast.use_advanced", true)
	v.SetDefault("forecast.timeout_secs", 30)
	v.SetDefault("forecast.horizon_days", 90)
	v.SetDefault("forecast.lookback_days", 180)
	v.SetDefault("forecast.min_remote_history_days", 30)
	v.SetDefault("forecast.rate_per_sec", 2.0)
	v.SetDefault("forecast.rate_burst", 4)
	v.SetDefault("weights.time_series_weight", 0.4)
	v.SetDefault("weights.deal_based_weight", 0.6)
	v.SetDefault("weights.conservative_haircut", 20.0)
	v.SetDefault("weights.upside_boost", 20.0)
	v.SetDefault("weights.default_closure_uplift", 10.0)
	v.SetDefault("scoring.high_risk_min_score", 60.0)
	v.SetDefault("scoring.upsell_min_score", 50.0)
	v.SetDefault("scoring.base_upsell_value", 5000.0)
	v.SetDefault("scoring.lost_customer_monthly_rev", 5000.0)
	v.SetDefault("scoring.total_feature_count", 10)
	v.SetDefault("health.max_concurrent", 8)
	v.SetDefault("health.stuck_after_days", 14)
	v.SetDefault("health.ready_within_days", 7)
	v.SetDefault("health.top_stuck", 10)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
