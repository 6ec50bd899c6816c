// Package config loads percapita settings from config.yaml and PERCAPITA_* env vars.
package config

import (
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Assets   AssetsConfig   `yaml:"assets" mapstructure:"assets"`
	Outputs  OutputsConfig  `yaml:"outputs" mapstructure:"outputs"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// AssetsConfig locates the input tables. File names may also be http(s)://
// or ftp:// URLs, in which case Dir is ignored.
type AssetsConfig struct {
	Dir        string `yaml:"dir" mapstructure:"dir"`
	Population string `yaml:"population" mapstructure:"population"`
	Incidents  string `yaml:"incidents" mapstructure:"incidents"`
	Capitals   string `yaml:"capitals" mapstructure:"capitals"`
	Encoding   string `yaml:"encoding" mapstructure:"encoding"`
}

// OutputsConfig configures where and how tables are written.
type OutputsConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Format string `yaml:"format" mapstructure:"format"`
}

// PipelineConfig configures the per-capita computation.
type PipelineConfig struct {
	MinYear       int     `yaml:"min_year" mapstructure:"min_year"`
	MaxYear       int     `yaml:"max_year" mapstructure:"max_year"`
	Concurrency   int     `yaml:"concurrency" mapstructure:"concurrency"`
	OnRegionError string  `yaml:"on_region_error" mapstructure:"on_region_error"`
	RateScale     float64 `yaml:"rate_scale" mapstructure:"rate_scale"`
}

// FetchConfig configures remote asset downloads.
type FetchConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TempDir     string `yaml:"temp_dir" mapstructure:"temp_dir"`
	MaxBytes    int64  `yaml:"max_bytes" mapstructure:"max_bytes"`
}

// Timeout returns the per-request timeout.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// StoreConfig configures run persistence.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

var (
	validFormats  = []string{"csv", "xlsx", "json", "yaml", "yml"}
	validPolicies = []string{"abort", "continue"}
	validDrivers  = []string{"none", "sqlite", "postgres"}
)

// Validate rejects settings the commands cannot act on.
func (c *Config) Validate() error {
	if !slices.Contains(validFormats, strings.ToLower(c.Outputs.Format)) {
		return eris.Errorf("config: unknown outputs.format %q", c.Outputs.Format)
	}
	if !slices.Contains(validPolicies, strings.ToLower(c.Pipeline.OnRegionError)) {
		return eris.Errorf("config: unknown pipeline.on_region_error %q", c.Pipeline.OnRegionError)
	}
	if !slices.Contains(validDrivers, strings.ToLower(c.Store.Driver)) {
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.Pipeline.Concurrency <= 0 {
		return eris.Errorf("config: pipeline.concurrency must be positive, got %d", c.Pipeline.Concurrency)
	}
	if c.Pipeline.MaxYear != 0 && c.Pipeline.MaxYear < c.Pipeline.MinYear {
		return eris.Errorf("config: pipeline.max_year %d is before min_year %d", c.Pipeline.MaxYear, c.Pipeline.MinYear)
	}
	if c.Server.Port <= 0 {
		return eris.Errorf("config: server.port must be > 0, got %d", c.Server.Port)
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required for postgres")
	}
	return nil
}

// AssetPath resolves an asset name against Assets.Dir. URLs and absolute
// paths are returned unchanged.
func (c *Config) AssetPath(name string) string {
	if strings.Contains(name, "://") || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Assets.Dir, name)
}

// OutputPath joins a file name with Outputs.Dir.
func (c *Config) OutputPath(name string) string {
	return filepath.Join(c.Outputs.Dir, name)
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PERCAPITA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("assets.dir", "assets")
	v.SetDefault("assets.population", "population_per_capital.csv")
	v.SetDefault("assets.incidents", "homicides_per_capital.csv")
	v.SetDefault("assets.capitals", "brazilian_capitals.csv")
	v.SetDefault("assets.encoding", "utf-8")
	v.SetDefault("outputs.dir", "outputs")
	v.SetDefault("outputs.format", "csv")
	v.SetDefault("pipeline.min_year", 2000)
	v.SetDefault("pipeline.max_year", 2020)
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.on_region_error", "abort")
	v.SetDefault("pipeline.rate_scale", 1.0)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "percapita/1.0")
	v.SetDefault("fetch.temp_dir", "")
	v.SetDefault("fetch.max_bytes", 0)
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.database_url", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
