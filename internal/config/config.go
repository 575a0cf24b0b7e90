// Package config loads application configuration from file and environment
// and owns global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Census    CensusConfig    `yaml:"census" mapstructure:"census"`
	Sightings SightingsConfig `yaml:"sightings" mapstructure:"sightings"`
	Regions   RegionsConfig   `yaml:"regions" mapstructure:"regions"`
	Classify  ClassifyConfig  `yaml:"classify" mapstructure:"classify"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CensusConfig configures the Census Bureau API client.
type CensusConfig struct {
	Key      string  `yaml:"api_key" mapstructure:"api_key"`
	Year     int     `yaml:"year" mapstructure:"year"`
	Dataset  string  `yaml:"dataset" mapstructure:"dataset"`
	Variable string  `yaml:"variable" mapstructure:"variable"`
	RPS      float64 `yaml:"rps" mapstructure:"rps"`
}

// SightingsConfig configures the default event dataset.
type SightingsConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`
	Encoding string `yaml:"encoding" mapstructure:"encoding"`
	Country  string `yaml:"country" mapstructure:"country"`
}

// RegionsConfig configures boundary shapefile loading.
type RegionsConfig struct {
	ShapefileURL string `yaml:"shapefile_url" mapstructure:"shapefile_url"`
	Level        string `yaml:"level" mapstructure:"level"`
	TempDir      string `yaml:"temp_dir" mapstructure:"temp_dir"`
	IDField      string `yaml:"id_field" mapstructure:"id_field"`
	NameField    string `yaml:"name_field" mapstructure:"name_field"`
	AreaField    string `yaml:"area_field" mapstructure:"area_field"`
}

// ClassifyConfig tunes the classification pipeline.
type ClassifyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port            int `yaml:"port" mapstructure:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec" mapstructure:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec" mapstructure:"write_timeout_sec"`
}

// ExportConfig configures output file writing.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
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
	v.AddConfigPath("$HOME/.atlas-cli")

	// Environment
	v.SetEnvPrefix("ATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "atlas.db")
	v.SetDefault("census.year", 2023)
	v.SetDefault("census.dataset", "acs/acs5")
	v.SetDefault("census.variable", "B01003_001E")
	v.SetDefault("census.rps", 2.0)
	v.SetDefault("sightings.country", "us")
	v.SetDefault("regions.level", "state")
	v.SetDefault("regions.temp_dir", "/tmp/atlas-regions")
	v.SetDefault("regions.id_field", "GEOID")
	v.SetDefault("regions.name_field", "NAME")
	v.SetDefault("regions.area_field", "ALAND")
	v.SetDefault("classify.workers", 0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_sec", 10)
	v.SetDefault("server.write_timeout_sec", 30)
	v.SetDefault("export.dir", "out")
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

// Validate checks the fields a given mode depends on. Modes: "run", "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch mode {
	case "run":
		check(c.Store.Driver == "sqlite" || c.Store.Driver == "postgres",
			"store.driver must be sqlite or postgres")
		check(c.Store.DatabaseURL != "", "store.database_url is required")
		check(c.Census.Year >= 2009, "census.year must be >= 2009")
		check(c.Census.Dataset != "", "census.dataset is required")
		check(c.Census.Variable != "", "census.variable is required")
		check(c.Regions.Level == "state" || c.Regions.Level == "county",
			"regions.level must be state or county")
		check(c.Classify.Workers >= 0, "classify.workers must be >= 0")
	case "serve":
		check(c.Store.DatabaseURL != "", "store.database_url is required")
		check(c.Server.Port > 0, "server.port must be > 0")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
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
