//-------------------------------------------------------------------------
//
// FlexiMart ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for fleximart-etl.
// Values come from CLI flags, environment variables, a config file and
// defaults, in that order of precedence. The resolved Config is passed by
// value to each stage; nothing reads it from global state.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/fleximart/fleximart-etl/internal/etlerr"
	"github.com/fleximart/fleximart-etl/internal/extract"
	"github.com/fleximart/fleximart-etl/internal/load"
	"github.com/fleximart/fleximart-etl/internal/model"
	"github.com/fleximart/fleximart-etl/internal/store"
)

// EnvPrefix prefixes the environment variable of every config key, for
// example FLEXIMART_LOAD_HOST for load.host.
const EnvPrefix = "FLEXIMART"

// Password environment variables checked in addition to
// FLEXIMART_LOAD_PASSWORD.
var passwordEnv = []string{"FLEXIMART_DB_PASSWORD", "MYSQL_PASSWORD", "PGPASSWORD"}

// Config holds all configuration for fleximart-etl.
type Config struct {
	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// CountryCode is prefixed to standardized phone numbers.
	CountryCode string `mapstructure:"country_code"`

	// KeyStrategy is monotonic or dense.
	KeyStrategy string `mapstructure:"key_strategy"`

	Inputs  InputConfig   `mapstructure:"inputs"`
	Output  OutputConfig  `mapstructure:"output"`
	Load    LoadConfig    `mapstructure:"load"`
	Report  ReportConfig  `mapstructure:"report"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// InputConfig holds the raw CSV path of each source kind. An empty path
// disables that source.
type InputConfig struct {
	Customers  string `mapstructure:"customers"`
	Products   string `mapstructure:"products"`
	Orders     string `mapstructure:"orders"`
	OrderItems string `mapstructure:"order_items"`
	Sales      string `mapstructure:"sales"`
}

// OutputConfig controls the cleaned flat files.
type OutputConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// LoadConfig holds the destination settings.
type LoadConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`

	// DSN overrides the individual connection settings.
	DSN string `mapstructure:"dsn"`
}

// ReportConfig controls the text report.
type ReportConfig struct {
	// Path of the append-only report file. Empty disables the file.
	Path string `mapstructure:"path"`
}

// MetricsConfig controls the Pushgateway push.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:    "info",
		CountryCode: "91",
		KeyStrategy: string(load.Monotonic),
		Inputs: InputConfig{
			Customers: filepath.Join("data", "customers_raw.csv"),
			Products:  filepath.Join("data", "products_raw.csv"),
			Sales:     filepath.Join("data", "sales_raw.csv"),
		},
		Output: OutputConfig{
			Enabled: true,
			Dir:     "data",
		},
		Load: LoadConfig{
			Enabled:  false,
			Driver:   "mysql",
			Host:     "localhost",
			User:     "root",
			Database: "fleximart",
		},
		Report: ReportConfig{
			Path: filepath.Join("data", "data_quality_report.txt"),
		},
		Metrics: MetricsConfig{
			Job: "fleximart_etl",
		},
	}
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process
// environment without overriding variables that are already set. A
// missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return etlerr.Config("error reading env file %s: %v", path, err)
	}
	return nil
}

// Load reads configuration from config files and the environment.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./fleximart-etl.yaml
// 3. ~/.config/fleximart-etl/fleximart-etl.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("fleximart-etl")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "fleximart-etl"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Defaults make every key known to viper so the environment can
	// override keys the file does not mention.
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(append([]string{"load.password", "FLEXIMART_LOAD_PASSWORD"}, passwordEnv...)...); err != nil {
		return nil, fmt.Errorf("error binding environment: %w", err)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, etlerr.Config("error reading config file: %v", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, etlerr.Config("error parsing config: %v", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("country_code", d.CountryCode)
	v.SetDefault("key_strategy", d.KeyStrategy)
	v.SetDefault("inputs.customers", d.Inputs.Customers)
	v.SetDefault("inputs.products", d.Inputs.Products)
	v.SetDefault("inputs.orders", d.Inputs.Orders)
	v.SetDefault("inputs.order_items", d.Inputs.OrderItems)
	v.SetDefault("inputs.sales", d.Inputs.Sales)
	v.SetDefault("output.enabled", d.Output.Enabled)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("load.enabled", d.Load.Enabled)
	v.SetDefault("load.driver", d.Load.Driver)
	v.SetDefault("load.host", d.Load.Host)
	v.SetDefault("load.port", d.Load.Port)
	v.SetDefault("load.user", d.Load.User)
	v.SetDefault("load.password", d.Load.Password)
	v.SetDefault("load.database", d.Load.Database)
	v.SetDefault("load.dsn", d.Load.DSN)
	v.SetDefault("report.path", d.Report.Path)
	v.SetDefault("metrics.pushgateway_url", d.Metrics.PushgatewayURL)
	v.SetDefault("metrics.job", d.Metrics.Job)
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if _, err := load.ParseStrategy(c.KeyStrategy); err != nil {
		return etlerr.Config("%v", err)
	}
	if c.CountryCode == "" || len(c.CountryCode) > 3 || strings.Trim(c.CountryCode, "0123456789") != "" {
		return etlerr.Config("country_code must be 1 to 3 digits, got %q", c.CountryCode)
	}
	return nil
}

// ValidateRun checks configuration required for the run command.
func (c *Config) ValidateRun() error {
	if err := c.Validate(); err != nil {
		return err
	}

	in := c.Inputs
	if in.Customers == "" && in.Products == "" && in.Orders == "" && in.OrderItems == "" && in.Sales == "" {
		return etlerr.Config("at least one input file is required")
	}
	if (in.Orders == "") != (in.OrderItems == "") {
		return etlerr.Config("inputs.orders and inputs.order_items must be given together")
	}
	if c.Output.Enabled && c.Output.Dir == "" {
		return etlerr.Config("output.dir is required when output is enabled")
	}
	if c.Load.Enabled {
		return c.ValidateDestination()
	}
	return nil
}

// ValidateDestination checks the destination settings. Call it after
// credentials have been resolved.
func (c *Config) ValidateDestination() error {
	if c.Load.Driver == "" {
		return etlerr.Config("load.driver is required when loading is enabled")
	}
	known := false
	for _, name := range store.List() {
		if name == c.Load.Driver {
			known = true
			break
		}
	}
	if !known {
		return etlerr.Config("unknown load.driver %q (available: %s)", c.Load.Driver, strings.Join(store.List(), ", "))
	}
	if c.Load.NeedsPassword() && c.Load.Password == "" {
		return etlerr.Config("no password for %s destination: use --password, FLEXIMART_DB_PASSWORD or an interactive terminal", c.Load.Driver)
	}
	return nil
}

// NeedsPassword reports whether the destination authenticates with a
// password that has to be resolved.
func (l LoadConfig) NeedsPassword() bool {
	if l.DSN != "" {
		return false
	}
	switch l.Driver {
	case "postgres", "postgresql", "mysql":
		return true
	}
	return false
}

// Store returns the store settings.
func (c *Config) Store() store.Config {
	return store.Config{
		Driver:   c.Load.Driver,
		Host:     c.Load.Host,
		Port:     c.Load.Port,
		User:     c.Load.User,
		Password: c.Load.Password,
		Database: c.Load.Database,
		DSN:      c.Load.DSN,
	}
}

// Sources returns a CSV source for every configured input, in dependency
// order.
func (c *Config) Sources() []extract.Source {
	paths := map[model.Kind]string{
		model.KindCustomers:  c.Inputs.Customers,
		model.KindProducts:   c.Inputs.Products,
		model.KindSales:      c.Inputs.Sales,
		model.KindOrders:     c.Inputs.Orders,
		model.KindOrderItems: c.Inputs.OrderItems,
	}
	var out []extract.Source
	for _, kind := range model.TransformOrder {
		if p := paths[kind]; p != "" {
			out = append(out, extract.CSV{K: kind, Path: p})
		}
	}
	return out
}
