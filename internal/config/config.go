// Package config provides centralized configuration management using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/shipflow/internal/flow"
	"github.com/mark3labs/shipflow/internal/logger"
	"github.com/mark3labs/shipflow/internal/shipping"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration values for shipflow.
type Config struct {
	ShippingInfoRequired     bool                          `mapstructure:"shipping_info_required" yaml:"shipping_info_required"`
	PrepopulatedShippingInfo *shipping.ShippingInformation `mapstructure:"prepopulated_shipping_info" yaml:"prepopulated_shipping_info,omitempty"`
	OptionalFields           []string                      `mapstructure:"optional_fields" yaml:"optional_fields,omitempty"`
	HiddenFields             []string                      `mapstructure:"hidden_fields" yaml:"hidden_fields,omitempty"`
	LogLevel                 string                        `mapstructure:"log_level" yaml:"log_level"`
	LogFile                  string                        `mapstructure:"log_file" yaml:"log_file,omitempty"`
	RunName                  string                        `mapstructure:"run_name" yaml:"run_name,omitempty"`
	MetricsAddr              string                        `mapstructure:"metrics_addr" yaml:"metrics_addr,omitempty"`
	Validator                ValidatorConfig               `mapstructure:"validator" yaml:"validator"`
}

// ValidatorConfig configures the built-in demo validator.
type ValidatorConfig struct {
	AllowedCountries []string                  `mapstructure:"allowed_countries" yaml:"allowed_countries,omitempty"`
	ShippingMethods  []shipping.ShippingMethod `mapstructure:"shipping_methods" yaml:"shipping_methods,omitempty"`
	Delay            time.Duration             `mapstructure:"delay" yaml:"delay"`
	FailMessage      string                    `mapstructure:"fail_message" yaml:"fail_message,omitempty"`
	FailStatus       int                       `mapstructure:"fail_status" yaml:"fail_status,omitempty"`
}

// DefaultShippingMethods are offered when no methods are configured.
func DefaultShippingMethods() []shipping.ShippingMethod {
	return []shipping.ShippingMethod{
		{ID: "ups-ground", Label: "UPS Ground", Detail: "Arrives in 3-5 days", Amount: 0, Currency: "USD"},
		{ID: "fedex", Label: "FedEx", Detail: "Arrives tomorrow", Amount: 599, Currency: "USD"},
	}
}

// Load loads configuration with full precedence:
// CLI flags > ENV vars > project config > XDG global config > defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("shipflow")

	v.SetDefault("shipping_info_required", true)
	v.SetDefault("optional_fields", []string{})
	v.SetDefault("hidden_fields", []string{})
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("run_name", "")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("validator.allowed_countries", []string{})
	v.SetDefault("validator.delay", "0s")
	v.SetDefault("validator.fail_message", "")
	v.SetDefault("validator.fail_status", 0)

	// Setup ENV binding with SHIPFLOW_ prefix
	v.SetEnvPrefix("SHIPFLOW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Explicit ENV bindings for better bool/int parsing
	bindings := map[string]string{
		"shipping_info_required":      "SHIPFLOW_SHIPPING_INFO_REQUIRED",
		"log_level":                   "SHIPFLOW_LOG_LEVEL",
		"log_file":                    "SHIPFLOW_LOG_FILE",
		"run_name":                    "SHIPFLOW_RUN_NAME",
		"metrics_addr":                "SHIPFLOW_METRICS_ADDR",
		"validator.delay":             "SHIPFLOW_VALIDATOR_DELAY",
		"validator.fail_message":      "SHIPFLOW_VALIDATOR_FAIL_MESSAGE",
		"validator.fail_status":       "SHIPFLOW_VALIDATOR_FAIL_STATUS",
		"validator.allowed_countries": "SHIPFLOW_VALIDATOR_ALLOWED_COUNTRIES",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s env: %w", key, err)
		}
	}

	// Load global config first (if exists)
	globalPath := GlobalPath()
	if fileExists(globalPath) {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	// Merge project config on top (if exists)
	projectPath := ProjectPath()
	if fileExists(projectPath) {
		v.SetConfigFile(projectPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if len(cfg.Validator.ShippingMethods) == 0 {
		cfg.Validator.ShippingMethods = DefaultShippingMethods()
	}

	return &cfg, nil
}

// Validate checks values that cannot be expressed as viper defaults.
func (c *Config) Validate() error {
	var errs []error

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseFields(c.OptionalFields); err != nil {
		errs = append(errs, fmt.Errorf("optional_fields: %w", err))
	}
	if _, err := parseFields(c.HiddenFields); err != nil {
		errs = append(errs, fmt.Errorf("hidden_fields: %w", err))
	}
	for _, country := range c.Validator.AllowedCountries {
		if len(strings.TrimSpace(country)) != 2 {
			errs = append(errs, fmt.Errorf("validator.allowed_countries: %q is not a two-letter country code", country))
		}
	}

	seen := make(map[string]bool)
	for _, m := range c.Validator.ShippingMethods {
		switch {
		case m.ID == "":
			errs = append(errs, errors.New("validator.shipping_methods: method without id"))
		case seen[m.ID]:
			errs = append(errs, fmt.Errorf("validator.shipping_methods: duplicate id %q", m.ID))
		}
		seen[m.ID] = true
	}

	if c.Validator.Delay < 0 {
		errs = append(errs, fmt.Errorf("validator.delay: must not be negative, got %s", c.Validator.Delay))
	}
	if c.Validator.FailMessage != "" && (c.Validator.FailStatus < 400 || c.Validator.FailStatus > 599) {
		errs = append(errs, fmt.Errorf("validator.fail_status: want a 4xx or 5xx status, got %d", c.Validator.FailStatus))
	}

	return errors.Join(errs...)
}

// FlowConfiguration converts the loaded values into the controller's
// configuration.
func (c *Config) FlowConfiguration() (flow.Configuration, error) {
	optional, err := parseFields(c.OptionalFields)
	if err != nil {
		return flow.Configuration{}, fmt.Errorf("optional_fields: %w", err)
	}
	hidden, err := parseFields(c.HiddenFields)
	if err != nil {
		return flow.Configuration{}, fmt.Errorf("hidden_fields: %w", err)
	}

	fc := flow.Configuration{
		ShippingInfoRequired: c.ShippingInfoRequired,
		OptionalFields:       optional,
		HiddenFields:         hidden,
	}
	if c.PrepopulatedShippingInfo != nil && !c.PrepopulatedShippingInfo.IsZero() {
		info := *c.PrepopulatedShippingInfo
		fc.PrepopulatedShippingInfo = &info
	}
	return fc, nil
}

func parseFields(names []string) ([]shipping.Field, error) {
	var fields []shipping.Field
	for _, name := range names {
		f, err := shipping.ParseField(name)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// Exists returns true if any config file exists (global or project).
func Exists() bool {
	return fileExists(GlobalPath()) || fileExists(ProjectPath())
}

// GlobalPath returns the XDG global config path.
// Returns ~/.config/shipflow/shipflow.yml or $XDG_CONFIG_HOME/shipflow/shipflow.yml.
func GlobalPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "shipflow", "shipflow.yml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "shipflow", "shipflow.yml")
}

// ProjectPath returns the project-local config path.
func ProjectPath() string {
	return "shipflow.yml"
}

// WriteGlobal writes the config to the XDG global location.
func WriteGlobal(cfg *Config) error {
	path := GlobalPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return write(path, cfg)
}

// WriteProject writes the config to the project-local location.
func WriteProject(cfg *Config) error {
	return write(ProjectPath(), cfg)
}

func write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
