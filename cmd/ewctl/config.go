package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/cmd"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/notify"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/store/d1"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/zapi"
	"gopkg.in/yaml.v3"
)

const defaultWorkerURL = "http://localhost:8787"

type Config struct {
	Store      StoreConfig      `yaml:"store"      mapstructure:"store"`
	Cloudflare CloudflareConfig `yaml:"cloudflare" mapstructure:"cloudflare"`
	ZAPI       ZAPIConfig       `yaml:"zapi"       mapstructure:"zapi"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

type StoreConfig struct {
	Driver      string `yaml:"driver"       mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

type CloudflareConfig struct {
	AccountID  string `yaml:"account_id"  mapstructure:"account_id"`
	APIToken   string `yaml:"api_token"   mapstructure:"api_token"`
	DatabaseID string `yaml:"database_id" mapstructure:"database_id"`
	WorkerURL  string `yaml:"worker_url"  mapstructure:"worker_url"`
}

type ZAPIConfig struct {
	InstanceID    string `yaml:"instance_id"    mapstructure:"instance_id"`
	InstanceToken string `yaml:"instance_token" mapstructure:"instance_token"`
	ClientToken   string `yaml:"client_token"   mapstructure:"client_token"`
	BaseURL       string `yaml:"base_url"       mapstructure:"base_url"`
}

type MonitoringConfig struct {
	StateURL       string `yaml:"state_url"        mapstructure:"state_url"`
	AlertEmail     string `yaml:"alert_email"      mapstructure:"alert_email"`
	AlertPhone     string `yaml:"alert_phone"      mapstructure:"alert_phone"`
	AlertFrom      string `yaml:"alert_from"       mapstructure:"alert_from"`
	SendGridAPIKey string `yaml:"sendgrid_api_key" mapstructure:"sendgrid_api_key"`
}

// configEnv lists every key with the environment variables that can set it, in precedence order.
// EWCTL_<SECTION>_<KEY> always wins over the names shared with the relay server.
var configEnv = map[string][]string{
	"store.driver":                {"STORE_DRIVER"},
	"store.database_url":          {"DATABASE_URL"},
	"cloudflare.account_id":       {"CLOUDFLARE_ACCOUNT_ID"},
	"cloudflare.api_token":        {"CLOUDFLARE_API_TOKEN"},
	"cloudflare.database_id":      {"CLOUDFLARE_DATABASE_ID", "DATABASE_ID"},
	"cloudflare.worker_url":       {"WORKER_URL"},
	"zapi.instance_id":            {"ZAPI_INSTANCE_ID"},
	"zapi.instance_token":         {"ZAPI_INSTANCE_TOKEN"},
	"zapi.client_token":           {"ZAPI_CLIENT_TOKEN"},
	"zapi.base_url":               {"ZAPI_BASE_URL"},
	"monitoring.state_url":        {"MONITOR_STATE_URL"},
	"monitoring.alert_email":      {"ALERT_EMAIL"},
	"monitoring.alert_phone":      {"ALERT_PHONE"},
	"monitoring.alert_from":       {"ALERT_FROM_EMAIL"},
	"monitoring.sendgrid_api_key": {"SENDGRID_API_KEY"},
}

func DefaultConfig() *Config {
	return &Config{
		Cloudflare: CloudflareConfig{WorkerURL: defaultWorkerURL},
		Monitoring: MonitoringConfig{AlertFrom: "monitor@elementor-whatsapp.local"},
	}
}

// DefaultConfigPath is ~/.config/ewctl/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, ".config", "ewctl", "config.yaml"), nil
}

// LoadConfig reads path, or the default path when empty, and applies environment overrides.
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return nil, fmt.Errorf("failed to resolve config path: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	defaults := DefaultConfig()
	v.SetDefault("cloudflare.worker_url", defaults.Cloudflare.WorkerURL)
	v.SetDefault("monitoring.alert_from", defaults.Monitoring.AlertFrom)

	for key, names := range configEnv {
		prefixed := "EWCTL_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, prefixed}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes cfg as YAML, creating the directory when needed.
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return fmt.Errorf("failed to resolve config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Set assigns one dotted key such as zapi.instance_id.
func (c *Config) Set(key, value string) error {
	fields := map[string]*string{
		"store.driver":                &c.Store.Driver,
		"store.database_url":          &c.Store.DatabaseURL,
		"cloudflare.account_id":       &c.Cloudflare.AccountID,
		"cloudflare.api_token":        &c.Cloudflare.APIToken,
		"cloudflare.database_id":      &c.Cloudflare.DatabaseID,
		"cloudflare.worker_url":       &c.Cloudflare.WorkerURL,
		"zapi.instance_id":            &c.ZAPI.InstanceID,
		"zapi.instance_token":         &c.ZAPI.InstanceToken,
		"zapi.client_token":           &c.ZAPI.ClientToken,
		"zapi.base_url":               &c.ZAPI.BaseURL,
		"monitoring.state_url":        &c.Monitoring.StateURL,
		"monitoring.alert_email":      &c.Monitoring.AlertEmail,
		"monitoring.alert_phone":      &c.Monitoring.AlertPhone,
		"monitoring.alert_from":       &c.Monitoring.AlertFrom,
		"monitoring.sendgrid_api_key": &c.Monitoring.SendGridAPIKey,
	}

	field, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown config key '%s'", key)
	}

	*field = value

	return nil
}

// Masked returns a copy with every secret shortened to its first and last four characters.
func (c *Config) Masked() *Config {
	masked := *c
	masked.Store.DatabaseURL = mask(masked.Store.DatabaseURL)
	masked.Cloudflare.APIToken = mask(masked.Cloudflare.APIToken)
	masked.ZAPI.InstanceToken = mask(masked.ZAPI.InstanceToken)
	masked.ZAPI.ClientToken = mask(masked.ZAPI.ClientToken)
	masked.Monitoring.SendGridAPIKey = mask(masked.Monitoring.SendGridAPIKey)

	return &masked
}

func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "****"
	default:
		return s[:4] + "****" + s[len(s)-4:]
	}
}

func (c *Config) StoreConfig() cmd.StoreConfig {
	return cmd.StoreConfig{
		Driver:      c.Store.Driver,
		DatabaseURL: c.Store.DatabaseURL,
		D1: d1.Config{
			AccountID:  c.Cloudflare.AccountID,
			DatabaseID: c.Cloudflare.DatabaseID,
			APIToken:   c.Cloudflare.APIToken,
		},
	}
}

func (c *Config) ZAPIConfig() zapi.Config {
	return zapi.Config{
		InstanceID:    c.ZAPI.InstanceID,
		InstanceToken: c.ZAPI.InstanceToken,
		ClientToken:   c.ZAPI.ClientToken,
		BaseURL:       c.ZAPI.BaseURL,
	}
}

func (c *Config) SendGridConfig() notify.SendGridConfig {
	return notify.SendGridConfig{
		APIKey:    c.Monitoring.SendGridAPIKey,
		FromEmail: c.Monitoring.AlertFrom,
	}
}
