package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Odoo     OdooConfig     `yaml:"odoo"`
	Mautic   MauticConfig   `yaml:"mautic"`
	Bulletin BulletinConfig `yaml:"bulletin"`
	Import   ImportConfig   `yaml:"import"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	Lock     LockConfig     `yaml:"lock"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// OdooConfig holds the contact directory (Odoo JSON-RPC) settings
type OdooConfig struct {
	BaseURL        string `yaml:"base_url"`
	Database       string `yaml:"database"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c OdooConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MauticConfig holds the campaign platform (Mautic REST) settings.
// When ClientID is set, OAuth2 client credentials replace basic auth.
type MauticConfig struct {
	BaseURL        string   `yaml:"base_url"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	ClientID       string   `yaml:"client_id"`
	ClientSecret   string   `yaml:"client_secret"`
	TokenURL       string   `yaml:"token_url"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	ConsoleCommand []string `yaml:"console_command"` // prefix for maintenance console commands
}

// Timeout returns the configured timeout as a duration
func (c MauticConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// UsesOAuth2 reports whether client credentials are configured
func (c MauticConfig) UsesOAuth2() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// BulletinConfig holds the dispatch path settings
type BulletinConfig struct {
	EmailTemplateID  string   `yaml:"email_template_id"`
	SMSTemplateID    string   `yaml:"sms_template_id"`
	SourceCampaignID string   `yaml:"source_campaign_id"`
	BaseCampaignName string   `yaml:"base_campaign_name"`
	OptInField       string   `yaml:"opt_in_field"`
	Channels         []string `yaml:"channels"` // default channels when none are requested
}

// ImportConfig holds the contact import path settings
type ImportConfig struct {
	TagName      string       `yaml:"tag_name"`
	FieldMapping FieldMapping `yaml:"field_mapping"`
}

// FieldMapping names the keys of a raw incoming record
type FieldMapping struct {
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Email     string `yaml:"email"`
	Mobile    string `yaml:"mobile"`
	City      string `yaml:"city"`
	OptIn     string `yaml:"opt_in"`
}

// RedisConfig holds the Redis connection used for the run lock
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled reports whether a Redis address is configured
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// DatabaseConfig holds the Postgres connection used as run lock fallback
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// LockConfig controls the run lock that keeps two runs of the same path apart
type LockConfig struct {
	Enabled    bool   `yaml:"enabled"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	KeyPrefix  string `yaml:"key_prefix"`
}

// TTL returns the lock expiry as a duration
func (c LockConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// StorageConfig holds run history storage and S3 record source settings.
// Type is "local", "aws" or empty to keep history in memory only.
type StorageConfig struct {
	Type          string `yaml:"type"`
	LocalPath     string `yaml:"local_path"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	S3Bucket      string `yaml:"s3_bucket"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"`
	HistoryLimit  int    `yaml:"history_limit"`
}

// GetAWSProfile returns the AWS profile, honoring the environment override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		return envProfile
	}
	// On ECS the task role provides credentials
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// ServerConfig holds HTTP trigger API configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Addr returns host:port for the listener
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ScheduleConfig drives the daily dispatch run in serve mode.
// An empty DispatchAt disables it.
type ScheduleConfig struct {
	DispatchAt string   `yaml:"dispatch_at"` // "HH:MM", server local time
	Channels   []string `yaml:"channels"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Redact returns the redaction flag, defaulting to true
func (c LoggingConfig) Redact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Load reads configuration from a YAML file and fills defaults.
// An empty path yields a config made of defaults only.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Odoo.BaseURL == "" {
		cfg.Odoo.BaseURL = "http://localhost:8069"
	}
	if cfg.Odoo.TimeoutSeconds == 0 {
		cfg.Odoo.TimeoutSeconds = 30
	}
	if cfg.Mautic.BaseURL == "" {
		cfg.Mautic.BaseURL = "http://localhost:8080"
	}
	if cfg.Mautic.TimeoutSeconds == 0 {
		cfg.Mautic.TimeoutSeconds = 30
	}
	if cfg.Mautic.TokenURL == "" {
		cfg.Mautic.TokenURL = strings.TrimRight(cfg.Mautic.BaseURL, "/") + "/oauth/v2/token"
	}
	if len(cfg.Mautic.ConsoleCommand) == 0 {
		cfg.Mautic.ConsoleCommand = []string{"docker", "exec", "mautic", "php", "/var/www/html/bin/console"}
	}
	if cfg.Bulletin.OptInField == "" {
		cfg.Bulletin.OptInField = "climabulletin"
	}
	if cfg.Bulletin.BaseCampaignName == "" {
		cfg.Bulletin.BaseCampaignName = "Bulletin campaign - recurring send"
	}
	if len(cfg.Bulletin.Channels) == 0 {
		cfg.Bulletin.Channels = []string{"email", "sms"}
	}
	if cfg.Import.TagName == "" {
		cfg.Import.TagName = "Interested in weather bulletin"
	}
	m := &cfg.Import.FieldMapping
	if m.FirstName == "" {
		m.FirstName = "firstname"
	}
	if m.LastName == "" {
		m.LastName = "lastname"
	}
	if m.Email == "" {
		m.Email = "email"
	}
	if m.Mobile == "" {
		m.Mobile = "mobile"
	}
	if m.City == "" {
		m.City = "city"
	}
	if m.OptIn == "" {
		m.OptIn = cfg.Bulletin.OptInField
	}
	if cfg.Lock.TTLSeconds == 0 {
		cfg.Lock.TTLSeconds = 1800
	}
	if cfg.Lock.KeyPrefix == "" {
		cfg.Lock.KeyPrefix = "bulletin-sync"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-east-1"
	}
	if cfg.Storage.Type == "local" && cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data"
	}
	if cfg.Storage.HistoryLimit == 0 {
		cfg.Storage.HistoryLimit = 50
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars so secrets can
// live in .env locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	overrideString(&cfg.Odoo.BaseURL, "ODOO_URL")
	overrideString(&cfg.Odoo.Database, "ODOO_DATABASE")
	overrideString(&cfg.Odoo.Username, "ODOO_USERNAME")
	overrideString(&cfg.Odoo.Password, "ODOO_PASSWORD")

	overrideString(&cfg.Mautic.BaseURL, "MAUTIC_BASE_URL")
	overrideString(&cfg.Mautic.Username, "MAUTIC_USERNAME")
	overrideString(&cfg.Mautic.Password, "MAUTIC_PASSWORD")
	overrideString(&cfg.Mautic.ClientID, "MAUTIC_CLIENT_ID")
	overrideString(&cfg.Mautic.ClientSecret, "MAUTIC_CLIENT_SECRET")

	overrideString(&cfg.Redis.Addr, "REDIS_ADDR")
	overrideString(&cfg.Redis.Password, "REDIS_PASSWORD")
	overrideString(&cfg.Database.URL, "DATABASE_URL")
	overrideString(&cfg.Logging.Level, "LOG_LEVEL")
	overrideString(&cfg.Schedule.DispatchAt, "DISPATCH_AT")
	overrideString(&cfg.Storage.Type, "STORAGE_TYPE")
	overrideString(&cfg.Storage.S3Bucket, "S3_BUCKET")
	overrideString(&cfg.Storage.DynamoDBTable, "DYNAMODB_TABLE")
	overrideString(&cfg.Storage.AWSRegion, "AWS_REGION")

	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	// A configured backend turns the run lock on
	if cfg.Redis.Enabled() || cfg.Database.URL != "" {
		cfg.Lock.Enabled = true
	}

	return cfg, nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// ValidateImport checks the settings the import path cannot run without
func (c *Config) ValidateImport() error {
	var missing []string
	if c.Odoo.BaseURL == "" {
		missing = append(missing, "odoo.base_url")
	}
	if c.Odoo.Database == "" {
		missing = append(missing, "odoo.database")
	}
	if c.Odoo.Username == "" {
		missing = append(missing, "odoo.username")
	}
	if c.Odoo.Password == "" {
		missing = append(missing, "odoo.password")
	}
	return missingErr(missing)
}

// ValidateDispatch checks the settings the dispatch path cannot run without
func (c *Config) ValidateDispatch() error {
	var missing []string
	if c.Mautic.BaseURL == "" {
		missing = append(missing, "mautic.base_url")
	}
	if !c.Mautic.UsesOAuth2() && (c.Mautic.Username == "" || c.Mautic.Password == "") {
		missing = append(missing, "mautic.username/password or mautic.client_id/client_secret")
	}
	if c.Bulletin.EmailTemplateID == "" {
		missing = append(missing, "bulletin.email_template_id")
	}
	if c.Bulletin.SMSTemplateID == "" {
		missing = append(missing, "bulletin.sms_template_id")
	}
	if c.Bulletin.SourceCampaignID == "" {
		missing = append(missing, "bulletin.source_campaign_id")
	}
	return missingErr(missing)
}

func missingErr(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return errors.New("missing required config: " + strings.Join(missing, ", "))
}
