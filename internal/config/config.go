package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all settings for a sync run. It is built once at startup and
// passed to the orchestrator; nothing mutates it afterwards.
type Config struct {
	Org        string
	Token      string
	APIBaseURL string

	BackupDir string
	Retention int

	ChangeDetection bool
	OrphanCleanup   bool
	PublishStats    bool
	Verbose         bool
	DryRun          bool

	LogPath      string
	LogMaxSize   int64
	LogRetention int

	StatusPort         string
	DBConnectionString string
}

// fileConfig mirrors Config for the optional YAML file. Pointer fields so we
// can tell "absent" from "set to the zero value".
type fileConfig struct {
	Organization    *string `yaml:"organization"`
	Token           *string `yaml:"token"`
	APIBaseURL      *string `yaml:"api_url"`
	BackupDir       *string `yaml:"backup_dir"`
	Retention       *int    `yaml:"retention"`
	ChangeDetection *bool   `yaml:"change_detection"`
	OrphanCleanup   *bool   `yaml:"orphan_cleanup"`
	PublishStats    *bool   `yaml:"publish_stats"`
	Verbose         *bool   `yaml:"verbose"`
	LogPath         *string `yaml:"log_path"`
	LogMaxSize      *int64  `yaml:"log_max_size"`
	LogRetention    *int    `yaml:"log_retention"`
	StatusPort      *string `yaml:"status_port"`
	DBConnection    *string `yaml:"db_connection_string"`
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and environment variables, in that order of precedence (env wins).
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		APIBaseURL:      "https://api.github.com",
		BackupDir:       "./backups",
		Retention:       3,
		ChangeDetection: true,
		LogMaxSize:      1 << 20,
		LogRetention:    5,
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %q: %w", path, err)
	}

	setString(&c.Org, fc.Organization)
	setString(&c.Token, fc.Token)
	setString(&c.APIBaseURL, fc.APIBaseURL)
	setString(&c.BackupDir, fc.BackupDir)
	setInt(&c.Retention, fc.Retention)
	setBool(&c.ChangeDetection, fc.ChangeDetection)
	setBool(&c.OrphanCleanup, fc.OrphanCleanup)
	setBool(&c.PublishStats, fc.PublishStats)
	setBool(&c.Verbose, fc.Verbose)
	setString(&c.LogPath, fc.LogPath)
	setInt64(&c.LogMaxSize, fc.LogMaxSize)
	setInt(&c.LogRetention, fc.LogRetention)
	setString(&c.StatusPort, fc.StatusPort)
	setString(&c.DBConnectionString, fc.DBConnection)

	return nil
}

func (c *Config) applyEnv() error {
	c.Org = getEnv("ORG", c.Org)
	c.Token = getEnv("GITHUB_TOKEN", c.Token)
	c.APIBaseURL = getEnv("GITHUB_API_URL", c.APIBaseURL)
	c.BackupDir = getEnv("BACKUP_DIR", c.BackupDir)
	c.LogPath = getEnv("LOG_PATH", c.LogPath)
	c.StatusPort = getEnv("STATUS_PORT", c.StatusPort)
	c.DBConnectionString = getEnv("DB_CONNECTION_STRING", c.DBConnectionString)

	var err error
	if c.Retention, err = getEnvInt("BACKUP_RETENTION", c.Retention); err != nil {
		return err
	}
	if c.LogRetention, err = getEnvInt("LOG_RETENTION", c.LogRetention); err != nil {
		return err
	}
	if c.LogMaxSize, err = getEnvInt64("LOG_MAX_SIZE", c.LogMaxSize); err != nil {
		return err
	}
	if c.ChangeDetection, err = getEnvBool("CHANGE_DETECTION", c.ChangeDetection); err != nil {
		return err
	}
	if c.OrphanCleanup, err = getEnvBool("ORPHAN_CLEANUP", c.OrphanCleanup); err != nil {
		return err
	}
	if c.PublishStats, err = getEnvBool("PUBLISH_STATS", c.PublishStats); err != nil {
		return err
	}
	if c.Verbose, err = getEnvBool("VERBOSE", c.Verbose); err != nil {
		return err
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Org == "" {
		return fmt.Errorf("organization is required (set ORG or --org)")
	}
	if c.Token == "" {
		return fmt.Errorf("access token is required (set GITHUB_TOKEN or --token)")
	}
	if c.APIBaseURL == "" {
		return fmt.Errorf("API base URL must not be empty")
	}
	if c.BackupDir == "" {
		return fmt.Errorf("backup directory must not be empty")
	}
	if c.Retention < 1 {
		return fmt.Errorf("BACKUP_RETENTION must be at least 1, got %d", c.Retention)
	}
	if c.LogMaxSize < 0 {
		return fmt.Errorf("LOG_MAX_SIZE must be non-negative, got %d", c.LogMaxSize)
	}
	if c.LogRetention < 0 {
		return fmt.Errorf("LOG_RETENTION must be non-negative, got %d", c.LogRetention)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q", key, value)
	}
	return n, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q", key, value)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %q", key, value)
	}
	return b, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setInt64(dst *int64, src *int64) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
