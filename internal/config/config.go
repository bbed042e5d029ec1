package config

import (
	"fmt"
	"path/filepath"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Backup   BackupConfig   `mapstructure:"backup"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Study    StudyConfig    `mapstructure:"study"`
	Reports  ReportsConfig  `mapstructure:"reports"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type BackupConfig struct {
	Directory string `mapstructure:"directory" validate:"required"`
	// Passphrase encrypts exported snapshots when set. Bound to the
	// WORDKEEP_PASSPHRASE environment variable only.
	Passphrase string `mapstructure:"passphrase" validate:"omitempty,min=8"`
}

type SyncConfig struct {
	Endpoint     string `mapstructure:"endpoint" validate:"omitempty,url"`
	Slot         string `mapstructure:"slot" validate:"required"`
	SessionToken string `mapstructure:"session_token"`
	MaxAttempts  int    `mapstructure:"max_attempts" validate:"min=1"`
}

type StudyConfig struct {
	DailyGoal int `mapstructure:"daily_goal" validate:"min=1"`
}

type ReportsConfig struct {
	Directory string `mapstructure:"directory"`
	// Template is an optional markdown preamble prepended to generated
	// reports.
	Template string `mapstructure:"template" validate:"omitempty,file"`
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/wordkeep")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("database.path", filepath.Join("data", "wordkeep.db"))
	v.SetDefault("backup.directory", "backups")
	v.SetDefault("sync.slot", "main")
	v.SetDefault("sync.max_attempts", 3)
	v.SetDefault("study.daily_goal", 20)
	v.SetDefault("reports.directory", "reports")

	// Bind secrets to environment variables only (not from config file)
	if err := v.BindEnv("backup.passphrase", "WORDKEEP_PASSPHRASE"); err != nil {
		return nil, fmt.Errorf("failed to bind WORDKEEP_PASSPHRASE environment variable: %w", err)
	}
	if err := v.BindEnv("sync.session_token", "WORDKEEP_SESSION_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind WORDKEEP_SESSION_TOKEN environment variable: %w", err)
	}
	if err := v.BindEnv("sync.endpoint", "WORDKEEP_SYNC_ENDPOINT"); err != nil {
		return nil, fmt.Errorf("failed to bind WORDKEEP_SYNC_ENDPOINT environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.validator.Struct(cfg); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	return &cfg, nil
}

// Load reads the configuration from configFile, or from the default search
// paths when configFile is empty.
func Load(configFile string) (*Config, error) {
	loader, err := NewConfigLoader(configFile)
	if err != nil {
		return nil, err
	}
	return loader.Load()
}
