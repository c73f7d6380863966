package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"studiodesk/internal/store"
)

type Config struct {
	Server struct {
		Addr            string `yaml:"addr"`
		HealthCheckPort int    `yaml:"health_check_port"`
		MetricsPort     int    `yaml:"metrics_port"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Payments struct {
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
		Currency string `yaml:"currency"`
	} `yaml:"payments"`

	Telegram struct {
		BotToken    string `yaml:"bot_token"`
		StaffChatID int64  `yaml:"staff_chat_id"`
	} `yaml:"telegram"`

	Sheets struct {
		CredentialsPath string `yaml:"credentials_path"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
	} `yaml:"sheets"`

	Notifications struct {
		PerSecond    float64 `yaml:"per_second"`
		Burst        int     `yaml:"burst"`
		ReminderHour int     `yaml:"reminder_hour"`
	} `yaml:"notifications"`

	Backup store.BackupConfig `yaml:"backup"`

	SyncLog struct {
		RetentionDays int  `yaml:"retention_days"`
		ExportOnStart bool `yaml:"export_on_start"`
	} `yaml:"sync_log"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/studiodesk.db"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// CacheTTL returns the availability cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}
