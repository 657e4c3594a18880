package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultEarliestDate = "2014-01-01"
	configPathEnv       = "RECORDSYNC_CONFIG"
	logLevelEnv         = "LOG_LEVEL"
	archiveDirEnv       = "RECORDSYNC_ARCHIVE_DIR"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	API           APIConfig          `yaml:"api"`
	Storage       StorageConfig      `yaml:"storage"`
	Update        UpdateConfig       `yaml:"update"`
	Logging       LoggingConfig      `yaml:"logging"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// APIConfig describes how to reach congress.gov and how hard to push it.
type APIConfig struct {
	BaseURL             string        `yaml:"baseUrl"`
	KeysFile            string        `yaml:"keysFile"`
	KeyEnv              string        `yaml:"keyEnv"`
	UserAgent           string        `yaml:"userAgent"`
	Timeout             time.Duration `yaml:"timeout"`
	MinInterval         time.Duration `yaml:"minInterval"`
	RetryDelay          time.Duration `yaml:"retryDelay"`
	MaxBackoff          time.Duration `yaml:"maxBackoff"`
	BackoffSteps        int           `yaml:"backoffSteps"`
	TimeoutRetries      int           `yaml:"timeoutRetries"`
	ListRotateEvery     int           `yaml:"listRotateEvery"`
	DownloadRotateEvery int           `yaml:"downloadRotateEvery"`
	PageSize            int           `yaml:"pageSize"`
}

// StorageConfig locates the catalog file and the archive root.
type StorageConfig struct {
	CatalogPath string `yaml:"catalogPath"`
	ArchiveDir  string `yaml:"archiveDir"`
}

// UpdateConfig tunes the incremental download pass.
type UpdateConfig struct {
	// StopThreshold is how many consecutive complete issues end a pass;
	// zero disables early stopping.
	StopThreshold int       `yaml:"stopThreshold"`
	EarliestDate  string    `yaml:"earliestDate"`
	earliest      time.Time `yaml:"-"`
}

// Earliest returns the parsed EarliestDate, the oldest issue date the
// archive covers.
func (u UpdateConfig) Earliest() time.Time {
	if !u.earliest.IsZero() {
		return u.earliest
	}
	t, _ := time.Parse("2006-01-02", defaultEarliestDate)
	return t
}

// LoggingConfig selects the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SchedulerConfig defines how often watch mode repeats the update.
type SchedulerConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. An explicit path wins over RECORDSYNC_CONFIG.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindEarliestDate()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(archiveDirEnv); v != "" {
		c.Storage.ArchiveDir = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindEarliestDate() {
	value := c.Update.EarliestDate
	if value == "" {
		value = defaultEarliestDate
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		log.Printf("config: invalid earliestDate %s, reverting to %s", value, defaultEarliestDate)
		t, _ = time.Parse("2006-01-02", defaultEarliestDate)
		value = defaultEarliestDate
	}
	c.Update.EarliestDate = value
	c.Update.earliest = t
}

func mergeConfig(base, override Config) Config {
	api := override.API
	if api.BaseURL != "" {
		base.API.BaseURL = api.BaseURL
	}
	if api.KeysFile != "" {
		base.API.KeysFile = api.KeysFile
	}
	if api.KeyEnv != "" {
		base.API.KeyEnv = api.KeyEnv
	}
	if api.UserAgent != "" {
		base.API.UserAgent = api.UserAgent
	}
	if api.Timeout > 0 {
		base.API.Timeout = api.Timeout
	}
	if api.MinInterval > 0 {
		base.API.MinInterval = api.MinInterval
	}
	if api.RetryDelay > 0 {
		base.API.RetryDelay = api.RetryDelay
	}
	if api.MaxBackoff > 0 {
		base.API.MaxBackoff = api.MaxBackoff
	}
	if api.BackoffSteps > 0 {
		base.API.BackoffSteps = api.BackoffSteps
	}
	if api.TimeoutRetries > 0 {
		base.API.TimeoutRetries = api.TimeoutRetries
	}
	if api.ListRotateEvery > 0 {
		base.API.ListRotateEvery = api.ListRotateEvery
	}
	if api.DownloadRotateEvery > 0 {
		base.API.DownloadRotateEvery = api.DownloadRotateEvery
	}
	if api.PageSize > 0 {
		base.API.PageSize = api.PageSize
	}

	if override.Storage.CatalogPath != "" {
		base.Storage.CatalogPath = override.Storage.CatalogPath
	}
	if override.Storage.ArchiveDir != "" {
		base.Storage.ArchiveDir = override.Storage.ArchiveDir
	}

	// Zero cannot be told apart from "absent" in YAML; a negative value
	// disables early stopping.
	if override.Update.StopThreshold != 0 {
		base.Update.StopThreshold = max(override.Update.StopThreshold, 0)
	}
	if override.Update.EarliestDate != "" {
		base.Update.EarliestDate = override.Update.EarliestDate
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	return base
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:             "https://api.congress.gov/v3",
			KeysFile:            "congressional_api_keys.txt",
			KeyEnv:              "CONGRESSIONAL_API_KEY",
			UserAgent:           "RecordSync/1.0",
			Timeout:             5 * time.Second,
			MinInterval:         time.Second,
			RetryDelay:          time.Second,
			MaxBackoff:          60 * time.Second,
			BackoffSteps:        5,
			TimeoutRetries:      3,
			ListRotateEvery:     4,
			DownloadRotateEvery: 10,
			PageSize:            250,
		},
		Storage: StorageConfig{
			CatalogPath: "all_issues.json",
			ArchiveDir:  "congressional_records",
		},
		Update: UpdateConfig{
			StopThreshold: 3,
			EarliestDate:  defaultEarliestDate,
		},
		Logging:   LoggingConfig{Level: "info"},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour},
	}
}
