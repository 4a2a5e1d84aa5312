package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverJSON     = "json"
	DriverPostgres = "postgres"
)

type Config struct {
	Forum      ForumConfig       `yaml:"forum"`
	Transcode  TranscodeConfig   `yaml:"transcode"`
	Imgur      ImgurConfig       `yaml:"imgur"`
	Storage    StorageConfig     `yaml:"storage"`
	Poster     PosterConfig      `yaml:"poster"`
	Subreddits []SubredditConfig `yaml:"subreddits" validate:"dive"`
	Sync       SyncConfig        `yaml:"sync"`
	LogLevel   string            `yaml:"log_level" validate:"oneof=debug info warn error"`
}

type ForumConfig struct {
	FrontPageURL     string        `yaml:"front_page_url" validate:"required,url"`
	ArticlePrefix    string        `yaml:"article_prefix" validate:"required"`
	AssetHostPattern string        `yaml:"asset_host_pattern"`
	SmileyClass      string        `yaml:"smiley_class"`
	// Timeout bounds one HTTP request. Zero leaves requests unbounded.
	Timeout          time.Duration `yaml:"timeout"`
	Retry            RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" validate:"min=1"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

type TranscodeConfig struct {
	MessageLimit int    `yaml:"message_limit" validate:"min=1"`
	Signature    string `yaml:"signature"`
}

type ImgurConfig struct {
	ClientID string        `yaml:"client_id"`
	Endpoint string        `yaml:"endpoint" validate:"omitempty,url"`
	// Timeout bounds one download or upload. Zero leaves it unbounded.
	Timeout  time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Driver   string         `yaml:"driver" validate:"oneof=json postgres"`
	Dir      string         `yaml:"dir"`
	LockFile string         `yaml:"lock_file"`
	Database DatabaseConfig `yaml:"database"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type PosterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Resubmit bool           `yaml:"resubmit"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
}

type RabbitMQConfig struct {
	URL          string        `yaml:"url"`
	Exchange     string        `yaml:"exchange"`
	RoutingKey   string        `yaml:"routing_key"`
	QueueName    string        `yaml:"queue_name"`
	ReplyTimeout time.Duration `yaml:"reply_timeout"`
}

// SubredditConfig describes one posting target. Flairs maps a game name to
// the flair text to select on the submission.
type SubredditConfig struct {
	Name     string            `yaml:"name" validate:"required"`
	AllGames bool              `yaml:"all_games"`
	Games    []string          `yaml:"games"`
	Flairs   map[string]string `yaml:"flairs"`
}

// Accepts reports whether diaries of game should be posted to this target.
func (s SubredditConfig) Accepts(game string) bool {
	if s.AllGames {
		return true
	}
	for _, g := range s.Games {
		if g == game {
			return true
		}
	}
	return false
}

type SyncConfig struct {
	Interval time.Duration `yaml:"interval"`
	// Expiration skips diaries published longer ago than this. Zero disables it.
	Expiration time.Duration `yaml:"expiration"`
	// TickTimeout bounds a single tick. Zero leaves ticks unbounded.
	TickTimeout time.Duration `yaml:"tick_timeout"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if c.Poster.Enabled && c.Poster.RabbitMQ.URL == "" {
		return fmt.Errorf("validate config: poster.rabbitmq.url is required when the poster is enabled")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Forum.Retry.MaxAttempts == 0 {
		c.Forum.Retry.MaxAttempts = 3
	}
	if c.Forum.Retry.InitialBackoff == 0 {
		c.Forum.Retry.InitialBackoff = 1 * time.Second
	}
	if c.Forum.Retry.MaxBackoff == 0 {
		c.Forum.Retry.MaxBackoff = 30 * time.Second
	}
	if c.Transcode.MessageLimit == 0 {
		c.Transcode.MessageLimit = 10000
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverJSON
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "."
	}
	if c.Storage.LockFile == "" {
		c.Storage.LockFile = filepath.Join(c.Storage.Dir, "ddrelay.lock")
	}
	if c.Storage.Database.Port == 0 {
		c.Storage.Database.Port = 5432
	}
	if c.Storage.Database.SSLMode == "" {
		c.Storage.Database.SSLMode = "disable"
	}
	if c.Poster.RabbitMQ.Exchange == "" {
		c.Poster.RabbitMQ.Exchange = "ddrelay"
	}
	if c.Poster.RabbitMQ.RoutingKey == "" {
		c.Poster.RabbitMQ.RoutingKey = "post_requests"
	}
	if c.Poster.RabbitMQ.QueueName == "" {
		c.Poster.RabbitMQ.QueueName = "reddit_poster"
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = 1 * time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
