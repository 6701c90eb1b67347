package configuration

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type MongoConfig struct {
	Uri                string `mapstructure:"uri"`
	Database           string `mapstructure:"database"`
	MessagesCollection string `mapstructure:"messages_collection"`
	UsersCollection    string `mapstructure:"users_collection"`
	CountersCollection string `mapstructure:"counters_collection"`
}

// StoreConfig selects the message store backend.
type StoreConfig struct {
	Driver     string `mapstructure:"driver"` // "mongo" or "badger"
	BadgerPath string `mapstructure:"badger_path"`
}

type ServerConfig struct {
	AppPort             int           `mapstructure:"app_port"`
	SocketPort          int           `mapstructure:"socket_port"`
	SocketRoute         string        `mapstructure:"socket_route"`
	AllowedOrigins      []string      `mapstructure:"allowed_origins"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`
}

type AuthConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	Algorithm string `mapstructure:"algorithm"`
}

type ChatConfig struct {
	PresenceTTL   time.Duration `mapstructure:"presence_ttl"`
	RetentionDays int           `mapstructure:"retention_days"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type Config struct {
	LogLevel     string       `mapstructure:"log_level"`
	Server       ServerConfig `mapstructure:"server"`
	ChatDatabase MongoConfig  `mapstructure:"mongo"`
	Store        StoreConfig  `mapstructure:"store"`
	Auth         AuthConfig   `mapstructure:"auth"`
	Chat         ChatConfig   `mapstructure:"chat"`
}

const (
	DriverMongo  = "mongo"
	DriverBadger = "badger"

	envPrefix = "PHOTOCHAT"
)

var defaults = map[string]any{
	"log_level":                    "info",
	"server.app_port":              8080,
	"server.socket_port":           8081,
	"server.socket_route":          "ws",
	"server.allowed_origins":       []string{"http://localhost:3000"},
	"server.shutdown_grace_period": "30s",
	"mongo.uri":                    "mongodb://localhost:27017",
	"mongo.database":               "photochat",
	"mongo.messages_collection":    "chat_messages",
	"mongo.users_collection":       "users",
	"mongo.counters_collection":    "counters",
	"store.driver":                 DriverMongo,
	"store.badger_path":            "data/chat",
	"auth.secret_key":              "",
	"auth.algorithm":               "HS256",
	"chat.presence_ttl":            "5m",
	"chat.retention_days":          365,
	"chat.sweep_interval":          "24h",
}

// LoadConfig reads configuration from an optional JSON/YAML file and the
// environment. Environment variables are prefixed with PHOTOCHAT_ and use
// underscores for nesting, e.g. PHOTOCHAT_SERVER_APP_PORT.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &config, nil
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.SecretKey) == "" {
		return errors.New("auth.secret_key is required")
	}
	switch c.Store.Driver {
	case DriverMongo:
		if c.ChatDatabase.Uri == "" || c.ChatDatabase.Database == "" {
			return errors.New("mongo.uri and mongo.database are required for the mongo driver")
		}
	case DriverBadger:
		if c.Store.BadgerPath == "" {
			return errors.New("store.badger_path is required for the badger driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Chat.RetentionDays <= 0 {
		return fmt.Errorf("chat.retention_days must be positive, got %d", c.Chat.RetentionDays)
	}
	if c.Chat.PresenceTTL <= 0 {
		return errors.New("chat.presence_ttl must be positive")
	}
	return nil
}

// RetentionWindow is the age after which messages are swept.
func (c *Config) RetentionWindow() time.Duration {
	return time.Duration(c.Chat.RetentionDays) * 24 * time.Hour
}
