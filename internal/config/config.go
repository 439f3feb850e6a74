// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Telegram Telegram
	GigaChat GigaChat
	RabbitMQ RabbitMQ
	Pipeline Pipeline
	Logging  Logging
	Database Database
	Server   Server
}

// Server contains HTTP server configuration.
type Server struct {
	Port            int
	ShutdownTimeout time.Duration
}

// Database contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Database struct {
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// Telegram contains chat transport configuration. The bot is optional:
// with an empty token only the HTTP API is served.
type Telegram struct {
	Token        string
	PollTimeout  time.Duration
	UpdateBuffer int
}

// GigaChat contains completion service configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type GigaChat struct {
	AuthURL        string
	BaseURL        string
	Credentials    string
	Scope          string
	Model          string
	Temperature    float64
	RequestTimeout time.Duration
	Insecure       bool
}

// RabbitMQ contains the optional audit event publisher configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQ struct {
	Host       string
	User       string
	Password   string
	Exchange   string
	Queue      string
	RoutingKey string
	Port       int
	Enabled    bool
}

// Pipeline contains question answering pipeline configuration.
type Pipeline struct {
	MaxAttempts      int
	ConnectRetries   int
	MaxAnswerRows    int
	StatementTimeout time.Duration
}

// Logging contains logging configuration.
type Logging struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read environment variables (APP_DATABASE_HOST -> database.host)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "video_analytics")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 2)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// Telegram
	viper.SetDefault("telegram.token", "")
	viper.SetDefault("telegram.polltimeout", 30*time.Second)
	viper.SetDefault("telegram.updatebuffer", 100)

	// GigaChat
	viper.SetDefault("gigachat.authurl", "https://ngw.devices.sberbank.ru:9443/api/v2/oauth")
	viper.SetDefault("gigachat.baseurl", "https://gigachat.devices.sberbank.ru/api/v1")
	viper.SetDefault("gigachat.credentials", "")
	viper.SetDefault("gigachat.scope", "GIGACHAT_API_PERS")
	viper.SetDefault("gigachat.model", "GigaChat")
	viper.SetDefault("gigachat.temperature", 0.0)
	viper.SetDefault("gigachat.requesttimeout", 30*time.Second)
	// The service presents a certificate from the Russian trust chain,
	// absent from most system stores.
	viper.SetDefault("gigachat.insecure", true)

	// RabbitMQ
	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "analytics.questions")
	viper.SetDefault("rabbitmq.queue", "analytics.questions.answered")
	viper.SetDefault("rabbitmq.routingkey", "question.answered")

	// Pipeline
	viper.SetDefault("pipeline.maxattempts", 3)
	viper.SetDefault("pipeline.connectretries", 2)
	viper.SetDefault("pipeline.maxanswerrows", 20)
	viper.SetDefault("pipeline.statementtimeout", 5*time.Second)

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
