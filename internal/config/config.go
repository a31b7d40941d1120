package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Config holds everything the sync engine needs to reach its collaborators.
type Config struct {
	APIBaseURL   string `mapstructure:"api_base_url"`
	SocketURL    string `mapstructure:"socket_url"`
	Token        string `mapstructure:"token"`
	UserID       string `mapstructure:"user_id"`
	GatewayPort  string `mapstructure:"gateway_port"`
	AMQPURL      string `mapstructure:"amqp_url"`
	AMQPExchange string `mapstructure:"amqp_exchange"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Environment  string `mapstructure:"environment"`
	Debug        bool   `mapstructure:"debug"`
}

// Load reads config.yaml (working dir or ./configs) and CHATSYNC_* env vars.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	viper.SetDefault("api_base_url", "http://localhost:5000/api")
	viper.SetDefault("socket_url", "ws://localhost:5001/ws")
	viper.SetDefault("gateway_port", "8090")
	viper.SetDefault("amqp_exchange", "sync_events")
	viper.SetDefault("environment", "development")

	viper.SetEnvPrefix("chatsync")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.UserID == "" {
		return nil, errors.New("user_id is required")
	}
	return &cfg, nil
}
