package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/tutorlink/live/internal/store/postgres"
)

type Config struct {
	Mode           string          `mapstructure:"mode"`
	Port           int             `mapstructure:"port"`
	Secret         string          `mapstructure:"secret"`
	TokenIssuer    string          `mapstructure:"token_issuer"`
	ReadLimit      int64           `mapstructure:"read_limit"`
	PingPeriod     time.Duration   `mapstructure:"ping_period"`
	SendBuffer     int             `mapstructure:"send_buffer"`
	PersistTimeout time.Duration   `mapstructure:"persist_timeout"`
	Postgres       postgres.Config `mapstructure:"postgres"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("token_issuer", "tutorlink-backend")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("persist_timeout", "5s")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
