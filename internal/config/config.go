package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	// Turn scheduling.
	MinParticipants int `mapstructure:"min_participants"`
	MaxSpeakers     int `mapstructure:"max_speakers"`
	TurnSeconds     int `mapstructure:"turn_seconds"`
	MaxRounds       int `mapstructure:"max_rounds"`

	// External collaborators.
	TopicURL     string        `mapstructure:"topic_url"`
	TopicTimeout time.Duration `mapstructure:"topic_timeout"`
	RedisAddr    string        `mapstructure:"redis_addr"`
	RedisPrefix  string        `mapstructure:"redis_prefix"`
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
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("min_participants", 1)
	v.SetDefault("max_speakers", 6)
	v.SetDefault("turn_seconds", 60)
	v.SetDefault("max_rounds", 3)
	v.SetDefault("topic_timeout", "10s")
	v.SetDefault("redis_prefix", "roundtable:")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
