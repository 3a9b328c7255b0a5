package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the process configuration, loaded from
// tiktokcontrol-config.json (working dir or $HOME) with environment
// overrides.
type Config struct {
	ListenAddr string

	FarmBaseURL string
	FarmTimeout time.Duration

	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIVisionModel  string
	OpenAICommentModel string
	OpenAITimeout      time.Duration

	StorePath string
}

// Load reads the configuration. A missing config file is fine; defaults
// and environment variables cover everything.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("tiktokcontrol-config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")
	v.SetEnvPrefix("TIKTOKCONTROL")
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("farm.base_url", "http://127.0.0.1:9912/api")
	v.SetDefault("farm.timeout_seconds", 30)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.vision_model", "gpt-4o")
	v.SetDefault("openai.comment_model", "gpt-4o-mini")
	v.SetDefault("openai.timeout_seconds", 60)
	v.SetDefault("store.path", "./data/tiktokcontrol.db")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &Config{
		ListenAddr:         v.GetString("listen_addr"),
		FarmBaseURL:        v.GetString("farm.base_url"),
		FarmTimeout:        time.Duration(v.GetInt("farm.timeout_seconds")) * time.Second,
		OpenAIAPIKey:       v.GetString("openai.api_key"),
		OpenAIBaseURL:      v.GetString("openai.base_url"),
		OpenAIVisionModel:  v.GetString("openai.vision_model"),
		OpenAICommentModel: v.GetString("openai.comment_model"),
		OpenAITimeout:      time.Duration(v.GetInt("openai.timeout_seconds")) * time.Second,
		StorePath:          v.GetString("store.path"),
	}, nil
}
