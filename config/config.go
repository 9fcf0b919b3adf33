package config

import (
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	ServiceName string         `yaml:"service_name"`
	Server      *ServerConfig  `yaml:"server"`
	Gateway     *GatewayConfig `yaml:"gateway"`
	LogLevel    string         `yaml:"log_level"`

	// WebhookSecret, when set, must accompany every inbound webhook.
	WebhookSecret string `yaml:"webhook_secret"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type GatewayConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientID int    `yaml:"client_id"`

	ConnectTimeoutSec int `yaml:"connect_timeout_sec"`
	AckTimeoutSec     int `yaml:"ack_timeout_sec"`

	// EagerConnect makes the process dial the gateway at startup instead of
	// on the first submission.
	EagerConnect bool `yaml:"eager_connect"`

	FIXLogPath string `yaml:"fix_log_path"`
}

func (c *GatewayConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSec) * time.Second
}

func (c *GatewayConfig) AckTimeout() time.Duration {
	return time.Duration(c.AckTimeoutSec) * time.Second
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	sugar := zap.S().With("func", "config.Load", "filePath", filePath)
	sugar.Debug("Load config...")

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server == nil {
		cfg.Server = &ServerConfig{}
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}

	if cfg.Gateway == nil {
		cfg.Gateway = &GatewayConfig{}
	}
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = "127.0.0.1"
	}
	if cfg.Gateway.Port == 0 {
		// 7497 TWS paper, 4001 IB Gateway paper
		cfg.Gateway.Port = 7497
	}
	if cfg.Gateway.ClientID == 0 {
		cfg.Gateway.ClientID = 1
	}
	if cfg.Gateway.ConnectTimeoutSec == 0 {
		cfg.Gateway.ConnectTimeoutSec = 5
	}
	if cfg.Gateway.AckTimeoutSec == 0 {
		cfg.Gateway.AckTimeoutSec = 5
	}
	if cfg.Gateway.FIXLogPath == "" {
		cfg.Gateway.FIXLogPath = "log/fix"
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("IB_HOST"); v != "" {
		cfg.Gateway.Host = v
	}
	if v := os.Getenv("IB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = p
		}
	}
	if v := os.Getenv("IB_CLIENT_ID"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.ClientID = id
		}
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		cfg.WebhookSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
