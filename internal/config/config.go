package config

import (
	"errors"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type ExchangeConfig struct {
	Enabled bool   `toml:"enabled"`
	WsURL   string `toml:"ws_url"`
	RestURL string `toml:"rest_url"`
}

type Config struct {
	App struct {
		LogLevel  string `toml:"log_level"`
		CoinsPath string `toml:"coins_path"`
	} `toml:"app"`

	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`

	Database struct {
		// Driver selects the alert/user repository: "postgres" or "sqlite".
		Driver      string `toml:"driver"`
		PostgresDSN string `toml:"postgres_dsn"`
		SQLitePath  string `toml:"sqlite_path"`
	} `toml:"database"`

	Prices struct {
		TTLSeconds      int `toml:"ttl_seconds"`
		ChartTTLSeconds int `toml:"chart_ttl_seconds"`
	} `toml:"prices"`

	Notifications struct {
		SweepIntervalSec int `toml:"sweep_interval_sec"`
	} `toml:"notifications"`

	Telegram struct {
		BotToken string `toml:"bot_token"`
	} `toml:"telegram"`

	CoinGecko struct {
		BaseURL string `toml:"base_url"`
		APIKey  string `toml:"api_key"`
	} `toml:"coingecko"`

	Exchange struct {
		Binance ExchangeConfig `toml:"binance"`
		OKX     ExchangeConfig `toml:"okx"`
		MEXC    ExchangeConfig `toml:"mexc"`
	} `toml:"exchange"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.App.CoinsPath) == "" {
		cfg.App.CoinsPath = "configs/coins.toml"
	}
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if strings.TrimSpace(cfg.Database.Driver) == "" {
		cfg.Database.Driver = "sqlite"
	}
	if strings.TrimSpace(cfg.Database.SQLitePath) == "" {
		cfg.Database.SQLitePath = "data/cryptowatcher.db"
	}
	if cfg.Prices.TTLSeconds <= 0 {
		cfg.Prices.TTLSeconds = 10
	}
	if cfg.Prices.ChartTTLSeconds <= 0 {
		cfg.Prices.ChartTTLSeconds = 60
	}
	if cfg.Notifications.SweepIntervalSec <= 0 {
		cfg.Notifications.SweepIntervalSec = 60
	}
	if strings.TrimSpace(cfg.CoinGecko.BaseURL) == "" {
		cfg.CoinGecko.BaseURL = "https://api.coingecko.com/api/v3"
	}
}

func validate(cfg *Config) error {
	switch cfg.Database.Driver {
	case "postgres":
		if strings.TrimSpace(cfg.Database.PostgresDSN) == "" {
			return errors.New("database.postgres_dsn empty but driver=postgres")
		}
	case "sqlite":
	default:
		return errors.New("database.driver must be postgres or sqlite")
	}

	if cfg.Exchange.Binance.Enabled && strings.TrimSpace(cfg.Exchange.Binance.WsURL) == "" {
		return errors.New("exchange.binance.ws_url empty but enabled")
	}
	if cfg.Exchange.OKX.Enabled && strings.TrimSpace(cfg.Exchange.OKX.WsURL) == "" {
		return errors.New("exchange.okx.ws_url empty but enabled")
	}
	if cfg.Exchange.MEXC.Enabled && strings.TrimSpace(cfg.Exchange.MEXC.WsURL) == "" {
		return errors.New("exchange.mexc.ws_url empty but enabled")
	}
	return nil
}

func (c *Config) PriceTTL() time.Duration {
	return time.Duration(c.Prices.TTLSeconds) * time.Second
}

func (c *Config) ChartTTL() time.Duration {
	return time.Duration(c.Prices.ChartTTLSeconds) * time.Second
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Notifications.SweepIntervalSec) * time.Second
}
