package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"stellarpulse/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Poller   PollerConfig   `mapstructure:"poller"`
	Database DatabaseConfig `mapstructure:"database"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Ethereum EthereumConfig `mapstructure:"ethereum"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig governs the HTTP API listener.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// UpstreamConfig captures CoinGecko connectivity.
type UpstreamConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	TargetCurrency string        `mapstructure:"target_currency"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// CacheConfig governs snapshot freshness.
type CacheConfig struct {
	Freshness time.Duration `mapstructure:"freshness"`
}

// PollerConfig governs the alert evaluation cadence.
type PollerConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	TimeframeDays int           `mapstructure:"timeframe_days"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// AlertingConfig defines notification routing.
type AlertingConfig struct {
	Email EmailConfig `mapstructure:"email"`
}

// EmailConfig 描述 SendGrid 告警邮件参数。
type EmailConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	APIBase        string        `mapstructure:"api_base"`
	FromEmail      string        `mapstructure:"from_email"`
	FromName       string        `mapstructure:"from_name"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// EthereumConfig covers the optional on-chain reference feed.
type EthereumConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	FeedAddress    string        `mapstructure:"feed_address"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STELLARPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "stellarpulse")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("server.addr", ":8787")
	v.SetDefault("server.read_header_timeout", "5s")
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("upstream.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("upstream.target_currency", "aud")
	v.SetDefault("upstream.request_timeout", "10s")
	v.SetDefault("upstream.user_agent", "stellarpulse/1.0")

	v.SetDefault("cache.freshness", "60s")

	v.SetDefault("poller.interval", "60s")
	v.SetDefault("poller.timeframe_days", 7)

	v.SetDefault("alerting.email.api_base", "https://api.sendgrid.com")
	v.SetDefault("alerting.email.from_email", "alerts@stellarpulse.io")
	v.SetDefault("alerting.email.from_name", "StellarPulse Alerts")
	v.SetDefault("alerting.email.request_timeout", "10s")

	// Chainlink BTC/USD aggregator on Ethereum mainnet.
	v.SetDefault("ethereum.feed_address", "0xF4030086522a5bEEa4988F8cA5B36dbC97BeE88c")
	v.SetDefault("ethereum.request_timeout", "10s")

	v.SetDefault("export.max_data_points", 2000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Cache.Freshness <= 0 {
		return fmt.Errorf("cache.freshness must be greater than zero")
	}
	if c.Poller.Interval <= 0 {
		return fmt.Errorf("poller.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Ethereum.RPCURL != "" && c.Ethereum.FeedAddress == "" {
		return fmt.Errorf("ethereum.feed_address 必须配置")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
