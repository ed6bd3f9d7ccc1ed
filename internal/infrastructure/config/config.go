package config

import (
	"errors"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// VenueConfig is the per-venue block. Credentials come from the environment,
// never from the file.
type VenueConfig struct {
	Enabled     bool    `toml:"enabled"`
	RestURL     string  `toml:"rest_url"`
	WsURL       string  `toml:"ws_url"`
	Feed        string  `toml:"feed"`
	TakerFeePct float64 `toml:"taker_fee_pct"`
	APIKey      string  `toml:"-"`
	APISecret   string  `toml:"-"`
}

type Config struct {
	App struct {
		PollIntervalSec int    `toml:"poll_interval_sec"`
		FetchTimeoutSec int    `toml:"fetch_timeout_sec"`
		MaxStalenessSec int    `toml:"max_staleness_sec"`
		PriceMode       string `toml:"price_mode"`
	} `toml:"app"`

	Instruments struct {
		List         []string `toml:"list"`
		AutoDiscover bool     `toml:"auto_discover"`
		Excluded     []string `toml:"excluded"`
	} `toml:"instruments"`

	Filter struct {
		ThresholdPct   float64 `toml:"threshold_pct"`
		SlippagePct    float64 `toml:"slippage_pct"`
		NetProfitCheck *bool   `toml:"net_profit_check"`
		CooldownSec    int     `toml:"cooldown_sec"`
	} `toml:"filter"`

	Venues struct {
		Bybit       VenueConfig `toml:"bybit"`
		Hyperliquid VenueConfig `toml:"hyperliquid"`
	} `toml:"venues"`

	Storage struct {
		Enabled bool `toml:"enabled"`

		SQLite struct {
			Enabled bool   `toml:"enabled"`
			Path    string `toml:"path"`
		} `toml:"sqlite"`

		Postgres struct {
			Enabled bool   `toml:"enabled"`
			DSN     string `toml:"dsn"`
		} `toml:"postgres"`

		Redis struct {
			Enabled      bool   `toml:"enabled"`
			Addr         string `toml:"addr"`
			Password     string `toml:"password"`
			DB           int    `toml:"db"`
			Prefix       string `toml:"prefix"`
			TTLSeconds   int    `toml:"ttl_seconds"`
			EventStream  string `toml:"event_stream"`
			EventChannel string `toml:"event_channel"`
		} `toml:"redis"`
	} `toml:"storage"`

	Notify struct {
		Console *bool `toml:"console"`

		Telegram struct {
			Enabled bool   `toml:"enabled"`
			Token   string `toml:"-"`
			ChatID  string `toml:"-"`
		} `toml:"telegram"`

		Discord struct {
			Enabled    bool   `toml:"enabled"`
			WebhookURL string `toml:"-"`
		} `toml:"discord"`
	} `toml:"notify"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.PollIntervalSec <= 0 {
		cfg.App.PollIntervalSec = 10
	}
	if cfg.App.FetchTimeoutSec <= 0 {
		cfg.App.FetchTimeoutSec = cfg.App.PollIntervalSec / 3
		if cfg.App.FetchTimeoutSec < 1 {
			cfg.App.FetchTimeoutSec = 1
		}
	}
	if cfg.App.MaxStalenessSec <= 0 {
		cfg.App.MaxStalenessSec = 2 * cfg.App.PollIntervalSec
	}
	if cfg.App.PriceMode == "" {
		cfg.App.PriceMode = "mid"
	}

	if cfg.Filter.ThresholdPct <= 0 {
		cfg.Filter.ThresholdPct = 5.0
	}
	if cfg.Filter.NetProfitCheck == nil {
		v := true
		cfg.Filter.NetProfitCheck = &v
	}
	if cfg.Filter.CooldownSec <= 0 {
		cfg.Filter.CooldownSec = 60
	}

	if cfg.Venues.Bybit.Feed == "" {
		cfg.Venues.Bybit.Feed = "rest"
	}
	if cfg.Venues.Hyperliquid.Feed == "" {
		cfg.Venues.Hyperliquid.Feed = "rest"
	}
	if cfg.Venues.Bybit.TakerFeePct <= 0 {
		cfg.Venues.Bybit.TakerFeePct = 0.055
	}
	if cfg.Venues.Hyperliquid.TakerFeePct <= 0 {
		cfg.Venues.Hyperliquid.TakerFeePct = 0.045
	}

	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "spreadwatch"
	}
	if cfg.Storage.Redis.TTLSeconds <= 0 {
		cfg.Storage.Redis.TTLSeconds = 300
	}
	if cfg.Storage.Redis.EventStream == "" {
		cfg.Storage.Redis.EventStream = cfg.Storage.Redis.Prefix + ":events"
	}
	if cfg.Storage.Redis.EventChannel == "" {
		cfg.Storage.Redis.EventChannel = cfg.Storage.Redis.Prefix + ":events:pub"
	}

	if cfg.Notify.Console == nil {
		v := true
		cfg.Notify.Console = &v
	}
}

func validate(cfg *Config) error {
	if cfg.App.FetchTimeoutSec*2 > cfg.App.PollIntervalSec {
		return errors.New("app.fetch_timeout_sec must not exceed half of app.poll_interval_sec")
	}
	if cfg.App.PriceMode != "mid" && cfg.App.PriceMode != "cross" {
		return errors.New("app.price_mode must be \"mid\" or \"cross\"")
	}

	cfg.Instruments.List = normalizeSymbols(cfg.Instruments.List)
	cfg.Instruments.Excluded = normalizeSymbols(cfg.Instruments.Excluded)
	cfg.Instruments.List = subtract(cfg.Instruments.List, cfg.Instruments.Excluded)
	if len(cfg.Instruments.List) == 0 && !cfg.Instruments.AutoDiscover {
		return errors.New("instruments.list is empty and auto_discover is off")
	}

	if cfg.Filter.SlippagePct < 0 {
		return errors.New("filter.slippage_pct must not be negative")
	}

	if !cfg.Venues.Bybit.Enabled || !cfg.Venues.Hyperliquid.Enabled {
		return errors.New("both venues must be enabled, comparison needs two sides")
	}
	for _, v := range []struct {
		name string
		cfg  VenueConfig
	}{
		{"bybit", cfg.Venues.Bybit},
		{"hyperliquid", cfg.Venues.Hyperliquid},
	} {
		if v.cfg.Feed != "rest" && v.cfg.Feed != "ws" {
			return errors.New("venues." + v.name + ".feed must be \"rest\" or \"ws\"")
		}
		if v.cfg.Feed == "ws" && strings.TrimSpace(v.cfg.WsURL) == "" {
			return errors.New("venues." + v.name + ".ws_url empty but feed is ws")
		}
	}
	if cfg.App.PriceMode == "cross" && cfg.Venues.Hyperliquid.Feed == "ws" {
		return errors.New("price_mode cross needs book prices, hyperliquid ws streams mids only")
	}
	if (cfg.Venues.Bybit.APIKey == "") != (cfg.Venues.Bybit.APISecret == "") {
		return errors.New("SPREADWATCH_BYBIT_API_KEY and SPREADWATCH_BYBIT_API_SECRET must be set together")
	}

	if cfg.Storage.Enabled {
		if !cfg.Storage.SQLite.Enabled && !cfg.Storage.Postgres.Enabled && !cfg.Storage.Redis.Enabled {
			return errors.New("storage.enabled but no backend enabled")
		}
		if cfg.Storage.SQLite.Enabled && strings.TrimSpace(cfg.Storage.SQLite.Path) == "" {
			return errors.New("storage.sqlite.path empty but enabled")
		}
		if cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
			return errors.New("storage.postgres.dsn empty but enabled")
		}
		if cfg.Storage.Redis.Enabled && strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
			return errors.New("storage.redis.addr empty but enabled")
		}
	}

	if cfg.Notify.Telegram.Enabled {
		if strings.TrimSpace(cfg.Notify.Telegram.Token) == "" || strings.TrimSpace(cfg.Notify.Telegram.ChatID) == "" {
			return errors.New("notify.telegram enabled but SPREADWATCH_TELEGRAM_TOKEN or SPREADWATCH_TELEGRAM_CHAT_ID unset")
		}
	}
	if cfg.Notify.Discord.Enabled && strings.TrimSpace(cfg.Notify.Discord.WebhookURL) == "" {
		return errors.New("notify.discord enabled but SPREADWATCH_DISCORD_WEBHOOK unset")
	}
	if !*cfg.Notify.Console && !cfg.Notify.Telegram.Enabled && !cfg.Notify.Discord.Enabled {
		return errors.New("no notification sink enabled")
	}

	return nil
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func subtract(list, drop []string) []string {
	if len(drop) == 0 {
		return list
	}
	skip := make(map[string]struct{}, len(drop))
	for _, d := range drop {
		skip[d] = struct{}{}
	}
	out := make([]string, 0, len(list))
	for _, s := range list {
		if _, ok := skip[s]; ok {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Derived values.

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.App.PollIntervalSec) * time.Second
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.App.FetchTimeoutSec) * time.Second
}

func (c *Config) MaxStaleness() time.Duration {
	return time.Duration(c.App.MaxStalenessSec) * time.Second
}

func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Filter.CooldownSec) * time.Second
}

func (c *Config) NetProfitCheck() bool {
	return c.Filter.NetProfitCheck == nil || *c.Filter.NetProfitCheck
}

func (c *Config) ConsoleSink() bool {
	return c.Notify.Console == nil || *c.Notify.Console
}

// RoundTripCostPct is the estimated cost of taking both legs: each venue's
// taker fee plus the configured slippage buffer.
func (c *Config) RoundTripCostPct() float64 {
	return c.Venues.Bybit.TakerFeePct + c.Venues.Hyperliquid.TakerFeePct + c.Filter.SlippagePct
}
