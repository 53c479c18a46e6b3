// Package config loads server settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"wallet-winrate/internal/discovery"
	"wallet-winrate/internal/solana"
)

// Config is the full server configuration.
type Config struct {
	HTTP      HTTPConfig
	Storage   StorageConfig
	Intake    IntakeConfig
	Discovery DiscoveryConfig
	Stats     StatsConfig
	LogDev    bool
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr          string
	WebhookSecret string // required Authorization header on POST /swaps; empty disables
}

// StorageConfig selects and locates backends.
type StorageConfig struct {
	UseMemory     bool
	PostgresDSN   string
	ClickhouseDSN string // optional realized-trade mirror
	StatsFromCH   bool   // rank from the ClickHouse mirror instead of the ledger
	RedisAddr     string // optional stats cache
	RedisPassword string
	RedisDB       int

	// MirrorReconcile is how often ledger trades missing from the mirror are
	// copied over. 0 disables the job.
	MirrorReconcile time.Duration
}

// IntakeConfig holds the admission rules for incoming swaps.
type IntakeConfig struct {
	QuoteMints   []string
	MinTradeBase float64
}

// DiscoveryConfig controls the discovery scheduler.
type DiscoveryConfig struct {
	Enabled    bool
	Interval   time.Duration
	AutoFollow bool
	Criteria   discovery.Criteria
}

// StatsConfig controls leaderboard pushes and result caching.
type StatsConfig struct {
	TopPushInterval time.Duration // 0 disables
	TopMinTrades    int
	TopLimit        int
	CacheTTL        time.Duration
}

// Load reads the configuration from environment variables, falling back to
// defaults for anything unset or unparsable.
func Load() *Config {
	defaults := discovery.DefaultCriteria()

	return &Config{
		HTTP: HTTPConfig{
			Addr:          ":" + getEnv("PORT", "8000"),
			WebhookSecret: getEnv("HELIUS_WEBHOOK_SECRET", ""),
		},
		Storage: StorageConfig{
			UseMemory:     getEnvBool("USE_MEMORY", false),
			PostgresDSN:   getEnv("POSTGRES_DSN", ""),
			ClickhouseDSN: getEnv("CLICKHOUSE_DSN", ""),
			StatsFromCH:   getEnvBool("STATS_FROM_CLICKHOUSE", false),
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),

			MirrorReconcile: getEnvDuration("MIRROR_RECONCILE_INTERVAL", time.Hour),
		},
		Intake: IntakeConfig{
			QuoteMints:   getEnvList("QUOTE_MINTS", []string{solana.MintUSDC, solana.MintWSOL}),
			MinTradeBase: getEnvFloat("MIN_TRADE_BASE", 50),
		},
		Discovery: DiscoveryConfig{
			Enabled:    getEnvBool("DISCOVERY_ENABLE", true),
			Interval:   time.Duration(getEnvInt("DISCOVERY_INTERVAL_MIN", 180)) * time.Minute,
			AutoFollow: getEnvBool("AUTO_FOLLOW_DISCOVERED", false),
			Criteria: discovery.Criteria{
				Lifetime: thresholds("LIFE", defaults.Lifetime),
				Days30:   thresholds("D30", defaults.Days30),
				Days90:   thresholds("D90", defaults.Days90),
			},
		},
		Stats: StatsConfig{
			TopPushInterval: getEnvDuration("TOP_PUSH_INTERVAL", 30*time.Minute),
			TopMinTrades:    getEnvInt("TOP_MIN_TRADES", 3),
			TopLimit:        getEnvInt("TOP_LIMIT", 10),
			CacheTTL:        getEnvDuration("STATS_CACHE_TTL", 30*time.Second),
		},
		LogDev: getEnvBool("LOG_DEV", false),
	}
}

// IsQuoteMint reports whether mint is one of the configured quote assets.
func (c IntakeConfig) IsQuoteMint(mint string) bool {
	for _, m := range c.QuoteMints {
		if m == mint {
			return true
		}
	}
	return false
}

// thresholds reads PREFIX_MIN_TRADES, PREFIX_MIN_WINRATE and PREFIX_MIN_PNL.
func thresholds(prefix string, def discovery.Thresholds) discovery.Thresholds {
	return discovery.Thresholds{
		MinTrades:  getEnvInt(prefix+"_MIN_TRADES", def.MinTrades),
		MinWinRate: getEnvFloat(prefix+"_MIN_WINRATE", def.MinWinRate),
		MinPnL:     getEnvFloat(prefix+"_MIN_PNL", def.MinPnL),
	}
}

func getEnv(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
