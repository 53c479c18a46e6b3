package config

import (
	"fmt"
	"strings"
	"time"

	"wallet-winrate/internal/discovery"
	"wallet-winrate/internal/solana"
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of config validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Error joins all field errors.
func (r ValidationResult) Error() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return strings.Join(parts, "; ")
}

// Validate checks the config for invalid values.
func (c *Config) Validate() ValidationResult {
	var errors []ValidationError

	errors = append(errors, validateStorage(&c.Storage)...)
	errors = append(errors, validateIntake(&c.Intake)...)
	errors = append(errors, validateDiscovery(&c.Discovery)...)
	errors = append(errors, validateStats(&c.Stats)...)

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func validateStorage(s *StorageConfig) []ValidationError {
	var errors []ValidationError

	if !s.UseMemory && s.PostgresDSN == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.postgres_dsn",
			Message: "required unless USE_MEMORY is set",
		})
	}

	if s.StatsFromCH && s.ClickhouseDSN == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.stats_from_clickhouse",
			Message: "requires CLICKHOUSE_DSN",
		})
	}

	if s.MirrorReconcile < 0 {
		errors = append(errors, ValidationError{
			Field:   "storage.mirror_reconcile_interval",
			Message: "must be non-negative",
		})
	}

	if s.RedisDB < 0 {
		errors = append(errors, ValidationError{
			Field:   "storage.redis_db",
			Message: "must be non-negative",
		})
	}

	return errors
}

func validateIntake(in *IntakeConfig) []ValidationError {
	var errors []ValidationError

	if len(in.QuoteMints) == 0 {
		errors = append(errors, ValidationError{
			Field:   "intake.quote_mints",
			Message: "must list at least one mint",
		})
	}
	for _, m := range in.QuoteMints {
		if err := solana.ValidateMint(m); err != nil {
			errors = append(errors, ValidationError{
				Field:   "intake.quote_mints",
				Message: err.Error(),
			})
		}
	}

	if in.MinTradeBase < 0 {
		errors = append(errors, ValidationError{
			Field:   "intake.min_trade_base",
			Message: "must be non-negative",
		})
	}

	return errors
}

func validateDiscovery(d *DiscoveryConfig) []ValidationError {
	var errors []ValidationError

	if d.Enabled && d.Interval < time.Minute {
		errors = append(errors, ValidationError{
			Field:   "discovery.interval",
			Message: "must be at least 1 minute",
		})
	}

	errors = append(errors, validateThresholds("discovery.lifetime", d.Criteria.Lifetime)...)
	errors = append(errors, validateThresholds("discovery.d30", d.Criteria.Days30)...)
	errors = append(errors, validateThresholds("discovery.d90", d.Criteria.Days90)...)

	return errors
}

func validateThresholds(field string, t discovery.Thresholds) []ValidationError {
	var errors []ValidationError

	if t.MinTrades < 0 {
		errors = append(errors, ValidationError{
			Field:   field + ".min_trades",
			Message: "must be non-negative",
		})
	}

	if t.MinWinRate < 0 || t.MinWinRate > 100 {
		errors = append(errors, ValidationError{
			Field:   field + ".min_win_rate",
			Message: "must be between 0 and 100",
		})
	}

	return errors
}

func validateStats(s *StatsConfig) []ValidationError {
	var errors []ValidationError

	if s.TopPushInterval != 0 && s.TopPushInterval < time.Minute {
		errors = append(errors, ValidationError{
			Field:   "stats.top_push_interval",
			Message: "must be 0 (disabled) or at least 1 minute",
		})
	}

	if s.TopLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "stats.top_limit",
			Message: "must be at least 1",
		})
	}

	if s.CacheTTL < 0 {
		errors = append(errors, ValidationError{
			Field:   "stats.cache_ttl",
			Message: "must be non-negative",
		})
	}

	return errors
}
