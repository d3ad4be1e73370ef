package ratelimiter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidQuota is returned when a quota cannot back a token bucket.
var ErrInvalidQuota = errors.New("invalid quota")

// Quota holds the provider limits of a model.
// Only RequestsPerMinute is enforced by RateLimiter. TokensPerMinute and
// RequestsPerDay are informational and tracked, if at all, by the caller.
type Quota struct {
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	TokensPerMinute   int `yaml:"tokens_per_minute" mapstructure:"tokens_per_minute"`
	RequestsPerDay    int `yaml:"requests_per_day" mapstructure:"requests_per_day"` // 0 = unlimited
}

// DefaultQuota is used for models missing from the quota table.
// Unknown models are throttled at the flash-lite free tier instead of running unthrottled.
var DefaultQuota = Quota{
	RequestsPerMinute: 15,
	TokensPerMinute:   250000,
	RequestsPerDay:    1000,
}

// Validate reports whether the quota can back a token bucket.
func (q Quota) Validate() error {
	if q.RequestsPerMinute <= 0 {
		return fmt.Errorf("%w: requests per minute must be positive, got %d", ErrInvalidQuota, q.RequestsPerMinute)
	}
	if q.TokensPerMinute < 0 {
		return fmt.Errorf("%w: tokens per minute must not be negative, got %d", ErrInvalidQuota, q.TokensPerMinute)
	}
	if q.RequestsPerDay < 0 {
		return fmt.Errorf("%w: requests per day must not be negative, got %d", ErrInvalidQuota, q.RequestsPerDay)
	}
	return nil
}

// QuotaTable maps a model identifier to its quota.
type QuotaTable map[string]Quota

// DefaultQuotaTable returns the Gemini free tier limits.
func DefaultQuotaTable() QuotaTable {
	return QuotaTable{
		"gemini-2.5-pro":                {RequestsPerMinute: 2, TokensPerMinute: 125000, RequestsPerDay: 50},
		"gemini-2.5-flash":              {RequestsPerMinute: 10, TokensPerMinute: 250000, RequestsPerDay: 250},
		"gemini-2.5-flash-preview":      {RequestsPerMinute: 10, TokensPerMinute: 250000, RequestsPerDay: 250},
		"gemini-2.5-flash-lite":         {RequestsPerMinute: 15, TokensPerMinute: 250000, RequestsPerDay: 1000},
		"gemini-2.5-flash-lite-preview": {RequestsPerMinute: 15, TokensPerMinute: 250000, RequestsPerDay: 1000},
		"gemini-2.0-flash":              {RequestsPerMinute: 15, TokensPerMinute: 1000000, RequestsPerDay: 200},
		"gemini-2.0-flash-lite":         {RequestsPerMinute: 30, TokensPerMinute: 1000000, RequestsPerDay: 200},
	}
}

// Lookup returns the quota for a model, matching names case-insensitively.
func (t QuotaTable) Lookup(model string) (Quota, bool) {
	if q, ok := t[model]; ok {
		return q, true
	}
	key := NormalizeModel(model)
	for name, q := range t {
		if NormalizeModel(name) == key {
			return q, true
		}
	}
	return Quota{}, false
}

// Merge returns a new table with the entries of other overriding those of t.
func (t QuotaTable) Merge(other QuotaTable) QuotaTable {
	merged := make(QuotaTable, len(t)+len(other))
	for name, q := range t {
		merged[NormalizeModel(name)] = q
	}
	for name, q := range other {
		merged[NormalizeModel(name)] = q
	}
	return merged
}

// Validate checks every entry and reports the first invalid one in model order.
func (t QuotaTable) Validate() error {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := t[name].Validate(); err != nil {
			return fmt.Errorf("model %q: %w", name, err)
		}
	}
	return nil
}

// LoadQuotaTable decodes a YAML quota table and validates it.
//
//	gemini-2.5-flash-lite:
//	  requests_per_minute: 15
//	  tokens_per_minute: 250000
//	  requests_per_day: 1000
func LoadQuotaTable(r io.Reader) (QuotaTable, error) {
	raw := make(QuotaTable)
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode quota table: %w", err)
	}

	table := QuotaTable{}.Merge(raw)
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// LoadQuotaTableFile reads a YAML quota table from path.
func LoadQuotaTableFile(path string) (QuotaTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open quota table: %w", err)
	}
	defer f.Close()

	return LoadQuotaTable(f)
}

// NormalizeModel returns the registry key for a model identifier.
func NormalizeModel(model string) string {
	return strings.ToLower(strings.TrimSpace(model))
}
