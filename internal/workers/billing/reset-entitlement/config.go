// internal/workers/billing/reset-entitlement/config.go
package resetentitlement

import "time"

type Config struct {
	Timeout time.Duration
	// DefaultPeriod is applied when the triggering payment event carries
	// no explicit period end.
	DefaultPeriod time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       30 * time.Second,
		DefaultPeriod: 30 * 24 * time.Hour,
	}
}
