// internal/workers/billing/query-entitlement/config.go
package queryentitlement

import "time"

type Config struct {
	Timeout  time.Duration
	CacheTTL time.Duration
	// AlertThreshold is the usage percentage at which NearLimit flips on.
	AlertThreshold float64
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        30 * time.Second,
		CacheTTL:       5 * time.Minute,
		AlertThreshold: 90.0,
	}
}
