// internal/workers/billing/complete-session/config.go
package completesession

import "time"

type Config struct {
	Timeout        time.Duration
	AnalyticsIndex string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        30 * time.Second,
		AnalyticsIndex: "wellness-sessions",
	}
}
