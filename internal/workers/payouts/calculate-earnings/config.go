// internal/workers/payouts/calculate-earnings/config.go
package calculateearnings

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
