// internal/workers/payouts/settle-payout-request/config.go
package settlepayoutrequest

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
