// internal/workers/payouts/create-payout-request/config.go
package createpayoutrequest

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
