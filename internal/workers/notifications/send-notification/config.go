// internal/workers/notifications/send-notification/config.go
package sendnotification

import "time"

type Config struct {
	Timeout   time.Duration
	FromEmail string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:   30 * time.Second,
		FromEmail: "no-reply@wellness.example.com",
	}
}
