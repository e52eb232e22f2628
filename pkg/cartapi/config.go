package cartapi

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

// Config represents the configuration for the cart service client
type Config struct {
	// BaseURL is the cart service origin, e.g. http://localhost:5000
	BaseURL string

	// Timeout bounds a single HTTP exchange. Zero means 5s.
	Timeout time.Duration
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base URL %q is not absolute", ErrInvalidConfig, c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	}
	return nil
}

func (c Config) normalized() Config {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	return c
}
