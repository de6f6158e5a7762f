package config

import (
	"net/url"
	"strings"
)

// PostgresDSN returns the connection string for the networked backend.
// Production connections require TLS unless the URL already chooses an sslmode.
func (c *Config) PostgresDSN() string {
	dsn := c.DatabaseURL
	if !c.IsProduction() || dsn == "" {
		return dsn
	}

	// Key/value DSNs ("host=... user=...") are left alone apart from sslmode
	if !strings.Contains(dsn, "://") {
		if strings.Contains(dsn, "sslmode=") {
			return dsn
		}
		return dsn + " sslmode=require"
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}
	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "require")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// MaskedDatabaseURL hides the password of the configured database URL so it
// can be logged
func (c *Config) MaskedDatabaseURL() string {
	if c.DatabaseURL == "" {
		return "(not set)"
	}
	u, err := url.Parse(c.DatabaseURL)
	if err != nil || u.User == nil {
		return "(set)"
	}
	if _, has := u.User.Password(); has {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
