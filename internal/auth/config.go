package auth

import (
	"errors"
	"strings"
	"time"
)

const defaultIssuer = "QuanLyMuaVu"

// Config carries the signing material and token lifetimes for the lifecycle
// manager. It is injected at construction; nothing here is ambient state.
type Config struct {
	// SigningSecret is the HMAC key shared by every instance verifying tokens.
	SigningSecret []byte

	// Issuer is embedded in the iss claim and checked on decode. Defaults to
	// the historical issuer string so existing tokens stay interoperable.
	Issuer string

	// ValidDuration is the access lifetime of an issued token.
	ValidDuration time.Duration

	// RefreshableDuration is the window, measured from original issuance,
	// during which an access-expired token may still be exchanged for a new
	// one. Must not be shorter than ValidDuration.
	RefreshableDuration time.Duration
}

func (c *Config) validate() error {
	if len(c.SigningSecret) < 32 {
		return errors.New("auth: signing secret must be at least 32 bytes")
	}
	if strings.TrimSpace(c.Issuer) == "" {
		c.Issuer = defaultIssuer
	}
	if c.ValidDuration <= 0 {
		return errors.New("auth: valid duration must be positive")
	}
	if c.RefreshableDuration < c.ValidDuration {
		return errors.New("auth: refreshable duration must not be shorter than valid duration")
	}
	return nil
}
