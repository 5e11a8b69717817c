package auth

import "time"

// Config represents authentication service configuration
type Config struct {
	// JWT settings
	JWTSecret     string
	JWTExpiration time.Duration
	Issuer        string

	// Password policy
	PasswordMinLength     int
	PasswordRequireStrong bool // uppercase, lowercase, number, special char

	AuditEnabled bool
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		JWTExpiration:     24 * time.Hour,
		Issuer:            "skmf.evalgo.org/auth",
		PasswordMinLength: MinPasswordLength,
		AuditEnabled:      true,
	}
}
