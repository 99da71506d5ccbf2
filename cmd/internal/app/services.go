package app

import (
	"fmt"

	"carepass/cmd/internal/auth/session"
	"carepass/cmd/security/password"
)

// NewSessionService builds the session service over b from environment
// configuration. The refresh token hasher is resolved once here.
func NewSessionService(cfg Config, b *Backend, log Logger) (*session.Service, error) {
	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	digest, err := ValidateSecurityConfig(cfg)
	if err != nil {
		return nil, err
	}

	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("password config: %w", err)
	}

	issuer, err := session.NewJWTIssuer(sessCfg)
	if err != nil {
		return nil, err
	}

	log.Info("session.config",
		"issuer", sessCfg.Issuer,
		"access_ttl", sessCfg.AccessTokenTTL.String(),
		"refresh_ttl", sessCfg.RefreshTokenTTL.String(),
		"rotate_refresh", sessCfg.RotateRefreshTokens,
		"hide_deactivated", sessCfg.HideDeactivated,
		"token_hmac", digest.HMAC(),
	)

	return session.NewService(sessCfg, b.Customers, b.Ledger, issuer, password.NewHasher(pwCfg),
		session.WithLogger(log),
		session.WithRefreshHasher(digest),
		session.WithPasswordLengths(pwCfg.Policy.MinLength, pwCfg.Policy.MaxLength),
	)
}
