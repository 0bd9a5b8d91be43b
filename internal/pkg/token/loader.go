// internal/pkg/token/loader.go
package token

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"time"
)

type Config struct {
	PrivPath   string
	PubPath    string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration // session max-age
	RefreshTTL time.Duration
	KID        string
}

type Manager struct {
	Issuer   *Issuer
	Verifier *Verifier
}

// LoadAndBuild loads the signing key pair from PEM files and builds the
// issuer/verifier pair. With no key paths configured it generates an
// ephemeral dev key; sessions then do not survive a restart.
func LoadAndBuild(cfg Config) (*Manager, error) {
	if cfg.PrivPath == "" && cfg.PubPath == "" {
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral signing key: %w", err)
		}
		return NewManagerFromKeys(priv, cfg), nil
	}

	priv, err := LoadRSAPrivateKeyFromPEM(cfg.PrivPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key from %s: %w", cfg.PrivPath, err)
	}
	pub, err := LoadRSAPublicKeyFromPEM(cfg.PubPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load public key from %s: %w", cfg.PubPath, err)
	}

	return &Manager{
		Issuer:   NewIssuer(priv, cfg.Issuer, cfg.Audience, cfg.KID, cfg.AccessTTL, cfg.RefreshTTL),
		Verifier: NewVerifier(pub, cfg.Issuer, cfg.Audience),
	}, nil
}

// NewManagerFromKeys builds a manager from an in-memory key. Used for dev
// keys and tests.
func NewManagerFromKeys(priv *rsa.PrivateKey, cfg Config) *Manager {
	return &Manager{
		Issuer:   NewIssuer(priv, cfg.Issuer, cfg.Audience, cfg.KID, cfg.AccessTTL, cfg.RefreshTTL),
		Verifier: NewVerifier(&priv.PublicKey, cfg.Issuer, cfg.Audience),
	}
}
