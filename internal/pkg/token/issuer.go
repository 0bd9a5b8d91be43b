// internal/pkg/token/issuer.go
package token

import (
	"crypto/rsa"
	"fmt"
	"time"

	"workdesk-service/internal/domain/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// Pair is an issued access/refresh token set with its session expiry.
type Pair struct {
	AccessToken  string
	RefreshToken string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

type Issuer struct {
	priv       *rsa.PrivateKey
	issuer     string
	audience   string
	kid        string // key id for rotation
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(priv *rsa.PrivateKey, issuer, audience, kid string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		priv:       priv,
		issuer:     issuer,
		audience:   audience,
		kid:        kid,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock overrides the issuer's clock.
func (g *Issuer) WithClock(now func() time.Time) *Issuer {
	g.now = now
	return g
}

// AccessTTL is the session max-age applied to every issued pair.
func (g *Issuer) AccessTTL() time.Duration {
	return g.accessTTL
}

// Issue mints an access/refresh pair for user under sessionID. Session expiry
// equals the access token expiry so token validity and session expiry always
// agree. remember extends the refresh token lifetime, not the session's.
func (g *Issuer) Issue(user *auth.User, sessionID string, remember bool) (*Pair, error) {
	if g.priv == nil {
		return nil, fmt.Errorf("token issuer has nil private key")
	}

	now := g.now()
	expiresAt := now.Add(g.accessTTL)

	access, err := g.sign(&Claims{
		Username:  user.Username,
		RoleID:    user.Role.ID,
		SessionID: sessionID,
		Purpose:   PurposeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   user.ID,
			Audience:  []string{g.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        ulid.Make().String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshTTL := g.refreshTTL
	if remember {
		refreshTTL = 4 * g.refreshTTL
	}
	refresh, err := g.sign(&Claims{
		SessionID: sessionID,
		Purpose:   PurposeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   user.ID,
			Audience:  []string{g.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        ulid.Make().String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		IssuedAt:     now,
		ExpiresAt:    expiresAt,
	}, nil
}

func (g *Issuer) sign(claims *Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if g.kid != "" {
		tok.Header["kid"] = g.kid
	}
	return tok.SignedString(g.priv)
}
