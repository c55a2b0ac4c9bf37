package shopify

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid is the uniform session-token failure. Callers must not
// surface the underlying reason to clients; it only exists for logging.
var ErrTokenInvalid = errors.New("invalid session token")

// SessionTokenPayload is the decoded embedded-app session token (JWT, HS256).
type SessionTokenPayload struct {
	jwt.RegisteredClaims

	// Dest is "https://{shop}" and is the authoritative source of the shop
	// domain once the token verifies. Sid identifies the admin session.
	Dest string `json:"dest,omitempty"`
	Sid  string `json:"sid,omitempty"`
}

// ShopDomain extracts the shop from the dest claim.
func (p *SessionTokenPayload) ShopDomain() string {
	u, err := url.Parse(p.Dest)
	if err != nil {
		return ""
	}
	return SanitizeShop(u.Hostname())
}

const tokenLeeway = 5 * time.Second

// DecodeSessionToken verifies a session token against the app API secret.
// The signature, audience, exp, nbf and iat are all enforced; any failure
// comes back wrapped in ErrTokenInvalid so the HTTP surface stays uniform.
func DecodeSessionToken(tokenString, apiKey, apiSecret string, now time.Time) (*SessionTokenPayload, error) {
	if tokenString == "" || apiSecret == "" {
		return nil, fmt.Errorf("%w: missing token or secret", ErrTokenInvalid)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(tokenLeeway),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(apiKey),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	payload := &SessionTokenPayload{}
	tok, err := parser.ParseWithClaims(tokenString, payload, func(t *jwt.Token) (any, error) {
		return []byte(apiSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !tok.Valid {
		return nil, ErrTokenInvalid
	}

	if payload.ShopDomain() == "" {
		return nil, fmt.Errorf("%w: missing shop in dest claim", ErrTokenInvalid)
	}

	return payload, nil
}
