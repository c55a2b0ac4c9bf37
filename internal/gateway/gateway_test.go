package gateway

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"appgateway/internal/session"
	"appgateway/pkg/config"
	"appgateway/pkg/shopify"
)

const (
	testShop   = "my-shop.myshopify.com"
	testHost   = "YWRtaW4uc2hvcGlmeS5jb20vc3RvcmUvbXktc2hvcA" // admin.shopify.com/store/my-shop
	testUserID = "42"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() config.Config {
	return config.Config{
		Shopify: config.ShopifyConfig{
			APIKey:        "test-api-key",
			APISecret:     "test-api-secret",
			Scopes:        []string{"read_products"},
			AppURL:        "https://app.example.com",
			APIVersion:    "2025-10",
			WebhookSecret: "test-webhook-secret",
			IsEmbeddedApp: true,
		},
		Auth: config.AuthPaths{
			Path:                  "/auth",
			CallbackPath:          "/auth/callback",
			ExitIframePath:        "/exitiframe",
			PatchSessionTokenPath: "/auth/session-token",
		},
	}
}

func newTestGateway(t *testing.T, cfg config.Config, store session.Store, opts ...Option) *Gateway {
	t.Helper()
	if store == nil {
		store = session.NewMemoryStore()
	}
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(cfg, store, opts...)
}

// fakeExchanger keeps the real AuthorizeURL and swaps only the network call.
type fakeExchanger struct {
	shopify.OAuth
	exchange func(ctx context.Context, shop, code string) (*shopify.AccessToken, error)
}

func (f *fakeExchanger) ExchangeCode(ctx context.Context, shop, code string) (*shopify.AccessToken, error) {
	return f.exchange(ctx, shop, code)
}

func newFakeExchanger(cfg config.Config, exchange func(ctx context.Context, shop, code string) (*shopify.AccessToken, error)) *fakeExchanger {
	return &fakeExchanger{
		OAuth: shopify.OAuth{
			APIKey:    cfg.Shopify.APIKey,
			APISecret: cfg.Shopify.APISecret,
			Scopes:    cfg.Shopify.Scopes,
		},
		exchange: exchange,
	}
}

func signSessionToken(t *testing.T, cfg config.Config, shop, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := &shopify.SessionTokenPayload{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://" + shop + "/admin",
			Subject:   subject,
			Audience:  jwt.ClaimStrings{cfg.Shopify.APIKey},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(testNow.Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(testNow.Add(-time.Minute)),
		},
		Dest: "https://" + shop,
		Sid:  "sid-1",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(cfg.Shopify.APISecret))
	require.NoError(t, err)
	return signed
}

func activeOfflineSession(shop string) *shopify.Session {
	return &shopify.Session{
		ID:          shopify.OfflineSessionID(shop),
		Shop:        shop,
		Scope:       "read_products",
		AccessToken: "offline-token",
	}
}

func mustStore(t *testing.T, store session.Store, s *shopify.Session) {
	t.Helper()
	require.NoError(t, store.Store(context.Background(), s))
}

func requireRedirect(t *testing.T, term *Terminal) *url.URL {
	t.Helper()
	require.NotNil(t, term)
	require.Equal(t, http.StatusFound, term.Status)
	loc, err := url.Parse(term.Header.Get("Location"))
	require.NoError(t, err)
	return loc
}

func findCookie(t *testing.T, term *Terminal, name string) *http.Cookie {
	t.Helper()
	for _, c := range term.Cookies {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set on terminal", name)
	return nil
}
