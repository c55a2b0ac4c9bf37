package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"appgateway/internal/session"
)

func TestAddResponseHeaders(t *testing.T) {
	g := newTestGateway(t, testConfig(), nil)

	h := http.Header{}
	r := httptest.NewRequest(http.MethodGet, "/?shop="+testShop, nil)
	g.addResponseHeaders(r, h)
	require.Equal(t,
		"frame-ancestors https://"+testShop+" https://admin.shopify.com;",
		h.Get("Content-Security-Policy"))

	h = http.Header{}
	r = httptest.NewRequest(http.MethodGet, "/?shop=evil.com", nil)
	g.addResponseHeaders(r, h)
	require.Equal(t, "frame-ancestors 'none';", h.Get("Content-Security-Policy"))

	cfg := testConfig()
	cfg.Shopify.IsEmbeddedApp = false
	g = newTestGateway(t, cfg, nil)
	h = http.Header{}
	r = httptest.NewRequest(http.MethodGet, "/?shop="+testShop, nil)
	g.addResponseHeaders(r, h)
	require.Equal(t, "frame-ancestors 'none';", h.Get("Content-Security-Policy"))
}

func TestHandler_WritesTerminal(t *testing.T) {
	g := newTestGateway(t, testConfig(), nil)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next must not run on a terminal outcome")
	})

	w := httptest.NewRecorder()
	g.Handler(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?shop=evil.com", nil))

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Shop param is invalid", w.Body.String())
	require.Equal(t, "frame-ancestors 'none';", w.Header().Get("Content-Security-Policy"))
}

func TestHandler_PassesAuthContext(t *testing.T) {
	store := session.NewMemoryStore()
	mustStore(t, store, activeOfflineSession(testShop))
	g := newTestGateway(t, testConfig(), store)

	var seen *AuthContext
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodGet, "/api/shop?shop="+testShop, nil)
	r.Header.Set("Authorization",
		"Bearer "+signSessionToken(t, testConfig(), testShop, testUserID, testNow.Add(time.Minute)))
	w := httptest.NewRecorder()
	g.Handler(next).ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seen)
	require.Equal(t, "offline_"+testShop, seen.Session.ID)
	require.Equal(t,
		"frame-ancestors https://"+testShop+" https://admin.shopify.com;",
		w.Header().Get("Content-Security-Policy"))
}

func TestEndpoint_ServesAuthRoutes(t *testing.T) {
	g := newTestGateway(t, testConfig(), nil)

	w := httptest.NewRecorder()
	g.Endpoint().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth?shop="+testShop, nil))

	require.Equal(t, http.StatusFound, w.Code)
	require.Contains(t, w.Header().Get("Location"), "/admin/oauth/authorize")
}

func TestFromContext_Missing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Nil(t, FromContext(r.Context()))
}

func TestCookieSigning(t *testing.T) {
	signed := signCookieValue("state-1", "secret")
	value, ok := verifyCookieValue(signed, "secret")
	if !ok || value != "state-1" {
		t.Fatalf("round trip failed: %q %v", value, ok)
	}

	if _, ok := verifyCookieValue(signed, "other-secret"); ok {
		t.Fatal("wrong secret must not verify")
	}
	if _, ok := verifyCookieValue("state-1", "secret"); ok {
		t.Fatal("unsigned value must not verify")
	}
	if _, ok := verifyCookieValue("tampered."+signed[len("state-1."):], "secret"); ok {
		t.Fatal("tampered value must not verify")
	}
}

func TestBotDetection(t *testing.T) {
	bots := []string{
		"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
		"facebookexternalhit/1.1",
		"Mozilla/5.0 (compatible; bingbot/2.0)",
		"WhatsApp/2.23.2",
		"Chrome-Lighthouse",
	}
	for _, ua := range bots {
		if !isBot(ua) {
			t.Fatalf("expected %q to be detected as a bot", ua)
		}
	}

	humans := []string{
		"",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15",
	}
	for _, ua := range humans {
		if isBot(ua) {
			t.Fatalf("expected %q not to be detected as a bot", ua)
		}
	}
}
