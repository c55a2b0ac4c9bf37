package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

const (
	stateCookieName   = "shopify_app_state"
	sessionCookieName = "shopify_app_session"

	stateCookieTTL = 5 * time.Minute
)

// Cookies are signed `value.sig` with the API secret, so a tampered value is
// indistinguishable from a missing cookie.

func signCookieValue(value, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(value))
	return value + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func verifyCookieValue(signed, secret string) (string, bool) {
	i := strings.LastIndex(signed, ".")
	if i <= 0 {
		return "", false
	}
	value := signed[:i]
	if !hmac.Equal([]byte(signCookieValue(value, secret)), []byte(signed)) {
		return "", false
	}
	return value, true
}

func (g *Gateway) signedCookie(name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    signCookieValue(value, g.cfg.Shopify.APISecret),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   strings.HasPrefix(g.cfg.Shopify.AppURL, "https://"),
	}
	if ttl > 0 {
		c.MaxAge = int(ttl / time.Second)
	}
	return c
}

func (g *Gateway) readSignedCookie(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return verifyCookieValue(c.Value, g.cfg.Shopify.APISecret)
}

func expiredCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	}
}
