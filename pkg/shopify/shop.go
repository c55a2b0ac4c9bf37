package shopify

import (
	"encoding/base64"
	"regexp"
	"strings"
)

var (
	shopDomainRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*\.myshopify\.com$`)
	adminHostRe  = regexp.MustCompile(`^(admin\.shopify\.com/store/[a-zA-Z0-9-]+|[a-zA-Z0-9][a-zA-Z0-9-]*\.myshopify\.com(/admin)?)$`)
)

// SanitizeShop normalizes a shop query parameter to a bare myshopify domain.
// Returns "" when the value is not a valid shop domain.
func SanitizeShop(shop string) string {
	s := strings.ToLower(strings.TrimSpace(shop))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimSuffix(s, "/")
	if !shopDomainRe.MatchString(s) {
		return ""
	}
	return s
}

// SanitizeHost validates the base64-encoded host query parameter. Returns the
// original (re-encoded) value when the decoded host is a known admin domain,
// "" otherwise.
func SanitizeHost(host string) string {
	decoded := DecodeHost(host)
	if decoded == "" {
		return ""
	}
	return base64.RawStdEncoding.EncodeToString([]byte(decoded))
}

// DecodeHost returns the decoded host parameter, "" when invalid. The admin
// sends it both padded and unpadded.
func DecodeHost(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	b, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(host, "="))
	if err != nil {
		return ""
	}
	decoded := strings.TrimSuffix(string(b), "/")
	if !adminHostRe.MatchString(decoded) {
		return ""
	}
	return decoded
}

// EmbeddedAppURL is the canonical address of this app inside the admin for
// the given (valid) host parameter.
func EmbeddedAppURL(host, apiKey string) string {
	return "https://" + DecodeHost(host) + "/apps/" + apiKey
}
