package shopify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// OAuth builds authorization redirects and exchanges grant codes with the
// shop's OAuth endpoints.
type OAuth struct {
	HTTPClient *http.Client
	APIKey     string
	APISecret  string
	Scopes     []string
}

// AccessToken is the result of a code exchange. AssociatedUserID is set only
// for online (per-user) grants.
type AccessToken struct {
	AccessToken         string
	Scope               string
	ExpiresIn           int
	AssociatedUserID    string
	AssociatedUserScope string
}

type accessTokenResponse struct {
	AccessToken         string `json:"access_token"`
	Scope               string `json:"scope"`
	ExpiresIn           int    `json:"expires_in"`
	AssociatedUserScope string `json:"associated_user_scope"`
	AssociatedUser      struct {
		ID int64 `json:"id"`
	} `json:"associated_user"`
}

// AuthorizeURL is the shop's authorization endpoint with client id, scopes,
// callback and CSRF state applied. Online grants request a per-user token.
func (o OAuth) AuthorizeURL(shop, redirectURI, state string, isOnline bool) string {
	u := url.URL{
		Scheme: "https",
		Host:   shop,
		Path:   "/admin/oauth/authorize",
	}
	q := u.Query()
	q.Set("client_id", o.APIKey)
	q.Set("scope", strings.Join(o.Scopes, ","))
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	if isOnline {
		q.Set("grant_options[]", "per-user")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (o OAuth) ExchangeCode(ctx context.Context, shop, code string) (*AccessToken, error) {
	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	body, _ := json.Marshal(map[string]string{
		"client_id":     o.APIKey,
		"client_secret": o.APISecret,
		"code":          code,
	})

	u := fmt.Sprintf("https://%s/admin/oauth/access_token", shop)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("token exchange failed: status=%d", resp.StatusCode)
	}

	var r accessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, err
	}
	if r.AccessToken == "" {
		return nil, fmt.Errorf("token exchange returned empty access_token")
	}

	tok := &AccessToken{
		AccessToken:         r.AccessToken,
		Scope:               r.Scope,
		ExpiresIn:           r.ExpiresIn,
		AssociatedUserScope: r.AssociatedUserScope,
	}
	if r.AssociatedUser.ID != 0 {
		tok.AssociatedUserID = strconv.FormatInt(r.AssociatedUser.ID, 10)
	}
	return tok, nil
}

// VerifyCallbackHMAC verifies the OAuth callback signature. The HMAC is
// computed over the querystring (excluding hmac and signature) in
// lexicographical order.
func VerifyCallbackHMAC(values url.Values, apiSecret string) bool {
	given := values.Get("hmac")
	if given == "" || apiSecret == "" {
		return false
	}

	var keys []string
	for k := range values {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		for _, v := range values[k] {
			parts = append(parts, k+"="+strings.ReplaceAll(v, "&", "%26"))
		}
	}
	msg := strings.Join(parts, "&")

	mac := hmac.New(sha256.New, []byte(apiSecret))
	_, _ = mac.Write([]byte(msg))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(given))
}
