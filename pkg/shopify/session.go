package shopify

import (
	"strings"
	"time"
)

// Session is an OAuth access token stored for a shop. Offline sessions are
// long-lived and shop-scoped; online sessions belong to one logged-in user
// and expire. Identity is deterministic: re-deriving the id from
// (shop, isOnline, userID) always names the same row, which is what makes
// OAuth callback replays idempotent.
type Session struct {
	ID          string     `json:"id"`
	Shop        string     `json:"shop"`
	IsOnline    bool       `json:"is_online"`
	Scope       string     `json:"scope"`
	AccessToken string     `json:"access_token"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	UserID      string     `json:"user_id,omitempty"`
}

func OfflineSessionID(shop string) string {
	return "offline_" + shop
}

func OnlineSessionID(shop, userID string) string {
	return shop + "_" + userID
}

// Active reports whether the session can still be used: it has a token, has
// not expired, and its granted scope covers every required scope.
func (s *Session) Active(requiredScopes []string, now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	if s.ExpiresAt != nil && !s.ExpiresAt.After(now) {
		return false
	}
	granted := make(map[string]bool)
	for _, sc := range strings.Split(s.Scope, ",") {
		granted[strings.TrimSpace(sc)] = true
	}
	for _, sc := range requiredScopes {
		if !granted[sc] {
			return false
		}
	}
	return true
}
