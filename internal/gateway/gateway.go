// Package gateway authenticates every request an embedded app receives:
// top-level document loads, same-origin XHR calls, OAuth begin/callback,
// exit-iframe bounces and webhook deliveries. Each request produces exactly
// one Result: either an AuthContext for the route, or a Terminal response.
package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"appgateway/internal/metrics"
	"appgateway/internal/session"
	"appgateway/pkg/config"
	"appgateway/pkg/shopify"
)

// TokenExchanger builds authorization redirects and exchanges grant codes.
// shopify.OAuth is the production implementation.
type TokenExchanger interface {
	AuthorizeURL(shop, redirectURI, state string, isOnline bool) string
	ExchangeCode(ctx context.Context, shop, code string) (*shopify.AccessToken, error)
}

// AfterAuthFunc runs after a successful OAuth callback, before the final
// redirect. Webhook (re)registration lives here.
type AfterAuthFunc func(ctx context.Context, s *shopify.Session, admin *AdminAPI) error

type Gateway struct {
	cfg      config.Config
	sessions session.Store
	oauth    TokenExchanger
	log      zerolog.Logger

	metrics    *metrics.Metrics
	now        func() time.Time
	probe      func(ctx context.Context, s *shopify.Session) error
	afterAuth  AfterAuthFunc
	httpClient *http.Client
}

type Option func(*Gateway)

func WithLogger(log zerolog.Logger) Option {
	return func(g *Gateway) { g.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithClock injects the time source (primarily for testing).
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func WithExchanger(x TokenExchanger) Option {
	return func(g *Gateway) { g.oauth = x }
}

// WithSessionProbe replaces the upstream call used to check whether an
// offline session is still valid.
func WithSessionProbe(probe func(ctx context.Context, s *shopify.Session) error) Option {
	return func(g *Gateway) { g.probe = probe }
}

func WithAfterAuth(hook AfterAuthFunc) Option {
	return func(g *Gateway) { g.afterAuth = hook }
}

func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.httpClient = c }
}

func New(cfg config.Config, sessions session.Store, opts ...Option) *Gateway {
	g := &Gateway{
		cfg:      cfg,
		sessions: sessions,
		oauth: shopify.OAuth{
			APIKey:    cfg.Shopify.APIKey,
			APISecret: cfg.Shopify.APISecret,
			Scopes:    cfg.Shopify.Scopes,
		},
		log: zerolog.Nop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.probe == nil {
		g.probe = g.probeSession
	}
	return g
}

// Authenticate runs one request through the state machine.
func (g *Gateway) Authenticate(r *http.Request) Result {
	mode := g.Classify(r)
	if g.metrics != nil {
		g.metrics.AuthRequests.WithLabelValues(mode.String()).Inc()
	}

	switch mode {
	case ModePreflight:
		return Terminate(preflightTerminal())
	case ModeBotRejected:
		g.log.Debug().Str("user_agent", r.UserAgent()).Msg("request is from a bot, skipping auth")
		return Terminate(textTerminal(http.StatusGone, "Gone"))
	case ModeBouncePage:
		return Terminate(g.renderAppBridge(""))
	case ModeExitIframe:
		return Terminate(g.renderAppBridge(r.URL.Query().Get("exitIframe")))
	case ModeOAuthCallback:
		return Terminate(g.handleCallback(r))
	case ModeOAuthBegin:
		return Terminate(g.handleBegin(r))
	case ModeBearerSession:
		return g.bearerSession(r)
	default:
		return g.documentLoad(r)
	}
}

// handleBegin starts the OAuth dance for the shop named in the query.
func (g *Gateway) handleBegin(r *http.Request) *Terminal {
	shop := shopify.SanitizeShop(r.URL.Query().Get("shop"))
	if shop == "" {
		return textTerminal(http.StatusBadRequest, "Bad Request")
	}
	g.log.Info().Str("shop", shop).Msg("handling oauth begin request")
	return g.beginAuth(shop, false)
}

func (g *Gateway) beginAuth(shop string, isOnline bool) *Terminal {
	state := randomHex(16)
	redirectURI := g.cfg.Shopify.AppURL + g.cfg.Auth.CallbackPath
	authorizeURL := g.oauth.AuthorizeURL(shop, redirectURI, state, isOnline)

	return redirectTerminal(authorizeURL).
		withCookie(g.signedCookie(stateCookieName, state, stateCookieTTL))
}

func (g *Gateway) handleCallback(r *http.Request) *Terminal {
	q := r.URL.Query()

	shop := shopify.SanitizeShop(q.Get("shop"))
	if shop == "" {
		return textTerminal(http.StatusBadRequest, "Shop param is invalid")
	}

	g.log.Info().Str("shop", shop).Msg("handling oauth callback request")

	// A missing or mismatched state cookie is not an error: the merchant may
	// have taken too long, or cookies were dropped. Start over.
	state, ok := g.readSignedCookie(r, stateCookieName)
	if !ok || state == "" || state != q.Get("state") {
		g.log.Info().Str("shop", shop).Msg("state cookie missing or stale, restarting oauth")
		return g.beginAuth(shop, false)
	}

	if !shopify.VerifyCallbackHMAC(q, g.cfg.Shopify.APISecret) {
		return textTerminal(http.StatusBadRequest, "Invalid OAuth Request")
	}

	tok, err := g.oauth.ExchangeCode(r.Context(), shop, q.Get("code"))
	if err != nil {
		g.log.Error().Err(err).Str("shop", shop).Msg("oauth code exchange failed")
		return textTerminal(http.StatusInternalServerError, "Internal Server Error")
	}

	sess := sessionFromToken(shop, tok, g.now())
	if err := g.sessions.Store(r.Context(), sess); err != nil {
		g.log.Error().Err(err).Str("shop", shop).Msg("storing session failed")
		return textTerminal(http.StatusInternalServerError, "Internal Server Error")
	}

	if g.cfg.Shopify.UseOnlineTokens && !sess.IsOnline {
		g.log.Info().Str("shop", shop).Msg("requesting online access token for offline session")
		return g.beginAuth(shop, true)
	}

	if g.afterAuth != nil {
		if err := g.afterAuth(r.Context(), sess, g.adminAPI(r, sess)); err != nil {
			g.log.Error().Err(err).Str("shop", shop).Msg("afterAuth hook failed")
			return textTerminal(http.StatusInternalServerError, "Internal Server Error")
		}
	}

	return g.redirectToShopifyOrAppRoot(r, sess).
		withCookie(expiredCookie(stateCookieName))
}

// sessionFromToken builds the session row for an exchanged token. The id is
// derived, never generated, so replayed callbacks land on the same row.
func sessionFromToken(shop string, tok *shopify.AccessToken, now time.Time) *shopify.Session {
	s := &shopify.Session{
		Shop:        shop,
		Scope:       tok.Scope,
		AccessToken: tok.AccessToken,
	}
	if tok.AssociatedUserID != "" {
		s.IsOnline = true
		s.UserID = tok.AssociatedUserID
		s.ID = shopify.OnlineSessionID(shop, tok.AssociatedUserID)
		s.Scope = tok.AssociatedUserScope
		if tok.ExpiresIn > 0 {
			exp := now.Add(time.Duration(tok.ExpiresIn) * time.Second)
			s.ExpiresAt = &exp
		}
	} else {
		s.ID = shopify.OfflineSessionID(shop)
	}
	return s
}

func (g *Gateway) bearerSession(r *http.Request) Result {
	payload, err := shopify.DecodeSessionToken(
		bearerToken(r), g.cfg.Shopify.APIKey, g.cfg.Shopify.APISecret, g.now())
	if err != nil {
		// The sub-reason stays in the log; the response is uniform.
		g.log.Debug().Err(err).Msg("session token rejected")
		return Terminate(textTerminal(http.StatusUnauthorized, "Unauthorized"))
	}
	return g.validateAuthenticatedSession(r, payload)
}

// validateAuthenticatedSession resolves the session a verified token points
// at. An absent or inactive session re-enters the auth flow through the same
// triple branch used everywhere: reauth header for XHR, exit-iframe when
// embedded, plain OAuth begin otherwise.
func (g *Gateway) validateAuthenticatedSession(r *http.Request, payload *shopify.SessionTokenPayload) Result {
	shop := payload.ShopDomain()

	sessionID := shopify.OfflineSessionID(shop)
	if g.cfg.Shopify.UseOnlineTokens {
		sessionID = shopify.OnlineSessionID(shop, payload.Subject)
	}

	sess, err := g.sessions.Load(r.Context(), sessionID)
	if err != nil {
		g.log.Error().Err(err).Str("session_id", sessionID).Msg("session load failed")
		return Terminate(textTerminal(http.StatusInternalServerError, "Internal Server Error"))
	}
	if !sess.Active(g.cfg.Shopify.Scopes, g.now()) {
		g.log.Debug().Str("shop", shop).Msg("session missing or expired, redirecting to auth")
		return Terminate(g.redirectToAuthPage(r, shop))
	}

	authCtx := &AuthContext{Session: sess, Admin: g.adminAPI(r, sess)}
	if g.cfg.Shopify.IsEmbeddedApp {
		authCtx.Token = payload
	}
	return Proceed(authCtx)
}

// documentLoad handles a full top-level or embedded page load: no bearer
// token yet, possibly no install yet.
func (g *Gateway) documentLoad(r *http.Request) Result {
	q := r.URL.Query()

	shop := shopify.SanitizeShop(q.Get("shop"))
	if shop == "" {
		return Terminate(textTerminal(http.StatusBadRequest, "Shop param is invalid"))
	}
	host := q.Get("host")
	if g.cfg.Shopify.IsEmbeddedApp && shopify.SanitizeHost(host) == "" {
		return Terminate(textTerminal(http.StatusBadRequest, "Host param is invalid"))
	}

	isEmbeddedRequest := q.Get("embedded") == "1"

	offline, err := g.sessions.Load(r.Context(), shopify.OfflineSessionID(shop))
	if err != nil {
		g.log.Error().Err(err).Str("shop", shop).Msg("session load failed")
		return Terminate(textTerminal(http.StatusInternalServerError, "Internal Server Error"))
	}
	if offline == nil {
		// Normal "not yet installed" path, not a failure.
		g.log.Info().Str("shop", shop).Msg("shop hasn't installed app yet, redirecting to oauth")
		if isEmbeddedRequest {
			return Terminate(g.redirectWithExitIframe(r, shop))
		}
		return Terminate(g.beginAuth(shop, false))
	}

	if g.cfg.Shopify.IsEmbeddedApp && !isEmbeddedRequest {
		if t := g.ensureStillInstalled(r, offline); t != nil {
			return Terminate(t)
		}
		return Terminate(redirectTerminal(shopify.EmbeddedAppURL(host, g.cfg.Shopify.APIKey)))
	}

	if g.cfg.Shopify.IsEmbeddedApp {
		idToken := q.Get("id_token")
		if idToken == "" {
			g.log.Debug().Str("shop", shop).Msg("missing session token in search params, going to bounce page")
			return Terminate(g.redirectToBouncePage(r))
		}

		payload, err := shopify.DecodeSessionToken(
			idToken, g.cfg.Shopify.APIKey, g.cfg.Shopify.APISecret, g.now())
		if err != nil {
			g.log.Debug().Err(err).Msg("session token rejected")
			return Terminate(textTerminal(http.StatusUnauthorized, "Unauthorized"))
		}
		return g.validateAuthenticatedSession(r, payload)
	}

	// Non-embedded apps identify the session through a signed cookie set
	// during the OAuth callback.
	sessionID, ok := g.readSignedCookie(r, sessionCookieName)
	if !ok {
		g.log.Debug().Str("shop", shop).Msg("session cookie missing, redirecting to oauth")
		return Terminate(g.beginAuth(shop, false))
	}
	sess, err := g.sessions.Load(r.Context(), sessionID)
	if err != nil {
		g.log.Error().Err(err).Str("session_id", sessionID).Msg("session load failed")
		return Terminate(textTerminal(http.StatusInternalServerError, "Internal Server Error"))
	}
	if !sess.Active(g.cfg.Shopify.Scopes, g.now()) {
		return Terminate(g.redirectToAuthPage(r, shop))
	}
	return Proceed(&AuthContext{Session: sess, Admin: g.adminAPI(r, sess)})
}

// ensureStillInstalled probes the offline session with a lightweight upstream
// call. A 401 means the app was uninstalled and the token revoked: restart
// OAuth. Other upstream failures surface as-is. A nil return means the
// session checked out.
func (g *Gateway) ensureStillInstalled(r *http.Request, offline *shopify.Session) *Terminal {
	err := g.probe(r.Context(), offline)
	if err == nil {
		return nil
	}

	var apiErr *shopify.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusUnauthorized {
			g.log.Info().Str("shop", offline.Shop).Msg("shop session is no longer valid, redirecting to oauth")
			return g.beginAuth(offline.Shop, false)
		}
		g.log.Error().Int("status", apiErr.Status).Str("shop", offline.Shop).Msg("session probe failed upstream")
		return textTerminal(apiErr.Status, apiErr.Body)
	}

	g.log.Error().Err(err).Str("shop", offline.Shop).Msg("session probe failed")
	return textTerminal(http.StatusInternalServerError, "Internal Server Error")
}

func (g *Gateway) probeSession(ctx context.Context, s *shopify.Session) error {
	client := g.apiClient(s)
	return client.GraphQL(ctx, `query { shop { name } }`, nil, nil)
}

// redirectToShopifyOrAppRoot ends a successful OAuth callback. Embedded apps
// go back to the admin's wrapper for this app; non-embedded apps go to the
// app root with a fresh signed session cookie.
func (g *Gateway) redirectToShopifyOrAppRoot(r *http.Request, sess *shopify.Session) *Terminal {
	q := r.URL.Query()
	shop := shopify.SanitizeShop(q.Get("shop"))
	host := q.Get("host")

	if g.cfg.Shopify.IsEmbeddedApp && shopify.SanitizeHost(host) != "" {
		return redirectTerminal(shopify.EmbeddedAppURL(host, g.cfg.Shopify.APIKey))
	}

	dest := "/?shop=" + url.QueryEscape(shop) + "&host=" + url.QueryEscape(host)
	return redirectTerminal(dest).
		withCookie(g.signedCookie(sessionCookieName, sess.ID, 0))
}

func (g *Gateway) apiClient(s *shopify.Session) shopify.Client {
	return shopify.Client{
		HTTPClient:  g.httpClient,
		ShopDomain:  s.Shop,
		AccessToken: s.AccessToken,
		APIVersion:  g.cfg.Shopify.APIVersion,
	}
}

func randomHex(nBytes int) string {
	b := make([]byte, nBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
