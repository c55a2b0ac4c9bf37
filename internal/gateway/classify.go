package gateway

import (
	"net/http"
	"strings"
)

// Mode is what the classifier decided a request is. First match wins, in
// this order.
type Mode int

const (
	ModePreflight Mode = iota
	ModeBotRejected
	ModeBouncePage
	ModeExitIframe
	ModeOAuthCallback
	ModeOAuthBegin
	ModeBearerSession
	ModeDocumentLoad
)

func (m Mode) String() string {
	switch m {
	case ModePreflight:
		return "preflight"
	case ModeBotRejected:
		return "bot_rejected"
	case ModeBouncePage:
		return "bounce_page"
	case ModeExitIframe:
		return "exit_iframe"
	case ModeOAuthCallback:
		return "oauth_callback"
	case ModeOAuthBegin:
		return "oauth_begin"
	case ModeBearerSession:
		return "bearer_session"
	default:
		return "document_load"
	}
}

// Classify inspects method, user agent, path and headers to pick the
// processing mode for a request.
func (g *Gateway) Classify(r *http.Request) Mode {
	switch {
	case r.Method == http.MethodOptions:
		return ModePreflight
	case isBot(r.UserAgent()):
		return ModeBotRejected
	case r.URL.Path == g.cfg.Auth.PatchSessionTokenPath:
		return ModeBouncePage
	case r.URL.Path == g.cfg.Auth.ExitIframePath:
		return ModeExitIframe
	case r.URL.Path == g.cfg.Auth.CallbackPath:
		return ModeOAuthCallback
	case r.URL.Path == g.cfg.Auth.Path:
		return ModeOAuthBegin
	case bearerToken(r) != "":
		return ModeBearerSession
	default:
		return ModeDocumentLoad
	}
}

func bearerToken(r *http.Request) string {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(authz) < 7 || !strings.EqualFold(authz[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[7:])
}
