package gateway

import (
	"context"
	"errors"
	"net/http"

	"appgateway/pkg/shopify"
)

// AdminAPI wraps outbound Admin API calls with the request's session. A 401
// from upstream means the token was revoked mid-flight; instead of surfacing
// a bare error, the wrapper re-derives the redirect appropriate for the
// original inbound request, mirroring the document-load invalid-session
// branch exactly.
type AdminAPI struct {
	g       *Gateway
	request *http.Request
	session *shopify.Session
	client  shopify.Client
}

func (g *Gateway) adminAPI(r *http.Request, s *shopify.Session) *AdminAPI {
	return &AdminAPI{
		g:       g,
		request: r,
		session: s,
		client:  g.apiClient(s),
	}
}

func (a *AdminAPI) Session() *shopify.Session {
	return a.session
}

// Rest performs a REST call. A non-nil Terminal means the caller must stop
// and send it; err is reserved for transport-level failures.
func (a *AdminAPI) Rest(ctx context.Context, method, path string, reqBody, respBody any) (*Terminal, error) {
	return a.handle(a.client.Rest(ctx, method, path, reqBody, respBody))
}

// GraphQL performs an Admin GraphQL call with the same contract as Rest.
func (a *AdminAPI) GraphQL(ctx context.Context, query string, variables map[string]any, respBody any) (*Terminal, error) {
	return a.handle(a.client.GraphQL(ctx, query, variables, respBody))
}

func (a *AdminAPI) handle(err error) (*Terminal, error) {
	if err == nil {
		return nil, nil
	}

	var apiErr *shopify.APIError
	if !errors.As(err, &apiErr) {
		return nil, err
	}

	if apiErr.Status == http.StatusUnauthorized {
		a.g.log.Info().Str("shop", a.session.Shop).Msg("admin api rejected session, redirecting to auth")
		return a.g.redirectToAuthPage(a.request, a.session.Shop), nil
	}

	// Everything else, 429 included, passes through unchanged.
	return textTerminal(apiErr.Status, apiErr.Body), nil
}
