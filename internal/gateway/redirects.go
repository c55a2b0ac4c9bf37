package gateway

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"appgateway/pkg/shopify"
)

// ReauthURLHeader carries the URL the embedding SDK should navigate to when
// a 302 cannot be followed (XHR responses inside the iframe).
const ReauthURLHeader = "X-Shopify-API-Request-Failure-Reauthorize-Url"

// redirectToAuthPage picks how to get the merchant back into OAuth based on
// the original request. The three branches encode the three embedding
// scenarios and must stay consistent with the invalid-session handling in
// document loads:
//   - XHR (bearer header): 401 plus the reauth header, the client navigates.
//   - Embedded page: exit-iframe bounce, then top-level OAuth.
//   - Top-level page: straight 302 into OAuth.
func (g *Gateway) redirectToAuthPage(r *http.Request, shop string) *Terminal {
	if bearerToken(r) != "" {
		return g.appBridgeReauthTerminal(shop)
	}
	if r.URL.Query().Get("embedded") == "1" {
		return g.redirectWithExitIframe(r, shop)
	}
	return g.beginAuth(shop, false)
}

func (g *Gateway) appBridgeReauthTerminal(shop string) *Terminal {
	reauthURL := g.cfg.Shopify.AppURL + g.cfg.Auth.Path + "?shop=" + shop
	return newTerminal(http.StatusUnauthorized).withHeader(ReauthURLHeader, reauthURL)
}

// redirectWithExitIframe sends the iframe to the exit-iframe page with the
// OAuth begin URL as its destination.
func (g *Gateway) redirectWithExitIframe(r *http.Request, shop string) *Terminal {
	q := r.URL.Query()
	params := url.Values{}
	for k, vv := range q {
		for _, v := range vv {
			params.Add(k, v)
		}
	}

	params.Set("shop", shop)
	params.Set("exitIframe", g.cfg.Auth.Path+"?shop="+shop)
	if host := shopify.SanitizeHost(q.Get("host")); host != "" {
		params.Set("host", q.Get("host"))
	} else {
		params.Del("host")
	}

	return redirectTerminal(g.cfg.Auth.ExitIframePath + "?" + params.Encode())
}

// redirectToBouncePage sends the client to the bounce page, which fetches a
// fresh session token and reloads the original URL.
func (g *Gateway) redirectToBouncePage(r *http.Request) *Terminal {
	params := url.Values{}
	for k, vv := range r.URL.Query() {
		for _, v := range vv {
			params.Add(k, v)
		}
	}
	params.Set("shopify-reload", g.cfg.Shopify.AppURL+r.URL.RequestURI())

	return redirectTerminal(g.cfg.Auth.PatchSessionTokenPath + "?" + params.Encode())
}

// renderAppBridge is the bounce/exit-iframe page: just enough HTML to load
// the embedding SDK, optionally followed by a client-side navigation.
func (g *Gateway) renderAppBridge(redirectTo string) *Terminal {
	var redirectToScript string
	if redirectTo != "" {
		if strings.HasPrefix(redirectTo, "/") {
			redirectTo = g.cfg.Shopify.AppURL + redirectTo
		}
		redirectToScript = fmt.Sprintf(`<script>shopify.redirectTo(%q)</script>`, redirectTo)
	}

	body := fmt.Sprintf(
		`<script data-api-key=%q src="https://cdn.shopify.com/shopifycloud/app-bridge-next/app-bridge.js"></script>%s`,
		g.cfg.Shopify.APIKey, redirectToScript,
	)
	return htmlTerminal(body)
}

func preflightTerminal() *Terminal {
	t := newTerminal(http.StatusNoContent)
	t.Header.Set("Access-Control-Allow-Origin", "*")
	t.Header.Set("Access-Control-Allow-Headers", "Authorization")
	t.Header.Set("Access-Control-Expose-Headers", ReauthURLHeader)
	return t
}
