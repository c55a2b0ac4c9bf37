package gateway

import (
	"net/http"
	"strconv"

	"appgateway/pkg/shopify"
)

// addResponseHeaders applies the frame-ancestors policy. Every response that
// leaves the gateway, terminal or not, passes through here exactly once.
func (g *Gateway) addResponseHeaders(r *http.Request, h http.Header) {
	shop := shopify.SanitizeShop(r.URL.Query().Get("shop"))
	if g.cfg.Shopify.IsEmbeddedApp && shop != "" {
		h.Set("Content-Security-Policy",
			"frame-ancestors https://"+shop+" https://admin.shopify.com;")
	} else {
		h.Set("Content-Security-Policy", "frame-ancestors 'none';")
	}
}

// Handler is the gateway as middleware: terminal outcomes are written here,
// successful ones reach next with the AuthContext in the request context.
func (g *Gateway) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := g.Authenticate(r)
		g.addResponseHeaders(r, w.Header())

		if res.Terminal != nil {
			if g.metrics != nil {
				g.metrics.AuthTerminals.WithLabelValues(strconv.Itoa(res.Terminal.Status)).Inc()
			}
			res.Terminal.Write(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), res.Context)))
	})
}

// Endpoint serves routes the gateway always terminates itself (auth begin,
// callback, exit-iframe, bounce page, preflight).
func (g *Gateway) Endpoint() http.Handler {
	return g.Handler(http.NotFoundHandler())
}
