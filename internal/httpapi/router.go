package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"appgateway/internal/api"
	"appgateway/internal/gateway"
	"appgateway/internal/session"
	"appgateway/pkg/config"
)

type Dependencies struct {
	Cfg      config.Config
	Log      zerolog.Logger
	Gateway  *gateway.Gateway
	Sessions session.Store
	Registry *prometheus.Registry
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(api.RequestLogger(deps.Log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Post("/webhooks", webhookHandler(deps))

	gw := deps.Gateway

	// Routes the gateway terminates itself.
	r.Method(http.MethodGet, deps.Cfg.Auth.Path, gw.Endpoint())
	r.Method(http.MethodGet, deps.Cfg.Auth.CallbackPath, gw.Endpoint())
	r.Method(http.MethodGet, deps.Cfg.Auth.ExitIframePath, gw.Endpoint())
	r.Method(http.MethodGet, deps.Cfg.Auth.PatchSessionTokenPath, gw.Endpoint())

	// Everything below requires an authenticated session.
	r.Group(func(r chi.Router) {
		r.Use(gw.Handler)
		r.Options("/*", func(http.ResponseWriter, *http.Request) {})
		r.Get("/", appHome)
		r.Get("/api/shop", shopInfo)
	})

	return r
}

func appHome(w http.ResponseWriter, r *http.Request) {
	ac := gateway.FromContext(r.Context())
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"shop":      ac.Session.Shop,
		"is_online": ac.Session.IsOnline,
	})
}

// shopInfo demonstrates the reauth-aware client: a 401 from the Admin API
// never reaches the caller as a bare error.
func shopInfo(w http.ResponseWriter, r *http.Request) {
	ac := gateway.FromContext(r.Context())

	var resp struct {
		Data struct {
			Shop struct {
				Name string `json:"name"`
			} `json:"shop"`
		} `json:"data"`
	}
	t, err := ac.Admin.GraphQL(r.Context(), `query { shop { name } }`, nil, &resp)
	if err != nil {
		api.WriteError(w, http.StatusBadGateway, "UPSTREAM", "admin api call failed")
		return
	}
	if t != nil {
		t.Write(w)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]string{"name": resp.Data.Shop.Name})
}

func webhookHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wc, t := deps.Gateway.AuthenticateWebhook(r)
		if t != nil {
			t.Write(w)
			return
		}

		switch wc.Topic {
		case "app/uninstalled":
			// Revoked tokens are useless; drop every session for the shop.
			sessions, err := deps.Sessions.FindByShop(r.Context(), wc.Shop)
			if err == nil {
				for _, s := range sessions {
					_ = deps.Sessions.Delete(r.Context(), s.ID)
				}
			}
		default:
			deps.Log.Debug().Str("topic", wc.Topic).Str("shop", wc.Shop).Msg("unhandled webhook topic")
		}

		// The platform expects a fast 200.
		w.WriteHeader(http.StatusOK)
	}
}
