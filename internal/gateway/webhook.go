package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"appgateway/pkg/shopify"
)

// WebhookContext is the authenticated result of a webhook delivery: verified
// headers, the shop's offline session, the parsed payload and an API client
// bound to that session.
type WebhookContext struct {
	Shop       string
	Topic      string
	WebhookID  string
	APIVersion string
	Session    *shopify.Session
	Payload    json.RawMessage
	Admin      *AdminAPI
}

// AuthenticateWebhook verifies a webhook delivery. The body is never parsed
// before its signature checks out. A non-nil Terminal means rejection:
// 405 for a non-POST, 400 for a bad signature or body, 404 when the shop has
// no offline session (deliveries legitimately arrive after uninstall).
func (g *Gateway) AuthenticateWebhook(r *http.Request) (*WebhookContext, *Terminal) {
	if r.Method != http.MethodPost {
		return nil, textTerminal(http.StatusMethodNotAllowed, "Method Not Allowed")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, textTerminal(http.StatusBadRequest, "Bad Request")
	}

	hmacHeader := strings.TrimSpace(r.Header.Get("X-Shopify-Hmac-Sha256"))
	if !shopify.VerifyWebhookHMAC(body, hmacHeader, g.cfg.Shopify.WebhookSecret) {
		if g.metrics != nil {
			g.metrics.WebhookRejected.Inc()
		}
		g.log.Warn().Msg("webhook signature verification failed")
		return nil, textTerminal(http.StatusBadRequest, "Bad Request")
	}

	shop := shopify.SanitizeShop(r.Header.Get("X-Shopify-Shop-Domain"))
	topic := strings.TrimSpace(r.Header.Get("X-Shopify-Topic"))
	webhookID := strings.TrimSpace(r.Header.Get("X-Shopify-Webhook-Id"))
	apiVersion := strings.TrimSpace(r.Header.Get("X-Shopify-API-Version"))
	if shop == "" || topic == "" {
		return nil, textTerminal(http.StatusBadRequest, "Bad Request")
	}

	sess, err := g.sessions.Load(r.Context(), shopify.OfflineSessionID(shop))
	if err != nil {
		g.log.Error().Err(err).Str("shop", shop).Msg("session load failed")
		return nil, textTerminal(http.StatusInternalServerError, "Internal Server Error")
	}
	if sess == nil {
		g.log.Debug().Str("shop", shop).Str("topic", topic).Msg("no session found for webhook shop")
		return nil, textTerminal(http.StatusNotFound, "Not Found")
	}

	payload := json.RawMessage(body)
	if len(body) > 0 && !json.Valid(body) {
		return nil, textTerminal(http.StatusBadRequest, "Bad Request")
	}

	return &WebhookContext{
		Shop:       shop,
		Topic:      topic,
		WebhookID:  webhookID,
		APIVersion: apiVersion,
		Session:    sess,
		Payload:    payload,
		Admin:      g.adminAPI(r, sess),
	}, nil
}
