package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"appgateway/pkg/shopify"
)

// BillingPlan describes a subscription the app can request. Which plan a
// shop should be on is the caller's policy; the gateway only does the
// plumbing.
type BillingPlan struct {
	Name         string
	Amount       decimal.Decimal
	CurrencyCode string
	// Interval is EVERY_30_DAYS or ANNUAL.
	Interval  string
	TrialDays int
	Test      bool
}

// Billing drives subscription checks and requests over the same redirect
// primitives the rest of the gateway uses.
type Billing struct {
	g       *Gateway
	request *http.Request
	api     *AdminAPI
}

func (g *Gateway) Billing(r *http.Request, s *shopify.Session) *Billing {
	return &Billing{g: g, request: r, api: g.adminAPI(r, s)}
}

type activeSubscriptionsResponse struct {
	Data struct {
		CurrentAppInstallation struct {
			ActiveSubscriptions []struct {
				Name   string `json:"name"`
				Status string `json:"status"`
			} `json:"activeSubscriptions"`
		} `json:"currentAppInstallation"`
	} `json:"data"`
}

// Require checks for an active subscription on any of the named plans and
// hands the decision to onFailure when there is none.
func (b *Billing) Require(ctx context.Context, plans []string, onFailure func() *Terminal) (*Terminal, error) {
	const query = `query { currentAppInstallation { activeSubscriptions { name status } } }`

	var resp activeSubscriptionsResponse
	if t, err := b.api.GraphQL(ctx, query, nil, &resp); t != nil || err != nil {
		return t, err
	}

	wanted := make(map[string]bool, len(plans))
	for _, p := range plans {
		wanted[p] = true
	}
	for _, sub := range resp.Data.CurrentAppInstallation.ActiveSubscriptions {
		if wanted[sub.Name] && sub.Status == "ACTIVE" {
			return nil, nil
		}
	}

	b.g.log.Info().Str("shop", b.api.session.Shop).Msg("no active subscription for required plans")
	return onFailure(), nil
}

type subscriptionCreateResponse struct {
	Data struct {
		AppSubscriptionCreate struct {
			ConfirmationURL string `json:"confirmationUrl"`
			UserErrors      []struct {
				Message string `json:"message"`
			} `json:"userErrors"`
		} `json:"appSubscriptionCreate"`
	} `json:"data"`
}

// Request creates a subscription and redirects the merchant to the
// confirmation page, breaking out of the iframe when needed.
func (b *Billing) Request(ctx context.Context, plan BillingPlan, returnURL string) (*Terminal, error) {
	const mutation = `
mutation AppSubscriptionCreate($name: String!, $returnUrl: URL!, $test: Boolean, $trialDays: Int, $lineItems: [AppSubscriptionLineItemInput!]!) {
  appSubscriptionCreate(name: $name, returnUrl: $returnUrl, test: $test, trialDays: $trialDays, lineItems: $lineItems) {
    confirmationUrl
    userErrors { message }
  }
}`

	variables := map[string]any{
		"name":      plan.Name,
		"returnUrl": returnURL,
		"test":      plan.Test,
		"trialDays": plan.TrialDays,
		"lineItems": []map[string]any{{
			"plan": map[string]any{
				"appRecurringPricingDetails": map[string]any{
					"price": map[string]any{
						"amount":       plan.Amount.StringFixed(2),
						"currencyCode": plan.CurrencyCode,
					},
					"interval": plan.Interval,
				},
			},
		}},
	}

	var resp subscriptionCreateResponse
	if t, err := b.api.GraphQL(ctx, mutation, variables, &resp); t != nil || err != nil {
		return t, err
	}

	create := resp.Data.AppSubscriptionCreate
	if len(create.UserErrors) > 0 {
		return nil, fmt.Errorf("subscription create rejected: %s", create.UserErrors[0].Message)
	}
	if create.ConfirmationURL == "" {
		return nil, fmt.Errorf("subscription create returned no confirmation url")
	}

	return b.redirectOutOfApp(create.ConfirmationURL), nil
}

// redirectOutOfApp navigates the merchant to an external page using the
// branch matching the inbound request, like redirectToAuthPage does.
func (b *Billing) redirectOutOfApp(dest string) *Terminal {
	if bearerToken(b.request) != "" {
		return newTerminal(http.StatusUnauthorized).withHeader(ReauthURLHeader, dest)
	}
	if b.request.URL.Query().Get("embedded") == "1" {
		params := b.request.URL.Query()
		params.Set("exitIframe", dest)
		return redirectTerminal(b.g.cfg.Auth.ExitIframePath + "?" + params.Encode())
	}
	return redirectTerminal(dest)
}
