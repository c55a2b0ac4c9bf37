package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	g := newTestGateway(t, testConfig(), nil)

	cases := []struct {
		name   string
		method string
		target string
		header map[string]string
		want   Mode
	}{
		{name: "preflight", method: http.MethodOptions, target: "/api/shop", want: ModePreflight},
		{name: "preflight wins over auth path", method: http.MethodOptions, target: "/auth", want: ModePreflight},
		{name: "bot", method: http.MethodGet, target: "/",
			header: map[string]string{"User-Agent": "Mozilla/5.0 (compatible; Googlebot/2.1)"},
			want:   ModeBotRejected},
		{name: "bot wins over bearer", method: http.MethodGet, target: "/api/shop",
			header: map[string]string{"User-Agent": "facebookexternalhit/1.1", "Authorization": "Bearer abc"},
			want:   ModeBotRejected},
		{name: "bounce page", method: http.MethodGet, target: "/auth/session-token?shop=" + testShop, want: ModeBouncePage},
		{name: "exit iframe", method: http.MethodGet, target: "/exitiframe?shop=" + testShop, want: ModeExitIframe},
		{name: "callback", method: http.MethodGet, target: "/auth/callback?shop=" + testShop, want: ModeOAuthCallback},
		{name: "begin", method: http.MethodGet, target: "/auth?shop=" + testShop, want: ModeOAuthBegin},
		{name: "bearer", method: http.MethodGet, target: "/api/shop",
			header: map[string]string{"Authorization": "Bearer abc"},
			want:   ModeBearerSession},
		{name: "bearer case insensitive", method: http.MethodPost, target: "/api/shop",
			header: map[string]string{"Authorization": "bearer abc"},
			want:   ModeBearerSession},
		{name: "empty bearer is a document load", method: http.MethodGet, target: "/",
			header: map[string]string{"Authorization": "Bearer "},
			want:   ModeDocumentLoad},
		{name: "document load", method: http.MethodGet, target: "/?shop=" + testShop, want: ModeDocumentLoad},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(tc.method, tc.target, nil)
			for k, v := range tc.header {
				r.Header.Set(k, v)
			}
			require.Equal(t, tc.want, g.Classify(r))
		})
	}
}

func TestModeString(t *testing.T) {
	require.Equal(t, "preflight", ModePreflight.String())
	require.Equal(t, "oauth_callback", ModeOAuthCallback.String())
	require.Equal(t, "document_load", ModeDocumentLoad.String())
}
