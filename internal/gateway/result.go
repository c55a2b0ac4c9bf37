package gateway

import (
	"net/http"

	"appgateway/pkg/shopify"
)

// AuthContext is handed to the route once a request survives the gateway.
// Token is set only for embedded apps.
type AuthContext struct {
	Session *shopify.Session
	Token   *shopify.SessionTokenPayload
	Admin   *AdminAPI
}

// Terminal is a response the gateway has decided to send instead of letting
// the request through: a redirect, a bounce page, or an error.
type Terminal struct {
	Status  int
	Header  http.Header
	Cookies []*http.Cookie
	Body    []byte
}

// Result is the outcome of authenticating one request. Exactly one of
// Context and Terminal is set; the gateway never produces both and never
// falls through silently.
type Result struct {
	Context  *AuthContext
	Terminal *Terminal
}

func Proceed(c *AuthContext) Result {
	return Result{Context: c}
}

func Terminate(t *Terminal) Result {
	return Result{Terminal: t}
}

// Write sends the terminal. Callers apply the response header policy first;
// Write itself only serializes what the terminal carries.
func (t *Terminal) Write(w http.ResponseWriter) {
	h := w.Header()
	for k, vv := range t.Header {
		for _, v := range vv {
			h.Add(k, v)
		}
	}
	for _, c := range t.Cookies {
		http.SetCookie(w, c)
	}
	w.WriteHeader(t.Status)
	if len(t.Body) > 0 {
		_, _ = w.Write(t.Body)
	}
}

func (t *Terminal) withHeader(key, value string) *Terminal {
	if t.Header == nil {
		t.Header = http.Header{}
	}
	t.Header.Set(key, value)
	return t
}

func (t *Terminal) withCookie(c *http.Cookie) *Terminal {
	t.Cookies = append(t.Cookies, c)
	return t
}

func newTerminal(status int) *Terminal {
	return &Terminal{Status: status, Header: http.Header{}}
}

func textTerminal(status int, body string) *Terminal {
	t := newTerminal(status)
	t.Header.Set("Content-Type", "text/plain; charset=utf-8")
	t.Body = []byte(body)
	return t
}

func htmlTerminal(body string) *Terminal {
	t := newTerminal(http.StatusOK)
	t.Header.Set("Content-Type", "text/html;charset=utf-8")
	t.Body = []byte(body)
	return t
}

func redirectTerminal(location string) *Terminal {
	t := newTerminal(http.StatusFound)
	t.Header.Set("Location", location)
	return t
}
