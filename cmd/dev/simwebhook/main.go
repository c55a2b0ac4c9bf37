// simwebhook signs and posts a webhook delivery the way the platform would,
// for exercising the webhook endpoint locally.
package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

func main() {
	var (
		url       = flag.String("url", "", "webhook endpoint url (defaults to http://localhost<HTTP_ADDR>/webhooks)")
		topic     = flag.String("topic", "app/uninstalled", "X-Shopify-Topic header value")
		shop      = flag.String("shop", "example.myshopify.com", "X-Shopify-Shop-Domain")
		secret    = flag.String("secret", "", "webhook signing secret")
		payload   = flag.String("payload", "", "path to json payload file (defaults to {})")
		webhookID = flag.String("id", "", "X-Shopify-Webhook-Id (defaults to a random uuid)")
	)
	flag.Parse()

	if *url == "" {
		httpAddr := os.Getenv("HTTP_ADDR")
		if httpAddr == "" {
			httpAddr = ":8081"
		}
		if httpAddr[0] == ':' {
			*url = "http://localhost" + httpAddr + "/webhooks"
		} else {
			*url = "http://" + httpAddr + "/webhooks"
		}
	}
	if *secret == "" {
		fmt.Fprintln(os.Stderr, "missing -secret")
		os.Exit(2)
	}
	if *webhookID == "" {
		*webhookID = uuid.NewString()
	}

	body := []byte("{}")
	if *payload != "" {
		b, err := os.ReadFile(*payload)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read payload: %v\n", err)
			os.Exit(2)
		}
		body = b
	}

	mac := hmac.New(sha256.New, []byte(*secret))
	_, _ = mac.Write(body)
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequest(http.MethodPost, *url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "new request: %v\n", err)
		os.Exit(2)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Topic", *topic)
	req.Header.Set("X-Shopify-Shop-Domain", *shop)
	req.Header.Set("X-Shopify-Hmac-Sha256", sig)
	req.Header.Set("X-Shopify-Webhook-Id", *webhookID)

	c := &http.Client{Timeout: 10 * time.Second}
	resp, err := c.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "post: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("status=%d\n%s\n", resp.StatusCode, string(respBody))
}
