package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// Client is an HTTP implementation of Processor. Transport failures and
// 5xx responses are retried with fibonacci backoff; a response the
// processor actually produced (2xx, 4xx) is never retried.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type createIntentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

// CreateIntent registers an authorization request with the processor.
func (c *Client) CreateIntent(ctx context.Context, amount int64, metadata map[string]string) (*Intent, error) {
	endpoint := fmt.Sprintf("%s/v1/payment_intents", c.baseURL)
	body := createIntentRequest{Amount: amount, Currency: "usd", Metadata: metadata}

	var intent Intent
	if err := c.do(ctx, http.MethodPost, endpoint, body, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// RetrieveIntent fetches the current state of an intent.
func (c *Client) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	endpoint := fmt.Sprintf("%s/v1/payment_intents/%s", c.baseURL, id)

	var intent Intent
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(200*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.SetBasicAuth(c.secretKey, "")

		res, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("call processor: %w", err))
		}
		defer res.Body.Close()

		raw, err := io.ReadAll(res.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read processor response: %w", err))
		}

		if res.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("processor unavailable: %s (%d)", string(raw), res.StatusCode))
		}
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return fmt.Errorf("processor rejected request: %s (%d)", string(raw), res.StatusCode)
		}

		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("parse processor response: %w", err)
		}
		return nil
	})
}
