package payments

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// InitializeRequest asks the provider to open a checkout session.
type InitializeRequest struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"` // minor currency units
	Currency    string         `json:"currency"`
	Reference   string         `json:"reference"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// InitializeResponse carries the provider checkout handle.
type InitializeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Provider is the payment-provider client. It is constructed at startup
// and injected into whatever needs it; there is no package-level client.
type Provider interface {
	Initialize(ctx context.Context, req InitializeRequest) (InitializeResponse, error)
}

// PaystackClient talks to a Paystack-compatible transaction API.
type PaystackClient struct {
	baseURL string
	secret  string
	client  *http.Client
}

// PaystackOption configures the client.
type PaystackOption func(*PaystackClient)

// WithBaseURL overrides the API endpoint (tests point it at a local server).
func WithBaseURL(u string) PaystackOption {
	return func(c *PaystackClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) PaystackOption {
	return func(c *PaystackClient) {
		if h != nil {
			c.client = h
		}
	}
}

// NewPaystackClient constructs a provider client authenticated with the
// given secret key.
func NewPaystackClient(secret string, opts ...PaystackOption) *PaystackClient {
	c := &PaystackClient{
		baseURL: "https://api.paystack.co",
		secret:  secret,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *PaystackClient) Initialize(ctx context.Context, req InitializeRequest) (InitializeResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return InitializeResponse{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return InitializeResponse{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return InitializeResponse{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Status  bool               `json:"status"`
		Message string             `json:"message"`
		Data    InitializeResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return InitializeResponse{}, fmt.Errorf("%w: decode response: %v", ErrProvider, err)
	}
	if !payload.Status {
		return InitializeResponse{}, fmt.Errorf("%w: %s", ErrProvider, payload.Message)
	}
	return payload.Data, nil
}

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewReference builds a provider reference such as REG-1700000000-AB12CD.
func NewReference(prefix string, now time.Time) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand failure means the process is unusable
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return fmt.Sprintf("%s-%d-%s", prefix, now.Unix(), buf)
}
