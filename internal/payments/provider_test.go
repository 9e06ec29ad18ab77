package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPaystackClientInitialize(t *testing.T) {
	var got InitializeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/initialize" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk_test_123" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]string{
				"authorization_url": "https://checkout.paystack.com/abc",
				"access_code":       "abc",
				"reference":         got.Reference,
			},
		})
	}))
	defer srv.Close()

	client := NewPaystackClient("sk_test_123", WithBaseURL(srv.URL))
	resp, err := client.Initialize(context.Background(), InitializeRequest{
		Email:     "s@example.edu",
		Amount:    500000,
		Currency:  "NGN",
		Reference: "REG-1700000000-AB12CD",
		Metadata:  map[string]any{"purpose": "registration"},
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if resp.AuthorizationURL == "" || resp.Reference != "REG-1700000000-AB12CD" {
		t.Fatalf("response = %+v", resp)
	}
	if got.Amount != 500000 {
		t.Fatalf("provider received amount %d", got.Amount)
	}
}

func TestPaystackClientRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  false,
			"message": "Invalid amount",
		})
	}))
	defer srv.Close()

	client := NewPaystackClient("sk_test_123", WithBaseURL(srv.URL))
	_, err := client.Initialize(context.Background(), InitializeRequest{
		Email: "s@example.edu", Amount: -1, Reference: "x",
	})
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("err = %v, want ErrProvider", err)
	}
}
