// Package billing talks to the subscription verification endpoint of the app
// store and interprets its payment states.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Payment states returned by the verification endpoint.
const (
	StatePending     = 0
	StateReceived    = 1
	StateGracePeriod = 2
)

// VerifyResult is the decoded verification response.
type VerifyResult struct {
	PaymentState int
	Expiry       time.Time
}

// Active reports whether the subscription is considered paid. Grace period
// counts as active: the subscriber has paid intent and revoking plan features
// mid-grace only creates churn.
func (r VerifyResult) Active() bool {
	return r.PaymentState == StateReceived || r.PaymentState == StateGracePeriod
}

// Verifier checks a purchase token against the app store.
type Verifier interface {
	Verify(ctx context.Context, packageName, subscriptionID, purchaseToken string) (VerifyResult, error)
}

// HTTPVerifier implements Verifier against the androidpublisher-style REST
// endpoint GET {base}/{packageName}/purchases/subscriptions/{subscriptionId}/tokens/{token}.
type HTTPVerifier struct {
	baseURL string
	client  *http.Client
}

// NewHTTPVerifier creates a verifier for the given base URL.
func NewHTTPVerifier(baseURL string, client *http.Client) *HTTPVerifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPVerifier{baseURL: baseURL, client: client}
}

// wireResponse mirrors the verification endpoint's JSON. expiryTimeMillis is
// serialized as a decimal string, not a number.
type wireResponse struct {
	PaymentState     int    `json:"paymentState"`
	ExpiryTimeMillis string `json:"expiryTimeMillis"`
}

// Verify implements Verifier.
func (v *HTTPVerifier) Verify(ctx context.Context, packageName, subscriptionID, purchaseToken string) (VerifyResult, error) {
	url := fmt.Sprintf("%s/%s/purchases/subscriptions/%s/tokens/%s",
		v.baseURL, packageName, subscriptionID, purchaseToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("build verification request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("verification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return VerifyResult{}, fmt.Errorf("verification endpoint returned %d", resp.StatusCode)
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return VerifyResult{}, fmt.Errorf("decode verification response: %w", err)
	}

	millis, err := strconv.ParseInt(wire.ExpiryTimeMillis, 10, 64)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("parse expiryTimeMillis %q: %w", wire.ExpiryTimeMillis, err)
	}

	return VerifyResult{
		PaymentState: wire.PaymentState,
		Expiry:       time.UnixMilli(millis).UTC(),
	}, nil
}
