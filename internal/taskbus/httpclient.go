package taskbus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HTTPClient submits runs to the ops ledger API over HTTP. Service-to-service
// auth uses a short-lived HS256 bearer token minted per request.
type HTTPClient struct {
	baseURL     string
	serviceName string
	tokenSecret []byte
	tokenTTL    time.Duration
	httpClient  *http.Client
}

// NewHTTPClient constructs a ledger API client.
func NewHTTPClient(baseURL, serviceName, tokenSecret string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:     baseURL,
		serviceName: serviceName,
		tokenSecret: []byte(tokenSecret),
		tokenTTL:    2 * time.Minute,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Enqueue POSTs the run to the ledger's enqueue endpoint. The ledger answers
// 200 for an existing run and 201 for a newly created one; both decode to an
// EnqueueResult.
func (c *HTTPClient) Enqueue(ctx context.Context, req EnqueueRequest) (EnqueueResult, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("marshal request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/runs/enqueue", bytes.NewReader(bodyBytes))
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	token, err := c.serviceToken()
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("mint service token: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return EnqueueResult{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var errBody map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return EnqueueResult{}, fmt.Errorf("ledger response status %d: %s", resp.StatusCode, errBody["error"])
	}

	var result EnqueueResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return EnqueueResult{}, fmt.Errorf("decode response: %w", err)
	}

	return result, nil
}

// Close implements Client. The underlying http.Client needs no teardown.
func (c *HTTPClient) Close() error {
	return nil
}

func (c *HTTPClient) serviceToken() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   c.serviceName,
		Issuer:    "slack-agent",
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.tokenSecret)
}
