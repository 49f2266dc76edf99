package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repairshop-session/internal/config"
)

// Client talks to the identity provider over HTTP. It is stateless: tokens
// are supplied by the caller on every request.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a client from identity configuration.
func NewClient(cfg config.IdentityConfig, logger *zap.Logger) *Client {
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Login exchanges username/password for an actor and a token pair.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var result struct {
		Data LoginResult `json:"data"`
	}
	err := c.post(ctx, "/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// VerifyPIN submits a secondary-factor code for the current session.
// A rejected code is not an error: the result carries verified=false with
// the provider's message.
func (c *Client) VerifyPIN(ctx context.Context, accessToken, code string) (*VerifyResult, error) {
	var result struct {
		Data VerifyResult `json:"data"`
	}
	err := c.post(ctx, "/auth/pin/verify", accessToken, map[string]string{"code": code}, &result)
	if err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// Refresh exchanges the refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	var result struct {
		Data RefreshResult `json:"data"`
	}
	err := c.post(ctx, "/auth/refresh", "", map[string]string{"refresh_token": refreshToken}, &result)
	if err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// Logout asks the provider to revoke the session server-side. Best effort:
// callers proceed to a logged-out state even when this fails.
func (c *Client) Logout(ctx context.Context, accessToken, refreshToken string) error {
	return c.post(ctx, "/auth/logout", accessToken, map[string]string{"refresh_token": refreshToken}, nil)
}

// ListStores returns the stores the authenticated employee's center owns.
func (c *Client) ListStores(ctx context.Context, accessToken string) ([]StoreSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/stores", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var result struct {
		Data []StoreSummary `json:"data"`
	}
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (c *Client) post(ctx context.Context, path, accessToken string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("identity provider unreachable",
			zap.String("path", req.URL.Path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.Warn("identity provider throttled request",
			zap.String("path", req.URL.Path))
		return fmt.Errorf("%w: status %d", ErrThrottled, resp.StatusCode)
	case resp.StatusCode >= 500:
		c.logger.Warn("identity provider error",
			zap.String("path", req.URL.Path), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		// only 401/403 carry credential meaning; anything else here must
		// not trip the session engine's unauthorized recovery path
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}
