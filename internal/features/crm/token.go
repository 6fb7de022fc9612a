package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go-ordersync/internal/config"

	"go.uber.org/zap"
)

// tokenSafetyMargin is subtracted from the declared token lifetime so a
// refresh happens before the CRM actually rejects the credential.
const tokenSafetyMargin = 300 * time.Second

// AuthError indicates the refresh-token exchange failed. Callers must not
// retry silently; the per-order boundary handles it.
type AuthError struct {
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token refresh failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

type TokenManager interface {
	// GetValidToken returns the cached access token, refreshing it first if
	// it has passed its safety-margin expiry
	GetValidToken(ctx context.Context) (string, error)
}

type TokenManagerImpl struct {
	accountsURL  string
	clientId     string
	clientSecret string
	refreshToken string
	client       *http.Client
	logger       *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
	now         func() time.Time
}

func NewTokenManager(cfg *config.Config, logger *zap.Logger) TokenManager {
	return &TokenManagerImpl{
		accountsURL:  cfg.ZohoAccountsURL,
		clientId:     cfg.ZohoClientId,
		clientSecret: cfg.ZohoClientSecret,
		refreshToken: cfg.ZohoRefreshToken,
		client:       &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
		now:          time.Now,
	}
}

func (m *TokenManagerImpl) GetValidToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.accessToken != "" && m.now().Before(m.tokenExpiry) {
		return m.accessToken, nil
	}

	m.logger.Info("Refreshing CRM access token...")

	params := url.Values{}
	params.Set("refresh_token", m.refreshToken)
	params.Set("client_id", m.clientId)
	params.Set("client_secret", m.clientSecret)
	params.Set("grant_type", "refresh_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.accountsURL+params.Encode(), nil)
	if err != nil {
		return "", &AuthError{Err: err}
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", &AuthError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", &AuthError{StatusCode: resp.StatusCode}
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", &AuthError{Err: err}
	}

	m.accessToken = token.AccessToken
	m.tokenExpiry = m.now().Add(time.Duration(token.ExpiresIn)*time.Second - tokenSafetyMargin)

	m.logger.Info("Access token refreshed successfully",
		zap.Time("expiry", m.tokenExpiry))

	return m.accessToken, nil
}
