package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/teams-notify/internal/models"
	"github.com/xaenox/teams-notify/pkg/config"
	"go.uber.org/zap"
)

// AuthError reports a failed token exchange. StatusCode is zero for
// transport-level failures.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token exchange failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("token exchange failed: %s", e.Message)
}

// Manager owns the credential lifecycle. It exchanges a refresh token for
// an access token on demand and keeps the resulting token set. It never
// refreshes proactively; staleness is discovered by callers through 401
// responses and resolved with ForceRefresh.
type Manager struct {
	cfg    config.AuthConfig
	client *http.Client
	logger *zap.Logger
	token  *models.TokenSet
}

func New(cfg config.AuthConfig, logger *zap.Logger) *Manager {
	return &Manager{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		logger: logger,
	}
}

// EnsureToken returns the current token set, performing an exchange first
// if none has been obtained yet.
func (m *Manager) EnsureToken(ctx context.Context) (*models.TokenSet, error) {
	if m.token != nil {
		return m.token, nil
	}
	return m.ForceRefresh(ctx)
}

// ForceRefresh unconditionally performs a new token exchange and replaces
// the stored token set. The refresh token from the previous exchange is
// preferred over the configured bootstrap one; if the endpoint returns no
// new refresh token, the prior one is carried forward.
func (m *Manager) ForceRefresh(ctx context.Context) (*models.TokenSet, error) {
	refreshToken := m.cfg.RefreshToken
	if m.token != nil && m.token.RefreshToken != "" {
		refreshToken = m.token.RefreshToken
	}

	requestID := uuid.New().String()
	endpoint := fmt.Sprintf("%s/common/oauth2/v2.0/token?client-request-id=%s",
		strings.TrimSuffix(m.cfg.TokenEndpoint, "/"), requestID)

	form := url.Values{}
	form.Set("client_id", m.cfg.ClientID)
	form.Set("redirect_uri", m.cfg.RedirectURI)
	form.Set("scope", m.cfg.Scope)
	form.Set("grant_type", m.cfg.GrantType)
	form.Set("client_info", m.cfg.ClientInfo)
	form.Set("x-client-SKU", m.cfg.ClientSKU)
	form.Set("x-client-VER", m.cfg.ClientVersion)
	form.Set("x-ms-lib-capability", m.cfg.LibCapability)
	form.Set("x-client-current-telemetry", m.cfg.CurrentTelemetry)
	form.Set("x-client-last-telemetry", m.cfg.LastTelemetry)
	form.Set("refresh_token", refreshToken)
	form.Set("claims", m.cfg.Claims)
	form.Set("X-AnchorMailbox", m.cfg.AnchorMailbox)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &AuthError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if m.cfg.Origin != "" {
		req.Header.Set("Origin", m.cfg.Origin)
	}

	m.logger.Debug("Refreshing access token",
		zap.String("endpoint", m.cfg.TokenEndpoint),
		zap.String("client_request_id", requestID))

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, &AuthError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var token models.TokenSet
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("unparseable token response: %v", err)}
	}
	if token.AccessToken == "" {
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: "token response contains no access token"}
	}

	// Some identity providers omit the refresh token when it is still
	// valid; keep using the one we have.
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}

	m.token = &token
	m.logger.Info("Access token refreshed",
		zap.Int("expires_in", token.ExpiresIn),
		zap.String("token_type", token.TokenType))

	return m.token, nil
}

// Token returns the current access token, or an empty string if no
// exchange has succeeded yet.
func (m *Manager) Token() string {
	if m.token == nil {
		return ""
	}
	return m.token.AccessToken
}
