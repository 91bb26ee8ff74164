package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sufrahq/sufra-voice/domain/repositories"
)

const (
	defaultSessionsURL = "https://api.openai.com/v1/realtime/sessions"
	defaultModel       = "gpt-4o-realtime-preview"
	defaultVoice       = "alloy"
)

// IssuerConfig holds configuration for the ephemeral credential issuer.
// Required fields:
// - APIKey: the server-side realtime API key
// Optional fields with defaults:
// - SessionsURL: the sessions endpoint (default: the upstream API)
// - Model: realtime model requested for the session
// - Voice: voice identity requested for the session
type IssuerConfig struct {
	APIKey      string
	SessionsURL string
	Model       string
	Voice       string
}

// Issuer mints ephemeral realtime credentials by asking the upstream
// sessions endpoint for a client secret. The caller's bearer, if any, is
// only used for auditing; issuing works in guest mode too.
type Issuer struct {
	apiKey      string
	sessionsURL string
	model       string
	voice       string
	httpClient  *http.Client
	logger      *zap.Logger
}

var _ repositories.CredentialIssuer = (*Issuer)(nil)

// NewIssuer creates a credential issuer.
func NewIssuer(config IssuerConfig, logger *zap.Logger) (*Issuer, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("realtime API key is required")
	}
	if config.SessionsURL == "" {
		config.SessionsURL = defaultSessionsURL
	}
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.Voice == "" {
		config.Voice = defaultVoice
	}
	return &Issuer{
		apiKey:      config.APIKey,
		sessionsURL: config.SessionsURL,
		model:       config.Model,
		voice:       config.Voice,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		logger:      logger,
	}, nil
}

type sessionsRequest struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
}

type sessionsResponse struct {
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
}

// Issue requests a short-lived client secret from the sessions endpoint.
func (i *Issuer) Issue(ctx context.Context, bearer string) (repositories.EphemeralCredential, error) {
	if bearer == "" {
		i.logger.Debug("Issuing ephemeral credential in guest mode")
	}

	body, err := json.Marshal(sessionsRequest{Model: i.model, Voice: i.voice})
	if err != nil {
		return repositories.EphemeralCredential{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.sessionsURL, bytes.NewReader(body))
	if err != nil {
		return repositories.EphemeralCredential{}, err
	}
	req.Header.Set("Authorization", "Bearer "+i.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return repositories.EphemeralCredential{}, fmt.Errorf("credential request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		i.logger.Error("Credential issuer rejected request",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("detail", detail))
		return repositories.EphemeralCredential{}, fmt.Errorf("credential issuer returned status %d", resp.StatusCode)
	}

	var parsed sessionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return repositories.EphemeralCredential{}, fmt.Errorf("failed to parse credential response: %w", err)
	}
	if parsed.ClientSecret.Value == "" {
		return repositories.EphemeralCredential{}, fmt.Errorf("credential response carried no client secret")
	}

	return repositories.EphemeralCredential{
		Secret:    parsed.ClientSecret.Value,
		ExpiresAt: time.Unix(parsed.ClientSecret.ExpiresAt, 0),
	}, nil
}
