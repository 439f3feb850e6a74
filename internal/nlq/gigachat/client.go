// Package gigachat implements the completion-service translator against
// the GigaChat API: OAuth token exchange followed by chat completions.
package gigachat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vidpulse/video-analytics-bot/internal/config"
	"github.com/vidpulse/video-analytics-bot/internal/nlq"
	"github.com/vidpulse/video-analytics-bot/internal/schema"
)

// tokenSlack is subtracted from the token expiry so a token is refreshed
// before it actually lapses mid-request.
const tokenSlack = 30 * time.Second

// Client is a client for the GigaChat completion API. It implements
// nlq.Translator. Safe for concurrent use.
type Client struct {
	authURL     string
	baseURL     string
	credentials string
	scope       string
	model       string
	temperature float64
	httpClient  *http.Client

	systemPrompt string

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// NewClient creates a GigaChat client. The schema descriptor is rendered
// into the system prompt once, at construction.
func NewClient(cfg *config.GigaChat, desc *schema.Descriptor) *Client {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport
	if cfg.Insecure {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // service cert chain is not in system stores
		}
	}

	return &Client{
		authURL:      cfg.AuthURL,
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		credentials:  cfg.Credentials,
		scope:        cfg.Scope,
		model:        cfg.Model,
		temperature:  cfg.Temperature,
		systemPrompt: nlq.SystemPrompt(desc),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"` // unix milliseconds
}

// Translate sends the question to the completion service and extracts a
// SQL statement from the reply.
func (c *Client) Translate(ctx context.Context, req nlq.Request) (string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return "", err
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt},
			{Role: "user", Content: nlq.UserPrompt(req)},
		},
		Temperature: c.temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", nlq.ErrTranslationUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// Token revoked server-side; drop the cache so the next attempt
		// re-authenticates.
		c.invalidateToken()
		return "", fmt.Errorf("%w: token rejected", nlq.ErrTranslationUnavailable)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: status %d", nlq.ErrTranslationUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("completion API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("parse completion response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", nlq.ErrNoQueryProduced
	}

	return nlq.ExtractSQL(chatResp.Choices[0].Message.Content)
}

// token returns a cached access token, exchanging credentials for a new
// one when the cache is empty or near expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.expiresAt.Add(-tokenSlack)) {
		return c.accessToken, nil
	}

	form := url.Values{"scope": {c.scope}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+c.credentials)
	req.Header.Set("RqUID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: auth: %v", nlq.ErrTranslationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: auth status %d: %s", nlq.ErrTranslationUnavailable, resp.StatusCode, string(respBody))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("parse auth response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: auth returned empty token", nlq.ErrTranslationUnavailable)
	}

	c.accessToken = tok.AccessToken
	c.expiresAt = time.UnixMilli(tok.ExpiresAt)
	return c.accessToken, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
}
