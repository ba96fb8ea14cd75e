package cloudprint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	retry "github.com/appleboy/go-httpretry"
	"golang.org/x/oauth2"
)

const (
	defaultBaseURL      = "https://www.google.com/cloudprint"
	defaultAuthURL      = "https://www.googleapis.com"
	defaultOAuthVersion = "v3"
	defaultProxyName    = "node-gcp"
	tokenEndpoint       = "/oauth2/%s/token"
	searchEndpoint      = "/search"
	printerEndpoint     = "/printer"
	submitEndpoint      = "/submit"
)

// Config holds the credentials a Client is constructed with.
type Config struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
	RefreshToken string
	OAuthVersion string // defaults to "v3"
}

// Client represents a Google Cloud Print API client.
type Client struct {
	httpClient     *http.Client
	retryClient    *retry.Client
	transportRetry bool
	baseURL        string
	authURL        string
	proxyName      string
	logger         *slog.Logger
	oauth          *oauth2.Config

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	tokenExpiry  time.Time

	// refreshMu serialises token refreshes across concurrent calls.
	refreshMu sync.Mutex
}

// Option is a function that configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. A nil client keeps the default.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithBaseURL sets a custom base URL for the Cloud Print API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithAuthURL sets a custom host for the OAuth token endpoint.
func WithAuthURL(authURL string) Option {
	return func(c *Client) {
		c.authURL = strings.TrimSuffix(authURL, "/")
	}
}

// WithProxyName overrides the X-CloudPrint-Proxy header value.
func WithProxyName(name string) Option {
	return func(c *Client) {
		c.proxyName = name
	}
}

// WithLogger sets the logger used for token refresh diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTransportRetry retries API requests on network errors and transient
// server responses. Token refreshes are never retried.
func WithTransportRetry() Option {
	return func(c *Client) {
		c.transportRetry = true
	}
}

// New creates a new Cloud Print client. It performs no network activity.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.OAuthVersion == "" {
		cfg.OAuthVersion = defaultOAuthVersion
	}

	required := []struct {
		field string
		value string
	}{
		{"clientId", cfg.ClientID},
		{"clientSecret", cfg.ClientSecret},
		{"accessToken", cfg.AccessToken},
		{"refreshToken", cfg.RefreshToken},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, &ConfigError{Field: r.field}
		}
	}

	c := &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      defaultBaseURL,
		authURL:      defaultAuthURL,
		proxyName:    defaultProxyName,
		logger:       slog.New(slog.DiscardHandler),
		accessToken:  cfg.AccessToken,
		refreshToken: cfg.RefreshToken,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.oauth = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.authURL + fmt.Sprintf(tokenEndpoint, cfg.OAuthVersion),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	if c.transportRetry {
		rc, err := retry.NewClient(
			retry.WithHTTPClient(c.httpClient),
			retry.WithNoLogging(),
		)
		if err != nil {
			return nil, fmt.Errorf("creating retry client: %w", err)
		}
		c.retryClient = rc
	}

	return c, nil
}

// doRequest performs an authenticated POST against a Cloud Print endpoint.
// A nil form sends no body.
func (c *Client) doRequest(ctx context.Context, endpoint string, form url.Values, token string) (*http.Response, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("X-CloudPrint-Proxy", c.proxyName)
	req.Header.Set("Authorization", "OAuth "+token)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	var resp *http.Response
	if c.retryClient != nil {
		resp, err = c.retryClient.DoWithContext(ctx, req)
	} else {
		resp, err = c.httpClient.Do(req)
	}
	if err != nil {
		// Exhausted retries still carry the last response; parseResponse
		// turns it into an *APIError and closes the body.
		var retryErr *retry.RetryError
		if resp != nil && errors.As(err, &retryErr) {
			return resp, nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("executing request: %w", err)
	}

	return resp, nil
}

// parseResponse reads the API response and decodes it into v.
// Non-2xx responses become an *APIError.
func parseResponse(resp *http.Response, v any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("request failed with status %d: %w", resp.StatusCode, err)
		}
		return &APIError{StatusCode: resp.StatusCode, Body: body}
	}

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

// AccessToken returns the current access token.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// TokenExpiresAt returns when the current access token expires. It is the
// zero time until the first refresh.
func (c *Client) TokenExpiresAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokenExpiry
}

// Token returns a snapshot of the client's credentials, suitable for
// persisting between runs.
func (c *Client) Token() *oauth2.Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &oauth2.Token{
		AccessToken:  c.accessToken,
		TokenType:    "OAuth",
		RefreshToken: c.refreshToken,
		Expiry:       c.tokenExpiry,
	}
}
