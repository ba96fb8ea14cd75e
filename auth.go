package cloudprint

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// RefreshToken exchanges the refresh token for a new access token and stores
// it along with its expiry. Failures are returned as is and never retried.
func (c *Client) RefreshToken(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	return c.refreshLocked(ctx)
}

// refreshLocked performs the token exchange. Caller must hold c.refreshMu.
func (c *Client) refreshLocked(ctx context.Context) error {
	c.mu.RLock()
	refreshToken := c.refreshToken
	c.mu.RUnlock()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return fmt.Errorf("refreshing access token: %w", err)
	}

	c.mu.Lock()
	c.accessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		c.refreshToken = tok.RefreshToken
	}
	c.tokenExpiry = tok.Expiry
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "access token refreshed", "expires_at", tok.Expiry)
	return nil
}

// refreshIfCurrent refreshes unless the rejected token has already been
// replaced by a concurrent refresh.
func (c *Client) refreshIfCurrent(ctx context.Context, rejected string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if c.AccessToken() != rejected {
		c.logger.DebugContext(ctx, "access token already refreshed by another call")
		return nil
	}
	return c.refreshLocked(ctx)
}

// withAuthRetry runs op with the current access token. If the API rejects
// the token with a 403, the token is refreshed and op runs exactly once more;
// the outcome of that second attempt is returned unchanged. The retried state
// lives in this call only.
func withAuthRetry[T any](ctx context.Context, c *Client, op func(ctx context.Context, token string) (T, error)) (T, error) {
	token := c.AccessToken()
	result, err := op(ctx, token)
	if err == nil || !errors.Is(err, ErrAuthorization) {
		return result, err
	}

	c.logger.DebugContext(ctx, "access token rejected, refreshing before retry")
	if err := c.refreshIfCurrent(ctx, token); err != nil {
		var zero T
		return zero, err
	}

	return op(ctx, c.AccessToken())
}
