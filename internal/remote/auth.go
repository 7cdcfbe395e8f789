package remote

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Session is the result of a successful sign-up or sign-in.
type Session struct {
	UserID      string
	Email       string
	AccessToken string
}

type authCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// SignUp registers a new email/password account.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	return c.authRequest(ctx, "/auth/v1/signup", email, password)
}

// SignIn authenticates an existing email/password account.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return c.authRequest(ctx, "/auth/v1/token?grant_type=password", email, password)
}

func (c *Client) authRequest(ctx context.Context, path, email, password string) (*Session, error) {
	var out authResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(authCredentials{Email: email, Password: password}).
		SetResult(&out).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("auth request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("authentication failed: status %d: %s", resp.StatusCode(), resp.String())
	}
	if out.User.ID == "" {
		return nil, fmt.Errorf("authentication response missing user id")
	}

	c.logger.Info("authenticated",
		zap.String("user_id", out.User.ID),
		zap.String("email", out.User.Email),
	)

	return &Session{
		UserID:      out.User.ID,
		Email:       out.User.Email,
		AccessToken: out.AccessToken,
	}, nil
}
