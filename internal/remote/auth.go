package remote

import (
	"context"
	"net/http"

	"goaltracker/internal/models"
)

// Session is what the server returns after a successful login.
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login exchanges credentials for a bearer token and keeps it on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &s); err != nil {
		return nil, err
	}
	c.SetToken(s.Token)
	return &s, nil
}

// Register creates an account and keeps the returned token on the client.
func (c *Client) Register(ctx context.Context, username, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"username": username, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &s); err != nil {
		return nil, err
	}
	c.SetToken(s.Token)
	return &s, nil
}
