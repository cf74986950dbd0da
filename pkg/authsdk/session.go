package authsdk

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ErrSessionExpired is returned before sending a request whose token is
// already past its expiry. Sessions cannot be refreshed; log in again.
var ErrSessionExpired = errors.New("authsdk: session token expired")

// Session is an authenticated session. It is safe for concurrent use.
type Session struct {
	client *SDKClient

	mu          sync.RWMutex
	accessToken string
	expiresAt   time.Time
	user        UserResponse
}

func newSession(client *SDKClient, resp LoginResponse) *Session {
	return &Session{
		client:      client,
		accessToken: resp.AccessToken,
		expiresAt:   resp.ExpiresAt,
		user:        resp.User,
	}
}

// NewSessionFromToken wraps a token obtained elsewhere. A zero expiresAt
// leaves expiry checks to the server.
func (c *SDKClient) NewSessionFromToken(accessToken string, expiresAt time.Time) *Session {
	return &Session{client: c, accessToken: accessToken, expiresAt: expiresAt}
}

// AccessToken returns the bearer token.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// ExpiresAt returns when the token stops being accepted.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// User returns the identity reported at login (or by the last Me call).
func (s *Session) User() UserResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.expiresAt.IsZero() && !time.Now().Before(s.expiresAt) {
		return "", ErrSessionExpired
	}
	return s.accessToken, nil
}

func (s *Session) do(ctx context.Context, method, path string, payload, target any, expectedStatus int) error {
	tok, err := s.token()
	if err != nil {
		return err
	}

	resp, err := s.client.doRequest(ctx, method, path, payload, tok, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, target, expectedStatus)
}

// Me returns the caller's identity.
func (s *Session) Me(ctx context.Context) (*UserResponse, error) {
	var out UserResponse
	if err := s.do(ctx, http.MethodGet, "/api/auth/me", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.user = out
	s.mu.Unlock()
	return &out, nil
}

// SendInvite creates an invite. Admin only.
func (s *Session) SendInvite(ctx context.Context, req InviteRequest) (*InviteResponse, error) {
	if err := s.client.check(req.Validate()); err != nil {
		return nil, err
	}

	var out InviteResponse
	if err := s.do(ctx, http.MethodPost, "/api/invites/send-invite", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListInvites returns pending invites, newest first. Admin only.
func (s *Session) ListInvites(ctx context.Context) ([]InviteResponse, error) {
	var out InviteListResponse
	if err := s.do(ctx, http.MethodGet, "/api/invites", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Invites, nil
}

// RejectInvite withdraws a pending invite. Admin only.
func (s *Session) RejectInvite(ctx context.Context, inviteID int64) (*InviteResponse, error) {
	var out InviteResponse
	path := "/api/invites/" + strconv.FormatInt(inviteID, 10) + "/reject"
	if err := s.do(ctx, http.MethodPost, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClientHome calls the CLIENT-only home endpoint.
func (s *Session) ClientHome(ctx context.Context) (*UserResponse, error) {
	var out UserResponse
	if err := s.do(ctx, http.MethodGet, "/api/client-home", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// FeeEarnerHome calls the FEE_EARNER-only home endpoint.
func (s *Session) FeeEarnerHome(ctx context.Context) (*UserResponse, error) {
	var out UserResponse
	if err := s.do(ctx, http.MethodGet, "/api/fee-earner-home", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
