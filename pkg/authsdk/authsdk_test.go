package authsdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRequestValidation(t *testing.T) {
	t.Parallel()

	t.Run("login", func(t *testing.T) {
		require.Nil(t, LoginRequest{Email: "a@x.com", Password: "pw"}.Validate())

		errs := LoginRequest{Email: "not-an-email"}.Validate()
		require.Equal(t, "must be a valid email address", errs["email"])
		require.Equal(t, "required", errs["password"])
	})

	t.Run("register", func(t *testing.T) {
		ok := RegisterRequest{InviteToken: "tok", FullName: "Bob", Password: "secret"}
		require.Nil(t, ok.Validate())

		errs := RegisterRequest{InviteToken: "tok", Email: "bad", FullName: "  ", Password: "123"}.Validate()
		require.Contains(t, errs, "email")
		require.Equal(t, "required", errs["full_name"])
		require.Equal(t, "too short (min 6)", errs["password"])
	})

	t.Run("invite role", func(t *testing.T) {
		require.Nil(t, InviteRequest{Email: "a@x.com", Role: "fee_earner"}.Validate())

		errs := InviteRequest{Email: "a@x.com", Role: "admin"}.Validate()
		require.Contains(t, errs["role"], "must be one of")
	})

	t.Run("bootstrap", func(t *testing.T) {
		errs := BootstrapRequest{Email: "root@x.com", FullName: "Root", Password: "short"}.Validate()
		require.Equal(t, "too short (min 8)", errs["password"])
	})
}

func TestAPIErrorIs(t *testing.T) {
	t.Parallel()

	got := &APIError{StatusCode: http.StatusForbidden, Code: ErrorCodeForbidden, Description: "custom"}
	require.ErrorIs(t, got, ErrForbidden)
	require.NotErrorIs(t, got, ErrInvalidToken)

	withFields := ErrInvalidRequest.WithFields(map[string]string{"email": "required"})
	require.ErrorIs(t, withFields, ErrInvalidRequest)
	require.Nil(t, ErrInvalidRequest.Fields, "copies do not mutate the shared value")
}

func TestAPIErrorWriteError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	ErrDuplicatePending.WriteError(rec)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, ErrorCodeDuplicatePending, body.Error)
}

func TestClientLoginAndSession(t *testing.T) {
	t.Parallel()

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	var sawToken atomic.Value

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password != "right" {
			ErrInvalidCredentials.WriteError(w)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(LoginResponse{
			AccessToken: "tok-123",
			TokenType:   "bearer",
			ExpiresAt:   expires,
			User:        UserResponse{ID: "u-1", Email: req.Email, Role: "client"},
		})
	})
	mux.HandleFunc("GET /api/client-home", func(w http.ResponseWriter, r *http.Request) {
		sawToken.Store(r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(UserResponse{ID: "u-1", Role: "client"})
	})
	mux.HandleFunc("GET /api/fee-earner-home", func(w http.ResponseWriter, r *http.Request) {
		ErrForbidden.WriteError(w)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	client := NewSDKClient(srv.URL + "/")

	_, err := client.Login(ctx, "a@x.com", "wrong")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := client.Login(ctx, "a@x.com", "right")
	require.NoError(t, err)
	require.Equal(t, "tok-123", session.AccessToken())
	require.Equal(t, expires, session.ExpiresAt())
	require.Equal(t, "u-1", session.User().ID)

	home, err := session.ClientHome(ctx)
	require.NoError(t, err)
	require.Equal(t, "client", home.Role)
	require.Equal(t, "Bearer tok-123", sawToken.Load())

	_, err = session.FeeEarnerHome(ctx)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestClientValidatesBeforeSending(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		ErrInvalidRequest.WriteError(w)
	}))
	t.Cleanup(srv.Close)

	client := NewSDKClient(srv.URL)
	_, err := client.Register(context.Background(), RegisterRequest{InviteToken: "tok"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	require.Zero(t, calls.Load())

	client.SkipValidation = true
	_, err = client.Register(context.Background(), RegisterRequest{InviteToken: "tok"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	require.EqualValues(t, 1, calls.Load())
}

func TestExpiredSessionShortCircuits(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	t.Cleanup(srv.Close)

	s := NewSDKClient(srv.URL).NewSessionFromToken("tok", time.Now().Add(-time.Minute))
	_, err := s.Me(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	require.Zero(t, calls.Load())
}

func TestNonJSONErrorBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := NewSDKClient(srv.URL).Health(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, ErrorCodeServerError, apiErr.Code)
}
