package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/chambers/internal/auth/domain"
	"github.com/aussiebroadwan/chambers/internal/auth/store"
	"github.com/aussiebroadwan/chambers/pkg/cryptox"
	"github.com/aussiebroadwan/chambers/pkg/slogx"
	"github.com/google/uuid"
)

type UserService struct {
	Store  store.Store
	Hasher *cryptox.PasswordHasher
	Tokens *TokenService
	Now    Clock
}

// LoginResult is a fresh session token plus the identity it speaks for.
type LoginResult struct {
	Token IssuedToken
	User  domain.User
}

// NewUser describes an identity created outside the invite flow.
type NewUser struct {
	Email    string
	FullName string
	Password string
	Role     domain.Role
}

// Login checks credentials and issues a session token. Unknown emails, wrong
// passwords and inactive identities are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Hasher.SimulateVerify([]byte(password))
			log.Info("login failed", slog.String("reason", "unknown email"), slogx.Email("email", email))
			return LoginResult{}, ErrUnauthenticated
		}
		return LoginResult{}, fmt.Errorf("lookup user by email: %w", err)
	}

	if !s.Hasher.Verify([]byte(password), user.PasswordHash) {
		log.Info("login failed", slog.String("reason", "bad password"), slog.String("user_id", user.ID))
		return LoginResult{}, ErrUnauthenticated
	}
	if !user.Active {
		log.Info("login failed", slog.String("reason", "inactive"), slog.String("user_id", user.ID))
		return LoginResult{}, ErrUnauthenticated
	}

	if s.Hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, password)
	}

	tok, err := s.Tokens.Issue(ctx, SessionSubject{
		Email:  user.Email,
		UserID: user.ID,
		Role:   user.Role,
	}, 0)
	if err != nil {
		return LoginResult{}, err
	}

	log.Info("login succeeded", slog.String("user_id", user.ID), slog.String("role", user.Role.String()))
	return LoginResult{Token: tok, User: user}, nil
}

// rehash upgrades a stored hash after a successful login. Failures are logged
// and otherwise ignored; the old hash still verifies.
func (s *UserService) rehash(ctx context.Context, user domain.User, password string) {
	log := slogx.FromContext(ctx)

	hash, err := s.Hasher.Hash([]byte(password))
	if err != nil {
		log.Error("failed to rehash password", slog.String("user_id", user.ID), slog.Any("error", err))
		return
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash, s.Now.now()); err != nil {
		log.Error("failed to store upgraded hash", slog.String("user_id", user.ID), slog.Any("error", err))
		return
	}
	log.Info("password hash upgraded", slog.String("user_id", user.ID))
}

// GetByID fetches an identity by id.
func (s *UserService) GetByID(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// CreateUser adds an identity directly, bypassing invites. Any pending invite
// for the same email is rejected in the same transaction.
func (s *UserService) CreateUser(ctx context.Context, req NewUser) (domain.User, error) {
	if !req.Role.Valid() {
		return domain.User{}, ErrInvalidRole
	}
	email := strings.TrimSpace(req.Email)
	fullName := strings.TrimSpace(req.FullName)
	if email == "" || fullName == "" || req.Password == "" {
		return domain.User{}, ErrInvalidRequest
	}

	hash, err := s.Hasher.Hash([]byte(req.Password))
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.Now.now()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		Role:         req.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return createIdentity(ctx, tx, user)
	})
	if err != nil {
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("user created",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role.String()),
	)
	return user, nil
}

// createIdentity inserts user and rejects any pending invite for its email.
// Must run inside a transaction.
func createIdentity(ctx context.Context, tx store.Tx, user domain.User) error {
	if err := tx.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return ErrAlreadyRegistered
		}
		return fmt.Errorf("create user: %w", err)
	}

	n, err := tx.Invites().RejectPendingInvitesForEmail(ctx, user.Email, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("reject pending invites: %w", err)
	}
	if n > 0 {
		slogx.FromContext(ctx).Info("pending invites superseded by direct registration",
			slog.String("user_id", user.ID),
			slog.Int64("count", n),
		)
	}
	return nil
}
