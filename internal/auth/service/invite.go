package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/chambers/internal/auth/domain"
	"github.com/aussiebroadwan/chambers/internal/auth/store"
	"github.com/aussiebroadwan/chambers/pkg/cryptox"
	"github.com/aussiebroadwan/chambers/pkg/slogx"
	"github.com/google/uuid"
)

type InviteService struct {
	Store  store.Store
	Hasher *cryptox.PasswordHasher

	// TTL defaults to domain.InviteTTL.
	TTL time.Duration

	Now Clock
}

// AcceptInvite carries what an invitee submits to claim an invite.
type AcceptInvite struct {
	Token    string
	Email    string // optional; must match the invite when set
	FullName string
	Password string
}

// Create issues a single-use invite for email. Only ADMIN identities may
// create invites and only for invitable roles.
func (s *InviteService) Create(
	ctx context.Context,
	email string,
	role domain.Role,
	createdBy domain.User,
) (domain.Invite, error) {
	log := slogx.FromContext(ctx)

	// 1. Caller and role
	if _, err := Authorize(createdBy, domain.RoleAdmin); err != nil {
		return domain.Invite{}, err
	}
	if !role.Invitable() {
		log.Warn("invite requested for non-invitable role", slog.String("role", string(role)))
		return domain.Invite{}, ErrInvalidRole
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.Invite{}, ErrInvalidRequest
	}

	// 2. Token; only its fingerprint is stored
	token, fingerprint, err := cryptox.NewOpaqueToken()
	if err != nil {
		return domain.Invite{}, fmt.Errorf("generate invite token: %w", err)
	}

	now := s.Now.now()
	ttl := s.TTL
	if ttl <= 0 {
		ttl = domain.InviteTTL
	}
	expiresAt := now.Add(ttl)

	invite := domain.Invite{
		Token:     token,
		TokenHash: fingerprint,
		Email:     email,
		Role:      role,
		Status:    domain.InviteStatusPending,
		CreatedBy: createdBy.ID,
		CreatedAt: now,
		ExpiresAt: &expiresAt,
	}

	// 3. Registration check, stale invite cleanup and insert in one transaction.
	// The pending-per-email index decides duplicates, not a prior read.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Users().GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			return ErrAlreadyRegistered
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("lookup user by email: %w", err)
		}

		n, err := tx.Invites().RejectExpiredPendingInvites(ctx, email, now, now)
		if err != nil {
			return fmt.Errorf("reject expired invites: %w", err)
		}
		if n > 0 {
			log.Info("expired pending invite superseded", slog.Int64("count", n))
		}

		id, err := tx.Invites().CreateInvite(ctx, invite)
		if err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrDuplicatePending
			}
			return fmt.Errorf("create invite: %w", err)
		}
		invite.ID = id
		return nil
	})
	if err != nil {
		if IsAuthError(err) {
			log.Info("invite not created", slog.Any("reason", err))
		}
		return domain.Invite{}, err
	}

	log.Info("invite created",
		slog.Int64("invite_id", invite.ID),
		slogx.Email("email", email),
		slog.String("role", role.String()),
		slog.String("created_by", createdBy.ID),
		slog.Time("expires_at", expiresAt),
	)

	return invite, nil
}

// Verify reports whether token names a usable invite. It never changes state.
func (s *InviteService) Verify(ctx context.Context, token string) (domain.Invite, error) {
	if token == "" {
		return domain.Invite{}, ErrNotFound
	}
	return s.check(ctx, s.Store, token, s.Now.now())
}

// check applies the verification rules in order: existence, status, expiry.
func (s *InviteService) check(ctx context.Context, st store.Store, token string, now time.Time) (domain.Invite, error) {
	inv, err := st.Invites().GetInviteByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invite{}, ErrNotFound
		}
		return domain.Invite{}, fmt.Errorf("lookup invite: %w", err)
	}

	if inv.Status != domain.InviteStatusPending {
		return domain.Invite{}, ErrNoLongerValid
	}
	if inv.Expired(now) {
		return domain.Invite{}, ErrExpired
	}

	inv.Token = token
	return inv, nil
}

// Accept claims the invite and creates the invitee's identity with the
// invite's email and role. Exactly one of any concurrent acceptances wins.
func (s *InviteService) Accept(ctx context.Context, req AcceptInvite) (domain.User, error) {
	log := slogx.FromContext(ctx)

	fullName := strings.TrimSpace(req.FullName)
	if req.Token == "" || req.Password == "" || fullName == "" {
		return domain.User{}, ErrInvalidRequest
	}

	// Cheap pre-check so bad tokens don't pay for a bcrypt hash.
	inv, err := s.Verify(ctx, req.Token)
	if err != nil {
		return domain.User{}, err
	}
	if req.Email != "" && strings.TrimSpace(req.Email) != inv.Email {
		log.Warn("invite accepted with mismatched email", slog.Int64("invite_id", inv.ID))
		return domain.User{}, ErrInvalidRequest
	}

	hash, err := s.Hasher.Hash([]byte(req.Password))
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.Now.now()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        inv.Email,
		FullName:     fullName,
		PasswordHash: hash,
		Role:         inv.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// Re-check inside the transaction; state may have moved since.
		inv, err := s.check(ctx, tx, req.Token, now)
		if err != nil {
			return err
		}

		err = tx.Invites().TransitionInvite(ctx, store.InviteTransition{
			ID:     inv.ID,
			From:   domain.InviteStatusPending,
			To:     domain.InviteStatusAccepted,
			UserID: &user.ID,
			At:     now,
		})
		if err != nil {
			if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) {
				return ErrNoLongerValid
			}
			return fmt.Errorf("accept invite: %w", err)
		}

		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrAlreadyRegistered
			}
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}

	log.Info("user registered via invite",
		slog.String("user_id", user.ID),
		slog.Int64("invite_id", inv.ID),
		slog.String("role", user.Role.String()),
	)

	return user, nil
}

// Reject withdraws a pending invite. Admin only.
func (s *InviteService) Reject(ctx context.Context, inviteID int64, admin domain.User) (domain.Invite, error) {
	if _, err := Authorize(admin, domain.RoleAdmin); err != nil {
		return domain.Invite{}, err
	}

	now := s.Now.now()
	var inv domain.Invite
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		err := tx.Invites().TransitionInvite(ctx, store.InviteTransition{
			ID:   inviteID,
			From: domain.InviteStatusPending,
			To:   domain.InviteStatusRejected,
			At:   now,
		})
		switch {
		case errors.Is(err, store.ErrNotFound):
			return ErrNotFound
		case errors.Is(err, store.ErrConflict):
			return ErrNoLongerValid
		case err != nil:
			return fmt.Errorf("reject invite: %w", err)
		}

		inv, err = tx.Invites().GetInviteByID(ctx, inviteID)
		return err
	})
	if err != nil {
		return domain.Invite{}, err
	}

	slogx.FromContext(ctx).Info("invite rejected",
		slog.Int64("invite_id", inviteID),
		slog.String("rejected_by", admin.ID),
	)
	return inv, nil
}

// ListPending returns every pending invite, newest first. Admin only.
func (s *InviteService) ListPending(ctx context.Context, admin domain.User) ([]domain.Invite, error) {
	if _, err := Authorize(admin, domain.RoleAdmin); err != nil {
		return nil, err
	}

	invites, err := s.Store.Invites().ListPendingInvites(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	return invites, nil
}
