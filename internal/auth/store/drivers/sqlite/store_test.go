package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/chambers/internal/auth/domain"
	"github.com/aussiebroadwan/chambers/internal/auth/store"
	"github.com/aussiebroadwan/chambers/internal/auth/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedUser(t *testing.T, s store.Store, id, email string, role domain.Role) domain.User {
	t.Helper()
	u := domain.User{
		ID:           id,
		Email:        email,
		FullName:     "Test " + id,
		PasswordHash: "$2a$04$hash",
		Role:         role,
		Active:       true,
		CreatedAt:    t0,
		UpdatedAt:    t0,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func newInvite(hash, email, createdBy string, expires time.Time) domain.Invite {
	return domain.Invite{
		TokenHash: hash,
		Email:     email,
		Role:      domain.RoleClient,
		Status:    domain.InviteStatusPending,
		CreatedBy: createdBy,
		CreatedAt: t0,
		ExpiresAt: &expires,
	}
}

func TestDSN(t *testing.T) {
	require.Contains(t, sqlite.DSN(":memory:"), "file::memory:?")
	require.Contains(t, sqlite.DSN("/data/auth.db"), "file:/data/auth.db?")
	require.Contains(t, sqlite.DSN("/data/auth.db"), "journal_mode(WAL)")
	require.Contains(t, sqlite.DSN("file:x.db?mode=rwc"), "mode=rwc&_pragma=foreign_keys(1)")
}

func TestMigrationsIdempotent(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	empty, err := s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	admin := seedUser(t, s, "u-admin", "admin@example.com", domain.RoleAdmin)

	got, err := s.Users().GetUserByID(ctx, admin.ID)
	require.NoError(t, err)
	require.Equal(t, admin, got)

	got, err = s.Users().GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	require.Equal(t, admin.ID, got.ID)

	_, err = s.Users().GetUserByEmail(ctx, "ADMIN@example.com")
	require.ErrorIs(t, err, store.ErrNotFound, "emails match exactly")

	_, err = s.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	dup := admin
	dup.ID = "u-other"
	require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)

	later := t0.Add(time.Hour)
	require.NoError(t, s.Users().UpdatePasswordHash(ctx, admin.ID, "$2a$12$new", later))
	got, err = s.Users().GetUserByID(ctx, admin.ID)
	require.NoError(t, err)
	require.Equal(t, "$2a$12$new", got.PasswordHash)
	require.Equal(t, later, got.UpdatedAt)

	require.ErrorIs(t, s.Users().UpdatePasswordHash(ctx, "missing", "x", later), store.ErrNotFound)

	empty, err = s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)
}

func TestInviteCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	admin := seedUser(t, s, "u-admin", "admin@example.com", domain.RoleAdmin)

	exp := t0.Add(domain.InviteTTL)
	id, err := s.Invites().CreateInvite(ctx, newInvite("h1", "c@example.com", admin.ID, exp))
	require.NoError(t, err)
	require.Positive(t, id)

	inv, err := s.Invites().GetInviteByTokenHash(ctx, "h1")
	require.NoError(t, err)
	require.Equal(t, id, inv.ID)
	require.Equal(t, domain.InviteStatusPending, inv.Status)
	require.Equal(t, domain.RoleClient, inv.Role)
	require.Equal(t, admin.ID, inv.CreatedBy)
	require.Nil(t, inv.UserID)
	require.NotNil(t, inv.ExpiresAt)
	require.Equal(t, exp, *inv.ExpiresAt)

	byID, err := s.Invites().GetInviteByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, inv, byID)

	_, err = s.Invites().GetInviteByTokenHash(ctx, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestInviteOnePendingPerEmail(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	admin := seedUser(t, s, "u-admin", "admin@example.com", domain.RoleAdmin)
	exp := t0.Add(domain.InviteTTL)

	id, err := s.Invites().CreateInvite(ctx, newInvite("h1", "c@example.com", admin.ID, exp))
	require.NoError(t, err)

	_, err = s.Invites().CreateInvite(ctx, newInvite("h2", "c@example.com", admin.ID, exp))
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = s.Invites().CreateInvite(ctx, newInvite("h1", "other@example.com", admin.ID, exp))
	require.ErrorIs(t, err, store.ErrAlreadyExists, "token fingerprints are unique")

	// Once the first leaves pending a new invite for the address is allowed.
	require.NoError(t, s.Invites().TransitionInvite(ctx, store.InviteTransition{
		ID: id, From: domain.InviteStatusPending, To: domain.InviteStatusRejected, At: t0,
	}))
	_, err = s.Invites().CreateInvite(ctx, newInvite("h3", "c@example.com", admin.ID, exp))
	require.NoError(t, err)
}

func TestTransitionInvite(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	admin := seedUser(t, s, "u-admin", "admin@example.com", domain.RoleAdmin)

	id, err := s.Invites().CreateInvite(ctx, newInvite("h1", "c@example.com", admin.ID, t0.Add(domain.InviteTTL)))
	require.NoError(t, err)

	userID := "u-client"
	err = s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Invites().TransitionInvite(ctx, store.InviteTransition{
			ID: id, From: domain.InviteStatusPending, To: domain.InviteStatusAccepted, UserID: &userID, At: t0,
		}); err != nil {
			return err
		}
		// The user row may follow the invite update inside the same transaction.
		return tx.Users().CreateUser(ctx, domain.User{
			ID: userID, Email: "c@example.com", FullName: "C", PasswordHash: "x",
			Role: domain.RoleClient, Active: true, CreatedAt: t0, UpdatedAt: t0,
		})
	})
	require.NoError(t, err)

	inv, err := s.Invites().GetInviteByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.InviteStatusAccepted, inv.Status)
	require.NotNil(t, inv.UserID)
	require.Equal(t, userID, *inv.UserID)

	err = s.Invites().TransitionInvite(ctx, store.InviteTransition{
		ID: id, From: domain.InviteStatusPending, To: domain.InviteStatusRejected, At: t0,
	})
	require.ErrorIs(t, err, store.ErrConflict)

	err = s.Invites().TransitionInvite(ctx, store.InviteTransition{
		ID: 999, From: domain.InviteStatusPending, To: domain.InviteStatusRejected, At: t0,
	})
	require.ErrorIs(t, err, store.ErrNotFound)

	err = s.Invites().TransitionInvite(ctx, store.InviteTransition{
		ID: id, From: domain.InviteStatusAccepted, To: domain.InviteStatusPending, At: t0,
	})
	require.ErrorIs(t, err, store.ErrConflict, "terminal states never move")
}

func TestRejectExpiredPendingInvites(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	admin := seedUser(t, s, "u-admin", "admin@example.com", domain.RoleAdmin)

	_, err := s.Invites().CreateInvite(ctx, newInvite("h1", "old@example.com", admin.ID, t0.Add(time.Hour)))
	require.NoError(t, err)
	_, err = s.Invites().CreateInvite(ctx, newInvite("h2", "other@example.com", admin.ID, t0.Add(time.Hour)))
	require.NoError(t, err)
	_, err = s.Invites().CreateInvite(ctx, newInvite("h3", "fresh@example.com", admin.ID, t0.Add(48*time.Hour)))
	require.NoError(t, err)

	now := t0.Add(2 * time.Hour)

	n, err := s.Invites().RejectExpiredPendingInvites(ctx, "", t0.Add(time.Hour), now)
	require.NoError(t, err)
	require.Zero(t, n, "expiry at the cutoff is not before it")

	n, err = s.Invites().RejectExpiredPendingInvites(ctx, "old@example.com", now, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = s.Invites().RejectExpiredPendingInvites(ctx, "", now, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n, "only other@ remains expired")

	pending, err := s.Invites().ListPendingInvites(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "fresh@example.com", pending[0].Email)

	n, err = s.Invites().RejectPendingInvitesForEmail(ctx, "fresh@example.com", now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	pending, err = s.Invites().ListPendingInvites(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Users().CreateUser(ctx, domain.User{
			ID: "u1", Email: "a@example.com", FullName: "A", PasswordHash: "x",
			Role: domain.RoleAdmin, Active: true, CreatedAt: t0, UpdatedAt: t0,
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	empty, err := s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)
}

func TestNestedTxRefused(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Tx(ctx)
		require.ErrorIs(t, err, store.ErrNestedTx)
		return tx.WithTx(ctx, func(store.Tx) error { return nil })
	})
	require.ErrorIs(t, err, store.ErrNestedTx)
}
