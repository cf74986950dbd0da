package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aussiebroadwan/chambers/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingSweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	admin := e.createUser(t, "admin@x.com", domain.RoleAdmin)

	old, err := e.invites.Create(ctx, "old@x.com", domain.RoleClient, admin)
	require.NoError(t, err)
	e.clock.Advance(domain.InviteTTL - time.Hour)
	fresh, err := e.invites.Create(ctx, "fresh@x.com", domain.RoleClient, admin)
	require.NoError(t, err)
	e.clock.Advance(2 * time.Hour)

	hk := NewHousekeepingService(e.store, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour)
	hk.Now = e.clock.Now
	hk.Retention = 24 * time.Hour

	require.EqualValues(t, 0, hk.Sweep(ctx), "inside the retention window")
	_, err = e.invites.Verify(ctx, old.Token)
	require.ErrorIs(t, err, ErrExpired)

	e.clock.Advance(24 * time.Hour)
	require.EqualValues(t, 1, hk.Sweep(ctx))
	require.EqualValues(t, 0, hk.Sweep(ctx))

	got, err := e.store.Invites().GetInviteByID(ctx, old.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InviteStatusRejected, got.Status)
	_, err = e.invites.Verify(ctx, old.Token)
	require.ErrorIs(t, err, ErrNoLongerValid)

	_, err = e.invites.Verify(ctx, fresh.Token)
	require.NoError(t, err)
}

func TestHousekeepingDefaultRetention(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)
	admin := e.createUser(t, "admin@x.com", domain.RoleAdmin)

	inv, err := e.invites.Create(ctx, "late@x.com", domain.RoleClient, admin)
	require.NoError(t, err)

	hk := NewHousekeepingService(e.store, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour)
	hk.Now = e.clock.Now
	require.Equal(t, DefaultExpiredRetention, hk.Retention)

	e.clock.Advance(domain.InviteTTL + DefaultExpiredRetention)
	require.EqualValues(t, 0, hk.Sweep(ctx), "expiry exactly at the cutoff")
	_, err = e.invites.Verify(ctx, inv.Token)
	require.ErrorIs(t, err, ErrExpired)

	e.clock.Advance(time.Millisecond)
	require.EqualValues(t, 1, hk.Sweep(ctx))
}

func TestHousekeepingStartStop(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	hk := NewHousekeepingService(e.store, slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
	require.Equal(t, time.Hour, hk.Interval)

	hk.Start()
	hk.Stop()
}

func TestHousekeepingStopWithoutStart(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	hk := NewHousekeepingService(e.store, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Minute)
	hk.Stop()

	hk.Start()
	hk.Stop()
	hk.Stop()
}
