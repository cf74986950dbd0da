package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/chambers/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict reports a conditional update whose precondition no longer
	// holds (the row exists but is not in the expected state).
	ErrConflict = errors.New("store: conflict")

	// ErrNestedTx is returned by Tx and WithTx on a store that is already a
	// transaction.
	ErrNestedTx = errors.New("store: nested transaction")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and so a Tx can hand out the same repositories bound to the
// transaction without allowing transactions within transactions.
type Store interface {
	Users() Users
	Invites() Invites

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. Inside fn only
	// the tx may be used.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during login and invite creation. Emails match
	// exactly as stored.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user. ErrAlreadyExists when the id or email is
	// taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash replaces the stored hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID, newHash string, at time.Time) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

// InviteTransition describes a conditional status change on one invite.
type InviteTransition struct {
	ID     int64
	From   domain.InviteStatus
	To     domain.InviteStatus
	UserID *string
	At     time.Time
}

type Invites interface {
	// CreateInvite inserts a new invite and returns its store-assigned id.
	// ErrAlreadyExists when the email already has a pending invite or the
	// token fingerprint collides.
	CreateInvite(ctx context.Context, inv domain.Invite) (int64, error)

	// GetInviteByTokenHash looks an invite up by token fingerprint in any status.
	GetInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error)

	// GetInviteByID looks an invite up by id in any status.
	GetInviteByID(ctx context.Context, id int64) (domain.Invite, error)

	// ListPendingInvites returns pending invites, newest first.
	ListPendingInvites(ctx context.Context) ([]domain.Invite, error)

	// TransitionInvite applies t only if the invite is currently in t.From.
	// ErrNotFound when no invite has t.ID, ErrConflict when its status differs.
	TransitionInvite(ctx context.Context, t InviteTransition) error

	// RejectExpiredPendingInvites marks pending invites whose expiry is before
	// expiredBefore as rejected at at. An empty email applies to every address.
	// Returns the number of invites changed.
	RejectExpiredPendingInvites(ctx context.Context, email string, expiredBefore, at time.Time) (int64, error)

	// RejectPendingInvitesForEmail marks every pending invite for email as
	// rejected regardless of expiry.
	RejectPendingInvitesForEmail(ctx context.Context, email string, at time.Time) (int64, error)
}
