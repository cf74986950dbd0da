package domain

import (
	"errors"
	"time"
)

// InviteTTL is how long a freshly created invite stays usable.
const InviteTTL = 7 * 24 * time.Hour

type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusRejected InviteStatus = "rejected"
)

var ErrUnknownInviteStatus = errors.New("domain: unknown invite status")

func ParseInviteStatus(s string) (InviteStatus, error) {
	switch InviteStatus(s) {
	case InviteStatusPending, InviteStatusAccepted, InviteStatusRejected:
		return InviteStatus(s), nil
	default:
		return "", ErrUnknownInviteStatus
	}
}

// CanTransitionTo reports whether moving from s to next is allowed. Only
// pending invites move, and both accepted and rejected are terminal.
func (s InviteStatus) CanTransitionTo(next InviteStatus) bool {
	return s == InviteStatusPending &&
		(next == InviteStatusAccepted || next == InviteStatusRejected)
}

func (s InviteStatus) String() string { return string(s) }

// Invite is a time-limited offer for one email address to register under a
// non-admin role. Invites are never deleted.
type Invite struct {
	ID        int64
	Token     string // raw token, only set when the caller holds it
	TokenHash string // SHA-256 fingerprint, the persisted lookup key
	Email     string
	Role      Role
	Status    InviteStatus
	UserID    *string // set once accepted
	CreatedBy string  // admin user ID
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Expired reports whether the invite has an expiry that is already in the past.
func (i Invite) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}

// Usable reports whether the invite can still be presented for sign-up.
func (i Invite) Usable(now time.Time) bool {
	return i.Status == InviteStatusPending && !i.Expired(now)
}
