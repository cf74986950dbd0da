package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/chambers/internal/auth/domain"
	"github.com/aussiebroadwan/chambers/internal/auth/store"
	"github.com/jackc/pgx/v5"
)

type invitesRepo struct {
	q querier
}

const inviteColumns = `id, token_hash, email, role, status, user_id, created_by, created_at, expires_at`

func scanInvite(row pgx.Row) (domain.Invite, error) {
	var (
		inv          domain.Invite
		role, status string
	)
	err := row.Scan(&inv.ID, &inv.TokenHash, &inv.Email, &role, &status, &inv.UserID, &inv.CreatedBy, &inv.CreatedAt, &inv.ExpiresAt)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}

	if inv.Role, err = domain.ParseRole(role); err != nil {
		return domain.Invite{}, err
	}
	if inv.Status, err = domain.ParseInviteStatus(status); err != nil {
		return domain.Invite{}, err
	}
	inv.CreatedAt = inv.CreatedAt.UTC()
	if inv.ExpiresAt != nil {
		exp := inv.ExpiresAt.UTC()
		inv.ExpiresAt = &exp
	}
	return inv, nil
}

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.Invite) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx,
		`INSERT INTO invites (token_hash, email, role, status, user_id, created_by, created_at, updated_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $8)
		 RETURNING id`,
		inv.TokenHash, inv.Email, string(inv.Role), string(inv.Status), inv.UserID,
		inv.CreatedBy, inv.CreatedAt, inv.ExpiresAt,
	).Scan(&id)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return id, nil
}

func (r *invitesRepo) GetInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error) {
	return scanInvite(r.q.QueryRow(ctx, `SELECT `+inviteColumns+` FROM invites WHERE token_hash = $1`, hash))
}

func (r *invitesRepo) GetInviteByID(ctx context.Context, id int64) (domain.Invite, error) {
	return scanInvite(r.q.QueryRow(ctx, `SELECT `+inviteColumns+` FROM invites WHERE id = $1`, id))
}

func (r *invitesRepo) ListPendingInvites(ctx context.Context) ([]domain.Invite, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+inviteColumns+` FROM invites WHERE status = 'pending' ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *invitesRepo) TransitionInvite(ctx context.Context, t store.InviteTransition) error {
	if !t.From.CanTransitionTo(t.To) {
		return fmt.Errorf("%w: %s -> %s", store.ErrConflict, t.From, t.To)
	}

	tag, err := r.q.Exec(ctx,
		`UPDATE invites
		    SET status = $1, user_id = COALESCE($2, user_id), updated_at = $3
		  WHERE id = $4 AND status = $5`,
		string(t.To), t.UserID, t.At, t.ID, string(t.From),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invites WHERE id = $1)`, t.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

func (r *invitesRepo) RejectExpiredPendingInvites(ctx context.Context, email string, expiredBefore, at time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE invites
		    SET status = 'rejected', updated_at = $1
		  WHERE status = 'pending'
		    AND expires_at IS NOT NULL
		    AND expires_at < $2
		    AND ($3 = '' OR email = $3)`,
		at, expiredBefore, email,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *invitesRepo) RejectPendingInvitesForEmail(ctx context.Context, email string, at time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE invites SET status = 'rejected', updated_at = $1 WHERE status = 'pending' AND email = $2`,
		at, email,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
