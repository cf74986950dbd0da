package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/chambers/internal/auth/domain"
	"github.com/aussiebroadwan/chambers/internal/auth/store"
)

type invitesRepo struct {
	db DBTX
}

const inviteColumns = `id, token_hash, email, role, status, user_id, created_by, created_at, expires_at`

func scanInvite(row interface{ Scan(...any) error }) (domain.Invite, error) {
	var (
		inv          domain.Invite
		role, status string
		userID       sql.NullString
		createdAt    int64
		expiresAt    sql.NullInt64
	)
	err := row.Scan(&inv.ID, &inv.TokenHash, &inv.Email, &role, &status, &userID, &inv.CreatedBy, &createdAt, &expiresAt)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}

	if inv.Role, err = domain.ParseRole(role); err != nil {
		return domain.Invite{}, err
	}
	if inv.Status, err = domain.ParseInviteStatus(status); err != nil {
		return domain.Invite{}, err
	}
	inv.UserID = mapNullStringPtr(userID)
	inv.CreatedAt = fromMillis(createdAt)
	inv.ExpiresAt = mapNullMillis(expiresAt)
	return inv, nil
}

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.Invite) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO invites (token_hash, email, role, status, user_id, created_by, created_at, updated_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		inv.TokenHash, inv.Email, string(inv.Role), string(inv.Status), mapOptionalString(inv.UserID),
		inv.CreatedBy, toMillis(inv.CreatedAt), toMillis(inv.CreatedAt), mapOptionalMillis(inv.ExpiresAt),
	).Scan(&id)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return id, nil
}

func (r *invitesRepo) GetInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error) {
	return scanInvite(r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invites WHERE token_hash = ?`, hash))
}

func (r *invitesRepo) GetInviteByID(ctx context.Context, id int64) (domain.Invite, error) {
	return scanInvite(r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invites WHERE id = ?`, id))
}

func (r *invitesRepo) ListPendingInvites(ctx context.Context) ([]domain.Invite, error) {
	rows, err := r.db.QueryContext(ctx,
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

	res, err := r.db.ExecContext(ctx,
		`UPDATE invites
		    SET status = ?, user_id = COALESCE(?, user_id), updated_at = ?
		  WHERE id = ? AND status = ?`,
		string(t.To), mapOptionalString(t.UserID), toMillis(t.At), t.ID, string(t.From),
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	// Nothing matched: tell a missing invite apart from one in another state.
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM invites WHERE id = ?`, t.ID).Scan(&exists)
	if err != nil {
		return mapNotFound(err)
	}
	return store.ErrConflict
}

func (r *invitesRepo) RejectExpiredPendingInvites(ctx context.Context, email string, expiredBefore, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invites
		    SET status = 'rejected', updated_at = ?
		  WHERE status = 'pending'
		    AND expires_at IS NOT NULL
		    AND expires_at < ?
		    AND (? = '' OR email = ?)`,
		toMillis(at), toMillis(expiredBefore), email, email,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *invitesRepo) RejectPendingInvitesForEmail(ctx context.Context, email string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invites SET status = 'rejected', updated_at = ? WHERE status = 'pending' AND email = ?`,
		toMillis(at), email,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
