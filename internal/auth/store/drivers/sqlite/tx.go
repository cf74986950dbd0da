package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/chambers/internal/auth/store"
)

// txStore hands out the same repositories as Store, bound to one open
// transaction. Lifecycle methods other than Commit and Rollback are inert.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Users() store.Users     { return &usersRepo{db: t.tx} }
func (t *txStore) Invites() store.Invites { return &invitesRepo{db: t.tx} }

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Tx(context.Context) (store.Tx, error) { return nil, store.ErrNestedTx }

func (t *txStore) WithTx(context.Context, func(store.Tx) error) error { return store.ErrNestedTx }

func (t *txStore) ApplyMigrations() error     { return nil }
func (t *txStore) Close() error               { return nil }
func (t *txStore) Ping(context.Context) error { return nil }
