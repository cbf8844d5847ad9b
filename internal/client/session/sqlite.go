package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gamevault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gamevault/internal/dbx"
)

const keyPrefix = "session."

const (
	keyAccessToken  = keyPrefix + "access_token"
	keyRefreshToken = keyPrefix + "refresh_token"
	keyExpiresAt    = keyPrefix + "expires_at"
	keyAccountID    = keyPrefix + "account_id"
	keyAccountType  = keyPrefix + "account_type"
)

// SQLiteStore keeps one metadata row per Record field. Every operation runs
// in a single transaction so a reader never sees half a session.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get reads every session row in one query inside a transaction, so it
// sees either the whole previous or the whole next Put.
func (s *SQLiteStore) Get(ctx context.Context) (Record, error) {
	var rows map[string][]byte
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		rows, err = metadata.NewSQLiteRepository(tx).ListPrefix(ctx, keyPrefix)
		return err
	})
	if err != nil {
		return Record{}, fmt.Errorf("load session: %w", err)
	}

	r := Record{
		AccessToken:  string(rows[keyAccessToken]),
		RefreshToken: string(rows[keyRefreshToken]),
		AccountID:    string(rows[keyAccountID]),
		AccountType:  string(rows[keyAccountType]),
	}
	if raw := rows[keyExpiresAt]; len(raw) > 0 {
		t, err := time.Parse(time.RFC3339Nano, string(raw))
		if err != nil {
			return Record{}, fmt.Errorf("load session: expires_at: %w", err)
		}
		r.ExpiresAt = &t
	}
	return r, nil
}

func (s *SQLiteStore) Put(ctx context.Context, r Record) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.DeletePrefix(ctx, keyPrefix); err != nil {
			return err
		}

		values := map[string]string{
			keyAccessToken:  r.AccessToken,
			keyRefreshToken: r.RefreshToken,
			keyAccountID:    r.AccountID,
			keyAccountType:  r.AccountType,
		}
		if r.ExpiresAt != nil {
			values[keyExpiresAt] = r.ExpiresAt.UTC().Format(time.RFC3339Nano)
		}
		for k, v := range values {
			if v == "" {
				continue
			}
			if err := repo.Set(ctx, k, []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) Delete(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).DeletePrefix(ctx, keyPrefix)
	})
}
