package session

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gamevault/internal/client/client"
	"github.com/dmitrijs2005/gamevault/internal/client/repositories/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) (*SQLiteStore, *sql.DB) {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteStore(db), db
}

func TestSQLiteStore_EmptyDatabaseIsNoSession(t *testing.T) {
	s, _ := newSQLiteStore(t)

	r, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, r.Empty())
	assert.Nil(t, r.ExpiresAt)
}

func TestSQLiteStore_PutGetRoundTrip(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	exp := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)

	in := Record{AccessToken: "a", RefreshToken: "r", ExpiresAt: &exp, AccountID: "0xabc", AccountType: "evm"}
	require.NoError(t, s.Put(ctx, in))

	out, err := s.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, out.ExpiresAt)
	assert.True(t, exp.Equal(*out.ExpiresAt))
	out.ExpiresAt = &exp
	assert.Equal(t, in, out)
}

func TestSQLiteStore_PutReplacesPreviousFields(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, s.Put(ctx, Record{AccessToken: "a", RefreshToken: "r", ExpiresAt: &exp}))
	require.NoError(t, s.Put(ctx, Record{AccessToken: "b"}))

	out, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, Record{AccessToken: "b"}, out)
}

func TestSQLiteStore_DeleteLeavesOtherMetadata(t *testing.T) {
	s, db := newSQLiteStore(t)
	ctx := context.Background()
	repo := metadata.NewSQLiteRepository(db)

	require.NoError(t, repo.Set(ctx, "wallet.last", []byte("0x1")))
	require.NoError(t, s.Put(ctx, Record{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, s.Delete(ctx))

	out, err := s.Get(ctx)
	require.NoError(t, err)
	assert.True(t, out.Empty())

	v, err := repo.Get(ctx, "wallet.last")
	require.NoError(t, err)
	assert.Equal(t, []byte("0x1"), v)
}

func TestSQLiteStore_CorruptExpiry(t *testing.T) {
	s, db := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, metadata.NewSQLiteRepository(db).Set(ctx, keyExpiresAt, []byte("yesterday")))

	_, err := s.Get(ctx)
	require.ErrorContains(t, err, "expires_at")
}

func TestSQLiteStore_PutRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM metadata`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`INSERT INTO metadata`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = NewSQLiteStore(db).Put(context.Background(), Record{AccessToken: "a"})
	require.ErrorContains(t, err, "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_GetReadsAllFieldsInOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"key", "value"}).
		AddRow(keyAccessToken, []byte("a")).
		AddRow(keyRefreshToken, []byte("r")).
		AddRow(keyAccountID, []byte("0xac")).
		AddRow(keyExpiresAt, []byte("2026-01-02T03:04:05Z"))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT key, value FROM metadata`).WithArgs(keyPrefix, keyPrefix).WillReturnRows(rows)
	mock.ExpectCommit()

	rec, err := NewSQLiteStore(db).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", rec.AccessToken)
	assert.Equal(t, "r", rec.RefreshToken)
	assert.Equal(t, "0xac", rec.AccountID)
	assert.Empty(t, rec.AccountType)
	require.NotNil(t, rec.ExpiresAt)
	assert.True(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Equal(*rec.ExpiresAt))
	require.NoError(t, mock.ExpectationsWereMet())
}
