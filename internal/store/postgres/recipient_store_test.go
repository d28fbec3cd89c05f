package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func newRecipientStore(t *testing.T) (*RecipientStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewRecipientStore(mock)
	require.NoError(t, err)
	return store, mock
}

func TestRecipientStoreAddNormalizes(t *testing.T) {
	t.Parallel()

	store, mock := newRecipientStore(t)

	mock.ExpectExec(`INSERT INTO recipients`).
		WithArgs("user@example.org").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	added, err := store.Add(context.Background(), "  User@Example.ORG ")
	require.NoError(t, err)
	require.True(t, added)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientStoreAddDuplicate(t *testing.T) {
	t.Parallel()

	store, mock := newRecipientStore(t)

	mock.ExpectExec(`INSERT INTO recipients`).
		WithArgs("user@example.org").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	added, err := store.Add(context.Background(), "user@example.org")
	require.NoError(t, err)
	require.False(t, added)
}

func TestRecipientStoreAddRejectsInvalidAddress(t *testing.T) {
	t.Parallel()

	store, _ := newRecipientStore(t)

	_, err := store.Add(context.Background(), "not-an-email")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid email address")
}

func TestRecipientStoreRemove(t *testing.T) {
	t.Parallel()

	store, mock := newRecipientStore(t)

	mock.ExpectExec(`DELETE FROM recipients`).
		WithArgs("user@example.org").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	removed, err := store.Remove(context.Background(), "User@example.org")
	require.NoError(t, err)
	require.True(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientStoreRemoveMissing(t *testing.T) {
	t.Parallel()

	store, mock := newRecipientStore(t)

	mock.ExpectExec(`DELETE FROM recipients`).
		WithArgs("gone@example.org").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	removed, err := store.Remove(context.Background(), "gone@example.org")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestRecipientStoreListAll(t *testing.T) {
	t.Parallel()

	store, mock := newRecipientStore(t)

	mock.ExpectQuery(`SELECT email FROM recipients`).
		WillReturnRows(pgxmock.NewRows([]string{"email"}).
			AddRow("a@example.org").
			AddRow("b@example.org"))

	emails, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"a@example.org", "b@example.org"}, emails)
	require.NoError(t, mock.ExpectationsWereMet())
}
