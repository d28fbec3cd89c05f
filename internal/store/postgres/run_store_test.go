package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/opennotify/autonotifier/internal/announce"
)

func newRunStore(t *testing.T) (*RunStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewRunStore(mock)
	require.NoError(t, err)
	return store, mock
}

func TestRunStoreRecordRun(t *testing.T) {
	t.Parallel()

	store, mock := newRunStore(t)
	started := time.Date(2026, 8, 18, 9, 0, 0, 0, time.UTC)
	run := announce.RunRecord{
		ID:         "run-1",
		Status:     announce.RunStatusNewRecords,
		Message:    "Saved 2 new notification(s)",
		NewCount:   2,
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
	}

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(run.ID, string(run.Status), run.Message, run.NewCount, run.StartedAt, run.FinishedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.RecordRun(context.Background(), run))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStoreRecordRunRequiresID(t *testing.T) {
	t.Parallel()

	store, _ := newRunStore(t)
	err := store.RecordRun(context.Background(), announce.RunRecord{})
	require.Error(t, err)
}

func TestRunStoreListRuns(t *testing.T) {
	t.Parallel()

	store, mock := newRunStore(t)
	now := time.Date(2026, 8, 18, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, status, message, new_count, started_at, finished_at`).
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "status", "message", "new_count", "started_at", "finished_at"}).
			AddRow("run-2", "no-new-records", "No new notifications found", 0, now, now).
			AddRow("run-1", "new-records", "Saved 2 new notification(s)", 2, now.Add(-24*time.Hour), now.Add(-24*time.Hour)))

	runs, err := store.ListRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "run-2", runs[0].ID)
	require.Equal(t, announce.RunStatusNoNew, runs[0].Status)
	require.Equal(t, 2, runs[1].NewCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStoreListRunsDefaultLimit(t *testing.T) {
	t.Parallel()

	store, mock := newRunStore(t)

	mock.ExpectQuery(`SELECT id, status, message, new_count, started_at, finished_at`).
		WithArgs(20).
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "status", "message", "new_count", "started_at", "finished_at"}))

	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, runs)
	require.NoError(t, mock.ExpectationsWereMet())
}
