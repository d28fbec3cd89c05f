package dedup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opennotify/autonotifier/internal/announce"
	"github.com/opennotify/autonotifier/internal/store/memory"
)

func record(title string) announce.Record {
	return announce.Record{
		Title:       title,
		Description: "body of " + title,
		Time:        "18 August, 2026",
		Source:      announce.SourceIGNOU,
		ScrapedAt:   time.Now(),
	}
}

func TestSaveNewEmptyBatch(t *testing.T) {
	t.Parallel()

	s := New(memory.NewRecordStore(), 0, nil)
	result, err := s.SaveNew(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 0, result.NewCount)
	require.Equal(t, "No notifications provided", result.Message)
}

func TestSaveNewIsIdempotentAcrossRuns(t *testing.T) {
	t.Parallel()

	store := memory.NewRecordStore()
	s := New(store, 0, nil)
	batch := []announce.Record{record("a"), record("b")}

	first, err := s.SaveNew(context.Background(), batch)
	require.NoError(t, err)
	require.Equal(t, 2, first.NewCount)
	require.Equal(t, "Saved 2 new notification(s)", first.Message)

	// Records re-scraped with a fresh ScrapedAt still dedupe on the
	// identity triple.
	again := []announce.Record{record("a"), record("b")}
	second, err := s.SaveNew(context.Background(), again)
	require.NoError(t, err)
	require.Equal(t, 0, second.NewCount)
	require.Empty(t, second.Saved)
	require.Equal(t, "No new notifications found", second.Message)
	require.Equal(t, 2, store.Len())
}

func TestSaveNewCollapsesInBatchDuplicates(t *testing.T) {
	t.Parallel()

	store := memory.NewRecordStore()
	s := New(store, 0, nil)

	result, err := s.SaveNew(context.Background(), []announce.Record{
		record("a"), record("a"), record("b"),
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.NewCount)
	require.Equal(t, 2, store.Len())
	require.Equal(t, "a", result.Saved[0].Title)
	require.Equal(t, "b", result.Saved[1].Title)
}

func TestSaveNewPreservesInputOrder(t *testing.T) {
	t.Parallel()

	s := New(memory.NewRecordStore(), 1, nil)
	batch := []announce.Record{record("a"), record("b"), record("c"), record("d")}

	result, err := s.SaveNew(context.Background(), batch)
	require.NoError(t, err)
	require.Equal(t, 4, result.NewCount)
	for i, rec := range batch {
		require.Equal(t, rec.Title, result.Saved[i].Title)
	}
}

type flakyStore struct {
	inner    *memory.RecordStore
	failWith string
}

func (f *flakyStore) Exists(ctx context.Context, id announce.Identity) (bool, error) {
	if id.Title == f.failWith {
		return false, errors.New("connection reset")
	}
	return f.inner.Exists(ctx, id)
}

func (f *flakyStore) Insert(ctx context.Context, rec announce.Record) (bool, error) {
	return f.inner.Insert(ctx, rec)
}

func TestSaveNewAbsorbsPerRecordFailures(t *testing.T) {
	t.Parallel()

	inner := memory.NewRecordStore()
	s := New(&flakyStore{inner: inner, failWith: "bad"}, 0, nil)

	result, err := s.SaveNew(context.Background(), []announce.Record{
		record("good"), record("bad"), record("also good"),
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.NewCount)
	require.Equal(t, 2, inner.Len())
	require.Equal(t, "good", result.Saved[0].Title)
	require.Equal(t, "also good", result.Saved[1].Title)
}

func TestSaveNewConcurrentRunsPersistOnce(t *testing.T) {
	t.Parallel()

	// A manual trigger can race a scheduled run on the same fresh record;
	// the store's atomic check-and-set must let exactly one of them win.
	store := memory.NewRecordStore()
	s := New(store, 0, nil)

	start := make(chan struct{})
	results := make([]announce.SaveResult, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = s.SaveNew(context.Background(), []announce.Record{record("raced")})
		}(i)
	}
	close(start)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, 1, store.Len())
	require.Equal(t, 1, results[0].NewCount+results[1].NewCount)
}

func TestSaveNewCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(memory.NewRecordStore(), 0, nil)
	_, err := s.SaveNew(ctx, []announce.Record{record("a")})
	require.Error(t, err)
	var pErr *announce.PersistenceError
	require.ErrorAs(t, err, &pErr)
	require.Equal(t, "save batch", pErr.Op)
}
