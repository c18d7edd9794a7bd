package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gowgit/site-crawler/pkg/config"
	"github.com/gowgit/site-crawler/pkg/models"
	"github.com/gowgit/site-crawler/pkg/utils"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// backends returns a constructor per available Store implementation.
// MongoDB is only exercised when MONGO_URI is set.
func backends(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	b := map[string]func(t *testing.T) Store{
		"badger": func(t *testing.T) Store {
			store, err := NewBadgerStore(t.TempDir(), testLogger())
			require.NoError(t, err)
			t.Cleanup(func() { store.Close() })
			return store
		},
		"sqlite": func(t *testing.T) Store {
			store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "crawl.db"), testLogger())
			require.NoError(t, err)
			t.Cleanup(func() { store.Close() })
			return store
		},
	}
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		b["mongo"] = func(t *testing.T) Store {
			ctx := context.Background()
			dbName := "crawler_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
			store, err := NewMongoStore(ctx, uri, dbName, testLogger())
			require.NoError(t, err)
			t.Cleanup(func() {
				_ = store.database.Drop(context.Background())
				store.Close()
			})
			return store
		}
	}
	return b
}

func forEachBackend(t *testing.T, fn func(t *testing.T, store Store)) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

// at returns a millisecond precision UTC time, which every backend round trips exactly
func at(sec int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, sec, 0, time.UTC)
}

func TestInsertURL(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		added, err := store.InsertURL(ctx, models.URLRecord{URL: "http://x.test/"})
		require.NoError(t, err)
		assert.True(t, added)

		added, err = store.InsertURL(ctx, models.URLRecord{URL: "http://x.test/"})
		require.NoError(t, err)
		assert.False(t, added, "duplicate is not an error")

		n, err := store.URLCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		recs, err := store.UncrawledURLs(ctx, 0)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, models.PageStatusPending, recs[0].Status)
		assert.False(t, recs[0].InsertedAt.IsZero())
	})
}

func TestInsertURLs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		_, err := store.InsertURL(ctx, models.URLRecord{URL: "http://a.test"})
		require.NoError(t, err)

		added, err := store.InsertURLs(ctx, []models.URLRecord{
			{URL: "http://a.test"},
			{URL: "http://b.test"},
			{URL: "http://c.test"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, added)

		n, err := store.URLCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		added, err = store.InsertURLs(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, added)
	})
}

func TestUpdateURL(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		_, err := store.InsertURL(ctx, models.URLRecord{URL: "http://x.test/", InsertedAt: at(1)})
		require.NoError(t, err)

		crawled := models.URLRecord{
			URL:           "http://x.test/",
			Crawled:       true,
			DateCrawled:   at(5),
			CrawlDuration: 0.25,
			Status:        models.PageStatusFailure,
			ErrorType:     "Network_Timeout",
			LastAttempt:   at(5),
			InsertedAt:    at(9), // Ignored for an existing record
		}
		require.NoError(t, store.UpdateURL(ctx, crawled))

		var got []models.URLRecord
		require.NoError(t, store.EachURL(ctx, func(rec models.URLRecord) error {
			got = append(got, rec)
			return nil
		}))
		require.Len(t, got, 1)
		assert.True(t, got[0].Crawled)
		assert.Equal(t, models.PageStatusFailure, got[0].Status)
		assert.Equal(t, "Network_Timeout", got[0].ErrorType)
		assert.InDelta(t, 0.25, got[0].CrawlDuration, 1e-9)
		assert.True(t, at(5).Equal(got[0].DateCrawled))
		assert.True(t, at(1).Equal(got[0].InsertedAt), "insertion time is kept")

		pending, err := store.UncrawledURLs(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)

		// Updating an unknown URL inserts it
		require.NoError(t, store.UpdateURL(ctx, models.URLRecord{URL: "http://y.test/", Crawled: true, Status: models.PageStatusSuccess}))
		n, err := store.URLCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestUncrawledURLs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		_, err := store.InsertURLs(ctx, []models.URLRecord{
			{URL: "http://c.test", InsertedAt: at(3)},
			{URL: "http://a.test", InsertedAt: at(1)},
			{URL: "http://done.test", InsertedAt: at(0), Crawled: true, Status: models.PageStatusSuccess},
			{URL: "http://b.test", InsertedAt: at(2)},
		})
		require.NoError(t, err)

		recs, err := store.UncrawledURLs(ctx, 2)
		require.NoError(t, err)
		var urls []string
		for _, r := range recs {
			urls = append(urls, r.URL)
		}
		assert.Equal(t, []string{"http://a.test", "http://b.test"}, urls, "oldest first, limited")

		recs, err = store.UncrawledURLs(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, recs, 3)
	})
}

func TestEachURL_StopsOnError(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		_, err := store.InsertURLs(ctx, []models.URLRecord{{URL: "http://a.test"}, {URL: "http://b.test"}})
		require.NoError(t, err)

		stop := errors.New("stop")
		calls := 0
		err = store.EachURL(ctx, func(models.URLRecord) error {
			calls++
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, calls)
	})
}

func TestDocuments(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		rec := models.DocumentRecord{
			URL:         "http://x.test/about",
			HTML:        "<html><title>About</title></html>",
			Title:       "About",
			Keywords:    []string{"a", "b"},
			Links:       []string{"/"},
			Text:        []string{"About"},
			ContentHash: utils.ContentHash("<html><title>About</title></html>"),
			Size:        33,
			CrawledAt:   at(7),
		}
		require.NoError(t, store.InsertDocument(ctx, rec))

		err := store.InsertDocument(ctx, rec)
		assert.ErrorIs(t, err, utils.ErrAlreadyExists)
		assert.Equal(t, "Database_AlreadyExists", utils.CategorizeError(err))

		got, err := store.GetDocument(ctx, rec.URL)
		require.NoError(t, err)
		assert.Equal(t, rec.Title, got.Title)
		assert.Equal(t, rec.HTML, got.HTML)
		assert.Equal(t, rec.Keywords, got.Keywords)
		assert.Equal(t, rec.ContentHash, got.ContentHash)
		assert.True(t, rec.CrawledAt.Equal(got.CrawledAt))

		_, err = store.GetDocument(ctx, "http://x.test/missing")
		assert.ErrorIs(t, err, utils.ErrNotFound)

		n, err := store.DocumentCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		size, err := store.Size(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, size, int64(0))
	})
}

func TestBadgerStore_ReopenKeepsCounts(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store1, err := NewBadgerStore(dir, testLogger())
	require.NoError(t, err)
	_, err = store1.InsertURLs(ctx, []models.URLRecord{{URL: "http://a.test"}, {URL: "http://b.test"}})
	require.NoError(t, err)
	require.NoError(t, store1.InsertDocument(ctx, models.DocumentRecord{URL: "http://a.test"}))
	require.NoError(t, store1.Close())

	store2, err := NewBadgerStore(dir, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store2.Close() })

	urls, err := store2.URLCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, urls)
	docs, err := store2.DocumentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, docs)
}

func TestBadgerStore_RunGC(t *testing.T) {
	store, err := NewBadgerStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	done := make(chan struct{})
	go func() {
		store.RunGC(ctx, 50*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunGC did not respect context cancellation")
	}
}

func TestBadgerStore_DoubleClose(t *testing.T) {
	store, err := NewBadgerStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close()) // second close should be safe
}

func TestBadgerStore_ConflictRetry(t *testing.T) {
	store, err := NewBadgerStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	attempts := 0
	err = store.dbUpdate(func(*badger.Txn) error {
		attempts++
		if attempts <= 3 {
			return badger.ErrConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, attempts)

	attempts = 0
	err = store.dbUpdate(func(*badger.Txn) error {
		attempts++
		return badger.ErrConflict
	})
	require.ErrorIs(t, err, utils.ErrDatabase)
	assert.Contains(t, err.Error(), "transaction conflict not resolved")
	assert.Equal(t, maxConflictRetries, attempts)
}

func TestWriteURLLog(t *testing.T) {
	store, err := NewBadgerStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	_, err = store.InsertURL(ctx, models.URLRecord{URL: "http://a.test"})
	require.NoError(t, err)
	require.NoError(t, store.UpdateURL(ctx, models.URLRecord{
		URL: "http://b.test", Crawled: true, CrawlDuration: 1.5,
		Status: models.PageStatusFailure, ErrorType: "Redirect_TooMany",
	}))

	path := filepath.Join(t.TempDir(), "urls.tsv")
	require.NoError(t, WriteURLLog(ctx, store, path, testLogger()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"http://a.test\tpending\t0.000\t\n"+
			"http://b.test\tfailure\t1.500\tRedirect_TooMany\n",
		string(data))

	err = WriteURLLog(ctx, store, "/nonexistent/dir/urls.tsv", testLogger())
	assert.ErrorIs(t, err, utils.ErrFilesystem)
}

func TestOpen(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, driver := range []string{"badger", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			cfg := config.StorageConfig{Driver: driver, Path: filepath.Join(t.TempDir(), "state")}
			_, err := cfg.Validate()
			require.NoError(t, err)

			store, err := Open(ctx, cfg, testLogger())
			require.NoError(t, err)
			defer store.Close()

			added, err := store.InsertURL(ctx, models.URLRecord{URL: fmt.Sprintf("http://%s.test", driver)})
			require.NoError(t, err)
			assert.True(t, added)
		})
	}

	_, err := Open(ctx, config.StorageConfig{Driver: "redis"}, testLogger())
	assert.ErrorIs(t, err, utils.ErrConfigValidation)
}
