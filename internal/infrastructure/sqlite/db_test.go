package sqlite

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/polypad/internal/history"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewDB_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")

	db, err := NewDB(path)
	require.NoError(t, err)
	defer db.Close()

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, info.IsDir())
	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0700), info.Mode().Perm())
	}
	require.Equal(t, path, db.Path())
}

func TestNewDB_SchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	db1, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db1.Runs().Save(&history.Run{Language: "python", CodeHash: "h", Status: history.StatusOK}))
	require.NoError(t, db1.Close())

	db2, err := NewDB(path)
	require.NoError(t, err)
	defer db2.Close()

	runs, err := db2.Runs().Recent(history.ListFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

func TestRunRepository_SaveAndFind(t *testing.T) {
	repo := newTestDB(t).Runs()

	created := time.UnixMilli(time.Now().UnixMilli())
	run := &history.Run{
		Language:  "ruby",
		CodeHash:  history.Hash("ruby", "puts 1"),
		CodeBytes: 6,
		Status:    history.StatusFailed,
		CacheHit:  true,
		Duration:  1500 * time.Millisecond,
		CreatedAt: created,
	}
	require.NoError(t, repo.Save(run))
	require.NotZero(t, run.ID)
	require.NotEmpty(t, run.GUID)

	got, err := repo.FindByGUID(run.GUID)
	require.NoError(t, err)
	require.Equal(t, run, got)
}

func TestRunRepository_FindMissing(t *testing.T) {
	repo := newTestDB(t).Runs()

	_, err := repo.FindByGUID("nope")
	var nf *RunNotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, "run not found: nope", err.Error())
}

func TestRunRepository_RecentOrderAndFilter(t *testing.T) {
	repo := newTestDB(t).Runs()
	base := time.Now().Add(-time.Hour)

	for i, lang := range []string{"python", "ruby", "python", "javascript"} {
		require.NoError(t, repo.Save(&history.Run{
			Language:  lang,
			CodeHash:  history.Hash(lang, lang),
			Status:    history.StatusOK,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := repo.Recent(history.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, "javascript", all[0].Language)
	require.Equal(t, "python", all[3].Language)

	py, err := repo.Recent(history.ListFilter{Language: "python", Limit: 1})
	require.NoError(t, err)
	require.Len(t, py, 1)
	require.True(t, py[0].CreatedAt.After(base))

	none, err := repo.Recent(history.ListFilter{Language: "cobol"})
	require.NoError(t, err)
	require.Empty(t, none)
	require.NotNil(t, none)
}

func TestRunRepository_RoundTripProperty(t *testing.T) {
	repo := newTestDB(t).Runs()

	rapid.Check(t, func(rt *rapid.T) {
		run := &history.Run{
			Language:  rapid.SampledFrom([]string{"python", "javascript", "ruby"}).Draw(rt, "lang"),
			CodeHash:  rapid.StringMatching(`[0-9a-f]{64}`).Draw(rt, "hash"),
			CodeBytes: rapid.IntRange(0, 1<<20).Draw(rt, "bytes"),
			Status:    rapid.SampledFrom([]history.Status{history.StatusOK, history.StatusFailed, history.StatusTimeout}).Draw(rt, "status"),
			CacheHit:  rapid.Bool().Draw(rt, "hit"),
			Duration:  time.Duration(rapid.Int64Range(0, int64(time.Minute)).Draw(rt, "dur")),
			CreatedAt: time.UnixMilli(rapid.Int64Range(0, 1<<42).Draw(rt, "at")),
		}
		if err := repo.Save(run); err != nil {
			rt.Fatalf("save: %v", err)
		}
		got, err := repo.FindByGUID(run.GUID)
		if err != nil {
			rt.Fatalf("find: %v", err)
		}
		if *got != *run {
			rt.Fatalf("round trip mismatch: %+v != %+v", got, run)
		}
	})
}
