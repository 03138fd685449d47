package sqlstore_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/dagsched/pkg/core/analysis"
	"github.com/LENAX/dagsched/pkg/storage"
	"github.com/LENAX/dagsched/pkg/storage/mysql"
	"github.com/LENAX/dagsched/pkg/storage/postgres"
	"github.com/LENAX/dagsched/pkg/storage/sqlite"
	"github.com/LENAX/dagsched/pkg/storage/sqlstore"
)

func openRepo(t *testing.T) *sqlstore.AnalysisRunRepo {
	t.Helper()
	repo, err := sqlite.Open(filepath.Join(t.TempDir(), "runs.db"), storage.PoolConfig{MaxOpenConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleRun(id, fingerprint string, schedulable bool, started time.Time) *storage.AnalysisRun {
	verdict := analysis.VerdictOf(schedulable)
	return &storage.AnalysisRun{
		ID:          id,
		Fingerprint: fingerprint,
		Source:      "examples/tasksets/reference.yaml",
		Engine:      "sim",
		Processors:  1,
		JobCount:    2,
		Hyperperiod: 60,
		Verdict:     string(verdict),
		Schedulable: schedulable,
		CPUTime:     1500 * time.Microsecond,
		Results: []analysis.JobResult{
			{TaskID: 0, JobID: 1, Arrival: 0, Deadline: 10, Finish: analysis.Interval{From: 1, Until: 1}, HasFinish: true, BCRT: 1, WCRT: 1},
			{TaskID: 0, JobID: 2, Arrival: 10, Deadline: 20},
		},
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}
}

func TestAnalysisRunRepo_SaveAndGet(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	started := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	run := sampleRun("run-1", "fp-a", true, started)
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "fp-a", got.Fingerprint)
	assert.Equal(t, "schedulable", got.Verdict)
	assert.True(t, got.Schedulable)
	assert.Equal(t, 1500*time.Microsecond, got.CPUTime)
	assert.Equal(t, int64(60), got.Hyperperiod)
	assert.True(t, got.StartedAt.Equal(started))
	assert.True(t, got.FinishedAt.Equal(started.Add(time.Second)))
	assert.Equal(t, run.Results, got.Results)

	// 再次保存即更新
	run.Error = "重新分析"
	run.Schedulable = false
	run.Verdict = "unschedulable"
	require.NoError(t, repo.Save(ctx, run))
	got, err = repo.GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.False(t, got.Schedulable)
	assert.Equal(t, "重新分析", got.Error)
}

func TestAnalysisRunRepo_NotFound(t *testing.T) {
	repo := openRepo(t)
	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrRunNotFound)
	assert.ErrorIs(t, repo.Delete(context.Background(), "missing"), storage.ErrRunNotFound)
	assert.Error(t, repo.Save(context.Background(), &storage.AnalysisRun{}))
}

func TestAnalysisRunRepo_ListAndDelete(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, sampleRun("r1", "fp-a", true, base)))
	require.NoError(t, repo.Save(ctx, sampleRun("r2", "fp-a", false, base.Add(time.Hour))))
	require.NoError(t, repo.Save(ctx, sampleRun("r3", "fp-b", true, base.Add(2*time.Hour))))

	runs, err := repo.List(ctx, storage.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"r3", "r2", "r1"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})
	assert.Nil(t, runs[0].Results)

	runs, err = repo.List(ctx, storage.RunFilter{Fingerprint: "fp-a"})
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = repo.List(ctx, storage.RunFilter{Verdict: "unschedulable"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r2", runs[0].ID)

	runs, err = repo.List(ctx, storage.RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r2", runs[0].ID)

	require.NoError(t, repo.Delete(ctx, "r2"))
	runs, err = repo.List(ctx, storage.RunFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestAnalysisRunRepo_MemoryDSN(t *testing.T) {
	repo, err := sqlite.Open("file::memory:?cache=shared", storage.PoolConfig{MaxOpenConns: 10})
	require.NoError(t, err)
	defer repo.Close()

	assert.Equal(t, 1, repo.GetDB().Stats().MaxOpenConnections)
	require.NoError(t, repo.Save(context.Background(), sampleRun("m1", "fp", true, time.Now())))
	_, err = repo.GetByID(context.Background(), "m1")
	assert.NoError(t, err)
}

func TestRunFromReport(t *testing.T) {
	report := &analysis.Report{
		RunID:       "abc",
		Engine:      "sim",
		Processors:  2,
		JobCount:    13,
		Verdict:     analysis.VerdictSchedulable,
		Schedulable: true,
		CPUTime:     time.Millisecond,
	}
	run := storage.RunFromReport(report, "fp", "api", 60)
	assert.Equal(t, "abc", run.ID)
	assert.Equal(t, "schedulable", run.Verdict)
	assert.Equal(t, int64(60), run.Hyperperiod)
	assert.Equal(t, "api", run.Source)
}

func TestDialects(t *testing.T) {
	cols := []string{"id", "verdict"}

	assert.Equal(t, "INSERT OR REPLACE INTO t (id, verdict) VALUES (:id, :verdict)",
		sqlite.NewSQLiteDialect().UpsertSQL("t", cols, "id", []string{"verdict"}))
	assert.Equal(t, "INSERT INTO t (id, verdict) VALUES (:id, :verdict) ON CONFLICT (id) DO UPDATE SET verdict = EXCLUDED.verdict",
		postgres.NewPostgresDialect().UpsertSQL("t", cols, "id", []string{"verdict"}))
	assert.Equal(t, "INSERT INTO t (id, verdict) VALUES (:id, :verdict) ON DUPLICATE KEY UPDATE verdict = VALUES(verdict)",
		mysql.NewMySQLDialect().UpsertSQL("t", cols, "id", []string{"verdict"}))

	pg := postgres.NewPostgresDialect().CreateTableSQL("a INTEGER NOT NULL DEFAULT 0, b DATETIME")
	assert.Equal(t, "a BOOLEAN NOT NULL DEFAULT FALSE, b TIMESTAMP", pg)

	my := mysql.NewMySQLDialect()
	assert.True(t, strings.HasSuffix(my.CreateTableSQL("CREATE TABLE x (results TEXT)"), "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"))
	assert.Contains(t, my.CreateTableSQL("results TEXT"), "LONGTEXT")
	assert.Empty(t, my.CreateIndexSQL("t", "idx", "a"))
	assert.Equal(t, "u:p@tcp(h:3306)/db?parseTime=true", my.NormalizeDSN("u:p@tcp(h:3306)/db"))
	assert.Equal(t, "u:p@tcp(h:3306)/db?charset=utf8&parseTime=true", my.NormalizeDSN("u:p@tcp(h:3306)/db?charset=utf8"))

	assert.Equal(t, "CREATE INDEX IF NOT EXISTS i ON t(a, b)", sqlite.NewSQLiteDialect().CreateIndexSQL("t", "i", "a", "b"))
}
