// Package sqlstore 基于 sqlx 的分析记录存储，SQL差异由 storage.Dialect 处理
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/LENAX/dagsched/pkg/core/analysis"
	"github.com/LENAX/dagsched/pkg/storage"
	"github.com/LENAX/dagsched/pkg/storage/dao"
)

const tableAnalysisRun = "analysis_run"

// analysisRunSchema SQLite语法的建表语句，由方言转换
const analysisRunSchema = `
CREATE TABLE IF NOT EXISTS analysis_run (
	id VARCHAR(64) PRIMARY KEY,
	fingerprint VARCHAR(64) NOT NULL,
	source TEXT,
	engine VARCHAR(32) NOT NULL,
	processors INTEGER NOT NULL,
	job_count INTEGER NOT NULL,
	hyperperiod BIGINT NOT NULL,
	verdict VARCHAR(32) NOT NULL,
	schedulable INTEGER NOT NULL DEFAULT 0,
	cpu_time_ns BIGINT NOT NULL,
	error_msg TEXT,
	results TEXT,
	started_at DATETIME NOT NULL,
	finished_at DATETIME,
	create_time DATETIME NOT NULL
)`

var runColumns = []string{
	"id", "fingerprint", "source", "engine", "processors", "job_count", "hyperperiod",
	"verdict", "schedulable", "cpu_time_ns", "error_msg", "results", "started_at",
	"finished_at", "create_time",
}

const summaryColumns = `id, fingerprint, source, engine, processors, job_count, hyperperiod,
	verdict, schedulable, cpu_time_ns, error_msg, started_at, finished_at, create_time`

// DefaultListLimit 列表查询默认条数
const DefaultListLimit = 100

// AnalysisRunRepo 分析记录Repository（对外导出）
type AnalysisRunRepo struct {
	db      *sqlx.DB
	dialect storage.Dialect
}

// NewAnalysisRunRepo 使用已有连接创建Repository并初始化表结构
func NewAnalysisRunRepo(db *sqlx.DB, dialect storage.Dialect) (*AnalysisRunRepo, error) {
	repo := &AnalysisRunRepo{db: db, dialect: dialect}
	if err := repo.initSchema(); err != nil {
		return nil, fmt.Errorf("初始化表结构失败: %w", err)
	}
	return repo, nil
}

// Open 打开数据库连接、应用方言配置并创建Repository
func Open(dsn string, dialect storage.Dialect, pool storage.PoolConfig) (*AnalysisRunRepo, error) {
	db, err := sqlx.Open(dialect.DriverName(), dialect.NormalizeDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	applyPool(db, pool)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	for _, stmt := range dialect.ConfigureDB() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("配置%s失败: %w", dialect.Name(), err)
		}
	}

	repo, err := NewAnalysisRunRepo(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func applyPool(db *sqlx.DB, pool storage.PoolConfig) {
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if pool.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}
}

// GetDB 获取底层数据库连接（对外导出）
func (r *AnalysisRunRepo) GetDB() *sqlx.DB {
	return r.db
}

// Dialect 当前方言
func (r *AnalysisRunRepo) Dialect() storage.Dialect {
	return r.dialect
}

// Close 关闭数据库连接（对外导出）
func (r *AnalysisRunRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// initSchema 初始化数据库表结构
func (r *AnalysisRunRepo) initSchema() error {
	if _, err := r.db.Exec(r.dialect.CreateTableSQL(analysisRunSchema)); err != nil {
		return fmt.Errorf("创建analysis_run表失败: %w", err)
	}
	indexes := [][]string{
		{"idx_analysis_run_fingerprint", "fingerprint"},
		{"idx_analysis_run_started_at", "started_at"},
	}
	for _, idx := range indexes {
		stmt := r.dialect.CreateIndexSQL(tableAnalysisRun, idx[0], idx[1:]...)
		if stmt == "" {
			continue
		}
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("创建索引%s失败: %w", idx[0], err)
		}
	}
	return nil
}

// Save 保存分析记录（创建或更新）
func (r *AnalysisRunRepo) Save(ctx context.Context, run *storage.AnalysisRun) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("分析记录ID不能为空")
	}
	runDAO, err := runToDAO(run)
	if err != nil {
		return err
	}

	updateColumns := make([]string, 0, len(runColumns)-1)
	for _, c := range runColumns {
		if c != "id" {
			updateColumns = append(updateColumns, c)
		}
	}
	query := r.dialect.UpsertSQL(tableAnalysisRun, runColumns, "id", updateColumns)
	if _, err := r.db.NamedExecContext(ctx, query, runDAO); err != nil {
		return fmt.Errorf("保存分析记录失败: %w", err)
	}
	return nil
}

// GetByID 根据ID查询分析记录（包含作业结果）
func (r *AnalysisRunRepo) GetByID(ctx context.Context, id string) (*storage.AnalysisRun, error) {
	var runDAO dao.AnalysisRunDAO
	query := r.db.Rebind(`SELECT ` + summaryColumns + `, results FROM analysis_run WHERE id = ?`)
	if err := r.db.GetContext(ctx, &runDAO, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", storage.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("查询分析记录失败: %w", err)
	}
	return daoToRun(&runDAO)
}

// List 列出分析记录（不含作业结果）
func (r *AnalysisRunRepo) List(ctx context.Context, filter storage.RunFilter) ([]*storage.AnalysisRun, error) {
	query := `SELECT ` + summaryColumns + ` FROM analysis_run WHERE 1 = 1`
	args := make([]interface{}, 0, 4)
	if filter.Fingerprint != "" {
		query += ` AND fingerprint = ?`
		args = append(args, filter.Fingerprint)
	}
	if filter.Verdict != "" {
		query += ` AND verdict = ?`
		args = append(args, filter.Verdict)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query += ` ORDER BY started_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	var runDAOs []dao.AnalysisRunDAO
	if err := r.db.SelectContext(ctx, &runDAOs, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("查询分析记录列表失败: %w", err)
	}

	runs := make([]*storage.AnalysisRun, 0, len(runDAOs))
	for i := range runDAOs {
		run, err := daoToRun(&runDAOs[i])
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Delete 删除分析记录
func (r *AnalysisRunRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM analysis_run WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("删除分析记录失败: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrRunNotFound, id)
	}
	return nil
}

func runToDAO(run *storage.AnalysisRun) (*dao.AnalysisRunDAO, error) {
	results := sql.NullString{}
	if run.Results != nil {
		data, err := json.Marshal(run.Results)
		if err != nil {
			return nil, fmt.Errorf("序列化作业结果失败: %w", err)
		}
		results = sql.NullString{String: string(data), Valid: true}
	}
	createTime := run.CreateTime
	if createTime.IsZero() {
		createTime = time.Now()
	}
	return &dao.AnalysisRunDAO{
		ID:           run.ID,
		Fingerprint:  run.Fingerprint,
		Source:       run.Source,
		Engine:       run.Engine,
		Processors:   run.Processors,
		JobCount:     run.JobCount,
		Hyperperiod:  run.Hyperperiod,
		Verdict:      run.Verdict,
		Schedulable:  run.Schedulable,
		CPUTimeNanos: int64(run.CPUTime),
		ErrorMessage: sql.NullString{String: run.Error, Valid: run.Error != ""},
		Results:      results,
		StartedAt:    run.StartedAt.UTC(),
		FinishedAt:   sql.NullTime{Time: run.FinishedAt.UTC(), Valid: !run.FinishedAt.IsZero()},
		CreateTime:   createTime.UTC(),
	}, nil
}

func daoToRun(d *dao.AnalysisRunDAO) (*storage.AnalysisRun, error) {
	run := &storage.AnalysisRun{
		ID:          d.ID,
		Fingerprint: d.Fingerprint,
		Source:      d.Source,
		Engine:      d.Engine,
		Processors:  d.Processors,
		JobCount:    d.JobCount,
		Hyperperiod: d.Hyperperiod,
		Verdict:     d.Verdict,
		Schedulable: d.Schedulable,
		CPUTime:     time.Duration(d.CPUTimeNanos),
		Error:       d.ErrorMessage.String,
		StartedAt:   d.StartedAt,
		CreateTime:  d.CreateTime,
	}
	if d.FinishedAt.Valid {
		run.FinishedAt = d.FinishedAt.Time
	}
	if d.Results.Valid && d.Results.String != "" {
		var results []analysis.JobResult
		if err := json.Unmarshal([]byte(d.Results.String), &results); err != nil {
			return nil, fmt.Errorf("反序列化作业结果失败: %w", err)
		}
		run.Results = results
	}
	return run, nil
}
