package dao

import (
	"database/sql"
	"time"
)

// AnalysisRunDAO analysis_run表的数据访问对象（内部使用）
type AnalysisRunDAO struct {
	ID           string         `db:"id"`
	Fingerprint  string         `db:"fingerprint"`
	Source       string         `db:"source"`
	Engine       string         `db:"engine"`
	Processors   int            `db:"processors"`
	JobCount     int            `db:"job_count"`
	Hyperperiod  int64          `db:"hyperperiod"`
	Verdict      string         `db:"verdict"`
	Schedulable  bool           `db:"schedulable"`
	CPUTimeNanos int64          `db:"cpu_time_ns"`
	ErrorMessage sql.NullString `db:"error_msg"`
	Results      sql.NullString `db:"results"` // JSON格式存储
	StartedAt    time.Time      `db:"started_at"`
	FinishedAt   sql.NullTime   `db:"finished_at"`
	CreateTime   time.Time      `db:"create_time"`
}
