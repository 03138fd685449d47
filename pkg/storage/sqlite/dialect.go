package sqlite

import (
	"fmt"
	"strings"

	"github.com/LENAX/dagsched/pkg/storage"
)

// SQLiteDialect SQLite方言实现（对外导出）
// 表结构本身以SQLite语法书写，因此DDL原样使用
type SQLiteDialect struct{}

// NewSQLiteDialect 创建SQLite方言实例
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) Name() string       { return "sqlite" }
func (d *SQLiteDialect) DriverName() string { return "sqlite3" }

func (d *SQLiteDialect) NormalizeDSN(dsn string) string { return dsn }

func (d *SQLiteDialect) CreateTableSQL(schema string) string { return schema }

// UpsertSQL 分析记录整行覆盖，INSERT OR REPLACE 即可
func (d *SQLiteDialect) UpsertSQL(tableName string, columns []string, conflictColumn string, updateColumns []string) string {
	return fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		tableName, strings.Join(columns, ", "), storage.NamedValues(columns))
}

func (d *SQLiteDialect) CreateIndexSQL(tableName, indexName string, columns ...string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", indexName, tableName, strings.Join(columns, ", "))
}

// ConfigureDB WAL 模式允许定时分析写入时 API 并发读取记录
func (d *SQLiteDialect) ConfigureDB() []string {
	return []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=30000;",
		"PRAGMA synchronous=NORMAL;",
	}
}

var _ storage.Dialect = (*SQLiteDialect)(nil)
