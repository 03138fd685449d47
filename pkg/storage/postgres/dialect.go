package postgres

import (
	"fmt"
	"strings"

	"github.com/LENAX/dagsched/pkg/storage"
)

// PostgresDialect PostgreSQL方言实现（对外导出）
type PostgresDialect struct{}

// NewPostgresDialect 创建PostgreSQL方言实例
func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) Name() string       { return "postgres" }
func (d *PostgresDialect) DriverName() string { return "postgres" }

func (d *PostgresDialect) NormalizeDSN(dsn string) string { return dsn }

// UpsertSQL 使用 ON CONFLICT DO UPDATE，sqlx 负责把 :name 绑定为 $n
func (d *PostgresDialect) UpsertSQL(tableName string, columns []string, conflictColumn string, updateColumns []string) string {
	updates := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		updates[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		tableName,
		strings.Join(columns, ", "),
		storage.NamedValues(columns),
		conflictColumn,
		strings.Join(updates, ", "),
	)
}

// CreateTableSQL 布尔列和时间列换成PostgreSQL类型
func (d *PostgresDialect) CreateTableSQL(schema string) string {
	r := strings.NewReplacer(
		"DATETIME", "TIMESTAMP",
		"INTEGER NOT NULL DEFAULT 0", "BOOLEAN NOT NULL DEFAULT FALSE",
	)
	return r.Replace(schema)
}

func (d *PostgresDialect) CreateIndexSQL(tableName, indexName string, columns ...string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", indexName, tableName, strings.Join(columns, ", "))
}

func (d *PostgresDialect) ConfigureDB() []string {
	return []string{"SET timezone = 'UTC';"}
}

var _ storage.Dialect = (*PostgresDialect)(nil)
