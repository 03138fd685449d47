package mysql

import (
	"fmt"
	"strings"

	"github.com/LENAX/dagsched/pkg/storage"
)

// MySQLDialect MySQL方言实现（对外导出）
type MySQLDialect struct{}

// NewMySQLDialect 创建MySQL方言实例
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) Name() string       { return "mysql" }
func (d *MySQLDialect) DriverName() string { return "mysql" }

// NormalizeDSN 时间列需要 parseTime=true 才能扫描到 time.Time
// dsn格式: user:password@tcp(host:port)/dbname?parseTime=true
func (d *MySQLDialect) NormalizeDSN(dsn string) string {
	if strings.Contains(dsn, "parseTime=true") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}

func (d *MySQLDialect) UpsertSQL(tableName string, columns []string, conflictColumn string, updateColumns []string) string {
	updates := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		updates[i] = fmt.Sprintf("%s = VALUES(%s)", col, col)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s",
		tableName,
		strings.Join(columns, ", "),
		storage.NamedValues(columns),
		strings.Join(updates, ", "),
	)
}

// CreateTableSQL 作业结果JSON可能超过TEXT上限
func (d *MySQLDialect) CreateTableSQL(schema string) string {
	r := strings.NewReplacer(
		"results TEXT", "results LONGTEXT",
		"INTEGER NOT NULL DEFAULT 0", "TINYINT(1) NOT NULL DEFAULT 0",
		"DATETIME", "DATETIME(6)",
	)
	return strings.TrimSpace(r.Replace(schema)) + " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
}

// CreateIndexSQL MySQL 不支持 CREATE INDEX IF NOT EXISTS，跳过二级索引
func (d *MySQLDialect) CreateIndexSQL(tableName, indexName string, columns ...string) string {
	return ""
}

func (d *MySQLDialect) ConfigureDB() []string {
	return []string{"SET time_zone = '+00:00';"}
}

var _ storage.Dialect = (*MySQLDialect)(nil)
