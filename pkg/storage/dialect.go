package storage

import (
	"strings"
	"time"
)

// Dialect SQL方言接口（对外导出）
// 表结构以 SQLite 语法书写，由各方言转换
type Dialect interface {
	// Name 方言名称
	Name() string
	// DriverName database/sql 驱动名
	DriverName() string
	// UpsertSQL 按冲突列插入或更新，使用 :column 命名参数
	UpsertSQL(tableName string, columns []string, conflictColumn string, updateColumns []string) string
	// CreateTableSQL 转换建表DDL
	CreateTableSQL(schema string) string
	// CreateIndexSQL 幂等建索引语句，返回空串表示跳过
	CreateIndexSQL(tableName, indexName string, columns ...string) string
	// ConfigureDB 连接建立后执行的配置语句
	ConfigureDB() []string
	// NormalizeDSN 补全DSN中的必要参数
	NormalizeDSN(dsn string) string
}

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// NamedValues 生成 ":col1, :col2" 形式的命名参数列表，供各方言的UPSERT使用
func NamedValues(columns []string) string {
	named := make([]string, len(columns))
	for i, col := range columns {
		named[i] = ":" + col
	}
	return strings.Join(named, ", ")
}
