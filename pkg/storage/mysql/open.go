package mysql

import (
	_ "github.com/go-sql-driver/mysql"

	"github.com/LENAX/dagsched/pkg/storage"
	"github.com/LENAX/dagsched/pkg/storage/sqlstore"
)

// Open 通过DSN创建MySQL分析记录Repository（对外导出）
func Open(dsn string, pool storage.PoolConfig) (*sqlstore.AnalysisRunRepo, error) {
	return sqlstore.Open(dsn, NewMySQLDialect(), pool)
}
