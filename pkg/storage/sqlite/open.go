package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/LENAX/dagsched/pkg/storage"
	"github.com/LENAX/dagsched/pkg/storage/sqlstore"
)

// Open 通过DSN创建SQLite分析记录Repository（对外导出）
// 内存数据库只能使用单个连接，否则每个连接各自是一个空库
func Open(dsn string, pool storage.PoolConfig) (*sqlstore.AnalysisRunRepo, error) {
	if isMemory(dsn) {
		pool.MaxOpenConns = 1
		pool.MaxIdleConns = 1
		pool.ConnMaxLifetime = 0
		pool.ConnMaxIdleTime = 0
	} else if dir := filepath.Dir(filePath(dsn)); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建数据库目录失败: %w", err)
		}
	}
	return sqlstore.Open(dsn, NewSQLiteDialect(), pool)
}

func isMemory(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// filePath 去掉 file: 前缀和查询参数
func filePath(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return p
}
