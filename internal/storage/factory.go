package storage

import (
	"fmt"

	"github.com/LENAX/dagsched/pkg/config"
	"github.com/LENAX/dagsched/pkg/storage"
	"github.com/LENAX/dagsched/pkg/storage/mysql"
	"github.com/LENAX/dagsched/pkg/storage/postgres"
	pkgsqlite "github.com/LENAX/dagsched/pkg/storage/sqlite"
)

// NewAnalysisRunRepository 按数据库类型创建分析记录Repository（内部方法）
// dbType: 数据库类型（sqlite/mysql/postgres）
// dsn: 数据库连接字符串
func NewAnalysisRunRepository(dbType, dsn string, pool storage.PoolConfig) (storage.AnalysisRunRepository, error) {
	switch dbType {
	case "sqlite":
		repo, err := pkgsqlite.Open(dsn, pool)
		if err != nil {
			return nil, fmt.Errorf("create sqlite repository failed: %w", err)
		}
		return repo, nil
	case "mysql":
		repo, err := mysql.Open(dsn, pool)
		if err != nil {
			return nil, fmt.Errorf("create mysql repository failed: %w", err)
		}
		return repo, nil
	case "postgres", "postgresql":
		repo, err := postgres.Open(dsn, pool)
		if err != nil {
			return nil, fmt.Errorf("create postgres repository failed: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

// FromConfig 根据框架配置创建Repository，未配置数据库时返回 nil
func FromConfig(cfg *config.EngineConfig) (storage.AnalysisRunRepository, error) {
	if cfg == nil || !cfg.StorageEnabled() {
		return nil, nil
	}
	db := cfg.DagSched.Storage.Database
	return NewAnalysisRunRepository(db.Type, db.DSN, storage.PoolConfig{
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
		ConnMaxIdleTime: db.ConnMaxIdleTime,
	})
}
