package storage

import "errors"

// BaseRepository 通用CRUD接口（对外导出）
// 仅作为标记，具体Repository显式定义 Save、GetByID、Delete 方法
type BaseRepository interface{}

// ErrRunNotFound 分析记录不存在
var ErrRunNotFound = errors.New("分析记录不存在")
