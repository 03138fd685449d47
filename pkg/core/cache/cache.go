package cache

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/LENAX/dagsched/pkg/core/unfold"
)

// JobSetCache 展开结果缓存接口（对外导出）
type JobSetCache interface {
	// Get 获取缓存的展开结果
	// key: 任务集指纹
	// 返回: 展开结果和是否存在
	Get(key string) (*unfold.JobSet, bool)

	// Set 写入展开结果
	Set(key string, set *unfold.JobSet)

	// Delete 删除缓存值
	Delete(key string)

	// Clear 清空所有缓存
	Clear()

	// Stats 命中统计
	Stats() Stats
}

// Stats 缓存命中统计
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   int    `json:"size"`
}

// LRUJobSetCache 基于 golang-lru 的容量受限缓存（对外导出）
// 展开结果在缓存后视为只读，调用方不得修改
type LRUJobSetCache struct {
	cache  *lru.Cache[string, *unfold.JobSet]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewLRUJobSetCache 创建容量为 size 的缓存
func NewLRUJobSetCache(size int) (*LRUJobSetCache, error) {
	c, err := lru.New[string, *unfold.JobSet](size)
	if err != nil {
		return nil, fmt.Errorf("创建LRU缓存失败: %w", err)
	}
	return &LRUJobSetCache{cache: c}, nil
}

// Get 获取缓存值
func (c *LRUJobSetCache) Get(key string) (*unfold.JobSet, bool) {
	if key == "" {
		return nil, false
	}
	set, ok := c.cache.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return set, ok
}

// Set 设置缓存值
func (c *LRUJobSetCache) Set(key string, set *unfold.JobSet) {
	if key == "" || set == nil {
		return // 空key，忽略
	}
	c.cache.Add(key, set)
}

// Delete 删除缓存值
func (c *LRUJobSetCache) Delete(key string) {
	c.cache.Remove(key)
}

// Clear 清空所有缓存
func (c *LRUJobSetCache) Clear() {
	c.cache.Purge()
}

// Stats 命中统计
func (c *LRUJobSetCache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.cache.Len(),
	}
}

// NopJobSetCache 不缓存（缓存关闭时使用）
type NopJobSetCache struct{}

func (NopJobSetCache) Get(string) (*unfold.JobSet, bool) { return nil, false }
func (NopJobSetCache) Set(string, *unfold.JobSet)        {}
func (NopJobSetCache) Delete(string)                     {}
func (NopJobSetCache) Clear()                            {}
func (NopJobSetCache) Stats() Stats                      { return Stats{} }
