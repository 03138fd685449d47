package analysis

import (
	"sync"
	"time"
)

// Recorder 记录最近一次成功分析的CPU时间
type Recorder struct {
	mu   sync.RWMutex
	last time.Duration
	runs int
}

// NewRecorder 创建记录器，初始值为0
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Store 覆盖最近一次的CPU时间
func (r *Recorder) Store(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = d
	r.runs++
}

// LastCPUTime 最近一次分析的CPU时间
func (r *Recorder) LastCPUTime() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Runs 已记录的分析次数
func (r *Recorder) Runs() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runs
}
