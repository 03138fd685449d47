package analysis

import "time"

// DefaultWorkers 引擎内部并行搜索的默认工作线程数
const DefaultWorkers = 8

// Options 分析选项，对应外部引擎可识别的参数
type Options struct {
	Timeout    time.Duration // 0 表示不限制
	MaxDepth   uint          // 0 表示不限制
	EarlyExit  bool          // 发现第一个不可调度证据即停止
	NumBuckets int           // 引擎内部索引提示
	BeNaive    bool          // 关闭优化的状态空间探索
	Workers    int           // 引擎内部工作线程数
}

// ConfigureAnalysis 返回默认分析选项
// 不限时、不限深度、提前退出、桶数量等于作业数、非朴素模式
func ConfigureAnalysis(p *Problem) Options {
	buckets := 0
	if p != nil {
		buckets = len(p.Jobs)
	}
	return Options{
		Timeout:    0,
		MaxDepth:   0,
		EarlyExit:  true,
		NumBuckets: buckets,
		BeNaive:    false,
		Workers:    DefaultWorkers,
	}
}
