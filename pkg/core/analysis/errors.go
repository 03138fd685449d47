package analysis

import (
	"errors"
	"fmt"

	"github.com/LENAX/dagsched/pkg/core/taskset"
)

// ErrConfig 与任务集共用的配置错误根
var ErrConfig = taskset.ErrConfig

var (
	// ErrInvalidProcessors 处理器数量小于1
	ErrInvalidProcessors = fmt.Errorf("%w: 处理器数量必须大于等于1", ErrConfig)
	// ErrEmptyJobSet 作业集为空
	ErrEmptyJobSet = fmt.Errorf("%w: 作业集为空", ErrConfig)
	// ErrNoEngine 未配置分析引擎
	ErrNoEngine = fmt.Errorf("%w: 未配置分析引擎", ErrConfig)
	// ErrUnknownAbortJob 中止动作指向不存在的作业
	ErrUnknownAbortJob = fmt.Errorf("%w: 中止动作指向未知作业", ErrConfig)
	// ErrInvalidAbort 中止动作的时间窗口倒置
	ErrInvalidAbort = fmt.Errorf("%w: 中止动作时间窗口无效", ErrConfig)
)

// ErrEngine 分析阶段错误的根
// "不可调度"是正常结果，不会以错误返回
var ErrEngine = errors.New("分析引擎执行失败")

// EngineError 外部分析引擎返回的错误（对外导出）
type EngineError struct {
	Engine string // 引擎名称
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrEngine.Error(), e.Engine, e.Err)
}

// Unwrap 同时暴露 ErrEngine 与底层错误
func (e *EngineError) Unwrap() []error {
	return []error{ErrEngine, e.Err}
}
