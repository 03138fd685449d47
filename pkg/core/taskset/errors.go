package taskset

import "errors"

// ErrConfig 配置错误的根错误，所有输入校验失败都包装它
// 调用方可用 errors.Is(err, ErrConfig) 区分"输入有误"与"分析阶段失败"
var ErrConfig = errors.New("配置错误")

var (
	ErrEmptyTaskset        = wrapConfig("任务集为空")
	ErrInvalidPeriod       = wrapConfig("周期必须大于0")
	ErrInvalidDeadline     = wrapConfig("相对截止期必须大于0")
	ErrInvalidCost         = wrapConfig("执行时间不能为负数")
	ErrDuplicateSubTask    = wrapConfig("子作业ID重复")
	ErrUnknownSuccessor    = wrapConfig("后继子作业不存在")
	ErrCyclicTemplate      = wrapConfig("子作业模板存在循环依赖")
	ErrHyperperiodOverflow = wrapConfig("超周期溢出int64")
)

// configError 带有 ErrConfig 父错误的哨兵错误
type configError struct {
	msg string
}

func wrapConfig(msg string) error {
	return &configError{msg: msg}
}

func (e *configError) Error() string {
	return e.msg
}

func (e *configError) Unwrap() error {
	return ErrConfig
}
