// Package events 分析生命周期事件
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType 事件类型
type EventType string

const (
	EventAnalysisStarted   EventType = "analysis.started"   // 分析开始
	EventAnalysisCompleted EventType = "analysis.completed" // 分析完成（含不可调度）
	EventAnalysisFailed    EventType = "analysis.failed"    // 配置或引擎错误
	EventTasksetUnfolded   EventType = "taskset.unfolded"   // 任务集展开完成
	EventScheduleTriggered EventType = "schedule.triggered" // 定时分析触发
)

// AnalysisEvent 分析事件
type AnalysisEvent struct {
	ID            string            `json:"id"`   // 事件ID（UUID）
	Type          EventType         `json:"type"` // 事件类型
	RunID         string            `json:"run_id,omitempty"`
	Fingerprint   string            `json:"fingerprint,omitempty"` // 任务集指纹
	Source        string            `json:"source,omitempty"`      // 任务集来源（文件路径、api、定时条目名）
	Processors    int               `json:"processors,omitempty"`
	JobCount      int               `json:"job_count,omitempty"`
	Hyperperiod   int64             `json:"hyperperiod,omitempty"`
	Verdict       string            `json:"verdict,omitempty"`
	CPUTime       time.Duration     `json:"cpu_time,omitempty"`
	Error         string            `json:"error,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"` // 关联ID（同一次请求的事件）
}

// NewAnalysisEvent 创建事件
func NewAnalysisEvent(eventType EventType, fingerprint string) *AnalysisEvent {
	return &AnalysisEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		Fingerprint: fingerprint,
		Timestamp:   time.Now(),
		Metadata:    make(map[string]string),
	}
}

// WithMetadata 添加元数据
func (e *AnalysisEvent) WithMetadata(key, value string) *AnalysisEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// WithCorrelationID 设置关联ID
func (e *AnalysisEvent) WithCorrelationID(correlationID string) *AnalysisEvent {
	e.CorrelationID = correlationID
	return e
}
