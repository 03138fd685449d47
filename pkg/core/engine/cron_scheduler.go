package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/LENAX/dagsched/pkg/config"
	"github.com/LENAX/dagsched/pkg/core/events"
)

// CronScheduler 定时分析调度器（对外导出）
// 每个条目按Cron表达式重新加载任务集文件并分析
type CronScheduler struct {
	cron    *cron.Cron
	engine  *Engine
	entries map[string]config.ScheduleEntry // 条目名 -> 条目
	ids     map[string]cron.EntryID         // 条目名 -> cron.EntryID
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewCronScheduler 创建定时调度器（对外导出）
func NewCronScheduler(eng *Engine) *CronScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &CronScheduler{
		cron:    cron.New(cron.WithSeconds()), // 支持秒级精度
		engine:  eng,
		entries: make(map[string]config.ScheduleEntry),
		ids:     make(map[string]cron.EntryID),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// RegisterEntry 注册定时分析条目（对外导出）
func (cs *CronScheduler) RegisterEntry(entry config.ScheduleEntry) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if entry.Name == "" {
		return fmt.Errorf("定时分析条目名称不能为空")
	}
	if _, exists := cs.entries[entry.Name]; exists {
		return fmt.Errorf("定时分析条目 %s 已注册", entry.Name)
	}
	if entry.Taskset == "" {
		return fmt.Errorf("定时分析条目 %s 未设置任务集文件", entry.Name)
	}
	if entry.Cron == "" {
		return fmt.Errorf("定时分析条目 %s 未设置Cron表达式", entry.Name)
	}

	// 验证Cron表达式（使用Parser支持秒级精度）
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(entry.Cron); err != nil {
		return fmt.Errorf("定时分析条目 %s 的Cron表达式无效: %w", entry.Name, err)
	}

	entryID, err := cs.cron.AddFunc(entry.Cron, func() {
		cs.Trigger(entry)
	})
	if err != nil {
		return fmt.Errorf("添加Cron任务失败: %w", err)
	}

	cs.entries[entry.Name] = entry
	cs.ids[entry.Name] = entryID

	log.Printf("✅ [Cron调度器] 已注册定时分析: Name=%s, Taskset=%s, CronExpr=%s", entry.Name, entry.Taskset, entry.Cron)
	return nil
}

// UnregisterEntry 取消注册（对外导出）
func (cs *CronScheduler) UnregisterEntry(name string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	entryID, exists := cs.ids[name]
	if !exists {
		return fmt.Errorf("定时分析条目 %s 未注册", name)
	}
	cs.cron.Remove(entryID)
	delete(cs.entries, name)
	delete(cs.ids, name)

	log.Printf("✅ [Cron调度器] 已取消注册定时分析: Name=%s", name)
	return nil
}

// Trigger 立即执行一次条目的分析
// 每次重新读取任务集文件，文件的修改在下一次触发时生效
func (cs *CronScheduler) Trigger(entry config.ScheduleEntry) {
	log.Printf("🕐 [Cron调度器] 触发定时分析: Name=%s, Taskset=%s", entry.Name, entry.Taskset)

	source := "schedule:" + entry.Name
	triggered := events.NewAnalysisEvent(events.EventScheduleTriggered, "")
	triggered.Source = source
	triggered.Processors = entry.Processors
	triggered.WithMetadata("taskset", entry.Taskset)
	cs.engine.publish(cs.ctx, triggered)

	ts, err := cs.engine.LoadTaskset(entry.Taskset)
	if err != nil {
		log.Printf("❌ [Cron调度器] 加载任务集失败: Name=%s, Error=%v", entry.Name, err)
		cs.engine.publishFailure(cs.ctx, "", source, entry.Processors, triggered.ID, err)
		return
	}

	report, err := cs.engine.AnalyzeFrom(cs.ctx, ts, entry.Processors, source)
	if err != nil {
		log.Printf("❌ [Cron调度器] 定时分析失败: Name=%s, Error=%v", entry.Name, err)
		return
	}
	log.Printf("✅ [Cron调度器] 定时分析完成: Name=%s, RunID=%s, Verdict=%s", entry.Name, report.RunID, report.Verdict)
}

// Start 启动定时调度器（对外导出）
func (cs *CronScheduler) Start() {
	cs.cron.Start()
	log.Println("✅ [Cron调度器] 已启动")
}

// Stop 停止定时调度器，等待正在执行的分析结束；停止后不可再次启动（对外导出）
func (cs *CronScheduler) Stop() {
	cs.cancel()
	<-cs.cron.Stop().Done()
	log.Println("✅ [Cron调度器] 已停止")
}

// GetRegisteredEntries 获取已注册的条目名称，按名称排序（对外导出）
func (cs *CronScheduler) GetRegisteredEntries() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	names := make([]string, 0, len(cs.entries))
	for name := range cs.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
