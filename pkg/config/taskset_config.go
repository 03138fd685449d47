package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/LENAX/dagsched/pkg/core/taskset"
)

// TasksetConfig 任务集文件（对外导出）
// 同时用作 API 请求体，因此带 json 标签
type TasksetConfig struct {
	Tasks []TaskDefinition `yaml:"tasks" json:"tasks"`
}

// TaskDefinition 周期DAG任务定义
type TaskDefinition struct {
	Name     string              `yaml:"name" json:"name"`
	Period   int64               `yaml:"period" json:"period"`
	Deadline *int64              `yaml:"deadline,omitempty" json:"deadline,omitempty"` // 省略时取周期（隐式截止期），显式给出时必须大于0
	SubTasks []SubTaskDefinition `yaml:"subtasks" json:"subtasks"`
}

// SubTaskDefinition 子作业定义
type SubTaskDefinition struct {
	ID         int   `yaml:"id" json:"id"`
	Cost       int64 `yaml:"cost" json:"cost"`
	Successors []int `yaml:"successors" json:"successors,omitempty"`
}

// ToTaskset 转换为任务集并校验
func (c *TasksetConfig) ToTaskset() (*taskset.Taskset, error) {
	ts := taskset.New()
	for i, def := range c.Tasks {
		deadline := def.Period
		if def.Deadline != nil {
			deadline = *def.Deadline
		}
		task := taskset.NewTask(def.Name, def.Period, deadline)
		for _, st := range def.SubTasks {
			if _, err := task.AddSubTask(st.ID, st.Cost, st.Successors...); err != nil {
				return nil, fmt.Errorf("tasks[%d] (%s): %w", i, task.Label(), err)
			}
		}
		ts.Add(task)
	}
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	return ts, nil
}

// FromTaskset 任务集转换为文件格式
func FromTaskset(ts *taskset.Taskset) *TasksetConfig {
	cfg := &TasksetConfig{Tasks: make([]TaskDefinition, 0, ts.Len())}
	for _, t := range ts.Tasks() {
		deadline := t.Deadline()
		def := TaskDefinition{
			Name:     t.Name(),
			Period:   t.Period(),
			Deadline: &deadline,
			SubTasks: make([]SubTaskDefinition, 0, t.Len()),
		}
		for _, v := range t.Vertices() {
			def.SubTasks = append(def.SubTasks, SubTaskDefinition{
				ID:         v.ID(),
				Cost:       v.Cost(),
				Successors: v.Successors(),
			})
		}
		cfg.Tasks = append(cfg.Tasks, def)
	}
	return cfg
}

// ParseTaskset 解析任务集内容（YAML，JSON 作为其子集同样可用）
func ParseTaskset(data []byte) (*taskset.Taskset, error) {
	var cfg TasksetConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: 解析任务集失败: %v", taskset.ErrConfig, err)
	}
	return cfg.ToTaskset()
}

// LoadTaskset 从文件加载任务集
func LoadTaskset(path string) (*taskset.Taskset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取任务集文件失败: %w", err)
	}
	ts, err := ParseTaskset(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return ts, nil
}

// LoadTasksetDir 加载目录下所有 .yaml/.yml 任务集，按文件名排序
func LoadTasksetDir(dir string) (map[string]*taskset.Taskset, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("读取目录失败: %w", err)
	}
	result := make(map[string]*taskset.Taskset)
	paths := make([]string, 0)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		ts, err := LoadTaskset(path)
		if err != nil {
			return nil, nil, err
		}
		result[path] = ts
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return result, paths, nil
}
