// Package nptest 通过命令行调用 nptest 进行可调度性分析
package nptest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/LENAX/dagsched/pkg/codec/csvio"
	"github.com/LENAX/dagsched/pkg/core/analysis"
	"github.com/LENAX/dagsched/pkg/core/unfold"
)

// DefaultBinary 默认可执行文件名
const DefaultBinary = "nptest"

// ErrBinaryNotFound 找不到可执行文件
var ErrBinaryNotFound = errors.New("找不到nptest可执行文件")

// Config 引擎配置
type Config struct {
	Binary    string // 可执行文件路径，为空时在 PATH 中查找 nptest
	WorkDir   string // 临时文件所在目录，为空时使用系统临时目录
	KeepFiles bool   // 保留输入输出文件，便于排查
}

// runner 执行外部命令，返回标准输出
type runner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// Engine nptest 适配器（对外导出）
type Engine struct {
	cfg Config
	run runner
}

// New 创建 nptest 适配器
func New(cfg Config) *Engine {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	return &Engine{cfg: cfg, run: execRunner}
}

// Name 引擎名称
func (e *Engine) Name() string {
	return "nptest"
}

// Files 一次运行使用的文件
type Files struct {
	Jobs       string
	Precedence string
	Aborts     string
}

// ResponseTimes 引擎 -r 输出的文件路径
func (f Files) ResponseTimes() string {
	return strings.TrimSuffix(f.Jobs, filepath.Ext(f.Jobs)) + ".rta.csv"
}

// BuildArgs 组装命令行参数
func BuildArgs(files Files, p *analysis.Problem, opts analysis.Options) []string {
	args := []string{
		"-m", strconv.Itoa(p.Processors),
		"--precedence", files.Precedence,
		"-r",
	}
	if len(p.Aborts) > 0 {
		args = append(args, "-a", files.Aborts)
	}
	if opts.Timeout > 0 {
		args = append(args, "-t", strconv.FormatFloat(opts.Timeout.Seconds(), 'f', -1, 64))
	}
	if opts.MaxDepth > 0 {
		args = append(args, "-l", strconv.FormatUint(uint64(opts.MaxDepth), 10))
	}
	if opts.BeNaive {
		args = append(args, "--naive")
	}
	if !opts.EarlyExit {
		args = append(args, "-c")
	}
	if opts.Workers > 0 {
		args = append(args, "--threads", strconv.Itoa(opts.Workers))
	}
	return append(args, files.Jobs)
}

// Explore 写出输入文件、执行 nptest 并解析结果
// ctx 取消时外部进程被终止
func (e *Engine) Explore(ctx context.Context, p *analysis.Problem, opts analysis.Options) (analysis.Space, error) {
	dir, err := os.MkdirTemp(e.cfg.WorkDir, "dagsched-nptest-*")
	if err != nil {
		return nil, fmt.Errorf("创建临时目录失败: %w", err)
	}
	if e.cfg.KeepFiles {
		log.Printf("📁 [nptest] 保留运行文件: %s", dir)
	} else {
		defer os.RemoveAll(dir)
	}

	files := Files{
		Jobs:       filepath.Join(dir, "jobs.csv"),
		Precedence: filepath.Join(dir, "prec.csv"),
		Aborts:     filepath.Join(dir, "aborts.csv"),
	}
	if err := writeInputs(files, p); err != nil {
		return nil, err
	}

	args := BuildArgs(files, p, opts)
	start := time.Now()
	out, err := e.run(ctx, dir, e.cfg.Binary, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("nptest 被取消: %w", ctxErr)
		}
		return nil, err
	}
	summary, err := lastSummary(out)
	if err != nil {
		return nil, err
	}
	log.Printf("✅ [nptest] 运行结束: Schedulable=%v, States=%d, CPU=%s, Wall=%s",
		summary.Schedulable, summary.States, summary.CPUTime, time.Since(start))

	sp := &space{summary: summary, finish: make(map[unfold.JobKey]analysis.Interval)}
	if err := sp.loadResponseTimes(files.ResponseTimes()); err != nil {
		return nil, err
	}
	return sp, nil
}

func writeInputs(files Files, p *analysis.Problem) error {
	write := func(path string, fn func(f *os.File) error) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("创建 %s 失败: %w", filepath.Base(path), err)
		}
		if err := fn(f); err != nil {
			f.Close()
			return fmt.Errorf("写入 %s 失败: %w", filepath.Base(path), err)
		}
		return f.Close()
	}
	if err := write(files.Jobs, func(f *os.File) error { return csvio.WriteJobs(f, p.Jobs) }); err != nil {
		return err
	}
	if err := write(files.Precedence, func(f *os.File) error { return csvio.WritePrecedence(f, p.Precedence) }); err != nil {
		return err
	}
	return write(files.Aborts, func(f *os.File) error { return csvio.WriteAborts(f, p.Aborts) })
}

func execRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBinaryNotFound, name)
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = dir
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("执行 %s 失败: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// space nptest 的探索结果
type space struct {
	summary Summary
	finish  map[unfold.JobKey]analysis.Interval
}

func (s *space) IsSchedulable() bool {
	// 超时视为不可调度
	return s.summary.Schedulable && !s.summary.TimedOut
}

func (s *space) CPUTime() time.Duration {
	return s.summary.CPUTime
}

func (s *space) FinishTimes(j unfold.Job) (analysis.Interval, bool) {
	iv, ok := s.finish[j.Key()]
	return iv, ok
}

// loadResponseTimes 读取 .rta.csv，文件不存在时不提供完成时间
func (s *space) loadResponseTimes(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := csvio.ReadResponseTimes(f)
	if err != nil {
		return fmt.Errorf("解析响应时间文件失败: %w", err)
	}
	for _, r := range rows {
		s.finish[r.Key()] = analysis.Interval{From: r.BCCT, Until: r.WCCT}
	}
	return nil
}
