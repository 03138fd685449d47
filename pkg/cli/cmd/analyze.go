package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/LENAX/dagsched/pkg/cli/client"
	"github.com/LENAX/dagsched/pkg/cli/output"
	"github.com/LENAX/dagsched/pkg/codec/csvio"
	"github.com/LENAX/dagsched/pkg/config"
	"github.com/LENAX/dagsched/pkg/core/analysis"
	"github.com/LENAX/dagsched/pkg/core/engine"
)

var (
	analyzeProcessors int
	analyzeVerbose    bool
	analyzeWatch      bool
	analyzeRemote     bool
	analyzeTimeout    time.Duration
	analyzeEngine     string
	analyzeBinary     string
	analyzeAborts     string
	analyzeRTADir     string
)

type analyzeRow struct {
	File        string `json:"file"`
	RunID       string `json:"run_id,omitempty"`
	Verdict     string `json:"verdict"`
	Processors  int    `json:"processors"`
	Jobs        int    `json:"jobs"`
	CPUTime     string `json:"cpu_time"`
	Error       string `json:"error,omitempty"`
	Schedulable bool   `json:"schedulable"`
}

// analyzeCmd 可调度性分析
var analyzeCmd = &cobra.Command{
	Use:   "analyze <taskset.yaml>...",
	Short: "可调度性分析",
	Long: `展开任务集并调用分析引擎判定可调度性。

不可调度是正常结论，命令仍以0退出；配置错误和引擎失败以非0退出。

示例：
  # 使用配置文件中的引擎，2个处理器
  dagsched analyze ts.yaml -m 2

  # 使用nptest并输出每个作业的响应时间
  dagsched analyze ts.yaml --engine nptest --nptest /opt/np/nptest --verbose

  # 文件变化时重新分析
  dagsched analyze ts.yaml --watch

  # 附带中止动作，并把每个作业的响应时间写到 out/ts.rta.csv
  dagsched analyze ts.yaml --aborts aborts.csv --rta-dir out

  # 提交到远程服务
  dagsched analyze ts.yaml --remote -s http://localhost:8080`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		aborts, err := loadAborts(analyzeAborts)
		if err != nil {
			output.Error("加载中止动作失败: %v", err)
			return err
		}
		if analyzeRemote {
			return analyzeRemotely(args, aborts)
		}

		var verbose io.Writer
		if analyzeVerbose && !outputJSON {
			verbose = output.Out
		}
		eng, err := buildEngine(verbose, func(cfg *config.EngineConfig) {
			a := &cfg.DagSched.Analysis
			if analyzeProcessors > 0 {
				a.Processors = analyzeProcessors
			}
			if analyzeTimeout > 0 {
				a.Timeout = analyzeTimeout
			}
			if analyzeEngine != "" {
				a.Engine.Type = analyzeEngine
			}
			if analyzeBinary != "" {
				a.Engine.Binary = analyzeBinary
			}
		})
		if err != nil {
			output.Error("创建Engine失败: %v", err)
			return err
		}
		defer eng.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if analyzeWatch {
			return watchAndAnalyze(ctx, eng, args, aborts)
		}
		return analyzeOnce(ctx, eng, args, aborts)
	},
}

// loadAborts 读取中止动作CSV，未指定时返回nil
func loadAborts(path string) ([]analysis.AbortAction, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	aborts, err := csvio.ReadAborts(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return aborts, nil
}

func analyzeOnce(ctx context.Context, eng *engine.Engine, paths []string, aborts []analysis.AbortAction) error {
	results, err := eng.AnalyzeBatch(ctx, paths, analyzeProcessors, aborts)
	if err != nil {
		return err
	}
	rows := make([]analyzeRow, len(results))
	var firstErr error
	for i, r := range results {
		rows[i] = rowFromResult(r)
		if r.Err != nil && firstErr == nil {
			firstErr = r.Err
		}
		if r.Err == nil && analyzeRTADir != "" {
			if err := writeResponseTimes(analyzeRTADir, r); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	if err := printAnalyzeRows(rows); err != nil {
		return err
	}
	return firstErr
}

// writeResponseTimes 在目录下写出 <name>.rta.csv，只包含有完成时间的作业
func writeResponseTimes(dir string, r engine.BatchResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(r.Path), filepath.Ext(r.Path))
	path := filepath.Join(dir, base+".rta.csv")
	rows := csvio.ResponseTimesFromResults(r.Report.Jobs)
	return writeFile(path, func(f *os.File) error { return csvio.WriteResponseTimes(f, rows) })
}

func rowFromResult(r engine.BatchResult) analyzeRow {
	row := analyzeRow{File: r.Path}
	if r.Err != nil {
		row.Verdict = engine.VerdictFailed
		row.Error = r.Err.Error()
		if errors.Is(r.Err, analysis.ErrConfig) {
			row.Verdict = "invalid"
		}
		return row
	}
	row.RunID = r.Report.RunID
	row.Verdict = string(r.Report.Verdict)
	row.Schedulable = r.Report.Schedulable
	row.Processors = r.Report.Processors
	row.Jobs = r.Report.JobCount
	row.CPUTime = r.Report.CPUTime.String()
	return row
}

func printAnalyzeRows(rows []analyzeRow) error {
	if outputJSON {
		return output.PrintJSON(rows)
	}
	table := output.NewTable([]string{"FILE", "VERDICT", "M", "JOBS", "CPU"})
	for _, r := range rows {
		table.AddRow([]string{r.File, output.Verdict(r.Verdict), fmt.Sprint(r.Processors), fmt.Sprint(r.Jobs), r.CPUTime})
	}
	table.Render()
	for _, r := range rows {
		if r.Error != "" {
			output.Error("%s: %s", r.File, r.Error)
		}
	}
	return nil
}

func watchAndAnalyze(ctx context.Context, eng *engine.Engine, paths []string, aborts []analysis.AbortAction) error {
	if err := analyzeOnce(ctx, eng, paths, aborts); err != nil {
		output.Warning("%v", err)
	}

	watcher, err := engine.NewTasksetWatcher(func(path string) {
		output.Info("检测到变化: %s", path)
		if err := analyzeOnce(ctx, eng, []string{path}, aborts); err != nil {
			output.Warning("%v", err)
		}
	}, 0)
	if err != nil {
		return err
	}
	defer watcher.Close()
	for _, p := range paths {
		if err := watcher.Add(p); err != nil {
			return err
		}
	}

	output.Info("正在监听 %d 个文件，Ctrl+C 退出", len(paths))
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func analyzeRemotely(paths []string, aborts []analysis.AbortAction) error {
	c := client.New(serverURL)
	rows := make([]analyzeRow, 0, len(paths))
	var firstErr error
	for _, path := range paths {
		row, err := analyzeRemoteFile(c, path, aborts)
		if err != nil {
			row = analyzeRow{File: path, Verdict: engine.VerdictFailed, Error: err.Error()}
			if firstErr == nil {
				firstErr = err
			}
		}
		rows = append(rows, row)
	}
	if err := printAnalyzeRows(rows); err != nil {
		return err
	}
	return firstErr
}

func analyzeRemoteFile(c *client.Client, path string, aborts []analysis.AbortAction) (analyzeRow, error) {
	ts, err := config.LoadTaskset(path)
	if err != nil {
		return analyzeRow{}, err
	}
	resp, err := c.Analyze(config.FromTaskset(ts), analyzeProcessors, aborts)
	if err != nil {
		return analyzeRow{}, err
	}
	return analyzeRow{
		File:        path,
		RunID:       resp.RunID,
		Verdict:     resp.Verdict,
		Schedulable: resp.Schedulable,
		Processors:  resp.Processors,
		Jobs:        resp.JobCount,
		CPUTime:     resp.CPUTime,
	}, nil
}

func init() {
	analyzeCmd.Flags().IntVarP(&analyzeProcessors, "processors", "m", 0, "处理器数量（默认取配置）")
	analyzeCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "可调度时输出每个作业的BCRT")
	analyzeCmd.Flags().BoolVarP(&analyzeWatch, "watch", "w", false, "文件变化时重新分析")
	analyzeCmd.Flags().BoolVar(&analyzeRemote, "remote", false, "提交到 --server 指定的服务分析")
	analyzeCmd.Flags().DurationVarP(&analyzeTimeout, "timeout", "t", 0, "分析超时时间")
	analyzeCmd.Flags().StringVar(&analyzeEngine, "engine", "", "分析引擎（nptest/sim/none）")
	analyzeCmd.Flags().StringVar(&analyzeBinary, "nptest", "", "nptest可执行文件路径")
	analyzeCmd.Flags().StringVar(&analyzeAborts, "aborts", "", "中止动作CSV文件，透传给分析引擎")
	analyzeCmd.Flags().StringVar(&analyzeRTADir, "rta-dir", "", "把每个作业的响应时间写到该目录下的 <name>.rta.csv")
}
