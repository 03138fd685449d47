package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/LENAX/dagsched/internal/logx"
	"github.com/LENAX/dagsched/pkg/config"
	"github.com/LENAX/dagsched/pkg/core/engine"
)

var (
	// 全局变量
	configPath string
	serverURL  string
	outputJSON bool
	logLevel   string
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "dagsched",
	Short: "dagsched - DAG任务集展开与可调度性分析工具",
	Long: `dagsched 把周期性DAG任务集展开为超周期内的作业集合，并调用分析引擎判定可调度性。

支持的功能：
  - 计算任务集超周期
  - 展开作业与前驱约束（CSV/JSON）
  - 可调度性分析（本地或远程服务）
  - 查询分析记录
  - 启动HTTP API服务

使用示例：
  # 计算超周期
  dagsched hyperperiod examples/tasksets/reference.yaml

  # 展开并写出CSV
  dagsched unfold examples/tasksets/reference.yaml -o ./out

  # 单处理器分析并输出响应时间
  dagsched analyze examples/tasksets/reference.yaml -m 1 --verbose

  # 启动HTTP服务
  dagsched server start --port 8080`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadDotEnv()
		if logLevel != "" {
			logx.SetLevelString(logLevel)
		}
	},
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "引擎配置文件路径")
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "dagsched服务器地址")
	rootCmd.PersistentFlags().BoolVarP(&outputJSON, "json", "j", false, "使用JSON格式输出")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别（debug/info/warn/error），覆盖配置文件")

	// 添加子命令
	rootCmd.AddCommand(hyperperiodCmd)
	rootCmd.AddCommand(unfoldCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(versionCmd)
}

// buildEngine 按 --config 构建本地Engine
func buildEngine(verbose io.Writer, overrides ...func(*config.EngineConfig)) (*engine.Engine, error) {
	b := engine.NewEngineBuilder(configPath).WithVerbose(verbose)
	for _, fn := range overrides {
		b.Override(fn)
	}
	if logLevel != "" {
		b.Override(func(cfg *config.EngineConfig) {
			cfg.DagSched.General.LogLevel = logLevel
		})
	}
	return b.Build()
}
