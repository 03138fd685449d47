package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LENAX/dagsched/pkg/api"
	"github.com/LENAX/dagsched/pkg/cli/output"
	"github.com/LENAX/dagsched/pkg/config"
	"github.com/LENAX/dagsched/pkg/core/engine"
)

var (
	serverPort int
	serverHost string
)

// serverCmd server子命令
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "服务管理命令",
	Long:  `管理dagsched HTTP API服务。`,
}

// serverStartCmd 启动服务
var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "启动HTTP API服务",
	Long: `启动dagsched HTTP API服务，同时运行配置中的定时分析。

示例：
  # 使用默认配置启动
  dagsched server start

  # 指定端口启动
  dagsched server start --port 8080

  # 指定配置文件启动
  dagsched server start --config ./configs/dagsched.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			for _, p := range []string{"./configs/dagsched.yaml", "./dagsched.yaml"} {
				if _, err := os.Stat(p); err == nil {
					configPath = p
					break
				}
			}
		}
		if configPath != "" {
			output.Info("使用配置文件: %s", configPath)
		} else {
			output.Info("未找到配置文件，使用默认配置")
		}

		b := engine.NewEngineBuilder(configPath).WithEventBus()
		b.Override(func(cfg *config.EngineConfig) {
			if cmd.Flags().Changed("host") {
				cfg.DagSched.Server.Host = serverHost
			}
			if cmd.Flags().Changed("port") {
				cfg.DagSched.Server.Port = serverPort
			}
			if logLevel != "" {
				cfg.DagSched.General.LogLevel = logLevel
			}
		})
		eng, err := b.Build()
		if err != nil {
			output.Error("创建Engine失败: %v", err)
			return err
		}
		defer eng.Close()

		if err := eng.Start(context.Background()); err != nil {
			output.Error("启动Engine失败: %v", err)
			return err
		}

		serverConfig := api.ServerConfigFrom(eng.Config())
		apiServer := api.NewAPIServer(eng, serverConfig, Version)

		go func() {
			if err := apiServer.Start(); err != nil {
				log.Printf("❌ [API服务器] %v", err)
			}
		}()

		output.Success("dagsched server started on %s", apiServer.Addr())

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		output.Info("正在关闭服务...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConfig.WriteTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			output.Error("关闭API服务器失败: %v", err)
		}

		output.Success("服务已停止")
		return nil
	},
}

func init() {
	serverStartCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "监听端口")
	serverStartCmd.Flags().StringVarP(&serverHost, "host", "H", "0.0.0.0", "监听地址")

	serverCmd.AddCommand(serverStartCmd)
}
