package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/LENAX/dagsched/pkg/api"
	"github.com/LENAX/dagsched/pkg/config"
	"github.com/LENAX/dagsched/pkg/core/engine"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "./configs/dagsched.yaml", "引擎配置文件路径")
	host := flag.String("host", "", "监听地址，覆盖配置文件")
	port := flag.Int("port", 0, "监听端口，覆盖配置文件")
	flag.Parse()

	config.LoadDotEnv()
	log.Printf("dagsched server v%s (%s, %s)", Version, GitCommit, BuildTime)
	log.Printf("配置文件: %s", *configPath)

	// 1. 构建Engine
	eng, err := engine.NewEngineBuilder(*configPath).
		WithEventBus().
		Override(func(cfg *config.EngineConfig) {
			if *host != "" {
				cfg.DagSched.Server.Host = *host
			}
			if *port > 0 {
				cfg.DagSched.Server.Port = *port
			}
		}).
		Build()
	if err != nil {
		log.Fatalf("创建Engine失败: %v", err)
	}

	// 2. 启动Engine（注册定时分析）
	if err := eng.Start(context.Background()); err != nil {
		eng.Close()
		log.Fatalf("启动Engine失败: %v", err)
	}

	// 3. 创建API服务器
	serverConfig := api.ServerConfigFrom(eng.Config())
	apiServer := api.NewAPIServer(eng, serverConfig, Version)

	// 4. 在goroutine中启动API服务器
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Printf("API服务器错误: %v", err)
		}
	}()

	log.Printf("✅ dagsched server started on %s", apiServer.Addr())

	// 5. 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 6. 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConfig.WriteTimeout)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("关闭API服务器失败: %v", err)
	}

	if err := eng.Close(); err != nil {
		log.Printf("关闭Engine失败: %v", err)
	}
	log.Println("✅ 服务已停止")
}
