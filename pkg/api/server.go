package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/dagsched/pkg/config"
	"github.com/LENAX/dagsched/pkg/core/engine"
)

// ServerConfig API服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig 默认配置
// 分析可能耗时较长，写超时留足余量
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}
}

// ServerConfigFrom 从框架配置读取服务器配置，未设置的字段取默认值
func ServerConfigFrom(cfg *config.EngineConfig) ServerConfig {
	sc := DefaultServerConfig()
	if cfg == nil {
		return sc
	}
	s := cfg.DagSched.Server
	if s.Host != "" {
		sc.Host = s.Host
	}
	if s.Port > 0 {
		sc.Port = s.Port
	}
	if s.ReadTimeout > 0 {
		sc.ReadTimeout = s.ReadTimeout
	}
	if s.WriteTimeout > 0 {
		sc.WriteTimeout = s.WriteTimeout
	}
	return sc
}

// APIServer HTTP API服务器（对外导出）
type APIServer struct {
	engine    *engine.Engine
	config    ServerConfig
	version   string
	startTime time.Time
	router    *gin.Engine
	server    *http.Server
}

// NewAPIServer 创建API服务器
func NewAPIServer(eng *engine.Engine, cfg ServerConfig, version string) *APIServer {
	s := &APIServer{
		engine:    eng,
		config:    cfg,
		version:   version,
		startTime: time.Now(),
	}
	s.router = s.setupRouter()
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler 路由处理器，便于测试
func (s *APIServer) Handler() http.Handler {
	return s.router
}

// Addr 监听地址
func (s *APIServer) Addr() string {
	return s.server.Addr
}

// Start 启动服务器，阻塞直到关闭
func (s *APIServer) Start() error {
	log.Printf("✅ [API服务器] 监听 %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭
func (s *APIServer) Shutdown(ctx context.Context) error {
	log.Println("🛑 [API服务器] 正在关闭...")
	return s.server.Shutdown(ctx)
}
