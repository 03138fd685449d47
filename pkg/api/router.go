package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/dagsched/internal/logx"
	"github.com/LENAX/dagsched/pkg/api/dto"
	"github.com/LENAX/dagsched/pkg/api/handler"
)

func (s *APIServer) setupRouter() *gin.Engine {
	if !logx.Enabled(logx.LevelDebug) {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", s.health)

	analysisHandler := handler.NewAnalysisHandler(s.engine)
	runHandler := handler.NewRunHandler(s.engine)
	eventHandler := handler.NewEventHandler(s.engine.EventBus())

	v1 := r.Group("/api/v1")
	{
		v1.POST("/hyperperiod", analysisHandler.Hyperperiod)
		v1.POST("/unfold", analysisHandler.Unfold)
		v1.POST("/analyze", analysisHandler.Analyze)

		v1.GET("/runs", runHandler.List)
		v1.GET("/runs/:id", runHandler.Get)

		v1.GET("/events", eventHandler.Stream)
	}
	return r
}

// health 健康检查
// GET /health
func (s *APIServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.HealthResponse{
		Status:    "ok",
		Version:   s.version,
		Engine:    s.engine.Harness().EngineName(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Analyses:  s.engine.AnalysisCount(),
		LastCPU:   s.engine.LastCPUTime().String(),
	}))
}

// requestLogger 访问日志
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		if status >= http.StatusInternalServerError {
			log.Printf("❌ [API] %s %s %d %s", c.Request.Method, c.Request.URL.Path, status, time.Since(start))
			return
		}
		logx.Debugf("[API] %s %s %d %s", c.Request.Method, c.Request.URL.Path, status, time.Since(start))
	}
}
