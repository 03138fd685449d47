package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/dagsched/pkg/api/dto"
	"github.com/LENAX/dagsched/pkg/codec/csvio"
	"github.com/LENAX/dagsched/pkg/config"
	"github.com/LENAX/dagsched/pkg/core/analysis"
	"github.com/LENAX/dagsched/pkg/core/engine"
	"github.com/LENAX/dagsched/pkg/core/taskset"
	"github.com/LENAX/dagsched/pkg/core/unfold"
)

// AnalysisHandler 超周期、展开与分析API处理器
type AnalysisHandler struct {
	engine *engine.Engine
}

// NewAnalysisHandler 创建AnalysisHandler
func NewAnalysisHandler(eng *engine.Engine) *AnalysisHandler {
	return &AnalysisHandler{engine: eng}
}

// Hyperperiod 计算任务集超周期
// POST /api/v1/hyperperiod
func (h *AnalysisHandler) Hyperperiod(c *gin.Context) {
	var req dto.TasksetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("请求体错误: %v", err)))
		return
	}
	ts, ok := toTaskset(c, &req.Taskset)
	if !ok {
		return
	}

	hp, err := h.engine.Hyperperiod(ts)
	if err != nil {
		writeError(c, err)
		return
	}
	jobs, err := unfold.CountJobs(ts)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.HyperperiodResponse{
		Hyperperiod: hp,
		Fingerprint: ts.Fingerprint(),
		JobCount:    jobs,
	}))
}

// Unfold 展开任务集
// POST /api/v1/unfold?format=json|csv&part=jobs|precedence
func (h *AnalysisHandler) Unfold(c *gin.Context) {
	var query dto.UnfoldQueryRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("查询参数错误: %v", err)))
		return
	}
	var req dto.TasksetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("请求体错误: %v", err)))
		return
	}
	ts, ok := toTaskset(c, &req.Taskset)
	if !ok {
		return
	}

	set, err := h.engine.Unfold(c.Request.Context(), ts)
	if err != nil {
		writeError(c, err)
		return
	}

	if query.Format != "csv" {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewUnfoldResponse(set)))
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if query.Part == "precedence" {
		err = csvio.WritePrecedence(c.Writer, set.Edges)
	} else {
		err = csvio.WriteJobs(c.Writer, set.Jobs)
	}
	if err != nil {
		_ = c.Error(err)
	}
}

// Analyze 可调度性分析
// POST /api/v1/analyze
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req dto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("请求体错误: %v", err)))
		return
	}
	ts, ok := toTaskset(c, &req.Taskset)
	if !ok {
		return
	}

	report, err := h.engine.AnalyzeWithAborts(c.Request.Context(), ts, req.Processors, "api", req.AbortActions())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewAnalyzeResponse(report)))
}

func toTaskset(c *gin.Context, cfg *config.TasksetConfig) (*taskset.Taskset, bool) {
	ts, err := cfg.ToTaskset()
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return ts, true
}

// writeError 配置错误返回400，引擎错误返回502，其余返回500
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, taskset.ErrConfig):
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, err.Error()))
	case errors.Is(err, analysis.ErrEngine):
		c.JSON(http.StatusBadGateway, dto.NewErrorResponse(502, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, err.Error()))
	}
}
