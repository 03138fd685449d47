package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LENAX/dagsched/pkg/api/dto"
	"github.com/LENAX/dagsched/pkg/core/engine"
	"github.com/LENAX/dagsched/pkg/storage"
)

// RunHandler 分析记录API处理器
type RunHandler struct {
	engine *engine.Engine
}

// NewRunHandler 创建RunHandler
func NewRunHandler(eng *engine.Engine) *RunHandler {
	return &RunHandler{engine: eng}
}

// List 列出分析记录
// GET /api/v1/runs
func (h *RunHandler) List(c *gin.Context) {
	var query dto.RunsQueryRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(400, fmt.Sprintf("查询参数错误: %v", err)))
		return
	}

	limit := query.GetDefaultLimit()
	// 多取一条用于判断是否还有下一页
	runs, err := h.engine.ListRuns(c.Request.Context(), storage.RunFilter{
		Fingerprint: query.Fingerprint,
		Verdict:     query.Verdict,
		Limit:       limit + 1,
		Offset:      query.Offset,
	})
	if err != nil {
		writeRunError(c, err)
		return
	}

	hasMore := len(runs) > limit
	if hasMore {
		runs = runs[:limit]
	}
	items := make([]dto.RunSummary, 0, len(runs))
	for _, run := range runs {
		items = append(items, dto.NewRunSummary(run))
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.ListResponse[dto.RunSummary]{
		Total:   len(items),
		Items:   items,
		HasMore: hasMore,
	}))
}

// Get 查询分析记录详情
// GET /api/v1/runs/:id
func (h *RunHandler) Get(c *gin.Context) {
	run, err := h.engine.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeRunError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(dto.RunDetail{
		RunSummary: dto.NewRunSummary(run),
		Jobs:       run.Results,
	}))
}

func writeRunError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrNoRepository):
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(503, "存储未配置"))
	case errors.Is(err, storage.ErrRunNotFound):
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(404, "分析记录不存在"))
	default:
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(500, fmt.Sprintf("查询分析记录失败: %v", err)))
	}
}
