package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// ModelStatus GET /api/v1/model/status
func (h *Handler) ModelStatus(_ context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, h.analyzer().ModelStatus())
}

// TrainModel POST /api/v1/model/train
// 从配置的语料来源重新训练，完成后返回最新状态
func (h *Handler) TrainModel(ctx context.Context, c *app.RequestContext) {
	if _, err := h.svc.TrainModel(ctx); err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{
		"message": "Model retrained",
		"status":  h.analyzer().ModelStatus(),
	})
}
