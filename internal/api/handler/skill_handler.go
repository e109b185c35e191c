package handler

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// ExtractSkillsRequest 岗位描述技能提取请求
type ExtractSkillsRequest struct {
	JobDescription string `json:"job_description"`
}

// SkillsRequest 以技能列表为输入的请求
type SkillsRequest struct {
	Skills []string `json:"skills"`
}

// ExtractSkills POST /api/v1/skills/extract
func (h *Handler) ExtractSkills(ctx context.Context, c *app.RequestContext) {
	var req ExtractSkillsRequest
	if err := c.BindJSON(&req); err != nil || strings.TrimSpace(req.JobDescription) == "" {
		badRequest(c, "No job description provided")
		return
	}

	res, err := h.analyzer().ExtractJobSkills(ctx, req.JobDescription)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{
		"skills":   res.Skills,
		"method":   res.Method,
		"template": res.Template,
	})
}

// SearchSkills GET /api/v1/skills/search?q=
func (h *Handler) SearchSkills(_ context.Context, c *app.RequestContext) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		badRequest(c, "q 不能为空")
		return
	}
	c.JSON(consts.StatusOK, utils.H{
		"query":  q,
		"skills": h.catalog.SearchSkills(q),
	})
}
