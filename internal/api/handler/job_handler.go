package handler

import (
	"context"
	"net/url"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// RecommendJobs POST /api/v1/jobs/recommend
func (h *Handler) RecommendJobs(ctx context.Context, c *app.RequestContext) {
	var req SkillsRequest
	if err := c.BindJSON(&req); err != nil || len(req.Skills) == 0 {
		badRequest(c, "No skills provided")
		return
	}
	recs, err := h.analyzer().RecommendJobs(req.Skills)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"recommendations": recs})
}

// RankJobs POST /api/v1/jobs/rank
func (h *Handler) RankJobs(ctx context.Context, c *app.RequestContext) {
	var req SkillsRequest
	if err := c.BindJSON(&req); err != nil || len(req.Skills) == 0 {
		badRequest(c, "No skills provided")
		return
	}
	ranked, err := h.analyzer().RankTemplates(req.Skills)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"rankings": ranked})
}

// ListTemplates GET /api/v1/jobs/templates
func (h *Handler) ListTemplates(_ context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{
		"titles":    h.catalog.Titles(),
		"templates": h.catalog.Templates(),
	})
}

// TemplateSkills GET /api/v1/jobs/templates/:title/skills
func (h *Handler) TemplateSkills(_ context.Context, c *app.RequestContext) {
	title := c.Param("title")
	if decoded, err := url.PathUnescape(title); err == nil {
		title = decoded
	}
	tpl, ok := h.catalog.TemplateByTitle(title)
	if !ok {
		c.JSON(consts.StatusNotFound, utils.H{"error": "Job template not found"})
		return
	}
	c.JSON(consts.StatusOK, utils.H{
		"title":  tpl.Title,
		"skills": h.catalog.SkillsForJob(tpl.Title),
	})
}
