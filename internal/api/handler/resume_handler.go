package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"resume-screening-go/internal/constants"
	"resume-screening-go/internal/processor"
	"resume-screening-go/internal/types"
)

// AnalyzeResume POST /api/v1/resumes/analyze
// multipart 字段 file，返回完整分析结果
func (h *Handler) AnalyzeResume(ctx context.Context, c *app.RequestContext) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "No file provided")
		return
	}
	file, err := h.readUpload(fh)
	if err != nil {
		writeError(ctx, c, err)
		return
	}

	res, err := h.svc.AnalyzeUpload(ctx, file)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, res)
}

// BatchAnalyze POST /api/v1/resumes/batch[?async=true]
// 同步模式直接返回逐项结果；异步模式投递到队列并返回 202 与 batch_id
func (h *Handler) BatchAnalyze(ctx context.Context, c *app.RequestContext) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, "No files provided")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		badRequest(c, "No files provided")
		return
	}
	if len(headers) > constants.MaxBatchFiles {
		badRequest(c, fmt.Sprintf("单次最多上传 %d 个文件", constants.MaxBatchFiles))
		return
	}

	// 单个文件校验失败只记入该文件对应的结果
	files := make([]processor.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, h.readBatchUpload(fh))
	}

	if strings.EqualFold(c.Query("async"), "true") {
		queued, err := h.svc.SubmitBatch(ctx, files)
		if err != nil {
			writeError(ctx, c, err)
			return
		}
		c.JSON(consts.StatusAccepted, queued)
		return
	}

	c.JSON(consts.StatusOK, h.svc.AnalyzeBatch(ctx, files))
}

// GetBatch GET /api/v1/resumes/batch/:batch_id
func (h *Handler) GetBatch(ctx context.Context, c *app.RequestContext) {
	batchID := c.Param("batch_id")
	if batchID == "" {
		badRequest(c, "batch_id 不能为空")
		return
	}
	res, err := h.svc.GetBatch(ctx, batchID)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, res)
}

// MatchResume POST /api/v1/resumes/match
// multipart 字段 resume_file 与 job_description
func (h *Handler) MatchResume(ctx context.Context, c *app.RequestContext) {
	fh, err := c.FormFile("resume_file")
	if err != nil {
		badRequest(c, "No resume file provided")
		return
	}
	description := strings.TrimSpace(c.PostForm("job_description"))
	if description == "" {
		badRequest(c, "No job description provided")
		return
	}
	file, err := h.readUpload(fh)
	if err != nil {
		writeError(ctx, c, err)
		return
	}

	report, err := h.analyzer().MatchDocument(ctx, types.DocumentInput{Name: file.Filename, Data: file.Data}, description)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, report)
}
