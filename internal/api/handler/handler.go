package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"resume-screening-go/internal/config"
	"resume-screening-go/internal/constants"
	"resume-screening-go/internal/logger"
	"resume-screening-go/internal/parser"
	"resume-screening-go/internal/processor"
	"resume-screening-go/internal/reference"
)

// errInvalidFileType 上传文件扩展名不在允许列表中
var errInvalidFileType = errors.New("Invalid file type")

// Handler 聚合所有 HTTP 接口
type Handler struct {
	svc            *processor.ResumeService
	catalog        *reference.Catalog
	allowed        []string
	maxUploadBytes int64
}

// NewHandler 创建 Handler。cfg 为空时使用默认上传限制
func NewHandler(svc *processor.ResumeService, catalog *reference.Catalog, cfg *config.Config) *Handler {
	h := &Handler{
		svc:            svc,
		catalog:        catalog,
		allowed:        constants.AllowedExtensions,
		maxUploadBytes: constants.DefaultMaxUploadBytes,
	}
	if cfg != nil {
		if len(cfg.Skills.AllowedExtensions) > 0 {
			h.allowed = cfg.Skills.AllowedExtensions
		}
		if cfg.Server.MaxUploadMB > 0 {
			h.maxUploadBytes = int64(cfg.Server.MaxUploadMB) << 20
		}
	}
	return h
}

func (h *Handler) analyzer() *processor.SkillAnalyzer {
	return h.svc.Analyzer()
}

// Health GET /api/v1/health
func (h *Handler) Health(_ context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{
		"status":  "healthy",
		"message": "Resume Screening API is running",
	})
}

// writeError 按错误类别映射 HTTP 状态码
func writeError(ctx context.Context, c *app.RequestContext, err error) {
	status := consts.StatusInternalServerError
	switch {
	case errors.Is(err, errInvalidFileType):
		status = consts.StatusBadRequest
	case errors.Is(err, processor.ErrBatchNotFound):
		status = consts.StatusNotFound
	case errors.Is(err, processor.ErrTrainingBusy):
		status = consts.StatusConflict
	case errors.Is(err, processor.ErrAsyncUnavailable), errors.Is(err, processor.ErrNoCorpusSource):
		status = consts.StatusServiceUnavailable
	default:
		switch processor.ErrorKind(err) {
		case processor.KindInput:
			status = consts.StatusBadRequest
		case processor.KindUnsupported, processor.KindCorrupt:
			status = consts.StatusUnprocessableEntity
		}
	}
	if status >= consts.StatusInternalServerError {
		logger.Ctx(ctx).Error().Err(err).Str("path", string(c.Path())).Msg("请求处理失败")
	}
	c.JSON(status, utils.H{"error": err.Error()})
}

func badRequest(c *app.RequestContext, msg string) {
	c.JSON(consts.StatusBadRequest, utils.H{"error": msg})
}

// readUpload 校验扩展名与大小后读取上传文件
func (h *Handler) readUpload(fh *multipart.FileHeader) (processor.UploadedFile, error) {
	if fh.Filename == "" {
		return processor.UploadedFile{}, processor.NewInputError("upload", "No file selected")
	}
	if !parser.IsAllowedExtension(fh.Filename, h.allowed) {
		return processor.UploadedFile{}, fmt.Errorf("%w: %s", errInvalidFileType, fh.Filename)
	}
	if fh.Size > h.maxUploadBytes {
		return processor.UploadedFile{}, processor.NewInputError("upload",
			fmt.Sprintf("文件 %s 超过大小限制 %d 字节", fh.Filename, h.maxUploadBytes))
	}

	f, err := fh.Open()
	if err != nil {
		return processor.UploadedFile{}, fmt.Errorf("打开上传文件失败: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		return processor.UploadedFile{}, fmt.Errorf("读取上传文件失败: %w", err)
	}
	if int64(len(data)) > h.maxUploadBytes {
		return processor.UploadedFile{}, processor.NewInputError("upload",
			fmt.Sprintf("文件 %s 超过大小限制 %d 字节", fh.Filename, h.maxUploadBytes))
	}
	return processor.UploadedFile{Filename: fh.Filename, Data: data}, nil
}

// readBatchUpload 与 readUpload 相同，但校验失败时返回带 Rejected 的文件
func (h *Handler) readBatchUpload(fh *multipart.FileHeader) processor.UploadedFile {
	file, err := h.readUpload(fh)
	if err == nil {
		return file
	}
	if errors.Is(err, errInvalidFileType) {
		err = processor.NewUnsupportedFormatError(fh.Filename, "Invalid file type")
	}
	return processor.UploadedFile{Filename: fh.Filename, Rejected: err}
}
