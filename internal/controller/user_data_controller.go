package controller

import (
	"fmt"
	"io"
	"study_notebook_backend/internal/middleware"
	"study_notebook_backend/internal/service"
	"study_notebook_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// maxUserDataBody 单次写入的请求体上限
const maxUserDataBody = 8 << 20

type UserDataController struct {
	UserDataService *service.UserDataService
	ExportService   *service.ExportService
}

func NewUserDataController(userDataService *service.UserDataService, exportService *service.ExportService) *UserDataController {
	return &UserDataController{
		UserDataService: userDataService,
		ExportService:   exportService,
	}
}

// GetUserData godoc
// @Summary 获取学习数据
// @Description 返回当前账号的完整学习数据，首次访问时创建空文档。userId 只来自登录身份
// @Tags 学习数据
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=model.UserRecord}
// @Failure 401 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/user-data [get]
func (c *UserDataController) GetUserData(ctx *gin.Context) {
	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	rec, err := c.UserDataService.Get(ctx.Request.Context(), identity.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, rec)
}

// UpdateUserData godoc
// @Summary 局部写入学习数据
// @Description 请求体中出现的序列整体替换，未出现的保持不变。userId 如果出现必须与登录身份一致
// @Tags 学习数据
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.RecordPatch true "需要替换的序列"
// @Success 200 {object} util.Response{data=model.WriteResult}
// @Failure 400 {object} util.Response "格式错误"
// @Failure 401 {object} util.Response
// @Failure 403 {object} util.Response "userId 不一致"
// @Failure 503 {object} util.Response "存储暂不可用"
// @Router /api/user-data [put]
func (c *UserDataController) UpdateUserData(ctx *gin.Context) {
	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxUserDataBody+1))
	if err != nil {
		util.BadRequest(ctx, "failed to read request body")
		return
	}
	if len(body) > maxUserDataBody {
		util.Error(ctx, 413, "request body too large")
		return
	}

	result, err := c.UserDataService.Update(ctx.Request.Context(), identity.UserID, body)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// DownloadExport godoc
// @Summary 导出学习数据
// @Description 以 xlsx 文件下载全部学习数据
// @Tags 学习数据
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file
// @Failure 401 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/user-data/export [get]
func (c *UserDataController) DownloadExport(ctx *gin.Context) {
	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	rec, err := c.UserDataService.Get(ctx.Request.Context(), identity.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	buf, err := c.ExportService.Workbook(rec)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	filename := c.ExportService.Filename(identity.UserID)
	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	ctx.Data(200, util.MimeXLSX, buf.Bytes())
}

// ArchiveExport godoc
// @Summary 归档学习数据
// @Description 生成 xlsx 并保存到配置的存储（local/minio/oss），返回访问地址
// @Tags 学习数据
// @Produce json
// @Security BearerAuth
// @Success 201 {object} util.Response{data=service.ExportArchive}
// @Failure 401 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/user-data/export [post]
func (c *UserDataController) ArchiveExport(ctx *gin.Context) {
	identity, ok := middleware.GetIdentity(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	rec, err := c.UserDataService.Get(ctx.Request.Context(), identity.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	archive, err := c.ExportService.Archive(ctx.Request.Context(), rec)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, archive)
}
