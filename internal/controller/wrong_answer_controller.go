package controller

import (
	"study_notebook_backend/internal/service"
	"study_notebook_backend/internal/usersync"
	"study_notebook_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type WrongAnswerController struct {
	WrongAnswerService *service.WrongAnswerService
	Sync               *usersync.Factory
}

func NewWrongAnswerController(wrongAnswerService *service.WrongAnswerService, sync *usersync.Factory) *WrongAnswerController {
	return &WrongAnswerController{WrongAnswerService: wrongAnswerService, Sync: sync}
}

// @Summary 获取错题本
// @Description 按部分过滤，q 搜索题目和题型
// @Tags 错题本
// @Produce json
// @Param section query string false "部分"
// @Param q query string false "关键字"
// @Success 200 {object} util.Response{data=service.WrongAnswerList}
// @Failure 503 {object} util.Response
// @Router /api/wrong-answers [get]
func (c *WrongAnswerController) ListWrongAnswers(ctx *gin.Context) {
	f := c.Sync.FromContext(ctx.Request.Context())
	list, err := c.WrongAnswerService.List(ctx.Request.Context(), f, ctx.Query("section"), ctx.Query("q"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 记录错题
// @Tags 错题本
// @Accept json
// @Produce json
// @Param entry body service.CreateWrongAnswerRequest true "错题"
// @Success 201 {object} util.Response{data=service.WrongAnswerMutation}
// @Failure 400 {object} util.Response
// @Router /api/wrong-answers [post]
func (c *WrongAnswerController) CreateWrongAnswer(ctx *gin.Context) {
	var req service.CreateWrongAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	f := c.Sync.FromContext(ctx.Request.Context())
	result, err := c.WrongAnswerService.Add(ctx.Request.Context(), f, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

// @Summary 删除错题
// @Tags 错题本
// @Produce json
// @Param id path string true "错题ID"
// @Success 200 {object} util.Response{data=service.WrongAnswerMutation}
// @Router /api/wrong-answers/{id} [delete]
func (c *WrongAnswerController) DeleteWrongAnswer(ctx *gin.Context) {
	f := c.Sync.FromContext(ctx.Request.Context())
	result, err := c.WrongAnswerService.Delete(ctx.Request.Context(), f, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
