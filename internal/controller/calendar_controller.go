package controller

import (
	"study_notebook_backend/internal/service"
	"study_notebook_backend/internal/usersync"
	"study_notebook_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CalendarController struct {
	CalendarService *service.CalendarService
	Sync            *usersync.Factory
}

func NewCalendarController(calendarService *service.CalendarService, sync *usersync.Factory) *CalendarController {
	return &CalendarController{CalendarService: calendarService, Sync: sync}
}

// @Summary 获取日程
// @Description 按月份或日期过滤，结果按日期、开始时间排序
// @Tags 日程
// @Produce json
// @Param month query string false "月份 YYYY-MM"
// @Param date query string false "日期 YYYY-MM-DD"
// @Success 200 {object} util.Response{data=[]model.CalendarEvent}
// @Failure 400 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/calendar/events [get]
func (c *CalendarController) ListEvents(ctx *gin.Context) {
	f := c.Sync.FromContext(ctx.Request.Context())
	events, err := c.CalendarService.List(ctx.Request.Context(), f, ctx.Query("month"), ctx.Query("date"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, events)
}

// @Summary 新增日程
// @Tags 日程
// @Accept json
// @Produce json
// @Param event body service.CreateEventRequest true "日程信息"
// @Success 201 {object} util.Response{data=service.EventMutation}
// @Failure 400 {object} util.Response
// @Router /api/calendar/events [post]
func (c *CalendarController) CreateEvent(ctx *gin.Context) {
	var req service.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	f := c.Sync.FromContext(ctx.Request.Context())
	result, err := c.CalendarService.Add(ctx.Request.Context(), f, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

// @Summary 切换日程完成状态
// @Tags 日程
// @Produce json
// @Param id path string true "日程ID"
// @Success 200 {object} util.Response{data=service.EventMutation}
// @Router /api/calendar/events/{id}/toggle [patch]
func (c *CalendarController) ToggleEvent(ctx *gin.Context) {
	f := c.Sync.FromContext(ctx.Request.Context())
	result, err := c.CalendarService.Toggle(ctx.Request.Context(), f, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 删除日程
// @Tags 日程
// @Produce json
// @Param id path string true "日程ID"
// @Success 200 {object} util.Response{data=service.EventMutation}
// @Router /api/calendar/events/{id} [delete]
func (c *CalendarController) DeleteEvent(ctx *gin.Context) {
	f := c.Sync.FromContext(ctx.Request.Context())
	result, err := c.CalendarService.Delete(ctx.Request.Context(), f, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
