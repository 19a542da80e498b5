package controller

import (
	"errors"
	"net/http"
	"study_notebook_backend/internal/model"
	"study_notebook_backend/internal/repository"
	"study_notebook_backend/internal/service"
	"study_notebook_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError 把业务错误映射到 HTTP 状态码
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidPatch), errors.Is(err, util.ErrValidation):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, repository.ErrMissingUserID):
		util.Unauthorized(ctx)
	case errors.Is(err, repository.ErrUserIDMismatch):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrEntryNotFound), errors.Is(err, util.ErrUserNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrEmailRegistered):
		util.Conflict(ctx, "Email already registered")
	case errors.Is(err, util.ErrInvalidCredentials):
		util.Error(ctx, http.StatusUnauthorized, "Invalid email or password")
	case repository.IsRetryable(err), errors.Is(err, service.ErrRecordUnavailable):
		util.ServiceUnavailable(ctx, "User data storage is temporarily unavailable, please retry")
	default:
		util.LogInternalError(ctx, err)
	}
}
