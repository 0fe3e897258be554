package controller

import (
	"errors"
	"net/http"
	"quizgen_backend/internal/quiz"
	"quizgen_backend/internal/service"
	"quizgen_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError 将业务错误映射为 HTTP 状态码，未知错误记录日志后返回 500
func respondError(ctx *gin.Context, err error) {
	var ingestion *service.IngestionError
	switch {
	case errors.Is(err, quiz.ErrEmptyPool):
		util.Error(ctx, http.StatusConflict, quiz.ErrEmptyPool.Error())
	case errors.Is(err, quiz.ErrCapacityExceeded):
		util.Error(ctx, http.StatusForbidden, quiz.ErrCapacityExceeded.Error())
	case errors.Is(err, util.ErrTestNotFound),
		errors.Is(err, util.ErrResultNotFound),
		errors.Is(err, util.ErrQuestionNotFound),
		errors.Is(err, util.ErrUserNotFound):
		util.Error(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, util.ErrAlreadySubmitted),
		errors.Is(err, util.ErrEmailRegistered):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrInvalidCredentials):
		util.Error(ctx, http.StatusUnauthorized, err.Error())
	case errors.Is(err, util.ErrFileTooLarge):
		util.Error(ctx, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, util.ErrInvalidTicket),
		errors.Is(err, util.ErrTicketMismatch),
		errors.Is(err, util.ErrUnsupportedFile),
		errors.Is(err, util.ErrEmptyDocument),
		errors.Is(err, util.ErrNoQuestions),
		errors.Is(err, util.ErrInvalidQuestion),
		errors.Is(err, util.ErrPasswordMismatch):
		util.BadRequest(ctx, err.Error())
	case errors.As(err, &ingestion):
		util.Error(ctx, http.StatusBadGateway, ingestion.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// parseID 解析路径参数 id，非法时直接返回 400
func parseID(ctx *gin.Context) (uint, bool) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid id")
		return 0, false
	}
	return id, true
}

// currentUser 取登录用户，缺失时返回 401
func currentUser(ctx *gin.Context) (*util.Claims, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return nil, false
	}
	return user, true
}
