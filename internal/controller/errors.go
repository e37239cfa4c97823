package controller

import (
	"civics_quiz_backend/internal/quiz"
	"civics_quiz_backend/internal/service"
	"civics_quiz_backend/internal/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError 将业务错误映射为 HTTP 状态码，data 可为 nil
func respondError(ctx *gin.Context, err error, data interface{}) {
	var denied *service.AccessDeniedError
	if errors.As(err, &denied) {
		status := http.StatusForbidden
		if denied.Decision.Retryable() {
			status = http.StatusServiceUnavailable
		}
		util.Fail(ctx, status, denied.Decision.Reason, denied.Decision)
		return
	}

	switch {
	case errors.Is(err, util.ErrMalformedRequest), errors.Is(err, quiz.ErrInvalidOption):
		util.Fail(ctx, http.StatusBadRequest, err.Error(), data)
	case errors.Is(err, util.ErrAuthenticationRequired), errors.Is(err, util.ErrInvalidCredentials):
		util.Fail(ctx, http.StatusUnauthorized, err.Error(), data)
	case errors.Is(err, util.ErrSessionNotFound),
		errors.Is(err, util.ErrAttemptNotFound),
		errors.Is(err, util.ErrQuestionNotFound),
		errors.Is(err, util.ErrSectionNotFound),
		errors.Is(err, util.ErrSubscriptionNotFound),
		errors.Is(err, util.ErrUserNotFound):
		util.Fail(ctx, http.StatusNotFound, err.Error(), data)
	case errors.Is(err, quiz.ErrInvalidTransition),
		errors.Is(err, quiz.ErrSessionTerminated),
		errors.Is(err, util.ErrEmailRegistered):
		util.Fail(ctx, http.StatusConflict, err.Error(), data)
	case errors.Is(err, util.ErrPersistenceFailed), errors.Is(err, util.ErrVerificationFailed):
		// 可重试
		util.Fail(ctx, http.StatusServiceUnavailable, err.Error(), data)
	case errors.Is(err, util.ErrInvalidSignature):
		util.Fail(ctx, http.StatusBadRequest, err.Error(), data)
	case errors.Is(err, util.ErrPaymentProvider):
		util.Fail(ctx, http.StatusBadGateway, "payment provider unavailable", data)
	default:
		util.LogInternalError(ctx, err)
	}
}

// pageParams 读取 page / limit 查询参数
func pageParams(ctx *gin.Context) (int, int) {
	page := int(util.MustParseUint(ctx.DefaultQuery("page", "1")))
	limit := int(util.MustParseUint(ctx.DefaultQuery("limit", "20")))
	return util.ClampPage(page, limit)
}
