package controller

import (
	"civics_quiz_backend/internal/service"
	"civics_quiz_backend/internal/util"
	"io"

	"github.com/gin-gonic/gin"
)

// 支付平台 webhook 正文上限
const maxWebhookBody = 64 << 10

type PaymentController struct {
	Payments *service.PaymentService
}

func NewPaymentController(payments *service.PaymentService) *PaymentController {
	return &PaymentController{Payments: payments}
}

// Plans godoc
// @Summary 订阅套餐
// @Tags Payments
// @Success 200 {object} util.Response{data=[]service.Plan}
// @Router /api/payments/plans [get]
func (c *PaymentController) Plans(ctx *gin.Context) {
	util.Success(ctx, c.Payments.Plans())
}

// Checkout godoc
// @Summary 创建结账会话
// @Tags Payments
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.CheckoutSession}
// @Failure 502 {object} util.Response
// @Router /api/payments/checkout [post]
func (c *PaymentController) Checkout(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	session, err := c.Payments.Checkout(ctx.Request.Context(), claims.UserID)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	util.Success(ctx, session)
}

// Subscription godoc
// @Summary 当前订阅
// @Tags Payments
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.Subscription}
// @Failure 404 {object} util.Response
// @Router /api/payments/subscription [get]
func (c *PaymentController) Subscription(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	sub, err := c.Payments.Subscription(ctx.Request.Context(), claims.UserID)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	util.Success(ctx, sub)
}

// Cancel godoc
// @Summary 到期后取消订阅
// @Tags Payments
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.Subscription}
// @Router /api/payments/subscription/cancel [post]
func (c *PaymentController) Cancel(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	sub, err := c.Payments.Cancel(ctx.Request.Context(), claims.UserID)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	util.Success(ctx, sub)
}

// Reactivate godoc
// @Summary 撤销取消订阅
// @Tags Payments
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.Subscription}
// @Router /api/payments/subscription/reactivate [post]
func (c *PaymentController) Reactivate(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	sub, err := c.Payments.Reactivate(ctx.Request.Context(), claims.UserID)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	util.Success(ctx, sub)
}

// Webhook godoc
// @Summary 支付平台回调
// @Tags Payments
// @Param Stripe-Signature header string true "签名"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/payments/webhook [post]
func (c *PaymentController) Webhook(ctx *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBody))
	if err != nil {
		util.BadRequest(ctx, "unreadable body")
		return
	}
	if err := c.Payments.HandleWebhook(ctx.Request.Context(), payload, ctx.GetHeader("Stripe-Signature")); err != nil {
		respondError(ctx, err, nil)
		return
	}
	util.Success(ctx, gin.H{"received": true})
}
