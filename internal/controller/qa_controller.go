package controller

import (
	"civics_quiz_backend/internal/service"
	"civics_quiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QAController struct {
	qaService *service.QAService
}

func NewQAController(qaService *service.QAService) *QAController {
	return &QAController{qaService: qaService}
}

type AskRequest struct {
	Question  string `json:"question" binding:"required,max=1000"`
	SessionID string `json:"sessionId" binding:"omitempty,uuid"`
}

// Ask 处理问答请求
// @Summary 公民考试学习助手
// @Description 先检索学习资料和题库，再调用大模型回答。默认 SSE（session、source、message、error、end）；
// @Description Accept: application/json 时一次性返回完整回答
// @Tags QA
// @Accept json
// @Produce text/event-stream
// @Produce json
// @Param request body AskRequest true "问题内容"
// @Success 200 {object} util.Response{data=service.Answer}
// @Router /api/qa/ask [post]
func (c *QAController) Ask(ctx *gin.Context) {
	var req AskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	var userID uint
	if claims := util.GetUserFromContext(ctx); claims != nil {
		userID = claims.UserID
	}
	if ctx.NegotiateFormat("text/event-stream", gin.MIMEJSON) == gin.MIMEJSON {
		answer, err := c.qaService.Ask(ctx.Request.Context(), userID, req.SessionID, req.Question)
		if err != nil {
			util.LogInternalError(ctx, err)
			return
		}
		util.Success(ctx, answer)
		return
	}

	answer, err := c.qaService.AskStream(ctx.Request.Context(), userID, req.SessionID, req.Question)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}

	// 设置SSE响应头
	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")

	ctx.SSEvent("session", answer.SessionID)
	ctx.SSEvent("source", answer.Source)
	ctx.Writer.Flush()

	for content := range answer.Tokens {
		ctx.SSEvent("message", content)
		ctx.Writer.Flush()
	}

	if err := <-answer.Errs; err != nil {
		ctx.SSEvent("error", err.Error())
		ctx.Writer.Flush()
	}

	ctx.SSEvent("end", "done")
	ctx.Writer.Flush()
}

// History godoc
// @Summary 问答历史
// @Tags QA
// @Security ApiKeyAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/qa/history [get]
func (c *QAController) History(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	page, limit := pageParams(ctx)
	messages, total, err := c.qaService.History(ctx.Request.Context(), claims.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: messages, Total: total, Page: page, Limit: limit})
}
