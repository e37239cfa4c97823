package controller

import (
	"civics_quiz_backend/internal/quiz"
	"civics_quiz_backend/internal/service"
	"civics_quiz_backend/internal/util"
	"fmt"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	Gate     *service.AccessGate
	Sessions *service.SessionManager
	Attempts *service.AttemptService
}

func NewQuizController(gate *service.AccessGate, sessions *service.SessionManager, attempts *service.AttemptService) *QuizController {
	return &QuizController{Gate: gate, Sessions: sessions, Attempts: attempts}
}

type AccessResponse struct {
	quiz.AccessDecision
	Retryable bool `json:"retryable"`
}

// CheckAccess godoc
// @Summary 查询能否开始测验
// @Description 登录用户按订阅等级和计数判定，游客按游客计数判定
// @Tags Quiz
// @Produce json
// @Param mode query string true "standard | timed | practice"
// @Success 200 {object} util.Response{data=AccessResponse}
// @Failure 400 {object} util.Response
// @Router /api/quiz/access [get]
func (c *QuizController) CheckAccess(ctx *gin.Context) {
	mode, err := quiz.ParseMode(ctx.Query("mode"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	decision := c.Gate.CheckAccess(ctx.Request.Context(), util.ActorFromContext(ctx), mode)
	util.Success(ctx, AccessResponse{AccessDecision: decision, Retryable: decision.Retryable()})
}

type CreateSessionRequest struct {
	Mode         string `json:"mode" binding:"required"`
	PracticeType string `json:"practiceType"`
	Category     string `json:"category"`
}

// CreateSession godoc
// @Summary 开始测验会话
// @Tags Quiz
// @Accept json
// @Produce json
// @Param body body CreateSessionRequest true "测验模式"
// @Success 201 {object} util.Response{data=service.SessionView}
// @Failure 403 {object} util.Response{data=quiz.AccessDecision} "免费次数已用完"
// @Failure 503 {object} util.Response{data=quiz.AccessDecision} "无法验证访问权限"
// @Router /api/quiz/sessions [post]
func (c *QuizController) CreateSession(ctx *gin.Context) {
	var req CreateSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	mode, err := quiz.ParseMode(req.Mode)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.Sessions.Create(ctx.Request.Context(), util.ActorFromContext(ctx), service.CreateSessionRequest{
		Mode:         mode,
		PracticeType: req.PracticeType,
		Category:     req.Category,
	})
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	util.Created(ctx, view)
}

func (c *QuizController) respondSession(ctx *gin.Context, view *service.SessionView, err error) {
	if err != nil {
		respondError(ctx, err, view)
		return
	}
	util.Success(ctx, view)
}

// GetSession godoc
// @Summary 查看测验会话
// @Tags Quiz
// @Produce json
// @Param id path string true "会话 ID"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Failure 404 {object} util.Response
// @Router /api/quiz/sessions/{id} [get]
func (c *QuizController) GetSession(ctx *gin.Context) {
	view, err := c.Sessions.Get(ctx.Request.Context(), ctx.Param("id"), util.ActorFromContext(ctx))
	c.respondSession(ctx, view, err)
}

type AnswerRequest struct {
	Option string `json:"option" binding:"required"`
}

// Answer godoc
// @Summary 选择当前题目的答案
// @Tags Quiz
// @Accept json
// @Produce json
// @Param id path string true "会话 ID"
// @Param body body AnswerRequest true "选项 a-d"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/quiz/sessions/{id}/answer [post]
func (c *QuizController) Answer(ctx *gin.Context) {
	var req AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	view, err := c.Sessions.Answer(ctx.Request.Context(), ctx.Param("id"), util.ActorFromContext(ctx), req.Option)
	c.respondSession(ctx, view, err)
}

// Next godoc
// @Summary 下一题
// @Tags Quiz
// @Param id path string true "会话 ID"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Router /api/quiz/sessions/{id}/next [post]
func (c *QuizController) Next(ctx *gin.Context) {
	view, err := c.Sessions.Next(ctx.Request.Context(), ctx.Param("id"), util.ActorFromContext(ctx))
	c.respondSession(ctx, view, err)
}

// Previous godoc
// @Summary 上一题
// @Tags Quiz
// @Param id path string true "会话 ID"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Router /api/quiz/sessions/{id}/previous [post]
func (c *QuizController) Previous(ctx *gin.Context) {
	view, err := c.Sessions.Previous(ctx.Request.Context(), ctx.Param("id"), util.ActorFromContext(ctx))
	c.respondSession(ctx, view, err)
}

type JumpRequest struct {
	Index *int `json:"index" binding:"required"`
}

// Jump godoc
// @Summary 跳转到指定题目
// @Tags Quiz
// @Param id path string true "会话 ID"
// @Param body body JumpRequest true "题目下标"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Router /api/quiz/sessions/{id}/jump [post]
func (c *QuizController) Jump(ctx *gin.Context) {
	var req JumpRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	view, err := c.Sessions.Jump(ctx.Request.Context(), ctx.Param("id"), util.ActorFromContext(ctx), *req.Index)
	c.respondSession(ctx, view, err)
}

// RequestEnd godoc
// @Summary 请求提前结束（需要确认）
// @Tags Quiz
// @Param id path string true "会话 ID"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Router /api/quiz/sessions/{id}/end [post]
func (c *QuizController) RequestEnd(ctx *gin.Context) {
	view, err := c.Sessions.RequestEnd(ctx.Request.Context(), ctx.Param("id"), util.ActorFromContext(ctx))
	c.respondSession(ctx, view, err)
}

// ConfirmEnd godoc
// @Summary 确认提前结束并交卷
// @Tags Quiz
// @Param id path string true "会话 ID"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Failure 503 {object} util.Response{data=service.SessionView} "成绩保存失败，可重试"
// @Router /api/quiz/sessions/{id}/end/confirm [post]
func (c *QuizController) ConfirmEnd(ctx *gin.Context) {
	view, err := c.Sessions.ConfirmEnd(ctx.Request.Context(), ctx.Param("id"), util.ActorFromContext(ctx))
	c.respondSession(ctx, view, err)
}

// CancelEnd godoc
// @Summary 取消提前结束
// @Tags Quiz
// @Param id path string true "会话 ID"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Router /api/quiz/sessions/{id}/end/cancel [post]
func (c *QuizController) CancelEnd(ctx *gin.Context) {
	view, err := c.Sessions.CancelEnd(ctx.Request.Context(), ctx.Param("id"), util.ActorFromContext(ctx))
	c.respondSession(ctx, view, err)
}

// Finish godoc
// @Summary 交卷
// @Tags Quiz
// @Param id path string true "会话 ID"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Router /api/quiz/sessions/{id}/finish [post]
func (c *QuizController) Finish(ctx *gin.Context) {
	view, err := c.Sessions.Finish(ctx.Request.Context(), ctx.Param("id"), util.ActorFromContext(ctx))
	c.respondSession(ctx, view, err)
}

// Submit godoc
// @Summary 重试保存成绩
// @Description 上次保存失败时重试，已保存的会话直接返回结果
// @Tags Quiz
// @Param id path string true "会话 ID"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Failure 503 {object} util.Response{data=service.SessionView}
// @Router /api/quiz/sessions/{id}/submit [post]
func (c *QuizController) Submit(ctx *gin.Context) {
	view, err := c.Sessions.Submit(ctx.Request.Context(), ctx.Param("id"), util.ActorFromContext(ctx))
	c.respondSession(ctx, view, err)
}

// Abandon godoc
// @Summary 放弃测验
// @Description 放弃不消耗免费次数
// @Tags Quiz
// @Param id path string true "会话 ID"
// @Success 200 {object} util.Response
// @Router /api/quiz/sessions/{id} [delete]
func (c *QuizController) Abandon(ctx *gin.Context) {
	if err := c.Sessions.Abandon(ctx.Param("id"), util.ActorFromContext(ctx)); err != nil {
		respondError(ctx, err, nil)
		return
	}
	util.Success(ctx, nil)
}

// SessionSocket godoc
// @Summary 计时测验倒计时推送
// @Tags Quiz
// @Param id path string true "会话 ID"
// @Router /api/quiz/sessions/{id}/ws [get]
func (c *QuizController) SessionSocket(ctx *gin.Context) {
	err := service.ServeSessionWs(c.Sessions, ctx.Writer, ctx.Request, ctx.Param("id"), util.ActorFromContext(ctx))
	if err != nil {
		respondError(ctx, err, nil)
	}
}

// SubmitAttempt godoc
// @Summary 提交客户端计时的测验结果
// @Description 服务器按题库重新计分。登录用户保存记录并返回 attemptId，游客直接返回成绩
// @Tags Quiz
// @Accept json
// @Produce json
// @Param body body service.AttemptRequest true "答题结果"
// @Success 201 {object} util.Response{data=service.SubmissionOutcome}
// @Failure 400 {object} util.Response
// @Failure 503 {object} util.Response "保存失败，可重试"
// @Router /api/quiz/attempts [post]
func (c *QuizController) SubmitAttempt(ctx *gin.Context) {
	var req service.AttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, fmt.Sprintf("%s: %v", util.ErrMalformedRequest, err))
		return
	}
	outcome, err := c.Attempts.Submit(ctx.Request.Context(), util.ActorFromContext(ctx), &req)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	if outcome.Duplicate {
		util.Success(ctx, outcome)
		return
	}
	util.Created(ctx, outcome)
}

// ListAttempts godoc
// @Summary 我的测验记录
// @Tags Quiz
// @Security ApiKeyAuth
// @Param mode query string false "按模式筛选"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/quiz/attempts [get]
func (c *QuizController) ListAttempts(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	mode := ctx.Query("mode")
	if mode != "" {
		if _, err := quiz.ParseMode(mode); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}
	page, limit := pageParams(ctx)
	list, total, err := c.Attempts.List(ctx.Request.Context(), claims.UserID, mode, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: list, Total: total, Page: page, Limit: limit})
}

// GetAttempt godoc
// @Summary 测验记录详情
// @Description 按保存的题目和答案重新计算逐题结果
// @Tags Quiz
// @Security ApiKeyAuth
// @Param id path int true "记录 ID"
// @Success 200 {object} util.Response{data=service.AttemptDetail}
// @Failure 404 {object} util.Response
// @Router /api/quiz/attempts/{id} [get]
func (c *QuizController) GetAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}
	detail, err := c.Attempts.Detail(ctx.Request.Context(), claims.UserID, id)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	util.Success(ctx, detail)
}
