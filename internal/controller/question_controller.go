package controller

import (
	"civics_quiz_backend/internal/quiz"
	"civics_quiz_backend/internal/service"
	"civics_quiz_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

// maxRandomCount 单次随机抽题上限
const maxRandomCount = 100

type QuestionController struct {
	Questions *service.QuestionService
}

func NewQuestionController(questions *service.QuestionService) *QuestionController {
	return &QuestionController{Questions: questions}
}

func views(questions []quiz.Question) []quiz.QuestionView {
	out := make([]quiz.QuestionView, len(questions))
	for i, q := range questions {
		out[i] = quiz.ViewOf(q)
	}
	return out
}

func countParam(ctx *gin.Context) int {
	n, _ := strconv.Atoi(ctx.Query("count"))
	if n > maxRandomCount {
		n = maxRandomCount
	}
	return n
}

// Random godoc
// @Summary 按模式随机抽题
// @Tags Questions
// @Param mode query string false "standard | timed | practice"
// @Param count query int false "题目数量，默认按模式配置"
// @Param category query string false "分类"
// @Success 200 {object} util.Response{data=[]quiz.QuestionView}
// @Router /api/questions/random [get]
func (c *QuestionController) Random(ctx *gin.Context) {
	mode := quiz.ModeStandard
	if raw := ctx.Query("mode"); raw != "" {
		m, err := quiz.ParseMode(raw)
		if err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
		mode = m
	}
	questions, err := c.Questions.Random(ctx.Request.Context(), mode, ctx.Query("category"), countParam(ctx))
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	util.Success(ctx, views(questions))
}

// ByIDs godoc
// @Summary 按 id 取题（保持顺序）
// @Description 不返回正确答案，答案只出现在测验结果和作答记录里
// @Tags Questions
// @Param ids query string true "逗号分隔的题目 id"
// @Success 200 {object} util.Response{data=[]quiz.QuestionView}
// @Router /api/questions [get]
func (c *QuestionController) ByIDs(ctx *gin.Context) {
	ids, err := util.ParseUintList(ctx.Query("ids"))
	if err != nil || len(ids) == 0 {
		util.BadRequest(ctx, "ids must be a comma separated list of question ids")
		return
	}
	if len(ids) > maxRandomCount {
		util.BadRequest(ctx, "too many ids")
		return
	}
	questions, err := c.Questions.ByIDs(ctx.Request.Context(), ids)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, views(questions))
}

// Practice godoc
// @Summary 练习题
// @Description incorrectOnly=true 时只返回用户最近一次答错的题，需要登录
// @Tags Questions
// @Param category query string false "分类"
// @Param incorrectOnly query bool false "只练错题"
// @Param count query int false "题目数量"
// @Success 200 {object} util.Response{data=[]quiz.QuestionView}
// @Router /api/questions/practice [get]
func (c *QuestionController) Practice(ctx *gin.Context) {
	incorrectOnly, _ := strconv.ParseBool(ctx.DefaultQuery("incorrectOnly", "false"))
	questions, err := c.Questions.Practice(ctx.Request.Context(), util.ActorFromContext(ctx), ctx.Query("category"), incorrectOnly, countParam(ctx))
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	util.Success(ctx, views(questions))
}

// Categories godoc
// @Summary 题目分类
// @Tags Questions
// @Success 200 {object} util.Response{data=[]string}
// @Router /api/questions/categories [get]
func (c *QuestionController) Categories(ctx *gin.Context) {
	categories, err := c.Questions.Categories(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, categories)
}
