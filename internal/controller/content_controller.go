package controller

import (
	"civics_quiz_backend/internal/service"
	"civics_quiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ContentController struct {
	Content *service.ContentService
}

func NewContentController(content *service.ContentService) *ContentController {
	return &ContentController{Content: content}
}

// ListSections godoc
// @Summary 学习资料目录
// @Tags Content
// @Param category query string false "分类"
// @Success 200 {object} util.Response{data=[]model.StudySection}
// @Router /api/content/sections [get]
func (c *ContentController) ListSections(ctx *gin.Context) {
	sections, err := c.Content.ListSections(ctx.Request.Context(), ctx.Query("category"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, sections)
}

// GetSection godoc
// @Summary 学习资料详情
// @Tags Content
// @Param slug path string true "资料 slug"
// @Success 200 {object} util.Response{data=model.StudySection}
// @Failure 404 {object} util.Response
// @Router /api/content/sections/{slug} [get]
func (c *ContentController) GetSection(ctx *gin.Context) {
	section, err := c.Content.Section(ctx.Request.Context(), ctx.Param("slug"))
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	util.Success(ctx, section)
}

// Search godoc
// @Summary 搜索学习资料和题目
// @Tags Content
// @Param q query string true "关键词"
// @Success 200 {object} util.Response{data=service.SearchResult}
// @Router /api/content/search [get]
func (c *ContentController) Search(ctx *gin.Context) {
	result, err := c.Content.Search(ctx.Request.Context(), ctx.Query("q"))
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	util.Success(ctx, result)
}
