package controller

import (
	"fmt"
	"net/http"
	"net/url"
	"quizgen_backend/internal/service"
	"quizgen_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReportController struct {
	Service *service.ReportService
}

func NewReportController(svc *service.ReportService) *ReportController {
	return &ReportController{Service: svc}
}

// @Summary 教师仪表盘
// @Description 试卷数、成绩数、各试卷作答人数和总分前三名
// @Tags 统计报表
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.Dashboard}
// @Router /api/teacher/dashboard [get]
func (c *ReportController) Dashboard(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	d, err := c.Service.Dashboard(ctx.Request.Context(), service.OwnerScope(user))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, d)
}

// @Summary 历史记录
// @Tags 统计报表
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.History}
// @Router /api/teacher/history [get]
func (c *ReportController) History(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	h, err := c.Service.History(ctx.Request.Context(), service.OwnerScope(user))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, h)
}

// @Summary 试卷成绩列表
// @Tags 统计报表
// @Produce json
// @Security BearerAuth
// @Param id path int true "试卷ID"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Param name query string false "学生姓名"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/teacher/tests/{id}/results [get]
func (c *ReportController) Results(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	page, limit := util.ParsePage(ctx.Query("page"), ctx.Query("limit"), 20)
	res, err := c.Service.Results(ctx.Request.Context(), service.OwnerScope(user), id, page, limit, ctx.Query("name"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 导出成绩 CSV
// @Tags 统计报表
// @Produce text/csv
// @Security BearerAuth
// @Param id path int true "试卷ID"
// @Success 200 {file} file
// @Router /api/teacher/tests/{id}/results/export [get]
func (c *ReportController) Export(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	exp, err := c.Service.ExportResults(ctx.Request.Context(), service.OwnerScope(user), id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="results.csv"; filename*=UTF-8''%s`, url.PathEscape(exp.Filename)))
	ctx.Data(http.StatusOK, "text/csv; charset=utf-8", exp.Data)
}

// @Summary 作答链接二维码
// @Tags 统计报表
// @Produce image/png
// @Security BearerAuth
// @Param id path int true "试卷ID"
// @Success 200 {file} file
// @Router /api/teacher/tests/{id}/qr [get]
func (c *ReportController) QRCode(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	png, link, err := c.Service.QRCode(ctx.Request.Context(), service.OwnerScope(user), id, requestOrigin(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Header("X-Test-Link", link)
	ctx.Data(http.StatusOK, "image/png", png)
}

// @Summary 单次作答分析
// @Description 以当前题库回看答卷，已删除的题目不展示
// @Tags 统计报表
// @Produce json
// @Security BearerAuth
// @Param id path int true "成绩ID"
// @Success 200 {object} util.Response{data=service.ResultAnalysis}
// @Failure 404 {object} util.Response
// @Router /api/teacher/results/{id}/analysis [get]
func (c *ReportController) Analysis(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	a, err := c.Service.Analysis(ctx.Request.Context(), service.OwnerScope(user), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// requestOrigin 根据请求还原站点地址，支持反向代理头
func requestOrigin(ctx *gin.Context) string {
	scheme := "http"
	if ctx.Request.TLS != nil {
		scheme = "https"
	}
	if proto := ctx.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	host := ctx.Request.Host
	if fwd := ctx.GetHeader("X-Forwarded-Host"); fwd != "" {
		host = fwd
	}
	return scheme + "://" + host
}
