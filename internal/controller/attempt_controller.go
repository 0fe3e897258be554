package controller

import (
	"quizgen_backend/internal/quiz"
	"quizgen_backend/internal/service"
	"quizgen_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AttemptController 学生作答，无需登录
type AttemptController struct {
	Service *service.AttemptService
}

func NewAttemptController(svc *service.AttemptService) *AttemptController {
	return &AttemptController{Service: svc}
}

// @Summary 获取公开试卷信息
// @Tags 学生作答
// @Produce json
// @Param id path int true "试卷ID"
// @Success 200 {object} util.Response{data=service.PublicTest}
// @Failure 404 {object} util.Response
// @Router /api/public/tests/{id} [get]
func (c *AttemptController) GetTest(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	test, err := c.Service.Describe(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, test)
}

// @Summary 开始作答
// @Description 随机抽题并返回作答凭证，题目不含答案
// @Tags 学生作答
// @Produce json
// @Param id path int true "试卷ID"
// @Success 200 {object} util.Response{data=service.StartedAttempt}
// @Failure 403 {object} util.Response "this test is full"
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response "this test has no questions"
// @Router /api/public/tests/{id}/attempts [post]
func (c *AttemptController) Start(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	started, err := c.Service.Start(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, started)
}

// SubmitRequest answers 的 key 为题目ID，值为 1-4 或 null
// swagger:model SubmitRequest
type SubmitRequest struct {
	Ticket      string           `json:"ticket" binding:"required"`
	TestID      uint             `json:"testId"`
	StudentName string           `json:"studentName" binding:"required,max=100"`
	Answers     quiz.AnswerSheet `json:"answers"`
}

// @Summary 提交答卷
// @Tags 学生作答
// @Accept json
// @Produce json
// @Param body body SubmitRequest true "答卷"
// @Success 201 {object} util.Response{data=service.SubmitOutcome}
// @Failure 400 {object} util.Response "凭证无效"
// @Failure 403 {object} util.Response "this test is full"
// @Failure 409 {object} util.Response "已提交"
// @Router /api/public/attempts/submit [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	var req SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	out, err := c.Service.Submit(ctx.Request.Context(), service.SubmitInput{
		Ticket:      req.Ticket,
		TestID:      req.TestID,
		StudentName: req.StudentName,
		Answers:     req.Answers,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, out)
}
