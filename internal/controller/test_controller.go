package controller

import (
	"io"
	"quizgen_backend/internal/quiz"
	"quizgen_backend/internal/service"
	"quizgen_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TestController struct {
	Service     *service.TestService
	MaxUploadMB int
}

func NewTestController(svc *service.TestService, maxUploadMB int) *TestController {
	return &TestController{Service: svc, MaxUploadMB: maxUploadMB}
}

// TestSettingsForm 建卷时的设置，未填写的使用默认值
type TestSettingsForm struct {
	Title           string `form:"title" json:"title" binding:"required,max=200"`
	Description     string `form:"description" json:"description"`
	TimeLimit       int    `form:"time_limit" json:"timeLimit" binding:"omitempty,min=1"`
	MaxStudents     int    `form:"max_students" json:"maxStudents" binding:"omitempty,min=1"`
	QuestionsToShow int    `form:"questions_to_show" json:"questionsToShow" binding:"omitempty,min=1"`
	Mode            string `form:"mode" json:"mode" binding:"omitempty,quizmode"`
}

func (f TestSettingsForm) settings() service.TestSettings {
	return service.TestSettings{
		Title:           f.Title,
		Description:     f.Description,
		TimeLimit:       f.TimeLimit,
		MaxStudents:     f.MaxStudents,
		QuestionsToShow: f.QuestionsToShow,
		Mode:            quiz.Mode(f.Mode),
	}
}

// UploadTestForm multipart 表单，文件字段为 document
type UploadTestForm struct {
	TestSettingsForm
	QuestionCount int `form:"question_count" binding:"omitempty,min=1"`
}

// @Summary 上传文档生成试卷
// @Description 支持 PDF、DOCX、TXT、MD，由 AI 生成选择题
// @Tags 试卷管理
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "试卷标题"
// @Param description formData string false "说明"
// @Param question_count formData int false "生成题目数量" default(5)
// @Param time_limit formData int false "限时（分钟）" default(20)
// @Param max_students formData int false "人数上限" default(100)
// @Param questions_to_show formData int false "每次抽题数量" default(20)
// @Param mode formData string false "lite 或 hard" default(lite)
// @Param document formData file true "出题文档"
// @Success 201 {object} util.Response{data=service.TestDetail}
// @Failure 400 {object} util.Response "文件类型不支持或内容为空"
// @Failure 413 {object} util.Response "文件过大"
// @Failure 502 {object} util.Response "AI 出题失败"
// @Router /api/teacher/tests [post]
func (c *TestController) Upload(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	var form UploadTestForm
	if err := ctx.ShouldBind(&form); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	header, err := ctx.FormFile("document")
	if err != nil {
		util.BadRequest(ctx, "document is required")
		return
	}
	maxBytes := int64(c.MaxUploadMB) << 20
	if header.Size > maxBytes {
		respondError(ctx, util.ErrFileTooLarge)
		return
	}

	file, err := header.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	detail, err := c.Service.CreateFromDocument(ctx.Request.Context(), service.UploadInput{
		TeacherID:     user.UserID,
		Settings:      form.settings(),
		QuestionCount: form.QuestionCount,
		FileName:      header.Filename,
		Data:          data,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, detail)
}

// ManualQuestionRequest 正确答案从 1 开始
type ManualQuestionRequest struct {
	Text          string   `json:"text" binding:"required,max=500"`
	Options       []string `json:"options" binding:"required,min=1,max=4,dive,max=200"`
	CorrectOption int      `json:"correctOption" binding:"required,min=1,max=4"`
}

// swagger:model ManualTestRequest
type ManualTestRequest struct {
	TestSettingsForm
	Questions []ManualQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// @Summary 手动创建试卷
// @Tags 试卷管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ManualTestRequest true "试卷和题目"
// @Success 201 {object} util.Response{data=service.TestDetail}
// @Failure 400 {object} util.Response
// @Router /api/teacher/tests/manual [post]
func (c *TestController) CreateManual(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req ManualTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	items := make([]service.ManualQuestion, len(req.Questions))
	for i, q := range req.Questions {
		items[i] = service.ManualQuestion{Text: q.Text, Options: q.Options, CorrectOption: q.CorrectOption}
	}

	detail, err := c.Service.CreateManual(ctx.Request.Context(), user.UserID, req.settings(), items)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, detail)
}

// @Summary 我的试卷列表
// @Tags 试卷管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]repository.TestListRow}
// @Router /api/teacher/tests [get]
func (c *TestController) List(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	tests, err := c.Service.List(ctx.Request.Context(), service.OwnerScope(user))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, tests)
}

// @Summary 试卷详情（含答案）
// @Tags 试卷管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "试卷ID"
// @Success 200 {object} util.Response{data=service.TestDetail}
// @Failure 404 {object} util.Response
// @Router /api/teacher/tests/{id} [get]
func (c *TestController) Get(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	detail, err := c.Service.Get(ctx.Request.Context(), service.OwnerScope(user), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// UpdateTestRequest 只修改提交的字段，题目不可修改
// swagger:model UpdateTestRequest
type UpdateTestRequest struct {
	Title           *string `json:"title" binding:"omitempty,min=1,max=200"`
	Description     *string `json:"description"`
	TimeLimit       *int    `json:"timeLimit" binding:"omitempty,min=1"`
	MaxStudents     *int    `json:"maxStudents" binding:"omitempty,min=1"`
	QuestionsToShow *int    `json:"questionsToShow" binding:"omitempty,min=1"`
	Mode            *string `json:"mode" binding:"omitempty,quizmode"`
}

// @Summary 修改试卷设置
// @Tags 试卷管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "试卷ID"
// @Param body body UpdateTestRequest true "设置"
// @Success 200 {object} util.Response{data=model.Test}
// @Failure 404 {object} util.Response
// @Router /api/teacher/tests/{id} [put]
func (c *TestController) Update(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req UpdateTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	in := service.UpdateSettingsInput{
		Title:           req.Title,
		Description:     req.Description,
		TimeLimit:       req.TimeLimit,
		MaxStudents:     req.MaxStudents,
		QuestionsToShow: req.QuestionsToShow,
	}
	if req.Mode != nil {
		mode := quiz.Mode(*req.Mode)
		in.Mode = &mode
	}

	test, err := c.Service.UpdateSettings(ctx.Request.Context(), service.OwnerScope(user), id, in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, test)
}

// @Summary 删除试卷
// @Description 同时删除题目和所有成绩
// @Tags 试卷管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "试卷ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/teacher/tests/{id} [delete]
func (c *TestController) Delete(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	if err := c.Service.Delete(ctx.Request.Context(), service.OwnerScope(user), id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 删除题目
// @Description 已开始作答的学生提交时，该题不计入得分和总题数
// @Tags 试卷管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "试卷ID"
// @Param questionId path int true "题目ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/teacher/tests/{id}/questions/{questionId} [delete]
func (c *TestController) DeleteQuestion(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx)
	if !ok {
		return
	}
	questionID := util.MustParseUint(ctx.Param("questionId"))
	if questionID == 0 {
		util.BadRequest(ctx, "invalid question id")
		return
	}

	if err := c.Service.DeleteQuestion(ctx.Request.Context(), service.OwnerScope(user), id, questionID); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
