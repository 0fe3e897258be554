package service

import (
	"bytes"
	"context"
	"errors"
	"quizgen_backend/internal/config"
	"quizgen_backend/internal/model"
	"quizgen_backend/internal/quiz"
	"quizgen_backend/internal/repository"
	"quizgen_backend/internal/util"
	"quizgen_backend/pkg/logger"
	"quizgen_backend/pkg/monitoring"
	"quizgen_backend/pkg/tracing"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TestService struct {
	TestRepo   *repository.TestRepository
	ResultRepo *repository.ResultRepository
	Storage    *StorageService
	Generator  QuestionGenerator
	Cfg        *config.Config
}

func NewTestService(
	testRepo *repository.TestRepository,
	resultRepo *repository.ResultRepository,
	storage *StorageService,
	generator QuestionGenerator,
	cfg *config.Config,
) *TestService {
	return &TestService{
		TestRepo:   testRepo,
		ResultRepo: resultRepo,
		Storage:    storage,
		Generator:  generator,
		Cfg:        cfg,
	}
}

// TestSettings 建卷和修改时共用的设置，零值使用配置中的默认值
type TestSettings struct {
	Title           string
	Description     string
	TimeLimit       int
	MaxStudents     int
	QuestionsToShow int
	Mode            quiz.Mode
}

func (s *TestService) newTest(teacherID uint, in TestSettings) *model.Test {
	test := &model.Test{
		TeacherID:       teacherID,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		TimeLimit:       in.TimeLimit,
		MaxStudents:     in.MaxStudents,
		QuestionsToShow: in.QuestionsToShow,
		Mode:            in.Mode,
	}
	if test.TimeLimit <= 0 {
		test.TimeLimit = s.Cfg.Quiz.DefaultTimeLimit
	}
	if test.MaxStudents <= 0 {
		test.MaxStudents = s.Cfg.Quiz.DefaultMaxStudents
	}
	if test.QuestionsToShow <= 0 {
		test.QuestionsToShow = s.Cfg.Quiz.DefaultQuestionsToShow
	}
	if !test.Mode.Valid() {
		test.Mode = quiz.ModeLite
	}
	return test
}

type UploadInput struct {
	TeacherID     uint
	Settings      TestSettings
	QuestionCount int
	FileName      string
	Data          []byte
}

// CreateFromDocument 上传文档并由模型出题。模型失败时不写入任何数据。
func (s *TestService) CreateFromDocument(ctx context.Context, in UploadInput) (*TestDetail, error) {
	ctx, span := tracing.Start(ctx, "TestService.CreateFromDocument",
		attribute.String("file.name", in.FileName),
		attribute.Int("file.size", len(in.Data)),
	)
	defer span.End()

	if limit := s.Cfg.Storage.MaxUploadMB; limit > 0 && len(in.Data) > limit<<20 {
		return nil, util.ErrFileTooLarge
	}

	ext, err := util.DocumentExt(in.FileName)
	if err != nil {
		return nil, err
	}
	mimeType, err := util.ValidateDocument(bytes.NewReader(in.Data), ext)
	if err != nil {
		return nil, err
	}

	count := in.QuestionCount
	if count <= 0 {
		count = s.Cfg.Quiz.DefaultQuestionCount
	}
	if count > s.Cfg.Quiz.MaxQuestionCount {
		count = s.Cfg.Quiz.MaxQuestionCount
	}

	req, err := BuildGenerateRequest(in.FileName, ext, mimeType, in.Data, count, s.Cfg.AI.MaxSourceChars)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	cands, err := s.Generator.Generate(ctx, req)
	if err != nil {
		monitoring.GenerationDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		tracing.Fail(span, err)
		var ie *IngestionError
		if !errors.As(err, &ie) {
			err = &IngestionError{Stage: "generate", Err: err}
		}
		return nil, err
	}
	monitoring.GenerationDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	questions := NormalizeCandidates(cands, s.Cfg.Quiz.MaxQuestionCount)
	if len(questions) == 0 {
		err := &IngestionError{Stage: "normalize", Err: ErrNoUsableQuestions}
		tracing.Fail(span, err)
		return nil, err
	}
	if dropped := len(cands) - len(questions); dropped > 0 {
		logger.Log.Warn("Dropped malformed generated questions",
			zap.Int("received", len(cands)),
			zap.Int("dropped", dropped),
		)
	}

	key := DocumentKey(ext)
	if _, err := s.Storage.Upload(ctx, key, bytes.NewReader(in.Data), int64(len(in.Data)), mimeType); err != nil {
		tracing.Fail(span, err)
		return nil, err
	}

	test := s.newTest(in.TeacherID, in.Settings)
	test.SourceDocument = key
	if err := s.TestRepo.CreateWithQuestions(ctx, test, questions); err != nil {
		if derr := s.Storage.Delete(ctx, key); derr != nil {
			logger.Log.Warn("Failed to remove orphaned document", zap.String("key", key), zap.Error(derr))
		}
		tracing.Fail(span, err)
		return nil, err
	}

	monitoring.GeneratedQuestions.Add(float64(len(questions)))
	monitoring.ActiveTests.Inc()
	logger.Log.Info("Test generated from document",
		zap.Uint("testID", test.ID),
		zap.Uint("teacherID", test.TeacherID),
		zap.Int("questions", len(questions)),
	)
	return &TestDetail{Test: *test, Questions: questions}, nil
}

type ManualQuestion struct {
	Text          string
	Options       []string
	CorrectOption int
}

// CreateManual 教师直接提交题目建卷，CorrectOption 从 1 开始
func (s *TestService) CreateManual(ctx context.Context, teacherID uint, settings TestSettings, items []ManualQuestion) (*TestDetail, error) {
	if len(items) == 0 {
		return nil, util.ErrNoQuestions
	}
	if len(items) > s.Cfg.Quiz.MaxQuestionCount {
		items = items[:s.Cfg.Quiz.MaxQuestionCount]
	}

	questions := make([]model.Question, 0, len(items))
	for _, it := range items {
		text := strings.TrimSpace(it.Text)
		if text == "" || !quiz.OptionIndex(it.CorrectOption).Valid() {
			return nil, util.ErrInvalidQuestion
		}
		opts := make([]string, len(it.Options))
		for i, o := range it.Options {
			opts[i] = strings.TrimSpace(o)
		}
		if it.CorrectOption > len(opts) || opts[it.CorrectOption-1] == "" {
			return nil, util.ErrInvalidQuestion
		}
		q := model.Question{Text: text, CorrectOption: it.CorrectOption}
		q.SetOptions(opts)
		questions = append(questions, q)
	}

	test := s.newTest(teacherID, settings)
	if err := s.TestRepo.CreateWithQuestions(ctx, test, questions); err != nil {
		return nil, err
	}
	monitoring.ActiveTests.Inc()
	return &TestDetail{Test: *test, Questions: questions}, nil
}

// TestDetail 教师查看的完整试卷，包含正确答案
type TestDetail struct {
	model.Test
	Questions   []model.Question `json:"questions"`
	ResultCount int64            `json:"resultCount"`
}

func (s *TestService) findOwned(ctx context.Context, owner, id uint) (*model.Test, error) {
	test, err := s.TestRepo.FindOwned(ctx, id, owner)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTestNotFound
	}
	return test, err
}

func (s *TestService) Get(ctx context.Context, owner, id uint) (*TestDetail, error) {
	test, err := s.findOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.TestRepo.ListQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.ResultRepo.CountByTest(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TestDetail{Test: *test, Questions: questions, ResultCount: count}, nil
}

func (s *TestService) List(ctx context.Context, owner uint) ([]repository.TestListRow, error) {
	return s.TestRepo.ListByTeacher(ctx, owner)
}

// UpdateSettingsInput 为 nil 的字段保持不变
type UpdateSettingsInput struct {
	Title           *string
	Description     *string
	TimeLimit       *int
	MaxStudents     *int
	QuestionsToShow *int
	Mode            *quiz.Mode
}

func (s *TestService) UpdateSettings(ctx context.Context, owner, id uint, in UpdateSettingsInput) (*model.Test, error) {
	test, err := s.findOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		test.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		test.Description = *in.Description
	}
	if in.TimeLimit != nil && *in.TimeLimit > 0 {
		test.TimeLimit = *in.TimeLimit
	}
	if in.MaxStudents != nil && *in.MaxStudents > 0 {
		test.MaxStudents = *in.MaxStudents
	}
	if in.QuestionsToShow != nil && *in.QuestionsToShow > 0 {
		test.QuestionsToShow = *in.QuestionsToShow
	}
	if in.Mode != nil && in.Mode.Valid() {
		test.Mode = *in.Mode
	}

	if err := s.TestRepo.UpdateSettings(ctx, test); err != nil {
		return nil, err
	}
	return test, nil
}

// DeleteQuestion 删除单个题目。已开始作答的学生提交时该题不计分。
func (s *TestService) DeleteQuestion(ctx context.Context, owner, testID, questionID uint) error {
	if _, err := s.findOwned(ctx, owner, testID); err != nil {
		return err
	}
	err := s.TestRepo.DeleteQuestion(ctx, testID, questionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrQuestionNotFound
	}
	return err
}

// Delete 删除试卷及其题目和成绩，随后尽力删除源文档
func (s *TestService) Delete(ctx context.Context, owner, id uint) error {
	test, err := s.findOwned(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.TestRepo.Delete(ctx, id); err != nil {
		return err
	}
	monitoring.ActiveTests.Dec()

	if err := s.Storage.Delete(ctx, test.SourceDocument); err != nil {
		// 清理任务会再次尝试
		logger.Log.Warn("Failed to delete source document",
			zap.Uint("testID", id),
			zap.String("key", test.SourceDocument),
			zap.Error(err),
		)
	}
	return nil
}
