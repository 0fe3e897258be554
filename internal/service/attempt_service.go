package service

import (
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

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AttemptService 学生作答：领取题目、提交判分
type AttemptService struct {
	TestRepo   *repository.TestRepository
	ResultRepo *repository.ResultRepository
	Ledger     AttemptLedger
	Cfg        *config.Config
}

func NewAttemptService(testRepo *repository.TestRepository, resultRepo *repository.ResultRepository, ledger AttemptLedger, cfg *config.Config) *AttemptService {
	return &AttemptService{
		TestRepo:   testRepo,
		ResultRepo: resultRepo,
		Ledger:     ledger,
		Cfg:        cfg,
	}
}

// PublicTest 学生可见的试卷信息
type PublicTest struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	TimeLimit       int       `json:"timeLimit"`
	Mode            quiz.Mode `json:"mode"`
	QuestionsToShow int       `json:"questionsToShow"`
	RemainingSeats  int       `json:"remainingSeats"`
}

// PublicQuestion 不含正确答案
type PublicQuestion struct {
	ID      uint     `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type StartedAttempt struct {
	Test      PublicTest       `json:"test"`
	Ticket    string           `json:"ticket"`
	Questions []PublicQuestion `json:"questions"`
}

func (s *AttemptService) loadTest(ctx context.Context, id uint) (*model.Test, error) {
	test, err := s.TestRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTestNotFound
	}
	return test, err
}

// Admit 已有成绩数达到上限时返回 quiz.ErrCapacityExceeded。
// 只是一次检查，非严格模式下与提交之间存在竞争。
func (s *AttemptService) Admit(ctx context.Context, test *model.Test) (int, error) {
	count, err := s.ResultRepo.CountByTest(ctx, test.ID)
	if err != nil {
		return 0, err
	}
	if !quiz.Admit(count, test.MaxStudents) {
		return 0, quiz.ErrCapacityExceeded
	}
	return quiz.Remaining(count, test.MaxStudents), nil
}

func publicTest(test *model.Test, remaining int) PublicTest {
	return PublicTest{
		ID:              test.ID,
		Title:           test.Title,
		Description:     test.Description,
		TimeLimit:       test.TimeLimit,
		Mode:            test.Mode,
		QuestionsToShow: test.QuestionsToShow,
		RemainingSeats:  remaining,
	}
}

// Describe 作答前展示的试卷信息，不检查名额
func (s *AttemptService) Describe(ctx context.Context, id uint) (*PublicTest, error) {
	test, err := s.loadTest(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.ResultRepo.CountByTest(ctx, id)
	if err != nil {
		return nil, err
	}
	pt := publicTest(test, quiz.Remaining(count, test.MaxStudents))
	return &pt, nil
}

// Start 检查名额后抽题并签发作答凭证
func (s *AttemptService) Start(ctx context.Context, testID uint) (*StartedAttempt, error) {
	ctx, span := tracing.Start(ctx, "AttemptService.Start", attribute.Int("test.id", int(testID)))
	defer span.End()

	test, err := s.loadTest(ctx, testID)
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}

	pool, err := s.TestRepo.ListQuestions(ctx, testID)
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}
	if len(pool) == 0 {
		tracing.Fail(span, quiz.ErrEmptyPool)
		return nil, quiz.ErrEmptyPool
	}

	remaining, err := s.Admit(ctx, test)
	if err != nil {
		if errors.Is(err, quiz.ErrCapacityExceeded) {
			monitoring.CapacityRejections.WithLabelValues("start").Inc()
		}
		tracing.Fail(span, err)
		return nil, err
	}

	picked, err := quiz.Sample(pool, test.QuestionsToShow)
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}

	ids := make([]uint, len(picked))
	questions := make([]PublicQuestion, len(picked))
	for i, q := range picked {
		ids[i] = q.ID
		questions[i] = PublicQuestion{ID: q.ID, Text: q.Text, Options: q.Options()}
	}

	ticket, err := util.GenerateAttemptTicket(model.GenerateUUID(), test.ID, ids, s.Cfg.JWT.Secret, s.Cfg.Quiz.TicketTTL)
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}

	monitoring.AttemptsStarted.Inc()
	span.SetAttributes(attribute.Int("attempt.questions", len(ids)))
	return &StartedAttempt{
		Test:      publicTest(test, remaining),
		Ticket:    ticket,
		Questions: questions,
	}, nil
}

type SubmitInput struct {
	Ticket      string
	TestID      uint // 可选，非零时必须与凭证一致
	StudentName string
	Answers     quiz.AnswerSheet
}

type SubmitOutcome struct {
	Result   *model.StudentResult `json:"result"`
	Analysis []AnalysisItem       `json:"analysis"`
	// Skipped 作答期间被删除、未计分的题目
	Skipped []quiz.QuestionID `json:"skipped,omitempty"`
}

// Submit 校验凭证、判分并保存成绩。每张凭证只能成功提交一次。
func (s *AttemptService) Submit(ctx context.Context, in SubmitInput) (out *SubmitOutcome, err error) {
	ctx, span := tracing.Start(ctx, "AttemptService.Submit")
	defer func() {
		tracing.Fail(span, err)
		span.End()
	}()

	claims, err := util.ParseAttemptTicket(in.Ticket, s.Cfg.JWT.Secret)
	if err != nil {
		monitoring.ResultsSubmitted.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if in.TestID != 0 && in.TestID != claims.TestID {
		monitoring.ResultsSubmitted.WithLabelValues("invalid").Inc()
		return nil, util.ErrTicketMismatch
	}
	span.SetAttributes(attribute.Int("test.id", int(claims.TestID)))

	test, err := s.loadTest(ctx, claims.TestID)
	if err != nil {
		return nil, err
	}

	fresh, err := s.Ledger.Consume(ctx, claims.ID, s.Cfg.Quiz.TicketTTL)
	if err != nil {
		return nil, err
	}
	if !fresh {
		monitoring.ResultsSubmitted.WithLabelValues("replayed").Inc()
		return nil, util.ErrAlreadySubmitted
	}
	defer func() {
		if err == nil {
			return
		}
		if rerr := s.Ledger.Release(context.WithoutCancel(ctx), claims.ID); rerr != nil {
			logger.Log.Warn("Failed to release attempt ticket", zap.String("ticket", claims.ID), zap.Error(rerr))
		}
	}()

	questions, err := s.TestRepo.QuestionsByIDs(ctx, test.ID, claims.QuestionIDs)
	if err != nil {
		return nil, err
	}

	presented := make([]quiz.QuestionID, len(claims.QuestionIDs))
	for i, id := range claims.QuestionIDs {
		presented[i] = quiz.QuestionID(id)
	}
	outcome := quiz.Grade(presented, in.Answers, model.BuildAnswerKey(questions))
	if len(outcome.Skipped) > 0 {
		logger.Log.Info("Questions deleted during attempt were not graded",
			zap.Uint("testID", test.ID),
			zap.Int("skipped", len(outcome.Skipped)),
		)
	}

	result := &model.StudentResult{
		TestID:         test.ID,
		StudentName:    strings.TrimSpace(in.StudentName),
		Score:          outcome.Score,
		TotalQuestions: outcome.Total,
		StudentAnswers: datatypes.NewJSONType(outcome.Answers),
	}

	if s.Cfg.Quiz.StrictCapacity {
		err = s.ResultRepo.CreateWithinCapacity(ctx, result)
	} else {
		err = s.ResultRepo.Create(ctx, result)
	}
	if err != nil {
		if errors.Is(err, quiz.ErrCapacityExceeded) {
			monitoring.CapacityRejections.WithLabelValues("submit").Inc()
			monitoring.ResultsSubmitted.WithLabelValues("full").Inc()
		}
		return nil, err
	}

	monitoring.ResultsSubmitted.WithLabelValues("graded").Inc()
	monitoring.ScoreRatio.Observe(ScoreRatio(result))
	items, _ := buildAnalysis(outcome.Answers, questions)
	return &SubmitOutcome{Result: result, Analysis: items, Skipped: outcome.Skipped}, nil
}

// ScoreRatio 得分率，总题数为 0 时返回 0
func ScoreRatio(r *model.StudentResult) float64 {
	if r.TotalQuestions == 0 {
		return 0
	}
	return float64(r.Score) / float64(r.TotalQuestions)
}
