package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"quizgen_backend/internal/config"
	"quizgen_backend/internal/model"
	"quizgen_backend/internal/quiz"
	"quizgen_backend/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Test{}, &model.Question{}, &model.StudentResult{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		JWT: config.JWTConfig{Secret: testSecret, ExpireTime: time.Hour},
		Storage: config.StorageConfig{
			Type:        "local",
			LocalPath:   t.TempDir(),
			MaxUploadMB: 1,
		},
		Quiz: config.QuizConfig{
			TicketTTL:              time.Hour,
			PublicBaseURL:          "",
			DefaultTimeLimit:       20,
			DefaultMaxStudents:     100,
			DefaultQuestionsToShow: 20,
			DefaultQuestionCount:   5,
			MaxQuestionCount:       100,
		},
		Reaper: config.ReaperConfig{Schedule: "@daily", RetentionDays: 30},
	}
}

// fakeGenerator 按预设返回候选题，记录最后一次请求
type fakeGenerator struct {
	cands []CandidateQuestion
	err   error
	last  GenerateRequest
	calls int
}

func (f *fakeGenerator) Generate(ctx context.Context, req GenerateRequest) ([]CandidateQuestion, error) {
	f.calls++
	f.last = req
	return f.cands, f.err
}

func intPtr(i int) *int { return &i }

type fixture struct {
	db       *gorm.DB
	cfg      *config.Config
	tests    *repository.TestRepository
	results  *repository.ResultRepository
	storage  *StorageService
	gen      *fakeGenerator
	testSvc  *TestService
	attempts *AttemptService
	reports  *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	cfg := newTestConfig(t)
	f := &fixture{
		db:      db,
		cfg:     cfg,
		tests:   repository.NewTestRepository(db),
		results: repository.NewResultRepository(db),
		storage: NewStorageService(cfg),
		gen:     &fakeGenerator{},
	}
	f.testSvc = NewTestService(f.tests, f.results, f.storage, f.gen, cfg)
	f.attempts = NewAttemptService(f.tests, f.results, NewMemoryLedger(), cfg)
	f.reports = NewReportService(f.tests, f.results, cfg)
	return f
}

// seed 手动建一套试卷，第 i 题的正确答案为 (i % 4) + 1
func (f *fixture) seed(t *testing.T, teacherID uint, title string, questions, show, maxStudents int) *TestDetail {
	t.Helper()
	items := make([]ManualQuestion, questions)
	for i := range items {
		items[i] = ManualQuestion{
			Text:          fmt.Sprintf("question %d", i+1),
			Options:       []string{"a", "b", "c", "d"},
			CorrectOption: i%4 + 1,
		}
	}
	detail, err := f.testSvc.CreateManual(context.Background(), teacherID, TestSettings{
		Title:           title,
		QuestionsToShow: show,
		MaxStudents:     maxStudents,
		Mode:            quiz.ModeLite,
	}, items)
	if err != nil {
		t.Fatalf("seed test: %v", err)
	}
	return detail
}
