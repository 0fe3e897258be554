package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"quizgen_backend/internal/model"
	"quizgen_backend/internal/quiz"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
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

func seedTest(t *testing.T, repo *TestRepository, teacherID uint, title string, maxStudents, questions int) *model.Test {
	t.Helper()
	test := &model.Test{TeacherID: teacherID, Title: title, MaxStudents: maxStudents, QuestionsToShow: 20, Mode: quiz.ModeLite}
	qs := make([]model.Question, questions)
	for i := range qs {
		qs[i] = model.Question{Text: fmt.Sprintf("q%d", i+1), CorrectOption: 1}
		qs[i].SetOptions([]string{"a", "b", "c", "d"})
	}
	if err := repo.CreateWithQuestions(context.Background(), test, qs); err != nil {
		t.Fatalf("create test: %v", err)
	}
	return test
}

func addResult(t *testing.T, repo *ResultRepository, testID uint, name string, score int) *model.StudentResult {
	t.Helper()
	r := &model.StudentResult{
		TestID:         testID,
		StudentName:    name,
		Score:          score,
		TotalQuestions: 5,
		StudentAnswers: datatypes.NewJSONType(quiz.AnswerSheet{1: quiz.Choice(1)}),
	}
	if err := repo.Create(context.Background(), r); err != nil {
		t.Fatalf("create result: %v", err)
	}
	return r
}

func TestTestRepositoryCreateAndOwnership(t *testing.T) {
	db := newTestDB(t)
	repo := NewTestRepository(db)
	ctx := context.Background()

	test := seedTest(t, repo, 7, "Biology", 10, 3)

	qs, err := repo.ListQuestions(ctx, test.ID)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(qs) != 3 {
		t.Fatalf("questions = %d, want 3", len(qs))
	}
	for _, q := range qs {
		if q.TestID != test.ID {
			t.Fatalf("question %d bound to test %d", q.ID, q.TestID)
		}
	}

	if _, err := repo.FindOwned(ctx, test.ID, 7); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	if _, err := repo.FindOwned(ctx, test.ID, 8); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("foreign lookup err = %v, want not found", err)
	}
	if _, err := repo.FindOwned(ctx, test.ID, AnyOwner); err != nil {
		t.Fatalf("admin lookup: %v", err)
	}
}

func TestTestRepositoryQuestionsByIDs(t *testing.T) {
	db := newTestDB(t)
	repo := NewTestRepository(db)
	ctx := context.Background()

	a := seedTest(t, repo, 1, "A", 10, 2)
	b := seedTest(t, repo, 1, "B", 10, 2)
	aqs, _ := repo.ListQuestions(ctx, a.ID)
	bqs, _ := repo.ListQuestions(ctx, b.ID)

	ids := []uint{aqs[0].ID, aqs[1].ID, bqs[0].ID, 9999}
	got, err := repo.QuestionsByIDs(ctx, a.ID, ids)
	if err != nil {
		t.Fatalf("questions by ids: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d questions, want only the 2 of test A", len(got))
	}

	if err := repo.DeleteQuestion(ctx, a.ID, aqs[0].ID); err != nil {
		t.Fatalf("delete question: %v", err)
	}
	got, _ = repo.QuestionsByIDs(ctx, a.ID, ids)
	if len(got) != 1 {
		t.Fatalf("got %d questions after delete, want 1", len(got))
	}
	if err := repo.DeleteQuestion(ctx, a.ID, bqs[0].ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("delete question of another test: %v", err)
	}
}

func TestTestRepositoryUpdateSettings(t *testing.T) {
	db := newTestDB(t)
	repo := NewTestRepository(db)
	ctx := context.Background()

	test := seedTest(t, repo, 1, "Old", 10, 1)
	test.Title = "New"
	test.MaxStudents = 0
	test.Mode = quiz.ModeHard
	if err := repo.UpdateSettings(ctx, test); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := repo.FindByID(ctx, test.ID)
	if got.Title != "New" || got.MaxStudents != 0 || got.Mode != quiz.ModeHard {
		t.Fatalf("updated test = %+v", got)
	}
}

func TestTestRepositoryListByTeacher(t *testing.T) {
	db := newTestDB(t)
	repo := NewTestRepository(db)
	results := NewResultRepository(db)

	a := seedTest(t, repo, 1, "A", 10, 3)
	seedTest(t, repo, 1, "B", 10, 1)
	seedTest(t, repo, 2, "C", 10, 1)
	addResult(t, results, a.ID, "Ann", 2)
	addResult(t, results, a.ID, "Bob", 1)

	rows, err := repo.ListByTeacher(context.Background(), 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	// 最新在前
	last := rows[1]
	if last.ID != a.ID || last.QuestionCount != 3 || last.ResultCount != 2 {
		t.Fatalf("row for A = %+v", last)
	}

	all, _ := repo.ListByTeacher(context.Background(), AnyOwner)
	if len(all) != 3 {
		t.Fatalf("admin rows = %d, want 3", len(all))
	}
}

func TestTestRepositoryDeleteAndPurge(t *testing.T) {
	db := newTestDB(t)
	repo := NewTestRepository(db)
	results := NewResultRepository(db)
	ctx := context.Background()

	test := seedTest(t, repo, 1, "Gone", 10, 2)
	addResult(t, results, test.ID, "Ann", 1)

	if err := repo.Delete(ctx, test.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, test.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("find after delete err = %v", err)
	}
	if n, _ := results.CountByTest(ctx, test.ID); n != 0 {
		t.Fatalf("results visible after delete: %d", n)
	}

	stale, err := repo.ListDeletedBefore(ctx, time.Now().Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("list deleted: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != test.ID {
		t.Fatalf("stale = %+v", stale)
	}
	if fresh, _ := repo.ListDeletedBefore(ctx, time.Now().Add(-time.Hour), 10); len(fresh) != 0 {
		t.Fatalf("recently deleted test listed as stale")
	}

	if err := repo.Purge(ctx, test.ID); err != nil {
		t.Fatalf("purge: %v", err)
	}
	var left int64
	db.Unscoped().Model(&model.Question{}).Where("test_id = ?", test.ID).Count(&left)
	if left != 0 {
		t.Fatalf("questions left after purge: %d", left)
	}
	db.Unscoped().Model(&model.StudentResult{}).Where("test_id = ?", test.ID).Count(&left)
	if left != 0 {
		t.Fatalf("results left after purge: %d", left)
	}
}

func TestResultRepositoryCreateWithinCapacity(t *testing.T) {
	db := newTestDB(t)
	tests := NewTestRepository(db)
	repo := NewResultRepository(db)
	ctx := context.Background()

	test := seedTest(t, tests, 1, "Small", 2, 1)
	for i := 0; i < 2; i++ {
		r := &model.StudentResult{TestID: test.ID, StudentName: fmt.Sprintf("s%d", i), TotalQuestions: 1}
		if err := repo.CreateWithinCapacity(ctx, r); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	over := &model.StudentResult{TestID: test.ID, StudentName: "late", TotalQuestions: 1}
	if err := repo.CreateWithinCapacity(ctx, over); !errors.Is(err, quiz.ErrCapacityExceeded) {
		t.Fatalf("third submit err = %v, want ErrCapacityExceeded", err)
	}
	if n, _ := repo.CountByTest(ctx, test.ID); n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
}

func TestResultRepositoryListByTest(t *testing.T) {
	db := newTestDB(t)
	tests := NewTestRepository(db)
	repo := NewResultRepository(db)
	ctx := context.Background()

	test := seedTest(t, tests, 1, "T", 100, 1)
	for _, name := range []string{"Alice", "Alan", "Bob", "Carol"} {
		addResult(t, repo, test.ID, name, 1)
	}

	page, total, err := repo.ListByTest(ctx, test.ID, 1, 3, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 4 || len(page) != 3 {
		t.Fatalf("total=%d len=%d, want 4 and 3", total, len(page))
	}

	filtered, total, _ := repo.ListByTest(ctx, test.ID, 1, 10, "Al")
	if total != 2 || len(filtered) != 2 {
		t.Fatalf("filtered total=%d len=%d, want 2", total, len(filtered))
	}

	got, _ := repo.FindByID(ctx, filtered[0].ID)
	if ans := got.Answers(); ans[1] == nil || *ans[1] != 1 {
		t.Fatalf("answers not round-tripped: %v", ans)
	}
}

func TestResultRepositoryReports(t *testing.T) {
	db := newTestDB(t)
	tests := NewTestRepository(db)
	repo := NewResultRepository(db)
	ctx := context.Background()

	a := seedTest(t, tests, 1, "A", 100, 1)
	b := seedTest(t, tests, 1, "B", 100, 1)
	seedTest(t, tests, 1, "Empty", 100, 1)
	other := seedTest(t, tests, 2, "Other", 100, 1)

	addResult(t, repo, a.ID, "Ann", 3)
	addResult(t, repo, b.ID, "Ann", 4)
	addResult(t, repo, a.ID, "Bob", 5)
	addResult(t, repo, a.ID, "Cid", 1)
	addResult(t, repo, b.ID, "Dee", 2)
	addResult(t, repo, other.ID, "Zed", 100)

	board, err := repo.Leaderboard(ctx, 1, 3)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	want := []LeaderboardRow{
		{StudentName: "Ann", TotalScore: 7, Attempts: 2},
		{StudentName: "Bob", TotalScore: 5, Attempts: 1},
		{StudentName: "Dee", TotalScore: 2, Attempts: 1},
	}
	if len(board) != len(want) {
		t.Fatalf("leaderboard = %+v", board)
	}
	for i := range want {
		if board[i] != want[i] {
			t.Fatalf("leaderboard[%d] = %+v, want %+v", i, board[i], want[i])
		}
	}

	counts, err := repo.CountsPerTest(ctx, 1)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if len(counts) != 2 || counts[0].Title != "A" || counts[0].ResultCount != 3 || counts[1].ResultCount != 2 {
		t.Fatalf("counts = %+v", counts)
	}

	if n, _ := repo.CountByTeacher(ctx, 1); n != 5 {
		t.Fatalf("teacher result count = %d, want 5", n)
	}
	history, _ := repo.ListByTeacher(ctx, 1, 10)
	if len(history) != 5 || history[0].TestTitle == "" {
		t.Fatalf("history = %+v", history)
	}

	export, _ := repo.ListForExport(ctx, a.ID)
	if len(export) != 3 || export[0].StudentName != "Bob" || export[2].StudentName != "Cid" {
		t.Fatalf("export order = %+v", export)
	}
}
