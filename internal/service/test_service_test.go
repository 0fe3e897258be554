package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"quizgen_backend/internal/model"
	"quizgen_backend/internal/quiz"
	"quizgen_backend/internal/util"
)

func TestCreateFromDocument(t *testing.T) {
	f := newFixture(t)
	f.gen.cands = []CandidateQuestion{
		{Question: "Q1", Options: []string{"a", "b", "c", "d"}, Correct: intPtr(2)},
		{Question: "Q2", Options: []string{"a", "b"}, Correct: intPtr(0)},
		{Question: "", Options: []string{"a"}, Correct: intPtr(0)},
	}

	detail, err := f.testSvc.CreateFromDocument(context.Background(), UploadInput{
		TeacherID:     9,
		Settings:      TestSettings{Title: "Cells"},
		QuestionCount: 3,
		FileName:      "notes.txt",
		Data:          []byte("Cells are the basic unit of life."),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if f.gen.last.Count != 3 || f.gen.last.Text == "" {
		t.Fatalf("generator request = %+v", f.gen.last)
	}
	if len(detail.Questions) != 2 || detail.Questions[0].CorrectOption != 3 {
		t.Fatalf("questions = %+v", detail.Questions)
	}
	if detail.TimeLimit != 20 || detail.MaxStudents != 100 || detail.QuestionsToShow != 20 || detail.Mode != quiz.ModeLite {
		t.Fatalf("defaults not applied: %+v", detail.Test)
	}

	stored := filepath.Join(f.cfg.Storage.LocalPath, filepath.FromSlash(detail.SourceDocument))
	if _, err := os.Stat(stored); err != nil {
		t.Fatalf("source document not stored: %v", err)
	}

	got, err := f.testSvc.Get(context.Background(), 9, detail.ID)
	if err != nil || len(got.Questions) != 2 {
		t.Fatalf("get = %+v, %v", got, err)
	}
}

func TestCreateFromDocumentFailures(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		data      []byte
		cands     []CandidateQuestion
		genErr    error
		wantErr   error
		ingestion bool
	}{
		{name: "unsupported type", file: "clip.mp4", data: []byte("x"), wantErr: util.ErrUnsupportedFile},
		{name: "mislabelled", file: "notes.pdf", data: []byte("plain text"), wantErr: util.ErrUnsupportedFile},
		{name: "empty text", file: "notes.txt", data: []byte("   "), wantErr: util.ErrEmptyDocument},
		{name: "model failure", file: "notes.txt", data: []byte("text"), genErr: errors.New("quota"), ingestion: true},
		{name: "nothing usable", file: "notes.txt", data: []byte("text"), cands: []CandidateQuestion{{Question: ""}}, ingestion: true},
		{name: "too large", file: "notes.txt", data: make([]byte, 2<<20), wantErr: util.ErrFileTooLarge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.gen.cands = tc.cands
			f.gen.err = tc.genErr

			_, err := f.testSvc.CreateFromDocument(context.Background(), UploadInput{
				TeacherID: 1,
				Settings:  TestSettings{Title: "T"},
				FileName:  tc.file,
				Data:      tc.data,
			})
			if tc.ingestion {
				var ie *IngestionError
				if !errors.As(err, &ie) {
					t.Fatalf("err = %v, want IngestionError", err)
				}
			} else if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}

			var n int64
			f.db.Model(&model.Test{}).Count(&n)
			if n != 0 {
				t.Fatalf("%d tests stored after failure", n)
			}
			entries, _ := os.ReadDir(f.cfg.Storage.LocalPath)
			if len(entries) != 0 {
				t.Fatalf("storage not empty after failure")
			}
		})
	}
}

func TestCreateManualValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		items []ManualQuestion
		want  error
	}{
		{name: "no questions", want: util.ErrNoQuestions},
		{name: "blank text", items: []ManualQuestion{{Text: " ", Options: []string{"a", "b"}, CorrectOption: 1}}, want: util.ErrInvalidQuestion},
		{name: "correct out of range", items: []ManualQuestion{{Text: "Q", Options: []string{"a", "b", "c", "d"}, CorrectOption: 5}}, want: util.ErrInvalidQuestion},
		{name: "correct points at missing option", items: []ManualQuestion{{Text: "Q", Options: []string{"a", "b"}, CorrectOption: 3}}, want: util.ErrInvalidQuestion},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.testSvc.CreateManual(ctx, 1, TestSettings{Title: "T"}, tc.items); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	detail, err := f.testSvc.CreateManual(ctx, 1, TestSettings{Title: "T", Mode: "bogus"}, []ManualQuestion{
		{Text: "Q", Options: []string{"a", "b"}, CorrectOption: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if detail.Mode != quiz.ModeLite || detail.Questions[0].Option3 != model.OptionPlaceholder {
		t.Fatalf("detail = %+v", detail)
	}
}

func TestUpdateAndDeleteOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	detail := f.seed(t, 1, "Mine", 3, 2, 10)

	title := "Renamed"
	hard := quiz.ModeHard
	zero := 0
	updated, err := f.testSvc.UpdateSettings(ctx, 1, detail.ID, UpdateSettingsInput{Title: &title, Mode: &hard, MaxStudents: &zero})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != "Renamed" || updated.Mode != quiz.ModeHard || updated.MaxStudents != 10 {
		t.Fatalf("updated = %+v", updated)
	}

	if _, err := f.testSvc.UpdateSettings(ctx, 2, detail.ID, UpdateSettingsInput{Title: &title}); !errors.Is(err, util.ErrTestNotFound) {
		t.Fatalf("foreign update err = %v", err)
	}
	if err := f.testSvc.Delete(ctx, 2, detail.ID); !errors.Is(err, util.ErrTestNotFound) {
		t.Fatalf("foreign delete err = %v", err)
	}

	if err := f.testSvc.Delete(ctx, 1, detail.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.testSvc.Get(ctx, 1, detail.ID); !errors.Is(err, util.ErrTestNotFound) {
		t.Fatalf("get after delete err = %v", err)
	}
}
