package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quizgen_backend/internal/config"
	"quizgen_backend/internal/model"
)

func TestReaperPurgesExpiredTests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.cands = []CandidateQuestion{{Question: "Q", Options: []string{"a", "b"}, Correct: intPtr(0)}}

	old, err := f.testSvc.CreateFromDocument(ctx, UploadInput{TeacherID: 1, Settings: TestSettings{Title: "Old"}, FileName: "a.txt", Data: []byte("text")})
	if err != nil {
		t.Fatal(err)
	}
	kept := f.seed(t, 1, "Kept", 1, 1, 10)
	addResult(t, f, old.ID, "Ann", 1, nil)

	if err := f.testSvc.Delete(ctx, 1, old.ID); err != nil {
		t.Fatal(err)
	}

	reaper := NewReaperService(f.tests, f.storage, &f.cfg.Reaper)

	n, err := reaper.PurgeExpired(ctx, time.Now())
	if err != nil || n != 0 {
		t.Fatalf("purged %d within retention, err %v", n, err)
	}

	n, err = reaper.PurgeExpired(ctx, time.Now().AddDate(0, 0, 31))
	if err != nil || n != 1 {
		t.Fatalf("purged %d after retention, err %v", n, err)
	}

	var left int64
	f.db.Unscoped().Model(&model.Test{}).Where("id = ?", old.ID).Count(&left)
	if left != 0 {
		t.Fatal("test row still present")
	}
	if _, err := os.Stat(filepath.Join(f.cfg.Storage.LocalPath, filepath.FromSlash(old.SourceDocument))); !os.IsNotExist(err) {
		t.Fatalf("document still present: %v", err)
	}
	if _, err := f.tests.FindByID(ctx, kept.ID); err != nil {
		t.Fatalf("live test purged: %v", err)
	}

	if err := reaper.RefreshGauges(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestReaperStartStop(t *testing.T) {
	f := newFixture(t)
	f.cfg.Reaper.Enabled = true
	reaper := NewReaperService(f.tests, f.storage, &f.cfg.Reaper)
	if err := reaper.Start(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	reaper.Stop(ctx)

	bad := NewReaperService(f.tests, f.storage, &config.ReaperConfig{Enabled: true, Schedule: "not a schedule"})
	if err := bad.Start(); err == nil {
		t.Fatal("invalid schedule accepted")
	}
}
