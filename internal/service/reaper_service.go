package service

import (
	"context"
	"quizgen_backend/internal/config"
	"quizgen_backend/internal/repository"
	"quizgen_backend/pkg/logger"
	"quizgen_backend/pkg/monitoring"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	reaperBatch     = 100
	gaugeRefreshJob = "@every 1m"
)

// ReaperService 定期物理删除软删除超过保留期的试卷，并刷新统计指标
type ReaperService struct {
	TestRepo *repository.TestRepository
	Storage  *StorageService
	Cfg      *config.ReaperConfig
	cron     *cron.Cron
}

func NewReaperService(testRepo *repository.TestRepository, storage *StorageService, cfg *config.ReaperConfig) *ReaperService {
	return &ReaperService{TestRepo: testRepo, Storage: storage, Cfg: cfg}
}

// PurgeExpired 返回本次清理的试卷数
func (s *ReaperService) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.AddDate(0, 0, -s.Cfg.RetentionDays)
	purged := 0
	for {
		tests, err := s.TestRepo.ListDeletedBefore(ctx, cutoff, reaperBatch)
		if err != nil {
			return purged, err
		}
		if len(tests) == 0 {
			return purged, nil
		}
		for _, t := range tests {
			if err := s.Storage.Delete(ctx, t.SourceDocument); err != nil {
				logger.Log.Warn("Reaper failed to delete document", zap.Uint("testID", t.ID), zap.Error(err))
			}
			if err := s.TestRepo.Purge(ctx, t.ID); err != nil {
				return purged, err
			}
			purged++
			monitoring.PurgedTests.Inc()
		}
		if len(tests) < reaperBatch {
			return purged, nil
		}
	}
}

func (s *ReaperService) RefreshGauges(ctx context.Context) error {
	total, err := s.TestRepo.CountByTeacher(ctx, repository.AnyOwner)
	if err != nil {
		return err
	}
	monitoring.ActiveTests.Set(float64(total))
	return nil
}

// Start 注册定时任务；任务仍在执行时跳过下一次触发
func (s *ReaperService) Start() error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	if s.Cfg.Enabled {
		if _, err := c.AddFunc(s.Cfg.Schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			n, err := s.PurgeExpired(ctx, time.Now())
			if err != nil {
				logger.Log.Error("Reaper run failed", zap.Int("purged", n), zap.Error(err))
				return
			}
			logger.Log.Info("Reaper run finished", zap.Int("purged", n))
		}); err != nil {
			return err
		}
	}

	if _, err := c.AddFunc(gaugeRefreshJob, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.RefreshGauges(ctx); err != nil {
			logger.Log.Warn("Gauge refresh failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	s.cron = c
	c.Start()
	return nil
}

// Stop 等待正在执行的任务结束
func (s *ReaperService) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
