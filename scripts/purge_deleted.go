// 手动触发已删除试卷的物理清理
//
// 主应用启用 reaper 后会按 schedule 定时执行。
// 此脚本用于未启用定时清理的部署，或需要立即释放存储空间时。
//
// 用法: go run scripts/purge_deleted.go -days 7

package main

import (
	"context"
	"flag"
	"log"
	"quizgen_backend/internal/config"
	"quizgen_backend/internal/repository"
	"quizgen_backend/internal/service"
	"quizgen_backend/pkg/database"
	"quizgen_backend/pkg/logger"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	days := flag.Int("days", 0, "保留天数，0 表示使用配置文件中的 reaper.retention_days")
	flag.Parse()

	godotenv.Load()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}
	if *days > 0 {
		cfg.Reaper.RetentionDays = *days
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.Open(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	reaper := service.NewReaperService(repository.NewTestRepository(db), service.NewStorageService(cfg), &cfg.Reaper)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	log.Printf("清理删除超过 %d 天的试卷...", cfg.Reaper.RetentionDays)
	n, err := reaper.PurgeExpired(ctx, time.Now())
	if err != nil {
		log.Fatalf("清理中断，已清理 %d 套: %v", n, err)
	}
	log.Printf("完成！共清理 %d 套试卷", n)
}
