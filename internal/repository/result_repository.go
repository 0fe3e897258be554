package repository

import (
	"context"
	"quizgen_backend/internal/model"
	"quizgen_backend/internal/quiz"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResultRepository struct {
	DB *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{DB: db}
}

func (r *ResultRepository) CountByTest(ctx context.Context, testID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.StudentResult{}).
		Where("test_id = ?", testID).
		Count(&count).Error
	return count, err
}

// Create 直接写入成绩，不再检查人数上限
func (r *ResultRepository) Create(ctx context.Context, result *model.StudentResult) error {
	return r.DB.WithContext(ctx).Create(result).Error
}

// CreateWithinCapacity 锁定试卷行后重新计数再写入，名额已满时返回 quiz.ErrCapacityExceeded。
// SQLite 不支持行锁，依赖其库级写锁串行化。
func (r *ResultRepository) CreateWithinCapacity(ctx context.Context, result *model.StudentResult) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lookup := tx
		if tx.Dialector.Name() != "sqlite" {
			lookup = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var test model.Test
		if err := lookup.First(&test, result.TestID).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&model.StudentResult{}).Where("test_id = ?", result.TestID).Count(&count).Error; err != nil {
			return err
		}
		if !quiz.Admit(count, test.MaxStudents) {
			return quiz.ErrCapacityExceeded
		}

		return tx.Create(result).Error
	})
}

func (r *ResultRepository) FindByID(ctx context.Context, id uint) (*model.StudentResult, error) {
	var result model.StudentResult
	err := r.DB.WithContext(ctx).First(&result, id).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ResultRepository) ListByTest(ctx context.Context, testID uint, page, limit int, studentName string) ([]model.StudentResult, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.StudentResult{}).Where("test_id = ?", testID)
	if studentName != "" {
		query = query.Where("student_name LIKE ?", "%"+studentName+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	var results []model.StudentResult
	err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&results).Error
	return results, total, err
}

// ListForExport 导出用，按分数从高到低
func (r *ResultRepository) ListForExport(ctx context.Context, testID uint) ([]model.StudentResult, error) {
	var results []model.StudentResult
	err := r.DB.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("score DESC, id ASC").
		Find(&results).Error
	return results, err
}

type TeacherResultRow struct {
	model.StudentResult
	TestTitle string `json:"testTitle"`
}

// ListByTeacher 教师所有试卷下的成绩，最新在前
func (r *ResultRepository) ListByTeacher(ctx context.Context, teacherID uint, limit int) ([]TeacherResultRow, error) {
	var rows []TeacherResultRow
	err := r.DB.WithContext(ctx).Table("student_results r").
		Select("r.*, t.title AS test_title").
		Joins("JOIN tests t ON t.id = r.test_id AND t.deleted_at IS NULL").
		Where("r.deleted_at IS NULL").
		Scopes(ownedBy("t.teacher_id", teacherID)).
		Order("r.created_at DESC, r.id DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *ResultRepository) CountByTeacher(ctx context.Context, teacherID uint) (int64, error) {
	var total int64
	err := r.DB.WithContext(ctx).Table("student_results r").
		Joins("JOIN tests t ON t.id = r.test_id AND t.deleted_at IS NULL").
		Where("r.deleted_at IS NULL").
		Scopes(ownedBy("t.teacher_id", teacherID)).
		Count(&total).Error
	return total, err
}

type LeaderboardRow struct {
	StudentName string `json:"studentName"`
	TotalScore  int    `json:"totalScore"`
	Attempts    int    `json:"attempts"`
}

// Leaderboard 按学生姓名汇总总分
func (r *ResultRepository) Leaderboard(ctx context.Context, teacherID uint, limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := r.DB.WithContext(ctx).Table("student_results r").
		Select("r.student_name AS student_name, SUM(r.score) AS total_score, COUNT(*) AS attempts").
		Joins("JOIN tests t ON t.id = r.test_id AND t.deleted_at IS NULL").
		Where("r.deleted_at IS NULL").
		Scopes(ownedBy("t.teacher_id", teacherID)).
		Group("r.student_name").
		Order("total_score DESC, r.student_name ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

type TestResultCount struct {
	TestID      uint   `json:"testId"`
	Title       string `json:"title"`
	ResultCount int    `json:"resultCount"`
}

// CountsPerTest 只返回至少有一条成绩的试卷
func (r *ResultRepository) CountsPerTest(ctx context.Context, teacherID uint) ([]TestResultCount, error) {
	var rows []TestResultCount
	err := r.DB.WithContext(ctx).Table("tests t").
		Select("t.id AS test_id, t.title AS title, COUNT(r.id) AS result_count").
		Joins("JOIN student_results r ON r.test_id = t.id AND r.deleted_at IS NULL").
		Where("t.deleted_at IS NULL").
		Scopes(ownedBy("t.teacher_id", teacherID)).
		Group("t.id, t.title").
		Order("t.id ASC").
		Scan(&rows).Error
	return rows, err
}
