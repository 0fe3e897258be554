package repository

import (
	"context"
	"quizgen_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type TestRepository struct {
	DB *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{DB: db}
}

// CreateWithQuestions 试卷和题目在同一事务内写入
func (r *TestRepository) CreateWithQuestions(ctx context.Context, test *model.Test, questions []model.Question) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(test).Error; err != nil {
			return err
		}
		if len(questions) == 0 {
			return nil
		}
		for i := range questions {
			questions[i].TestID = test.ID
		}
		return tx.Create(&questions).Error
	})
}

func (r *TestRepository) FindByID(ctx context.Context, id uint) (*model.Test, error) {
	var test model.Test
	err := r.DB.WithContext(ctx).First(&test, id).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

// FindOwned 查询属于某位教师的试卷，不属于时返回 gorm.ErrRecordNotFound
func (r *TestRepository) FindOwned(ctx context.Context, id, teacherID uint) (*model.Test, error) {
	var test model.Test
	err := r.DB.WithContext(ctx).
		Scopes(ownedBy("teacher_id", teacherID)).
		First(&test, id).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

// UpdateSettings 只更新试卷设置，题库不可修改
func (r *TestRepository) UpdateSettings(ctx context.Context, test *model.Test) error {
	return r.DB.WithContext(ctx).Model(test).Select(
		"title", "description", "time_limit", "max_students", "questions_to_show", "mode",
	).Updates(test).Error
}

// Delete 删除试卷及其题目和成绩
func (r *TestRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("test_id = ?", id).Delete(&model.StudentResult{}).Error; err != nil {
			return err
		}
		if err := tx.Where("test_id = ?", id).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Test{}, id).Error
	})
}

type TestListRow struct {
	model.Test
	QuestionCount int `json:"questionCount"`
	ResultCount   int `json:"resultCount"`
}

func (r *TestRepository) ListByTeacher(ctx context.Context, teacherID uint) ([]TestListRow, error) {
	var rows []TestListRow
	err := r.DB.WithContext(ctx).Table("tests t").
		Select("t.*, " +
			"(SELECT COUNT(*) FROM questions q WHERE q.test_id = t.id AND q.deleted_at IS NULL) AS question_count, " +
			"(SELECT COUNT(*) FROM student_results s WHERE s.test_id = t.id AND s.deleted_at IS NULL) AS result_count").
		Where("t.deleted_at IS NULL").
		Scopes(ownedBy("t.teacher_id", teacherID)).
		Order("t.id DESC").
		Scan(&rows).Error
	return rows, err
}

// ListQuestions 按写入顺序返回题库
func (r *TestRepository) ListQuestions(ctx context.Context, testID uint) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.WithContext(ctx).Where("test_id = ?", testID).Order("id ASC").Find(&qs).Error
	return qs, err
}

// QuestionsByIDs 只返回仍存在且属于该试卷的题目
func (r *TestRepository) QuestionsByIDs(ctx context.Context, testID uint, ids []uint) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var qs []model.Question
	err := r.DB.WithContext(ctx).
		Where("test_id = ? AND id IN ?", testID, ids).
		Order("id ASC").
		Find(&qs).Error
	return qs, err
}

// DeleteQuestion 题目不属于该试卷时返回 gorm.ErrRecordNotFound
func (r *TestRepository) DeleteQuestion(ctx context.Context, testID, questionID uint) error {
	res := r.DB.WithContext(ctx).
		Where("test_id = ?", testID).
		Delete(&model.Question{}, questionID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *TestRepository) CountByTeacher(ctx context.Context, teacherID uint) (int64, error) {
	var total int64
	err := r.DB.WithContext(ctx).Model(&model.Test{}).
		Scopes(ownedBy("teacher_id", teacherID)).
		Count(&total).Error
	return total, err
}

// ListDeletedBefore 查找软删除时间早于 cutoff 的试卷，供清理任务使用
func (r *TestRepository) ListDeletedBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Test, error) {
	var tests []model.Test
	err := r.DB.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Order("deleted_at ASC").
		Limit(limit).
		Find(&tests).Error
	return tests, err
}

// Purge 物理删除试卷及其所有关联数据
func (r *TestRepository) Purge(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("test_id = ?", id).Delete(&model.StudentResult{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("test_id = ?", id).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&model.Test{}, id).Error
	})
}
