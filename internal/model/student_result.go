package model

import (
	"quizgen_backend/internal/quiz"

	"gorm.io/datatypes"
)

// swagger:model StudentResult
// 每次作答生成一条，写入后不再修改
type StudentResult struct {
	BaseModel
	TestID         uint                                `gorm:"index;not null" json:"testId"`
	StudentName    string                              `gorm:"size:100;not null" json:"studentName"`
	Score          int                                 `gorm:"not null" json:"score"`
	TotalQuestions int                                 `gorm:"not null" json:"totalQuestions"`
	StudentAnswers datatypes.JSONType[quiz.AnswerSheet] `json:"studentAnswers"`
}

func (StudentResult) TableName() string {
	return "student_results"
}

func (r *StudentResult) Answers() quiz.AnswerSheet {
	return r.StudentAnswers.Data()
}
