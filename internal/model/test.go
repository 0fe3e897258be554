package model

import "quizgen_backend/internal/quiz"

// swagger:model Test
type Test struct {
	BaseModel
	TeacherID       uint      `gorm:"index;not null" json:"teacherId"`
	Title           string    `gorm:"size:200;not null" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	TimeLimit       int       `gorm:"default:20" json:"timeLimit"` // 分钟，仅供前端倒计时
	MaxStudents     int       `gorm:"default:100" json:"maxStudents"`
	QuestionsToShow int       `gorm:"default:20" json:"questionsToShow"`
	Mode            quiz.Mode `gorm:"size:10;default:'lite'" json:"mode"`
	// 上传的原始文档在存储中的 key，手动建卷时为空
	SourceDocument string `gorm:"size:255" json:"sourceDocument,omitempty"`
}

func (Test) TableName() string {
	return "tests"
}
