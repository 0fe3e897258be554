package model

import "quizgen_backend/internal/quiz"

// OptionPlaceholder AI 返回的选项不足四个时用它补齐
const OptionPlaceholder = "—"

// swagger:model Question
type Question struct {
	BaseModel
	TestID        uint   `gorm:"index;not null" json:"testId"`
	Text          string `gorm:"size:500;not null" json:"text"`
	Option1       string `gorm:"size:200;not null" json:"option1"`
	Option2       string `gorm:"size:200;not null" json:"option2"`
	Option3       string `gorm:"size:200;not null" json:"option3"`
	Option4       string `gorm:"size:200;not null" json:"option4"`
	CorrectOption int    `gorm:"not null" json:"correctOption"` // 1..4
}

func (Question) TableName() string {
	return "questions"
}

func (q *Question) Options() []string {
	return []string{q.Option1, q.Option2, q.Option3, q.Option4}
}

// SetOptions 写入四个选项，缺失或空白的用占位符补齐
func (q *Question) SetOptions(opts []string) {
	filled := make([]string, quiz.OptionCount)
	for i := range filled {
		filled[i] = OptionPlaceholder
		if i < len(opts) && opts[i] != "" {
			filled[i] = opts[i]
		}
	}
	q.Option1, q.Option2, q.Option3, q.Option4 = filled[0], filled[1], filled[2], filled[3]
}

func (q *Question) QuestionID() quiz.QuestionID {
	return quiz.QuestionID(q.ID)
}

// BuildAnswerKey 由题目列表生成判分用的答案表
func BuildAnswerKey(qs []Question) quiz.AnswerKey {
	key := make(quiz.AnswerKey, len(qs))
	for _, q := range qs {
		key[quiz.QuestionID(q.ID)] = quiz.OptionIndex(q.CorrectOption)
	}
	return key
}
