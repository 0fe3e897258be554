package service

import (
	"quizgen_backend/internal/model"
	"quizgen_backend/internal/quiz"
)

// AnalysisItem 单题回顾，附带题干和选项
type AnalysisItem struct {
	QuestionID quiz.QuestionID   `json:"questionId"`
	Text       string            `json:"text"`
	Options    []string          `json:"options"`
	Selected   *quiz.OptionIndex `json:"selected"`
	Correct    quiz.OptionIndex  `json:"correct"`
	IsCorrect  bool              `json:"isCorrect"`
}

// buildAnalysis 以当前题库为准关联答卷，返回可展示条目和无法关联的题目
func buildAnalysis(answers quiz.AnswerSheet, questions []model.Question) ([]AnalysisItem, []quiz.QuestionID) {
	byID := make(map[quiz.QuestionID]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].QuestionID()] = &questions[i]
	}

	entries, dangling := quiz.Analyze(answers, model.BuildAnswerKey(questions))
	items := make([]AnalysisItem, 0, len(entries))
	for _, e := range entries {
		q := byID[e.QuestionID]
		items = append(items, AnalysisItem{
			QuestionID: e.QuestionID,
			Text:       q.Text,
			Options:    q.Options(),
			Selected:   e.Selected,
			Correct:    e.Correct,
			IsCorrect:  e.IsCorrect,
		})
	}
	return items, dangling
}
