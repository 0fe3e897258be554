package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"quizgen_backend/internal/model"
	"quizgen_backend/internal/quiz"
	"strings"
	"unicode/utf8"
)

// Document 直接交给模型读取的原始文件（目前只有 PDF）
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

type GenerateRequest struct {
	Count    int
	Text     string
	Document *Document
}

// CandidateQuestion 模型返回的原始题目，Correct 从 0 开始
type CandidateQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Correct  *int     `json:"correct"`
}

// QuestionGenerator 出题模型
type QuestionGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]CandidateQuestion, error)
}

// IngestionError 出题过程中的失败，不会产生任何试卷数据
type IngestionError struct {
	Stage string
	Err   error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("question generation failed (%s): %v", e.Stage, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

var ErrNoUsableQuestions = errors.New("model returned no usable questions")

const promptExample = `[{"question":"Q","options":["A","B","C","D"],"correct":0}]`

// BuildPrompt 文本超过 maxChars 个字符时截断
func BuildPrompt(count int, text string, maxChars int) string {
	if text == "" {
		return fmt.Sprintf("Create %d multiple choice questions from the attached document. Return JSON: %s.", count, promptExample)
	}
	return fmt.Sprintf("Create %d multiple choice questions. Return JSON: %s. Text: %s", count, promptExample, truncateRunes(text, maxChars))
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// ParseCandidates 解析模型输出，兼容 ``` 代码块和 {"questions": [...]} 包装
func ParseCandidates(raw string) ([]CandidateQuestion, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil, errors.New("empty model response")
	}

	var out []CandidateQuestion
	if strings.HasPrefix(cleaned, "{") {
		var wrapped struct {
			Questions []CandidateQuestion `json:"questions"`
		}
		if err := json.Unmarshal([]byte(cleaned), &wrapped); err != nil {
			return nil, fmt.Errorf("decode model response: %w", err)
		}
		out = wrapped.Questions
	} else if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	return out, nil
}

// NormalizeCandidates 丢弃题干为空或正确答案越界的题目，选项补齐到四个，答案转为从 1 开始
func NormalizeCandidates(cands []CandidateQuestion, limit int) []model.Question {
	out := make([]model.Question, 0, len(cands))
	for _, c := range cands {
		if limit > 0 && len(out) >= limit {
			break
		}
		text := strings.TrimSpace(c.Question)
		if text == "" || c.Correct == nil {
			continue
		}

		opts := make([]string, 0, quiz.OptionCount)
		for _, o := range c.Options {
			if len(opts) == quiz.OptionCount {
				break
			}
			opts = append(opts, strings.TrimSpace(o))
		}
		correct := *c.Correct
		if correct < 0 || correct >= len(opts) || opts[correct] == "" {
			continue
		}

		q := model.Question{Text: text, CorrectOption: correct + 1}
		q.SetOptions(opts)
		out = append(out, q)
	}
	return out
}
