// Package quiz 组卷、判分与作答分析的核心逻辑，不做任何 I/O。
package quiz

// QuestionID 题目ID
type QuestionID uint

// OptionIndex 选项序号，从 1 开始
type OptionIndex int

// OptionCount 每道题固定四个选项
const OptionCount = 4

func (o OptionIndex) Valid() bool {
	return o >= 1 && o <= OptionCount
}

// Choice 返回指向 i 的选项指针，方便构造答卷
func Choice(i int) *OptionIndex {
	o := OptionIndex(i)
	return &o
}

// AnswerSheet 题目ID -> 学生选择；值为 nil 表示该题未作答
type AnswerSheet map[QuestionID]*OptionIndex

// AnswerKey 题目ID -> 正确选项
type AnswerKey map[QuestionID]OptionIndex

// Mode 试卷的防作弊模式。hard 目前只存储不执行。
type Mode string

const (
	ModeLite Mode = "lite"
	ModeHard Mode = "hard"
)

func (m Mode) Valid() bool {
	return m == ModeLite || m == ModeHard
}
