package quiz

import "sort"

// Entry 单题作答分析
type Entry struct {
	QuestionID QuestionID
	Selected   *OptionIndex
	Correct    OptionIndex
	IsCorrect  bool
}

// Analyze 将已保存的答卷与当前题库重新关联，按题目ID升序返回。
// 已被删除或不属于该试卷的题目会被跳过并在 dangling 中返回。
func Analyze(answers AnswerSheet, key AnswerKey) (entries []Entry, dangling []QuestionID) {
	ids := make([]QuestionID, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	entries = make([]Entry, 0, len(ids))
	for _, id := range ids {
		correct, ok := key[id]
		if !ok {
			dangling = append(dangling, id)
			continue
		}
		selected := answers[id]
		entries = append(entries, Entry{
			QuestionID: id,
			Selected:   selected,
			Correct:    correct,
			IsCorrect:  selected != nil && *selected == correct,
		})
	}
	return entries, dangling
}
