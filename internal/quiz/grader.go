package quiz

// Outcome 一次作答的判分结果
type Outcome struct {
	Score   int
	Total   int
	Answers AnswerSheet
	// Skipped 出过题但已无法找到答案的题目（作答期间被删除）
	Skipped []QuestionID
}

// Grade 只对 presented 中的题目判分。
// answers 中不属于 presented 的题目一律忽略；未作答的题目记为 nil、不得分。
// 在 key 中找不到的题目既不计分也不计入总数和答卷。
// presented 中重复的题目只计一次。
func Grade(presented []QuestionID, answers AnswerSheet, key AnswerKey) Outcome {
	out := Outcome{Answers: make(AnswerSheet, len(presented))}
	seen := make(map[QuestionID]struct{}, len(presented))

	for _, id := range presented {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		correct, ok := key[id]
		if !ok {
			out.Skipped = append(out.Skipped, id)
			continue
		}

		out.Total++

		// 原样记录提交值，不记录对错
		var selected *OptionIndex
		if v := answers[id]; v != nil {
			c := *v
			selected = &c
		}
		out.Answers[id] = selected

		if selected != nil && *selected == correct {
			out.Score++
		}
	}

	return out
}
