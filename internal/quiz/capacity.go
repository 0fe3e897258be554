package quiz

// Admit 判断试卷是否还能接收新的作答：已有成绩数 < 人数上限。
// 这只是一次检查，调用方在写入成绩前若不重新检查，并发作答可能同时通过。
func Admit(current int64, maxStudents int) bool {
	return current < int64(maxStudents)
}

// Remaining 剩余名额，不会小于 0
func Remaining(current int64, maxStudents int) int {
	left := int64(maxStudents) - current
	if left < 0 {
		return 0
	}
	return int(left)
}
