package service

import (
	"quizgen_backend/internal/repository"
	"quizgen_backend/internal/util"
)

// OwnerScope 教师只能访问自己的试卷，管理员不受限
func OwnerScope(claims *util.Claims) uint {
	if claims.IsAdmin() {
		return repository.AnyOwner
	}
	return claims.UserID
}
