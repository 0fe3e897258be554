package util

import (
	"quizgen_backend/internal/quiz"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators 注册自定义绑定校验规则
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("quizmode", func(fl validator.FieldLevel) bool {
		return quiz.Mode(fl.Field().String()).Valid()
	})
}
