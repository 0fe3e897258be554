package util

import "errors"

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrTestNotFound       = errors.New("test not found")
	ErrResultNotFound     = errors.New("result not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrInvalidTicket      = errors.New("attempt ticket is invalid or expired")
	ErrTicketMismatch     = errors.New("attempt ticket does not belong to this test")
	ErrAlreadySubmitted   = errors.New("attempt already submitted")
	ErrUnsupportedFile    = errors.New("unsupported file type, use PDF, DOCX, TXT or MD")
	ErrFileTooLarge       = errors.New("uploaded file is too large")
	ErrEmptyDocument      = errors.New("uploaded document contains no text")
	ErrPasswordMismatch   = errors.New("两次输入的密码不一致")
	ErrInvalidQuestion    = errors.New("each question needs text, options and a correct option between 1 and 4")
	ErrNoQuestions        = errors.New("at least one question is required")
)
