package quiz

import "errors"

var (
	ErrEmptyPool         = errors.New("this test has no questions")
	ErrCapacityExceeded  = errors.New("this test is full")
	ErrInvalidSampleSize = errors.New("sample size must not be negative")
)
