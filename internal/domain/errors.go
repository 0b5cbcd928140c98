package domain

import "errors"

// Domain errors surfaced by the scheduling core.
var (
	ErrQuestionNotFound  = errors.New("question not found")
	ErrInvalidDate       = errors.New("invalid date")
	ErrMalformedRecord   = errors.New("malformed answer record")
	ErrSubjectNotFound   = errors.New("subject not found")
	ErrDuplicateQuestion = errors.New("question already exists")
)
