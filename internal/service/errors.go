package service

import "errors"

var (
	ErrDrillNotFound      = errors.New("drill not found")
	ErrSessionNotFound    = errors.New("quiz session not found")
	ErrNoQuestions        = errors.New("drill has no questions")
	ErrDuplicateDrill     = errors.New("an identical drill already exists")
	ErrInvalidFileType    = errors.New("only .tsv files are supported")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrQuestionOutOfRange = errors.New("question index out of range")
	ErrNotCurrentQuestion = errors.New("question is not the one being asked")
	ErrEmptyAnswer        = errors.New("answer is required")
	ErrSessionCompleted   = errors.New("quiz session already completed")
	ErrAIDisabled         = errors.New("AI features are not configured")
	ErrGenerationFailed   = errors.New("drill generation failed")
)
