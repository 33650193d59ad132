package service

import (
	"context"

	"grammardrill/internal/ai"
	"grammardrill/internal/models"
)

// DrillStore persists drills and their ordered questions.
// Lookups return a nil drill and nil error when nothing matches.
type DrillStore interface {
	CreateWithQuestions(ctx context.Context, drill *models.Drill, questions []models.QuestionFields) (*models.Drill, error)
	ReplaceContent(ctx context.Context, drillID int64, meta models.DrillMetadata, questions []models.QuestionFields, contentHash string) (bool, error)
	GetByID(ctx context.Context, drillID int64) (*models.Drill, error)
	GetByContentHash(ctx context.Context, hash string) (*models.Drill, error)
	GetQuestions(ctx context.Context, drillID int64) ([]models.Question, error)
	List(ctx context.Context, filter models.DrillFilter) ([]models.Drill, error)
	Delete(ctx context.Context, drillID int64) (bool, error)
	DeleteAll(ctx context.Context) error
	Vote(ctx context.Context, drillID int64, up bool) (bool, error)
}

// SessionStore persists quiz sessions. Get returns nil, nil for an unknown ID.
// Implemented by repository.SessionRepository and cache.SessionStore.
type SessionStore interface {
	Create(ctx context.Context, session *models.QuizSession) error
	Get(ctx context.Context, sessionID string) (*models.QuizSession, error)
	Update(ctx context.Context, session *models.QuizSession) error
	Delete(ctx context.Context, sessionID string) error
	DeleteByDrill(ctx context.Context, drillID int64) error
}

// DrillGenerator produces drill text with an AI model
type DrillGenerator interface {
	GenerateDrill(ctx context.Context, p ai.GenerateParams) (string, error)
	ValidateDrill(ctx context.Context, drillText string) (string, error)
}

// Explainer explains the grammar behind a question
type Explainer interface {
	Explain(ctx context.Context, p ai.ExplainParams) (string, error)
}

// ResultsNotifier tells a learner they finished a quiz
type ResultsNotifier interface {
	SendQuizResults(ctx context.Context, toEmail string, drill *models.Drill, progress models.Progress) error
}
