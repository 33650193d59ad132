package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"grammardrill/internal/ai"
	"grammardrill/internal/models"
	"grammardrill/internal/quiz"
)

// QuizService runs quiz sessions over stored drills
type QuizService struct {
	drills    DrillStore
	sessions  SessionStore
	scheduler *quiz.Scheduler
	explainer Explainer
	notifier  ResultsNotifier
	locks     *sessionLocks
	now       func() time.Time
}

// NewQuizService creates a new quiz service. explainer and notifier may be
// nil to disable explanations and result emails.
func NewQuizService(drills DrillStore, sessions SessionStore, scheduler *quiz.Scheduler, explainer Explainer, notifier ResultsNotifier) *QuizService {
	return &QuizService{
		drills:    drills,
		sessions:  sessions,
		scheduler: scheduler,
		explainer: explainer,
		notifier:  notifier,
		locks:     newSessionLocks(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// QuestionView is a question as shown to the learner, without its answer
type QuestionView struct {
	Index          int    `json:"index"`
	Sentence       string `json:"sentence"`
	Prompt         string `json:"prompt"`
	Hint           string `json:"hint,omitempty"`
	GrammarConcept string `json:"grammar_concept"`
}

// QuizStart is the result of starting a quiz
type QuizStart struct {
	SessionID string          `json:"session_id"`
	Drill     models.Drill    `json:"drill"`
	Question  *QuestionView   `json:"question"`
	Progress  models.Progress `json:"progress"`
}

// AnswerResult is the outcome of one answer submission
type AnswerResult struct {
	Correct          bool            `json:"correct"`
	TargetWord       string          `json:"target_word"`
	AlternateAnswers []string        `json:"alternate_answers"`
	FullSentence     string          `json:"full_sentence"`
	NextQuestion     *QuestionView   `json:"next_question"`
	Progress         models.Progress `json:"progress"`
}

// ProgressResult is a snapshot of a session
type ProgressResult struct {
	SessionID string          `json:"session_id"`
	DrillID   int64           `json:"drill_id"`
	Question  *QuestionView   `json:"question"`
	Progress  models.Progress `json:"progress"`
}

func newQuestionView(index int, q models.QuestionFields) *QuestionView {
	return &QuestionView{
		Index:          index,
		Sentence:       quiz.BlankSentence(q),
		Prompt:         q.Prompt,
		Hint:           q.Hint,
		GrammarConcept: q.GrammarConcept,
	}
}

// StartQuiz creates a session over a drill and selects its first question.
// notifyEmail, when set, receives a summary once the quiz is complete.
func (s *QuizService) StartQuiz(ctx context.Context, drillID int64, notifyEmail string) (*QuizStart, error) {
	drill, err := s.drills.GetByID(ctx, drillID)
	if err != nil {
		return nil, err
	}
	if drill == nil {
		return nil, ErrDrillNotFound
	}

	questions, err := s.drills.GetQuestions(ctx, drillID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	st := s.scheduler.Start(len(questions))
	st, index, _ := s.scheduler.Next(st)

	now := s.now()
	session := &models.QuizSession{
		ID:          uuid.NewString(),
		DrillID:     drillID,
		NotifyEmail: strings.TrimSpace(notifyEmail),
		State:       st,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	log.Printf("Started quiz session %s on drill %d (%d questions)", session.ID, drillID, len(questions))

	return &QuizStart{
		SessionID: session.ID,
		Drill:     *drill,
		Question:  newQuestionView(index, questions[index].QuestionFields),
		Progress:  quiz.ProgressOf(st),
	}, nil
}

// loadSession fetches a session with its drill's questions and checks that
// they still describe the same quiz.
func (s *QuizService) loadSession(ctx context.Context, sessionID string) (*models.QuizSession, []models.Question, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, ErrSessionNotFound
	}

	questions, err := s.drills.GetQuestions(ctx, session.DrillID)
	if err != nil {
		return nil, nil, err
	}
	if len(questions) != session.State.Total {
		// The drill was edited or deleted under this session
		return nil, nil, fmt.Errorf("%w: drill %d changed", ErrSessionNotFound, session.DrillID)
	}
	if err := quiz.Validate(session.State); err != nil {
		return nil, nil, fmt.Errorf("corrupt quiz session %s: %w", sessionID, err)
	}

	return session, questions, nil
}

// SubmitAnswer grades an answer to the question currently asked, records it,
// and selects the next question.
func (s *QuizService) SubmitAnswer(ctx context.Context, sessionID string, index int, answer string) (*AnswerResult, error) {
	if strings.TrimSpace(answer) == "" {
		return nil, ErrEmptyAnswer
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	session, questions, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st := session.State
	if st.Completed {
		return nil, ErrSessionCompleted
	}
	if !quiz.InRange(st, index) {
		return nil, ErrQuestionOutOfRange
	}
	if index != st.Current {
		return nil, ErrNotCurrentQuestion
	}

	question := questions[index].QuestionFields
	st, correct := quiz.SubmitAnswer(st, index, question, answer)

	var next *QuestionView
	if !st.Completed {
		var nextIndex int
		var ok bool
		st, nextIndex, ok = s.scheduler.Next(st)
		if ok {
			next = newQuestionView(nextIndex, questions[nextIndex].QuestionFields)
		}
	} else {
		st.Current = models.NoQuestion
	}

	if err := s.save(ctx, session, st); err != nil {
		return nil, err
	}

	return &AnswerResult{
		Correct:          correct,
		TargetWord:       question.TargetWord,
		AlternateAnswers: nonNil(quiz.AlternateAnswers(question)),
		FullSentence:     question.FullSentence,
		NextQuestion:     next,
		Progress:         quiz.ProgressOf(st),
	}, nil
}

// OverrideAnswer marks the last answered question as correct after a false
// negative. The question already selected next stays selected unless the
// override completes the quiz.
func (s *QuizService) OverrideAnswer(ctx context.Context, sessionID string, index int) (*ProgressResult, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	session, questions, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st := session.State
	if !quiz.InRange(st, index) {
		return nil, ErrQuestionOutOfRange
	}
	if index != st.LastAnswered {
		return nil, ErrNotCurrentQuestion
	}

	st = quiz.Override(st, index)
	if st.Completed {
		st.Current = models.NoQuestion
	}

	if err := s.save(ctx, session, st); err != nil {
		return nil, err
	}

	return s.progressResult(session.ID, session.DrillID, st, questions), nil
}

// save persists a new state and sends the results email when the quiz has
// just been completed.
func (s *QuizService) save(ctx context.Context, session *models.QuizSession, st models.QuizState) error {
	justCompleted := st.Completed && !session.State.Completed

	session.State = st
	session.UpdatedAt = s.now()
	if justCompleted {
		completedAt := session.UpdatedAt
		session.CompletedAt = &completedAt
	}

	if err := s.sessions.Update(ctx, session); err != nil {
		return err
	}

	if justCompleted {
		log.Printf("Quiz session %s completed: %d attempts", session.ID, st.TotalAttempts)
		s.notifyCompletion(ctx, session)
	}
	return nil
}

func (s *QuizService) notifyCompletion(ctx context.Context, session *models.QuizSession) {
	if s.notifier == nil || session.NotifyEmail == "" {
		return
	}

	drill, err := s.drills.GetByID(ctx, session.DrillID)
	if err != nil || drill == nil {
		log.Printf("Warning: could not load drill %d for results email: %v", session.DrillID, err)
		return
	}
	if err := s.notifier.SendQuizResults(ctx, session.NotifyEmail, drill, quiz.ProgressOf(session.State)); err != nil {
		log.Printf("Warning: failed to send results email for session %s: %v", session.ID, err)
	}
}

// Explain asks the AI to explain a question of the session's drill
func (s *QuizService) Explain(ctx context.Context, sessionID string, index int, userAnswer string) (string, error) {
	if s.explainer == nil {
		return "", ErrAIDisabled
	}

	session, questions, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if !quiz.InRange(session.State, index) {
		return "", ErrQuestionOutOfRange
	}

	drill, err := s.drills.GetByID(ctx, session.DrillID)
	if err != nil {
		return "", err
	}
	if drill == nil {
		return "", ErrDrillNotFound
	}

	q := questions[index].QuestionFields
	explanation, err := s.explainer.Explain(ctx, ai.ExplainParams{
		TargetLanguage: drill.TargetLanguage,
		GrammarConcept: q.GrammarConcept,
		Question:       quiz.BlankSentence(q),
		TargetWord:     q.TargetWord,
		FullSentence:   q.FullSentence,
		UserAnswer:     userAnswer,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate explanation: %w", err)
	}
	return explanation, nil
}

// GetProgress returns the current question and progress of a session
func (s *QuizService) GetProgress(ctx context.Context, sessionID string) (*ProgressResult, error) {
	session, questions, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.progressResult(session.ID, session.DrillID, session.State, questions), nil
}

func (s *QuizService) progressResult(sessionID string, drillID int64, st models.QuizState, questions []models.Question) *ProgressResult {
	result := &ProgressResult{
		SessionID: sessionID,
		DrillID:   drillID,
		Progress:  quiz.ProgressOf(st),
	}
	if st.Current != models.NoQuestion {
		result.Question = newQuestionView(st.Current, questions[st.Current].QuestionFields)
	}
	return result
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
