package models

import "time"

// NoQuestion marks an unset question index in QuizState
const NoQuestion = -1

// QuizState is the scheduler state of one quiz attempt.
// Mastered and Practicing are disjoint, in insertion order.
type QuizState struct {
	Total           int   `json:"total"`
	Order           []int `json:"order"`
	Cursor          int   `json:"cursor"`
	FirstPassDone   bool  `json:"first_pass_done"`
	Mastered        []int `json:"mastered"`
	Practicing      []int `json:"practicing"`
	LastShown       int   `json:"last_shown"`
	Current         int   `json:"current"`
	LastAnswered    int   `json:"last_answered"`
	TotalAttempts   int   `json:"total_attempts"`
	CorrectAttempts int   `json:"correct_attempts"`
	Completed       bool  `json:"completed"`
}

// Clone returns a deep copy so transitions never alias slices of a prior state
func (s QuizState) Clone() QuizState {
	c := s
	c.Order = append([]int(nil), s.Order...)
	c.Mastered = append([]int(nil), s.Mastered...)
	c.Practicing = append([]int(nil), s.Practicing...)
	return c
}

// QuizSession is the persisted record of a quiz attempt
type QuizSession struct {
	ID          string     `json:"id"`
	DrillID     int64      `json:"drill_id"`
	NotifyEmail string     `json:"notify_email,omitempty"`
	State       QuizState  `json:"state"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Progress summarises a quiz state for clients
type Progress struct {
	Correct         int     `json:"correct"`
	Incorrect       int     `json:"incorrect"`
	Remaining       int     `json:"remaining"`
	Total           int     `json:"total"`
	Completed       bool    `json:"completed"`
	TotalAttempts   int     `json:"total_attempts"`
	CorrectAttempts int     `json:"correct_attempts"`
	Accuracy        float64 `json:"accuracy"` // Percentage of attempts answered correctly
}
