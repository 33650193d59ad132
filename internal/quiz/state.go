package quiz

import (
	"fmt"

	"grammardrill/internal/models"
)

// PreconditionError is the panic value for caller bugs: an index outside
// [0, Total) or a session state that is internally inconsistent.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "quiz: precondition violated: " + e.Reason
}

// IsComplete reports whether every question is mastered and none is being practiced
func IsComplete(st models.QuizState) bool {
	return len(st.Mastered) == st.Total && len(st.Practicing) == 0
}

// InRange reports whether index addresses a question of the session
func InRange(st models.QuizState, index int) bool {
	return index >= 0 && index < st.Total
}

// Validate checks the structural invariants of a state loaded from storage
func Validate(st models.QuizState) error {
	if st.Total < 0 {
		return &PreconditionError{Reason: fmt.Sprintf("negative question count %d", st.Total)}
	}
	if len(st.Order) != st.Total {
		return &PreconditionError{Reason: fmt.Sprintf("presentation order has %d entries for %d questions", len(st.Order), st.Total)}
	}
	seen := make([]bool, st.Total)
	for _, idx := range st.Order {
		if !InRange(st, idx) || seen[idx] {
			return &PreconditionError{Reason: "presentation order is not a permutation of all questions"}
		}
		seen[idx] = true
	}
	if st.Cursor < 0 || st.Cursor > len(st.Order) {
		return &PreconditionError{Reason: fmt.Sprintf("cursor %d outside presentation order", st.Cursor)}
	}

	member := make(map[int]string, len(st.Mastered)+len(st.Practicing))
	for name, set := range map[string][]int{"mastered": st.Mastered, "practicing": st.Practicing} {
		for _, idx := range set {
			if !InRange(st, idx) {
				return &PreconditionError{Reason: fmt.Sprintf("%s index %d out of range", name, idx)}
			}
			if prev, ok := member[idx]; ok {
				return &PreconditionError{Reason: fmt.Sprintf("index %d listed in both %s and %s", idx, prev, name)}
			}
			member[idx] = name
		}
	}

	for _, idx := range []int{st.LastShown, st.Current, st.LastAnswered} {
		if idx != models.NoQuestion && !InRange(st, idx) {
			return &PreconditionError{Reason: fmt.Sprintf("question index %d out of range", idx)}
		}
	}
	return nil
}

// ProgressOf summarises a state for display
func ProgressOf(st models.QuizState) models.Progress {
	p := models.Progress{
		Correct:         len(st.Mastered),
		Incorrect:       len(st.Practicing),
		Remaining:       st.Total - len(st.Mastered),
		Total:           st.Total,
		Completed:       st.Completed,
		TotalAttempts:   st.TotalAttempts,
		CorrectAttempts: st.CorrectAttempts,
	}
	if st.TotalAttempts > 0 {
		p.Accuracy = float64(st.CorrectAttempts) / float64(st.TotalAttempts) * 100
		// Overrides count as correct without adding an attempt
		if p.Accuracy > 100 {
			p.Accuracy = 100
		}
	}
	return p
}

func mustValidate(st models.QuizState) {
	if err := Validate(st); err != nil {
		panic(err)
	}
}

func mustBeInRange(st models.QuizState, index int) {
	if !InRange(st, index) {
		panic(&PreconditionError{Reason: fmt.Sprintf("question index %d outside [0, %d)", index, st.Total)})
	}
}

func contains(set []int, idx int) bool {
	for _, v := range set {
		if v == idx {
			return true
		}
	}
	return false
}

func addIndex(set []int, idx int) []int {
	if contains(set, idx) {
		return set
	}
	return append(set, idx)
}

func removeIndex(set []int, idx int) []int {
	out := set[:0]
	for _, v := range set {
		if v != idx {
			out = append(out, v)
		}
	}
	return out
}
