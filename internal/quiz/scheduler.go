// Package quiz decides which question a learner sees next.
//
// A session first walks a shuffled permutation of all questions, skipping
// mastered ones. Once the permutation is exhausted it switches for good to
// adaptive review, drawing at random from the questions still needing work
// and never repeating the previous question while another is available.
//
// All transitions take a models.QuizState by value and return a new one;
// the input is never mutated.
package quiz

import (
	"grammardrill/internal/models"
)

// PracticeOnlyProbability is the chance that adaptive review draws only from
// practicing questions instead of practicing plus mastered ones.
const PracticeOnlyProbability = 0.6

// Scheduler selects questions using an injected random source
type Scheduler struct {
	rng Rand
}

// NewScheduler creates a scheduler drawing from rng
func NewScheduler(rng Rand) *Scheduler {
	return &Scheduler{rng: rng}
}

// Start creates the state of a new session over total questions
func (s *Scheduler) Start(total int) models.QuizState {
	if total < 0 {
		panic(&PreconditionError{Reason: "negative question count"})
	}

	order := make([]int, total)
	for i := range order {
		order[i] = i
	}
	s.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	st := models.QuizState{
		Total:        total,
		Order:        order,
		Mastered:     []int{},
		Practicing:   []int{},
		LastShown:    models.NoQuestion,
		Current:      models.NoQuestion,
		LastAnswered: models.NoQuestion,
	}
	st.Completed = IsComplete(st)
	return st
}

// Next selects the question to present. It returns the updated state, the
// chosen index, and false with models.NoQuestion when nothing is left to ask.
func (s *Scheduler) Next(st models.QuizState) (models.QuizState, int, bool) {
	mustValidate(st)
	next := st.Clone()

	if !next.FirstPassDone {
		for next.Cursor < len(next.Order) {
			idx := next.Order[next.Cursor]
			next.Cursor++
			if !contains(next.Mastered, idx) {
				return present(next, idx), idx, true
			}
		}
		next.FirstPassDone = true
	}

	pool := s.candidates(next)
	if len(pool) == 0 {
		next.Current = models.NoQuestion
		next.Completed = IsComplete(next)
		return next, models.NoQuestion, false
	}

	if filtered := without(pool, next.LastShown); len(filtered) > 0 {
		pool = filtered
	}
	idx := pool[s.rng.Intn(len(pool))]
	return present(next, idx), idx, true
}

// candidates builds the adaptive review pool. An empty pool means the
// session has nothing left to ask.
func (s *Scheduler) candidates(st models.QuizState) []int {
	pool := append([]int(nil), st.Practicing...)

	if untouched := untouched(st); len(untouched) > 0 {
		return append(pool, untouched...)
	}
	if len(pool) == 0 {
		return nil
	}
	if s.rng.Float64() < PracticeOnlyProbability {
		return pool
	}
	return append(pool, st.Mastered...)
}

// untouched lists, in index order, questions neither mastered nor practicing
func untouched(st models.QuizState) []int {
	var out []int
	for i := 0; i < st.Total; i++ {
		if !contains(st.Mastered, i) && !contains(st.Practicing, i) {
			out = append(out, i)
		}
	}
	return out
}

func present(st models.QuizState, idx int) models.QuizState {
	st.Current = idx
	st.LastShown = idx
	return st
}

func without(pool []int, idx int) []int {
	out := make([]int, 0, len(pool))
	for _, v := range pool {
		if v != idx {
			out = append(out, v)
		}
	}
	return out
}
