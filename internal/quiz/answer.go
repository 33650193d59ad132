package quiz

import (
	"strings"

	"grammardrill/internal/models"
)

// BlankMarker replaces the target word in the sentence shown to the learner
const BlankMarker = "_____"

// normalizeAnswer makes answers comparable: trimmed and lowercased
func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// AlternateAnswers splits the comma-separated alternates, dropping empties
func AlternateAnswers(q models.QuestionFields) []string {
	var out []string
	for _, alt := range strings.Split(q.AlternateAnswers, ",") {
		if alt = strings.TrimSpace(alt); alt != "" {
			out = append(out, alt)
		}
	}
	return out
}

// AcceptedAnswers returns the normalized, de-duplicated answers for q
func AcceptedAnswers(q models.QuestionFields) []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range append([]string{q.TargetWord}, AlternateAnswers(q)...) {
		a = normalizeAnswer(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

// CheckAnswer reports whether answer matches the target word or an alternate
func CheckAnswer(q models.QuestionFields, answer string) bool {
	normalized := normalizeAnswer(answer)
	if normalized == "" {
		return false
	}
	for _, accepted := range AcceptedAnswers(q) {
		if normalized == accepted {
			return true
		}
	}
	return false
}

// BlankSentence hides the first occurrence of the target word
func BlankSentence(q models.QuestionFields) string {
	return strings.Replace(q.FullSentence, q.TargetWord, BlankMarker, 1)
}

// SubmitAnswer grades answer against q and records the result for index
func SubmitAnswer(st models.QuizState, index int, q models.QuestionFields, answer string) (models.QuizState, bool) {
	correct := CheckAnswer(q, answer)
	return Record(st, index, correct), correct
}

// Record applies a graded attempt. A correct attempt masters the index and
// clears it from practicing; an incorrect one flags it for practice unless it
// is already mastered. Both count as an attempt and mark the index as shown.
// Mastery never reverts, so the mastered set only grows and stays disjoint
// from practicing.
func Record(st models.QuizState, index int, correct bool) models.QuizState {
	mustValidate(st)
	mustBeInRange(st, index)

	next := st.Clone()
	next.TotalAttempts++
	if correct {
		next.CorrectAttempts++
		next.Mastered = addIndex(next.Mastered, index)
		next.Practicing = removeIndex(next.Practicing, index)
	} else if !contains(next.Mastered, index) {
		next.Practicing = addIndex(next.Practicing, index)
	}
	next.LastShown = index
	next.LastAnswered = index
	next.Completed = IsComplete(next)
	return next
}

// Override forces index to mastered after a false negative. It counts as a
// correct response but not as a new attempt.
func Override(st models.QuizState, index int) models.QuizState {
	mustValidate(st)
	mustBeInRange(st, index)

	next := st.Clone()
	next.CorrectAttempts++
	next.Mastered = addIndex(next.Mastered, index)
	next.Practicing = removeIndex(next.Practicing, index)
	next.Completed = IsComplete(next)
	return next
}
