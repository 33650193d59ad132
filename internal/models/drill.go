package models

import "time"

// Difficulty is the level a drill targets
type Difficulty string

const (
	Beginner     Difficulty = "Beginner"
	Intermediate Difficulty = "Intermediate"
	Advanced     Difficulty = "Advanced"
	Expert       Difficulty = "Expert"
)

// Difficulties lists the accepted difficulty literals
var Difficulties = []Difficulty{Beginner, Intermediate, Advanced, Expert}

// Valid reports whether d is one of the four accepted literals (case-sensitive)
func (d Difficulty) Valid() bool {
	for _, known := range Difficulties {
		if d == known {
			return true
		}
	}
	return false
}

const (
	DefaultBaseLanguage   = "English"
	DefaultVersion        = "1.0"
	DefaultGrammarConcept = "Grammar Practice"
)

// DrillMetadata is the #META block of a drill file
type DrillMetadata struct {
	TargetLanguage string     `json:"target_language"`
	BaseLanguage   string     `json:"base_language"`
	Title          string     `json:"title"`
	Author         string     `json:"author"`
	Difficulty     Difficulty `json:"difficulty"`
	Description    string     `json:"description"`
	GrammarConcept string     `json:"grammar_concept"`
	Version        string     `json:"version"`
	Tags           string     `json:"tags"`
}

// ApplyDefaults fills the optional fields that have fixed defaults
func (m *DrillMetadata) ApplyDefaults() {
	if m.BaseLanguage == "" {
		m.BaseLanguage = DefaultBaseLanguage
	}
	if m.Version == "" {
		m.Version = DefaultVersion
	}
}

// DeriveGrammarConcept sets an absent grammar concept from the first question,
// or from fallback when there are no questions. Applying it twice is a no-op.
func (m *DrillMetadata) DeriveGrammarConcept(questions []QuestionFields, fallback string) {
	if m.GrammarConcept != "" {
		return
	}
	if len(questions) > 0 && questions[0].GrammarConcept != "" {
		m.GrammarConcept = questions[0].GrammarConcept
		return
	}
	m.GrammarConcept = fallback
}

// QuestionFields holds the six columns of a drill file data line
type QuestionFields struct {
	FullSentence     string `json:"full_sentence"`
	TargetWord       string `json:"target_word"`
	Prompt           string `json:"prompt"`
	GrammarConcept   string `json:"grammar_concept"`
	AlternateAnswers string `json:"alternate_answers"`
	Hint             string `json:"hint"`
}

// Question is a stored question of a drill
type Question struct {
	ID         int64     `json:"id"`
	DrillID    int64     `json:"drill_id"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
	QuestionFields
}

// Drill is a stored drill file
type Drill struct {
	ID            int64     `json:"id"`
	Filename      string    `json:"filename"`
	QuestionCount int       `json:"question_count"`
	Upvotes       int       `json:"upvotes"`
	Downvotes     int       `json:"downvotes"`
	ContentHash   string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	DrillMetadata
}

// DrillWithQuestions combines a drill with its questions in order_index order
type DrillWithQuestions struct {
	Drill     Drill      `json:"drill"`
	Questions []Question `json:"questions"`
}

// DrillFilter narrows a drill listing
type DrillFilter struct {
	Search         string
	TargetLanguage string
	Difficulty     Difficulty
}

// QuestionFieldsOf strips storage fields from questions, keeping their order
func QuestionFieldsOf(questions []Question) []QuestionFields {
	fields := make([]QuestionFields, len(questions))
	for i, q := range questions {
		fields[i] = q.QuestionFields
	}
	return fields
}
