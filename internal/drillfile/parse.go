// Package drillfile reads and writes the tab-separated drill file format.
//
// A drill file has three kinds of lines:
//
//	#META	<key>	<value>
//	#HEADER	<column>	<column>	...
//	<field>	<field>	...
//
// Blank lines are ignored. Data lines are only read after a #HEADER line and
// must carry at least as many fields as the header names.
package drillfile

import (
	"strings"
	"unicode"

	"grammardrill/internal/models"
)

const (
	MetaMarker   = "#META"
	HeaderMarker = "#HEADER"
	Separator    = "\t"
)

// Columns is the canonical #HEADER column order
var Columns = []string{
	"full_sentence",
	"target_word",
	"prompt",
	"grammar_concept",
	"alternate_answers",
	"hint",
}

// MetaKeys is the canonical order of the #META block
var MetaKeys = []string{
	"target_language",
	"base_language",
	"title",
	"author",
	"difficulty",
	"description",
	"grammar_concept",
	"version",
	"tags",
}

// Drill is the validated content of a drill file.
// Questions keep source order; storage assigns order_index from it.
type Drill struct {
	Metadata  models.DrillMetadata
	Questions []models.QuestionFields
}

// rawDrill is the untyped result of scanning, before validation
type rawDrill struct {
	meta    map[string]string
	headers []string
	rows    []map[string]string
}

// Parse scans content and validates it into a Drill.
// It returns a *FormatError when no structure is found and a *ValidationError
// when a required field is missing; no partial result is returned.
func Parse(content string) (*Drill, error) {
	raw := scan(content)

	if raw.headers == nil {
		return nil, &FormatError{Reason: "no #HEADER line found"}
	}
	if len(raw.rows) == 0 {
		return nil, &FormatError{Reason: "no question rows match the #HEADER columns"}
	}

	questions := make([]models.QuestionFields, 0, len(raw.rows))
	for _, row := range raw.rows {
		questions = append(questions, models.QuestionFields{
			FullSentence:     row["full_sentence"],
			TargetWord:       row["target_word"],
			Prompt:           row["prompt"],
			GrammarConcept:   row["grammar_concept"],
			AlternateAnswers: row["alternate_answers"],
			Hint:             row["hint"],
		})
	}

	meta := models.DrillMetadata{
		TargetLanguage: raw.meta["target_language"],
		BaseLanguage:   raw.meta["base_language"],
		Title:          raw.meta["title"],
		Author:         raw.meta["author"],
		Difficulty:     models.Difficulty(raw.meta["difficulty"]),
		Description:    raw.meta["description"],
		GrammarConcept: raw.meta["grammar_concept"],
		Version:        raw.meta["version"],
		Tags:           raw.meta["tags"],
	}
	meta.ApplyDefaults()
	meta.DeriveGrammarConcept(questions, models.DefaultGrammarConcept)

	if err := ValidateMetadata(meta); err != nil {
		return nil, err
	}
	for i, q := range questions {
		if err := ValidateQuestion(i, q); err != nil {
			return nil, err
		}
	}

	return &Drill{Metadata: meta, Questions: questions}, nil
}

// ValidateMetadata checks the required metadata fields and the difficulty enum
func ValidateMetadata(meta models.DrillMetadata) error {
	required := []struct {
		field string
		value string
	}{
		{"target_language", meta.TargetLanguage},
		{"title", meta.Title},
		{"author", meta.Author},
		{"description", meta.Description},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Record: RecordMetadata, Field: r.field, Message: "is required"}
		}
	}

	if !meta.Difficulty.Valid() {
		return &ValidationError{
			Record:  RecordMetadata,
			Field:   "difficulty",
			Message: "must be one of Beginner, Intermediate, Advanced, Expert",
		}
	}
	return nil
}

// ValidateQuestion checks the required columns of the question at index
func ValidateQuestion(index int, q models.QuestionFields) error {
	required := []struct {
		field string
		value string
	}{
		{"full_sentence", q.FullSentence},
		{"target_word", q.TargetWord},
		{"prompt", q.Prompt},
		{"grammar_concept", q.GrammarConcept},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Record: RecordQuestion, Index: index, Field: r.field, Message: "is required"}
		}
	}
	// full_sentence leads each canonical data line, where # marks a comment
	if strings.HasPrefix(strings.TrimSpace(q.FullSentence), "#") {
		return &ValidationError{Record: RecordQuestion, Index: index, Field: "full_sentence", Message: "must not start with #"}
	}
	return nil
}

func scan(content string) rawDrill {
	raw := rawDrill{meta: make(map[string]string)}

	for _, line := range strings.Split(content, "\n") {
		line = trimLine(line)
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, Separator)
		switch {
		case fields[0] == MetaMarker:
			// Fields past the value are reserved
			if len(fields) >= 3 {
				raw.meta[trimField(fields[1])] = trimField(fields[2])
			}
		case fields[0] == HeaderMarker:
			raw.headers = make([]string, 0, len(fields)-1)
			for _, h := range fields[1:] {
				raw.headers = append(raw.headers, trimField(h))
			}
		case strings.HasPrefix(line, "#"):
			// Unknown marker lines are comments
		case len(raw.headers) > 0 && len(fields) >= len(raw.headers):
			row := make(map[string]string, len(raw.headers))
			for i, h := range raw.headers {
				row[h] = trimField(fields[i])
			}
			raw.rows = append(raw.rows, row)
		}
	}

	return raw
}

// trimLine strips surrounding whitespace except tabs, which delimit
// trailing empty fields such as an absent hint.
func trimLine(line string) string {
	return strings.TrimFunc(line, func(r rune) bool {
		return r != '\t' && unicode.IsSpace(r)
	})
}

func trimField(field string) string {
	return strings.TrimSpace(field)
}
