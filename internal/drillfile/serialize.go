package drillfile

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"

	"grammardrill/internal/models"
)

// fieldSanitizer keeps values on one line and inside one column
var fieldSanitizer = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

// Serialize writes metadata and questions in the canonical drill file layout:
// the #META block, a blank line, the #HEADER line, a blank line, then one
// data line per question in the given order.
func Serialize(meta models.DrillMetadata, questions []models.QuestionFields) string {
	var b strings.Builder

	values := map[string]string{
		"target_language": meta.TargetLanguage,
		"base_language":   meta.BaseLanguage,
		"title":           meta.Title,
		"author":          meta.Author,
		"difficulty":      string(meta.Difficulty),
		"description":     meta.Description,
		"grammar_concept": meta.GrammarConcept,
		"version":         meta.Version,
		"tags":            meta.Tags,
	}
	for _, key := range MetaKeys {
		writeLine(&b, MetaMarker, key, values[key])
	}
	b.WriteString("\n")

	writeLine(&b, append([]string{HeaderMarker}, Columns...)...)
	b.WriteString("\n")

	for _, q := range questions {
		writeLine(&b,
			q.FullSentence,
			q.TargetWord,
			q.Prompt,
			q.GrammarConcept,
			q.AlternateAnswers,
			q.Hint,
		)
	}

	return b.String()
}

// String renders the drill in canonical form
func (d *Drill) String() string {
	return Serialize(d.Metadata, d.Questions)
}

// Fingerprint identifies drill content independent of source formatting:
// it hashes the canonical serialization, so reordered #META lines or
// extra blank lines produce the same value.
func Fingerprint(meta models.DrillMetadata, questions []models.QuestionFields) string {
	sum := blake2b.Sum256([]byte(Serialize(meta, questions)))
	return hex.EncodeToString(sum[:])
}

func writeLine(b *strings.Builder, fields ...string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteString(Separator)
		}
		b.WriteString(fieldSanitizer.Replace(f))
	}
	b.WriteString("\n")
}
