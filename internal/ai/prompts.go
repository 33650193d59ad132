package ai

import (
	"strconv"
	"strings"
)

const generationSystemPrompt = `You are a helpful language learning content creator that creates precise, educational content following the EXACT format requested. Your response MUST begin with #META lines and include a #HEADER line followed by content lines. Do not include any explanations, comments, or additional text before or after the TSV data.`

const generationPromptTemplate = `Create a fill-in-the-blank grammar drill as tab-separated values.

Target language: {target_language}
Learner's native language: {base_language}
Grammar concept: {grammar_concept}
Difficulty: {difficulty_level}
Number of sentences: {number_of_sentences}

Start with these metadata lines, one per line, fields separated by a single TAB:
#META	target_language	{target_language}
#META	base_language	{base_language}
#META	title	{title}
#META	author	AI Generated
#META	difficulty	{difficulty_level}
#META	description	<one sentence describing the drill>
#META	grammar_concept	{grammar_concept}
#META	version	1.0
#META	tags	{tags}

Then this header line:
#HEADER	full_sentence	target_word	prompt	grammar_concept	alternate_answers	hint

Then exactly {number_of_sentences} lines with six TAB-separated fields:
- full_sentence: a natural {target_language} sentence
- target_word: the word or phrase from full_sentence the learner must supply, written exactly as it appears in the sentence
- prompt: an instruction in {base_language}, for example the infinitive to conjugate
- grammar_concept: {grammar_concept}
- alternate_answers: other fully correct answers separated by commas, or empty
- hint: a short hint in {base_language}, or empty

Difficulty must be one of Beginner, Intermediate, Advanced, Expert. Never use TAB characters inside a field.`

const validationSystemPrompt = `You are a grammar quiz validation expert. Your job is to find and fix errors in generated quiz content. Always return properly formatted TSV data. Fix real problems without making unnecessary changes.`

const validationPromptTemplate = `Review this fill-in-the-blank grammar drill. For every line check that:
- target_word appears verbatim in full_sentence
- target_word is the grammatically correct answer for the prompt
- alternate_answers contains only answers that are also fully correct
- the sentence is natural and matches the grammar concept

Fix any problem you find. Remove a line only if it cannot be fixed.
Return the complete corrected drill in exactly the same TSV format, including every #META line and the #HEADER line, with no other text.

{quiz_content}`

const explanationSystemPrompt = `You are a helpful language learning assistant. Your explanations are clear, concise, and educational. Always use markdown formatting for better readability.`

const explanationPromptTemplate = `You are explaining a grammar concept to a language learner. Keep your explanation extremely clear, concise, and practical.

Language: {target_language}
Grammar concept: {grammar_concept}

Sentence with blank: {question}
Correct answer: {target_word}
Full correct sentence: {full_sentence}
{user_answer_line}
Give a brief, clear explanation in 3-4 short paragraphs maximum:
1. First, explain this specific grammar rule in very simple terms
2. Explain why the correct answer ({target_word}) works in this case
3. {third_point}
4. End with a practical tip for remembering this rule

Use plain, everyday language, aim for about 150 words, and use **bold** for key terms and rules.`

func generationPrompt(p GenerateParams) string {
	return strings.NewReplacer(
		"{target_language}", p.TargetLanguage,
		"{base_language}", p.BaseLanguage,
		"{grammar_concept}", p.GrammarConcept,
		"{difficulty_level}", p.Difficulty,
		"{number_of_sentences}", strconv.Itoa(p.NumberOfSentences),
		"{title}", p.Title,
		"{tags}", p.Tags,
	).Replace(generationPromptTemplate)
}

func validationPrompt(drillText string) string {
	return strings.ReplaceAll(validationPromptTemplate, "{quiz_content}", drillText)
}

func explanationPrompt(p ExplainParams) string {
	language := p.TargetLanguage
	if language == "" {
		language = "Unknown"
	}

	userAnswerLine := ""
	thirdPoint := "Give 1-2 similar examples to reinforce the concept"
	if answer := strings.TrimSpace(p.UserAnswer); answer != "" {
		userAnswerLine = "User's answer: " + answer + "\n"
		if !strings.EqualFold(answer, p.TargetWord) {
			thirdPoint = "Explain why the user's answer was incorrect"
		}
	}

	return strings.NewReplacer(
		"{target_language}", language,
		"{grammar_concept}", p.GrammarConcept,
		"{question}", p.Question,
		"{target_word}", p.TargetWord,
		"{full_sentence}", p.FullSentence,
		"{user_answer_line}", userAnswerLine,
		"{third_point}", thirdPoint,
	).Replace(explanationPromptTemplate)
}
