package service

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"grammardrill/internal/ai"
	"grammardrill/internal/drillfile"
	"grammardrill/internal/models"
	"grammardrill/internal/validation"
)

const (
	defaultSentenceCount = 10
	maxSentenceCount     = 50
)

// DrillService handles drill business logic
type DrillService struct {
	drills         DrillStore
	sessions       SessionStore
	generator      DrillGenerator
	skipValidation bool
}

// NewDrillService creates a new drill service. generator may be nil, in
// which case GenerateDrill returns ErrAIDisabled.
func NewDrillService(drills DrillStore, sessions SessionStore, generator DrillGenerator, skipValidation bool) *DrillService {
	return &DrillService{
		drills:         drills,
		sessions:       sessions,
		generator:      generator,
		skipValidation: skipValidation,
	}
}

// GenerateRequest holds the inputs of AI drill generation
type GenerateRequest struct {
	TargetLanguage    string            `json:"target_language"`
	BaseLanguage      string            `json:"base_language"`
	GrammarConcept    string            `json:"grammar_concept"`
	Difficulty        models.Difficulty `json:"difficulty_level"`
	NumberOfSentences int               `json:"number_of_sentences"`
	Title             string            `json:"title"`
	Tags              string            `json:"tags"`
}

// ImportDrill parses an uploaded drill file and stores it
func (s *DrillService) ImportDrill(ctx context.Context, filename, content string) (*models.Drill, error) {
	if !validation.IsDrillFilename(filename) {
		return nil, ErrInvalidFileType
	}

	parsed, err := drillfile.Parse(content)
	if err != nil {
		return nil, err
	}

	return s.save(ctx, filepath.Base(filename), parsed.Metadata, parsed.Questions)
}

// CreateDrill stores a drill built from structured input. The input goes
// through the same codec as uploads so both paths validate identically.
func (s *DrillService) CreateDrill(ctx context.Context, meta models.DrillMetadata, questions []models.QuestionFields) (*models.Drill, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	for i, q := range questions {
		if err := drillfile.ValidateQuestion(i, q); err != nil {
			return nil, err
		}
	}

	parsed, err := drillfile.Parse(drillfile.Serialize(meta, questions))
	if err != nil {
		return nil, err
	}

	return s.save(ctx, slugFilename(parsed.Metadata.Title), parsed.Metadata, parsed.Questions)
}

// GenerateDrill asks the AI for a new drill, optionally proofreads it with a
// second AI pass, and stores the result.
func (s *DrillService) GenerateDrill(ctx context.Context, req GenerateRequest) (*models.Drill, error) {
	if s.generator == nil {
		return nil, ErrAIDisabled
	}

	req.TargetLanguage = strings.TrimSpace(req.TargetLanguage)
	req.GrammarConcept = strings.TrimSpace(req.GrammarConcept)
	if req.TargetLanguage == "" || req.GrammarConcept == "" {
		return nil, fmt.Errorf("%w: target language and grammar concept are required", ErrInvalidRequest)
	}
	applyGenerateDefaults(&req)
	if !req.Difficulty.Valid() {
		return nil, fmt.Errorf("%w: unknown difficulty %q", ErrInvalidRequest, req.Difficulty)
	}

	text, err := s.generator.GenerateDrill(ctx, ai.GenerateParams{
		TargetLanguage:    req.TargetLanguage,
		BaseLanguage:      req.BaseLanguage,
		GrammarConcept:    req.GrammarConcept,
		Difficulty:        string(req.Difficulty),
		NumberOfSentences: req.NumberOfSentences,
		Title:             req.Title,
		Tags:              req.Tags,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	parsed, err := drillfile.Parse(text)
	if err != nil {
		log.Printf("Generated drill failed to parse: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	if !s.skipValidation {
		parsed = s.proofread(ctx, parsed)
	} else {
		log.Println("Quiz validation skipped (SKIP_QUIZ_VALIDATION=true)")
	}

	meta := parsed.Metadata
	meta.DeriveGrammarConcept(parsed.Questions, req.GrammarConcept)

	filename := fmt.Sprintf("%s_%s.tsv", req.TargetLanguage, strings.Join(strings.Fields(req.GrammarConcept), "_"))
	return s.save(ctx, filename, meta, parsed.Questions)
}

func applyGenerateDefaults(req *GenerateRequest) {
	if strings.TrimSpace(req.BaseLanguage) == "" {
		req.BaseLanguage = models.DefaultBaseLanguage
	}
	if req.Difficulty == "" {
		req.Difficulty = models.Intermediate
	}
	switch {
	case req.NumberOfSentences <= 0:
		req.NumberOfSentences = defaultSentenceCount
	case req.NumberOfSentences > maxSentenceCount:
		req.NumberOfSentences = maxSentenceCount
	}
	if strings.TrimSpace(req.Title) == "" {
		req.Title = fmt.Sprintf("%s %s Practice", req.TargetLanguage, req.GrammarConcept)
	}
}

// proofread runs the second AI pass. Any failure keeps the original drill.
func (s *DrillService) proofread(ctx context.Context, original *drillfile.Drill) *drillfile.Drill {
	text, err := s.generator.ValidateDrill(ctx, original.String())
	if err != nil {
		log.Printf("Warning: drill validation failed, using original content: %v", err)
		return original
	}

	validated, err := drillfile.Parse(text)
	if err != nil {
		log.Printf("Warning: validated drill failed to parse, using original content: %v", err)
		return original
	}

	if len(validated.Questions) != len(original.Questions) {
		log.Printf("Question count changed during validation: %d -> %d", len(original.Questions), len(validated.Questions))
	}
	return validated
}

// save deduplicates by canonical content and stores the drill
func (s *DrillService) save(ctx context.Context, filename string, meta models.DrillMetadata, questions []models.QuestionFields) (*models.Drill, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	meta.ApplyDefaults()
	meta.DeriveGrammarConcept(questions, models.DefaultGrammarConcept)

	hash := drillfile.Fingerprint(meta, questions)
	existing, err := s.drills.GetByContentHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %q (id %d)", ErrDuplicateDrill, existing.Title, existing.ID)
	}

	drill, err := s.drills.CreateWithQuestions(ctx, &models.Drill{
		Filename:      filename,
		ContentHash:   hash,
		DrillMetadata: meta,
	}, questions)
	if err != nil {
		return nil, err
	}

	log.Printf("Created drill %d %q with %d questions", drill.ID, drill.Title, drill.QuestionCount)
	return drill, nil
}

// UpdateDrillContent replaces a drill's metadata and questions from edited
// drill text. Sessions of the drill are discarded since their indices no
// longer match.
func (s *DrillService) UpdateDrillContent(ctx context.Context, drillID int64, content string) (*models.Drill, error) {
	parsed, err := drillfile.Parse(content)
	if err != nil {
		return nil, err
	}

	meta := parsed.Metadata
	hash := drillfile.Fingerprint(meta, parsed.Questions)
	existing, err := s.drills.GetByContentHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != drillID {
		return nil, fmt.Errorf("%w: %q (id %d)", ErrDuplicateDrill, existing.Title, existing.ID)
	}

	found, err := s.drills.ReplaceContent(ctx, drillID, meta, parsed.Questions, hash)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrDrillNotFound
	}

	if err := s.sessions.DeleteByDrill(ctx, drillID); err != nil {
		return nil, err
	}

	return s.requireDrill(ctx, drillID)
}

// ExportDrill renders a stored drill as drill file text
func (s *DrillService) ExportDrill(ctx context.Context, drillID int64) (filename, content string, err error) {
	drill, err := s.GetDrill(ctx, drillID)
	if err != nil {
		return "", "", err
	}

	filename = drill.Drill.Filename
	if filename == "" {
		filename = slugFilename(drill.Drill.Title)
	}
	return filename, drillfile.Serialize(drill.Drill.DrillMetadata, models.QuestionFieldsOf(drill.Questions)), nil
}

// GetDrill retrieves a drill with its questions in order
func (s *DrillService) GetDrill(ctx context.Context, drillID int64) (*models.DrillWithQuestions, error) {
	drill, err := s.requireDrill(ctx, drillID)
	if err != nil {
		return nil, err
	}

	questions, err := s.drills.GetQuestions(ctx, drillID)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []models.Question{}
	}

	return &models.DrillWithQuestions{Drill: *drill, Questions: questions}, nil
}

// ListDrills retrieves drills matching filter, newest first
func (s *DrillService) ListDrills(ctx context.Context, filter models.DrillFilter) ([]models.Drill, error) {
	if filter.Difficulty != "" && !filter.Difficulty.Valid() {
		return nil, fmt.Errorf("%w: unknown difficulty %q", ErrInvalidRequest, filter.Difficulty)
	}
	return s.drills.List(ctx, filter)
}

// DeleteDrill removes a drill with its questions and sessions
func (s *DrillService) DeleteDrill(ctx context.Context, drillID int64) error {
	found, err := s.drills.Delete(ctx, drillID)
	if err != nil {
		return err
	}
	if !found {
		return ErrDrillNotFound
	}
	return s.sessions.DeleteByDrill(ctx, drillID)
}

// Vote records an up or down vote and returns the updated drill
func (s *DrillService) Vote(ctx context.Context, drillID int64, up bool) (*models.Drill, error) {
	found, err := s.drills.Vote(ctx, drillID, up)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrDrillNotFound
	}
	return s.requireDrill(ctx, drillID)
}

func (s *DrillService) requireDrill(ctx context.Context, drillID int64) (*models.Drill, error) {
	drill, err := s.drills.GetByID(ctx, drillID)
	if err != nil {
		return nil, err
	}
	if drill == nil {
		return nil, ErrDrillNotFound
	}
	return drill, nil
}

// slugFilename turns a title into a .tsv filename
func slugFilename(title string) string {
	slug := strings.Join(strings.Fields(title), "_")
	slug = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, slug)
	if slug == "" {
		slug = "drill"
	}
	return slug + ".tsv"
}
