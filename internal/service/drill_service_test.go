package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"grammardrill/internal/drillfile"
	"grammardrill/internal/models"
)

const frenchDrill = "#META\ttarget_language\tFrench\n" +
	"#META\ttitle\tPassé composé\n" +
	"#META\tauthor\tLuc\n" +
	"#META\tdifficulty\tIntermediate\n" +
	"#META\tdescription\tAuxiliary avoir\n" +
	"#HEADER\tfull_sentence\ttarget_word\tprompt\tgrammar_concept\talternate_answers\thint\n" +
	"J'ai mangé une pomme.\tai mangé\tmanger\tPassé composé\t\t\n" +
	"Nous avons fini.\tavons fini\tfinir\tPassé composé\t\tnous\n"

func newTestDrillService(gen DrillGenerator, skipValidation bool) (*DrillService, *fakeDrillStore, *fakeSessionStore) {
	drills := newFakeDrillStore()
	sessions := newFakeSessionStore()
	return NewDrillService(drills, sessions, gen, skipValidation), drills, sessions
}

func TestImportDrill(t *testing.T) {
	svc, _, _ := newTestDrillService(nil, true)
	ctx := context.Background()

	drill, err := svc.ImportDrill(ctx, "uploads/french.TSV", frenchDrill)
	if err != nil {
		t.Fatalf("ImportDrill() error = %v", err)
	}
	if drill.Filename != "french.TSV" {
		t.Errorf("Filename = %q", drill.Filename)
	}
	if drill.QuestionCount != 2 || drill.GrammarConcept != "Passé composé" || drill.BaseLanguage != "English" {
		t.Errorf("drill = %+v", drill)
	}
	if drill.ContentHash == "" {
		t.Error("ContentHash not set")
	}

	_, err = svc.ImportDrill(ctx, "again.tsv", frenchDrill)
	if !errors.Is(err, ErrDuplicateDrill) {
		t.Errorf("second import error = %v, want ErrDuplicateDrill", err)
	}
}

func TestImportDrillErrors(t *testing.T) {
	svc, _, _ := newTestDrillService(nil, true)

	tests := []struct {
		name     string
		filename string
		content  string
		check    func(error) bool
	}{
		{
			name:     "wrong extension",
			filename: "drill.csv",
			content:  frenchDrill,
			check:    func(err error) bool { return errors.Is(err, ErrInvalidFileType) },
		},
		{
			name:     "no header",
			filename: "drill.tsv",
			content:  "#META\ttitle\tT\n",
			check: func(err error) bool {
				var fe *drillfile.FormatError
				return errors.As(err, &fe)
			},
		},
		{
			name:     "missing author",
			filename: "drill.tsv",
			content:  strings.Replace(frenchDrill, "#META\tauthor\tLuc\n", "", 1),
			check: func(err error) bool {
				var ve *drillfile.ValidationError
				return errors.As(err, &ve) && ve.Field == "author"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ImportDrill(context.Background(), tt.filename, tt.content)
			if err == nil || !tt.check(err) {
				t.Errorf("ImportDrill() error = %v", err)
			}
		})
	}
}

func TestCreateDrill(t *testing.T) {
	svc, _, _ := newTestDrillService(nil, true)
	ctx := context.Background()

	meta := models.DrillMetadata{
		TargetLanguage: "German",
		Title:          "Dativ / Akkusativ",
		Author:         "Eva",
		Difficulty:     models.Advanced,
		Description:    "Two-way prepositions",
	}
	questions := []models.QuestionFields{
		{FullSentence: "Ich gehe in den Park.", TargetWord: "den", Prompt: "Artikel", GrammarConcept: "Wechselpräpositionen"},
	}

	drill, err := svc.CreateDrill(ctx, meta, questions)
	if err != nil {
		t.Fatalf("CreateDrill() error = %v", err)
	}
	if drill.Filename != "Dativ___Akkusativ.tsv" {
		t.Errorf("Filename = %q", drill.Filename)
	}
	if drill.GrammarConcept != "Wechselpräpositionen" || drill.Version != "1.0" {
		t.Errorf("metadata = %+v", drill.DrillMetadata)
	}

	if _, err := svc.CreateDrill(ctx, meta, nil); !errors.Is(err, ErrNoQuestions) {
		t.Errorf("CreateDrill(no questions) error = %v, want ErrNoQuestions", err)
	}

	bad := meta
	bad.Difficulty = "Easy"
	var ve *drillfile.ValidationError
	if _, err := svc.CreateDrill(ctx, bad, questions); !errors.As(err, &ve) {
		t.Errorf("CreateDrill(bad difficulty) error = %v, want ValidationError", err)
	}

	// A leading # would turn the serialized row into a comment line
	hashed := []models.QuestionFields{
		{FullSentence: "Das ist gut.", TargetWord: "ist", Prompt: "Verb", GrammarConcept: "sein"},
		{FullSentence: "#1 ist der Beste.", TargetWord: "ist", Prompt: "Verb", GrammarConcept: "sein"},
	}
	_, err = svc.CreateDrill(ctx, meta, hashed)
	if !errors.As(err, &ve) || ve.Index != 1 || ve.Field != "full_sentence" {
		t.Errorf("CreateDrill(# sentence) error = %v, want ValidationError on question 2 full_sentence", err)
	}
}

func TestGenerateDrill(t *testing.T) {
	validated := strings.Replace(frenchDrill, "Nous avons fini.", "Nous avons bien fini.", 1)

	tests := []struct {
		name           string
		gen            *fakeGenerator
		skipValidation bool
		wantSentence   string
		wantValidate   int
	}{
		{
			name:         "validated content replaces original",
			gen:          &fakeGenerator{drillText: frenchDrill, validatedText: validated},
			wantSentence: "Nous avons bien fini.",
			wantValidate: 1,
		},
		{
			name:         "validation failure keeps original",
			gen:          &fakeGenerator{drillText: frenchDrill, validateErr: errors.New("timeout")},
			wantSentence: "Nous avons fini.",
			wantValidate: 1,
		},
		{
			name:         "unparseable validation keeps original",
			gen:          &fakeGenerator{drillText: frenchDrill, validatedText: "Sorry, I cannot help."},
			wantSentence: "Nous avons fini.",
			wantValidate: 1,
		},
		{
			name:           "validation skipped",
			gen:            &fakeGenerator{drillText: frenchDrill, validatedText: validated},
			skipValidation: true,
			wantSentence:   "Nous avons fini.",
			wantValidate:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, drills, _ := newTestDrillService(tt.gen, tt.skipValidation)
			ctx := context.Background()

			drill, err := svc.GenerateDrill(ctx, GenerateRequest{TargetLanguage: "French", GrammarConcept: "Passé composé"})
			if err != nil {
				t.Fatalf("GenerateDrill() error = %v", err)
			}
			if drill.Filename != "French_Passé_composé.tsv" {
				t.Errorf("Filename = %q", drill.Filename)
			}
			if tt.gen.validateCall != tt.wantValidate {
				t.Errorf("ValidateDrill calls = %d, want %d", tt.gen.validateCall, tt.wantValidate)
			}

			questions, _ := drills.GetQuestions(ctx, drill.ID)
			if questions[1].FullSentence != tt.wantSentence {
				t.Errorf("second sentence = %q, want %q", questions[1].FullSentence, tt.wantSentence)
			}

			p := tt.gen.gotParams
			if p.BaseLanguage != "English" || p.Difficulty != "Intermediate" || p.NumberOfSentences != 10 {
				t.Errorf("defaults not applied: %+v", p)
			}
			if p.Title != "French Passé composé Practice" {
				t.Errorf("Title = %q", p.Title)
			}
		})
	}
}

func TestGenerateDrillErrors(t *testing.T) {
	tests := []struct {
		name    string
		gen     DrillGenerator
		req     GenerateRequest
		wantErr error
	}{
		{"ai disabled", nil, GenerateRequest{TargetLanguage: "French", GrammarConcept: "x"}, ErrAIDisabled},
		{"missing language", &fakeGenerator{}, GenerateRequest{GrammarConcept: "x"}, ErrInvalidRequest},
		{"bad difficulty", &fakeGenerator{}, GenerateRequest{TargetLanguage: "French", GrammarConcept: "x", Difficulty: "Hard"}, ErrInvalidRequest},
		{"api failure", &fakeGenerator{generateErr: errors.New("status 500")}, GenerateRequest{TargetLanguage: "French", GrammarConcept: "x"}, ErrGenerationFailed},
		{"garbage output", &fakeGenerator{drillText: "no drill here"}, GenerateRequest{TargetLanguage: "French", GrammarConcept: "x"}, ErrGenerationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestDrillService(tt.gen, true)
			if _, err := svc.GenerateDrill(context.Background(), tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("GenerateDrill() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateDrillClampsSentenceCount(t *testing.T) {
	gen := &fakeGenerator{drillText: frenchDrill}
	svc, _, _ := newTestDrillService(gen, true)

	if _, err := svc.GenerateDrill(context.Background(), GenerateRequest{TargetLanguage: "French", GrammarConcept: "x", NumberOfSentences: 500}); err != nil {
		t.Fatalf("GenerateDrill() error = %v", err)
	}
	if gen.gotParams.NumberOfSentences != maxSentenceCount {
		t.Errorf("NumberOfSentences = %d, want %d", gen.gotParams.NumberOfSentences, maxSentenceCount)
	}
}

func TestUpdateDrillContent(t *testing.T) {
	svc, _, sessions := newTestDrillService(nil, true)
	ctx := context.Background()

	drill, err := svc.ImportDrill(ctx, "french.tsv", frenchDrill)
	if err != nil {
		t.Fatalf("ImportDrill() error = %v", err)
	}
	sessions.Create(ctx, &models.QuizSession{ID: "s1", DrillID: drill.ID})

	edited := strings.Replace(frenchDrill, "Auxiliary avoir", "Avoir and être", 1)
	updated, err := svc.UpdateDrillContent(ctx, drill.ID, edited)
	if err != nil {
		t.Fatalf("UpdateDrillContent() error = %v", err)
	}
	if updated.Description != "Avoir and être" {
		t.Errorf("Description = %q", updated.Description)
	}
	if got, _ := sessions.Get(ctx, "s1"); got != nil {
		t.Error("session of edited drill was not discarded")
	}

	// Saving identical content onto itself is not a duplicate
	if _, err := svc.UpdateDrillContent(ctx, drill.ID, edited); err != nil {
		t.Errorf("idempotent update error = %v", err)
	}

	other, err := svc.ImportDrill(ctx, "original.tsv", frenchDrill)
	if err != nil {
		t.Fatalf("ImportDrill() error = %v", err)
	}
	if _, err := svc.UpdateDrillContent(ctx, other.ID, edited); !errors.Is(err, ErrDuplicateDrill) {
		t.Errorf("update onto existing content error = %v, want ErrDuplicateDrill", err)
	}
	if _, err := svc.UpdateDrillContent(ctx, 999, strings.Replace(frenchDrill, "Luc", "Zoé", 1)); !errors.Is(err, ErrDrillNotFound) {
		t.Errorf("update missing drill error = %v, want ErrDrillNotFound", err)
	}
}

func TestExportDrillRoundTrips(t *testing.T) {
	svc, _, _ := newTestDrillService(nil, true)
	ctx := context.Background()

	drill, err := svc.ImportDrill(ctx, "french.tsv", frenchDrill)
	if err != nil {
		t.Fatalf("ImportDrill() error = %v", err)
	}

	filename, content, err := svc.ExportDrill(ctx, drill.ID)
	if err != nil {
		t.Fatalf("ExportDrill() error = %v", err)
	}
	if filename != "french.tsv" {
		t.Errorf("filename = %q", filename)
	}

	parsed, err := drillfile.Parse(content)
	if err != nil {
		t.Fatalf("exported content does not parse: %v", err)
	}
	if drillfile.Fingerprint(parsed.Metadata, parsed.Questions) != drill.ContentHash {
		t.Error("exported content fingerprint differs from stored drill")
	}

	if _, _, err := svc.ExportDrill(ctx, 42); !errors.Is(err, ErrDrillNotFound) {
		t.Errorf("ExportDrill(missing) error = %v", err)
	}
}

func TestDeleteAndVote(t *testing.T) {
	svc, _, sessions := newTestDrillService(nil, true)
	ctx := context.Background()

	drill, _ := svc.ImportDrill(ctx, "french.tsv", frenchDrill)
	sessions.Create(ctx, &models.QuizSession{ID: "s1", DrillID: drill.ID})

	voted, err := svc.Vote(ctx, drill.ID, true)
	if err != nil || voted.Upvotes != 1 {
		t.Fatalf("Vote() = %+v, %v", voted, err)
	}

	if err := svc.DeleteDrill(ctx, drill.ID); err != nil {
		t.Fatalf("DeleteDrill() error = %v", err)
	}
	if got, _ := sessions.Get(ctx, "s1"); got != nil {
		t.Error("session survived drill delete")
	}
	if err := svc.DeleteDrill(ctx, drill.ID); !errors.Is(err, ErrDrillNotFound) {
		t.Errorf("second DeleteDrill() error = %v", err)
	}
	if _, err := svc.Vote(ctx, drill.ID, false); !errors.Is(err, ErrDrillNotFound) {
		t.Errorf("Vote(deleted) error = %v", err)
	}
}

func TestListDrillsRejectsUnknownDifficulty(t *testing.T) {
	svc, _, _ := newTestDrillService(nil, true)

	if _, err := svc.ListDrills(context.Background(), models.DrillFilter{Difficulty: "beginner"}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("ListDrills() error = %v, want ErrInvalidRequest", err)
	}
	drills, err := svc.ListDrills(context.Background(), models.DrillFilter{})
	if err != nil || drills == nil {
		t.Errorf("ListDrills() = %v, %v; want empty non-nil", drills, err)
	}
}
