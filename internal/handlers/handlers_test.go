package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"grammardrill/internal/database"
	"grammardrill/internal/models"
	"grammardrill/internal/quiz"
	"grammardrill/internal/repository"
	"grammardrill/internal/security"
	"grammardrill/internal/service"
)

const germanDrill = "#META\ttarget_language\tGerman\n" +
	"#META\ttitle\tPerfekt mit haben\n" +
	"#META\tauthor\tEva\n" +
	"#META\tdifficulty\tBeginner\n" +
	"#META\tdescription\tRegular verbs\n" +
	"#HEADER\tfull_sentence\ttarget_word\tprompt\tgrammar_concept\talternate_answers\thint\n" +
	"Ich habe gespielt.\thabe\thaben\tPerfekt\t\t\n" +
	"Du hast gelernt.\thast\thaben\tPerfekt\t\t\n"

type testServer struct {
	handler http.Handler
	tokens  *security.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping handler test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "handlers.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations(filepath.Join("..", "..", "migrations")); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	drillRepo := repository.NewDrillRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	tokens, err := security.NewTokenManager("handler-test-secret")
	if err != nil {
		t.Fatalf("NewTokenManager() error = %v", err)
	}

	drillService := service.NewDrillService(drillRepo, sessionRepo, nil, true)
	quizService := service.NewQuizService(drillRepo, sessionRepo, quiz.NewScheduler(quiz.NewLockedRand(1)), nil, nil)
	middleware := NewMiddleware(security.NewRateLimiter(1, time.Hour), tokens)

	return &testServer{
		handler: NewRouter(NewDrillHandler(drillService, 1<<20), NewQuizHandler(quizService, tokens, time.Hour), middleware),
		tokens:  tokens,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(t *testing.T, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	part.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/drills/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func uploadGerman(t *testing.T, s *testServer) models.Drill {
	t.Helper()
	rec := s.upload(t, "german.tsv", germanDrill)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	var drill models.Drill
	decodeJSON(t, rec, &drill)
	return drill
}

func TestDrillEndpoints(t *testing.T) {
	s := newTestServer(t)
	drill := uploadGerman(t, s)
	base := "/api/drills/" + strconv.FormatInt(drill.ID, 10)

	if rec := s.upload(t, "again.tsv", germanDrill); rec.Code != http.StatusConflict {
		t.Errorf("duplicate upload status = %d, want 409", rec.Code)
	}
	if rec := s.upload(t, "german.txt", germanDrill); rec.Code != http.StatusBadRequest {
		t.Errorf("wrong extension status = %d, want 400", rec.Code)
	}
	if rec := s.upload(t, "broken.tsv", "just some text"); rec.Code != http.StatusBadRequest {
		t.Errorf("corrupt upload status = %d, want 400", rec.Code)
	}

	rec := s.do(t, http.MethodGet, "/api/drills?language=german&difficulty=Beginner", "", nil)
	var list struct {
		Drills []models.Drill `json:"drills"`
		Count  int            `json:"count"`
	}
	decodeJSON(t, rec, &list)
	if list.Count != 1 || list.Drills[0].ID != drill.ID {
		t.Errorf("list = %+v", list)
	}
	if rec := s.do(t, http.MethodGet, "/api/drills?difficulty=easy", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad difficulty filter status = %d, want 400", rec.Code)
	}

	rec = s.do(t, http.MethodGet, base, "", nil)
	var withQuestions models.DrillWithQuestions
	decodeJSON(t, rec, &withQuestions)
	if len(withQuestions.Questions) != 2 || withQuestions.Questions[1].TargetWord != "hast" {
		t.Errorf("drill = %+v", withQuestions)
	}

	rec = s.do(t, http.MethodGet, base+"/export", "", nil)
	if ct := rec.Header().Get("Content-Type"); ct != tsvContentType {
		t.Errorf("export Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="german.tsv"`) {
		t.Errorf("export Content-Disposition = %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "Du hast gelernt.\thast") {
		t.Errorf("export body = %q", rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, base+"/vote", "", VoteRequest{Vote: "up"})
	var voted models.Drill
	decodeJSON(t, rec, &voted)
	if voted.Upvotes != 1 {
		t.Errorf("Upvotes = %d, want 1", voted.Upvotes)
	}
	if rec := s.do(t, http.MethodPost, base+"/vote", "", VoteRequest{Vote: "sideways"}); rec.Code != http.StatusBadRequest {
		t.Errorf("bad vote status = %d, want 400", rec.Code)
	}

	edited := strings.Replace(germanDrill, "Regular verbs", "Weak verbs", 1)
	rec = s.do(t, http.MethodPut, base+"/content", "", edited)
	var updated models.Drill
	decodeJSON(t, rec, &updated)
	if updated.Description != "Weak verbs" {
		t.Errorf("updated = %+v", updated)
	}

	if rec := s.do(t, http.MethodDelete, base, "", nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, base, "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/drills/abc", "", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad ID status = %d, want 400", rec.Code)
	}
}

func TestCreateDrillEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := CreateDrillRequest{
		Metadata: models.DrillMetadata{
			TargetLanguage: "Italian",
			Title:          "Articoli",
			Author:         "Gio",
			Difficulty:     models.Beginner,
			Description:    "Definite articles",
		},
		Questions: []models.QuestionFields{
			{FullSentence: "Il gatto dorme.", TargetWord: "Il", Prompt: "article", GrammarConcept: "Articles"},
		},
	}
	rec := s.do(t, http.MethodPost, "/api/drills", "", req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}

	req.Questions[0].Prompt = ""
	req.Metadata.Title = "Articoli 2"
	rec = s.do(t, http.MethodPost, "/api/drills", "", req)
	if rec.Code != http.StatusBadRequest || !strings.Contains(decodeError(t, rec), "prompt") {
		t.Errorf("invalid question status = %d", rec.Code)
	}
}

func TestGenerateWithoutAI(t *testing.T) {
	s := newTestServer(t)
	body := service.GenerateRequest{TargetLanguage: "French", GrammarConcept: "Subjonctif"}

	if rec := s.do(t, http.MethodPost, "/api/drills/generate", "", body); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("generate status = %d, want 503", rec.Code)
	}
	// The limiter allows one request per hour in tests
	if rec := s.do(t, http.MethodPost, "/api/drills/generate", "", body); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second generate status = %d, want 429", rec.Code)
	}
}

func TestQuizEndpoints(t *testing.T) {
	s := newTestServer(t)
	drill := uploadGerman(t, s)
	base := "/api/quiz/" + strconv.FormatInt(drill.ID, 10)
	answers := map[int]string{0: "habe", 1: "hast"}

	rec := s.do(t, http.MethodPost, base+"/start", "", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body.String())
	}
	var start struct {
		SessionID string                `json:"session_id"`
		Token     string                `json:"token"`
		Question  *service.QuestionView `json:"question"`
	}
	decodeJSON(t, rec, &start)
	if start.Token == "" || start.Question == nil {
		t.Fatalf("start = %+v", start)
	}
	if !strings.Contains(start.Question.Sentence, quiz.BlankMarker) {
		t.Errorf("question sentence not blanked: %q", start.Question.Sentence)
	}

	answer := AnswerRequest{QuestionIndex: &start.Question.Index, Answer: answers[start.Question.Index]}
	if rec := s.do(t, http.MethodPost, base+"/answer", "", answer); rec.Code != http.StatusUnauthorized {
		t.Errorf("answer without token status = %d, want 401", rec.Code)
	}
	otherDrill, _ := s.tokens.Issue(start.SessionID, drill.ID+1, time.Hour)
	if rec := s.do(t, http.MethodPost, base+"/answer", otherDrill, answer); rec.Code != http.StatusForbidden {
		t.Errorf("answer with other drill's token status = %d, want 403", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, base+"/answer", start.Token, map[string]string{"answer": "x"}); rec.Code != http.StatusBadRequest {
		t.Errorf("answer without index status = %d, want 400", rec.Code)
	}

	// Miss the first question, then override it
	wrong := AnswerRequest{QuestionIndex: &start.Question.Index, Answer: "hatte"}
	rec = s.do(t, http.MethodPost, base+"/answer", start.Token, wrong)
	var result service.AnswerResult
	decodeJSON(t, rec, &result)
	if result.Correct || result.TargetWord != answers[start.Question.Index] {
		t.Errorf("wrong answer result = %+v", result)
	}

	rec = s.do(t, http.MethodPost, base+"/override", start.Token, OverrideRequest{QuestionIndex: &start.Question.Index})
	var overridden service.ProgressResult
	decodeJSON(t, rec, &overridden)
	if overridden.Progress.Correct != 1 || overridden.Question == nil {
		t.Fatalf("override = %+v", overridden)
	}

	next := overridden.Question.Index
	rec = s.do(t, http.MethodPost, base+"/answer", start.Token, AnswerRequest{QuestionIndex: &next, Answer: answers[next]})
	decodeJSON(t, rec, &result)
	if !result.Correct || !result.Progress.Completed || result.NextQuestion != nil {
		t.Errorf("final answer result = %+v", result)
	}

	rec = s.do(t, http.MethodGet, base+"/progress?sessionId="+start.SessionID, start.Token, nil)
	var progress service.ProgressResult
	decodeJSON(t, rec, &progress)
	if !progress.Progress.Completed || progress.Progress.TotalAttempts != 2 {
		t.Errorf("progress = %+v", progress)
	}
	if rec := s.do(t, http.MethodGet, base+"/progress?sessionId=someone-else", start.Token, nil); rec.Code != http.StatusForbidden {
		t.Errorf("progress for another session status = %d, want 403", rec.Code)
	}

	if rec := s.do(t, http.MethodPost, base+"/answer", start.Token, answer); rec.Code != http.StatusConflict {
		t.Errorf("answer after completion status = %d, want 409", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, base+"/explain", start.Token, ExplainRequest{QuestionIndex: &next}); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("explain without AI status = %d, want 503", rec.Code)
	}
}

func TestStartQuizErrors(t *testing.T) {
	s := newTestServer(t)

	if rec := s.do(t, http.MethodPost, "/api/quiz/999/start", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("start on missing drill status = %d, want 404", rec.Code)
	}
	drill := uploadGerman(t, s)
	path := "/api/quiz/" + strconv.FormatInt(drill.ID, 10) + "/start"
	if rec := s.do(t, http.MethodPost, path, "", StartQuizRequest{NotifyEmail: "not-an-email"}); rec.Code != http.StatusBadRequest {
		t.Errorf("start with bad email status = %d, want 400", rec.Code)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	handler := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("scheduler precondition")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
