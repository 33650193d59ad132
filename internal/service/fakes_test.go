package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"grammardrill/internal/ai"
	"grammardrill/internal/models"
)

// fakeDrillStore is an in-memory DrillStore with the repository's semantics
type fakeDrillStore struct {
	mu        sync.Mutex
	nextID    int64
	drills    map[int64]models.Drill
	questions map[int64][]models.QuestionFields
}

func newFakeDrillStore() *fakeDrillStore {
	return &fakeDrillStore{
		drills:    make(map[int64]models.Drill),
		questions: make(map[int64][]models.QuestionFields),
	}
}

func (f *fakeDrillStore) CreateWithQuestions(ctx context.Context, drill *models.Drill, questions []models.QuestionFields) (*models.Drill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, d := range f.drills {
		if d.ContentHash == drill.ContentHash {
			return nil, errors.New("UNIQUE constraint failed: drill_files.content_hash")
		}
	}

	f.nextID++
	created := *drill
	created.ID = f.nextID
	created.QuestionCount = len(questions)
	created.CreatedAt = time.Now().UTC()
	created.UpdatedAt = created.CreatedAt
	f.drills[created.ID] = created
	f.questions[created.ID] = append([]models.QuestionFields(nil), questions...)
	return &created, nil
}

func (f *fakeDrillStore) ReplaceContent(ctx context.Context, drillID int64, meta models.DrillMetadata, questions []models.QuestionFields, contentHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.drills[drillID]
	if !ok {
		return false, nil
	}
	d.DrillMetadata = meta
	d.ContentHash = contentHash
	d.QuestionCount = len(questions)
	f.drills[drillID] = d
	f.questions[drillID] = append([]models.QuestionFields(nil), questions...)
	return true, nil
}

func (f *fakeDrillStore) GetByID(ctx context.Context, drillID int64) (*models.Drill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.drills[drillID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (f *fakeDrillStore) GetByContentHash(ctx context.Context, hash string) (*models.Drill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, d := range f.drills {
		if d.ContentHash == hash {
			found := d
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeDrillStore) GetQuestions(ctx context.Context, drillID int64) ([]models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var questions []models.Question
	for i, q := range f.questions[drillID] {
		questions = append(questions, models.Question{
			ID:             drillID*1000 + int64(i),
			DrillID:        drillID,
			OrderIndex:     i,
			QuestionFields: q,
		})
	}
	return questions, nil
}

func (f *fakeDrillStore) List(ctx context.Context, filter models.DrillFilter) ([]models.Drill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	search := strings.ToLower(filter.Search)
	drills := []models.Drill{}
	for _, d := range f.drills {
		if filter.TargetLanguage != "" && !strings.EqualFold(d.TargetLanguage, filter.TargetLanguage) {
			continue
		}
		if filter.Difficulty != "" && d.Difficulty != filter.Difficulty {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(d.Title+" "+d.Description+" "+d.GrammarConcept+" "+d.Tags), search) {
			continue
		}
		drills = append(drills, d)
	}
	sort.Slice(drills, func(i, j int) bool { return drills[i].ID > drills[j].ID })
	return drills, nil
}

func (f *fakeDrillStore) Delete(ctx context.Context, drillID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.drills[drillID]; !ok {
		return false, nil
	}
	delete(f.drills, drillID)
	delete(f.questions, drillID)
	return true, nil
}

func (f *fakeDrillStore) DeleteAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.drills = make(map[int64]models.Drill)
	f.questions = make(map[int64][]models.QuestionFields)
	return nil
}

func (f *fakeDrillStore) Vote(ctx context.Context, drillID int64, up bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.drills[drillID]
	if !ok {
		return false, nil
	}
	if up {
		d.Upvotes++
	} else {
		d.Downvotes++
	}
	f.drills[drillID] = d
	return true, nil
}

// fakeSessionStore keeps sessions in memory, copying on every access the
// way a real store round-trips through storage
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.QuizSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]models.QuizSession)}
}

func (f *fakeSessionStore) Create(ctx context.Context, session *models.QuizSession) error {
	return f.put(session)
}

func (f *fakeSessionStore) Update(ctx context.Context, session *models.QuizSession) error {
	return f.put(session)
}

func (f *fakeSessionStore) put(session *models.QuizSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored := *session
	stored.State = session.State.Clone()
	f.sessions[session.ID] = stored
	return nil
}

func (f *fakeSessionStore) Get(ctx context.Context, sessionID string) (*models.QuizSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	s.State = s.State.Clone()
	return &s, nil
}

func (f *fakeSessionStore) Delete(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeSessionStore) DeleteByDrill(ctx context.Context, drillID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, s := range f.sessions {
		if s.DrillID == drillID {
			delete(f.sessions, id)
		}
	}
	return nil
}

// fakeGenerator returns canned AI replies
type fakeGenerator struct {
	drillText     string
	generateErr   error
	validatedText string
	validateErr   error

	gotParams    ai.GenerateParams
	validateCall int
}

func (f *fakeGenerator) GenerateDrill(ctx context.Context, p ai.GenerateParams) (string, error) {
	f.gotParams = p
	return f.drillText, f.generateErr
}

func (f *fakeGenerator) ValidateDrill(ctx context.Context, drillText string) (string, error) {
	f.validateCall++
	return f.validatedText, f.validateErr
}

type fakeExplainer struct {
	got ai.ExplainParams
}

func (f *fakeExplainer) Explain(ctx context.Context, p ai.ExplainParams) (string, error) {
	f.got = p
	return "Use the first person form.", nil
}

type sentResults struct {
	to       string
	drillID  int64
	progress models.Progress
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentResults
	err  error
}

func (f *fakeNotifier) SendQuizResults(ctx context.Context, toEmail string, drill *models.Drill, progress models.Progress) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, sentResults{to: toEmail, drillID: drill.ID, progress: progress})
	return f.err
}
