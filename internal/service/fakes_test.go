package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/proctorly/interview-backend/internal/repository"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

var nopLog = zerolog.Nop()

// ─── Attempts ───────────────────────────────────────────────────────────────

type fakeAttemptStore struct {
	pairMu sync.Mutex
	mu     sync.Mutex
	rows   map[uuid.UUID]*model.Attempt
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{rows: make(map[uuid.UUID]*model.Attempt)}
}

func cloneAttempt(a *model.Attempt) *model.Attempt {
	c := *a
	c.QuestionIDs = append([]uuid.UUID(nil), a.QuestionIDs...)
	return &c
}

func (f *fakeAttemptStore) snapshot() map[uuid.UUID]*model.Attempt {
	out := make(map[uuid.UUID]*model.Attempt, len(f.rows))
	for k, v := range f.rows {
		out[k] = cloneAttempt(v)
	}
	return out
}

func (f *fakeAttemptStore) InPairTx(ctx context.Context, candidateID, positionID uuid.UUID, fn func(repository.PairTx) error) error {
	f.pairMu.Lock()
	defer f.pairMu.Unlock()

	f.mu.Lock()
	saved := f.snapshot()
	f.mu.Unlock()

	if err := fn(&fakePairTx{store: f, candidateID: candidateID, positionID: positionID}); err != nil {
		f.mu.Lock()
		f.rows = saved
		f.mu.Unlock()
		return err
	}
	return nil
}

type fakePairTx struct {
	store       *fakeAttemptStore
	candidateID uuid.UUID
	positionID  uuid.UUID
}

func (p *fakePairTx) each(fn func(a *model.Attempt)) {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	for _, a := range p.store.rows {
		if a.CandidateID == p.candidateID && a.PositionID == p.positionID {
			fn(a)
		}
	}
}

func (p *fakePairTx) HasActive(ctx context.Context) (bool, error) {
	active := false
	p.each(func(a *model.Attempt) {
		if a.InProgress() {
			active = true
		}
	})
	return active, nil
}

func (p *fakePairTx) MaxAttemptNumber(ctx context.Context) (int, error) {
	max := 0
	p.each(func(a *model.Attempt) {
		if a.AttemptNumber > max {
			max = a.AttemptNumber
		}
	})
	return max, nil
}

func (p *fakePairTx) ClearLatest(ctx context.Context) error {
	p.each(func(a *model.Attempt) { a.IsLatest = false })
	return nil
}

func (p *fakePairTx) Insert(ctx context.Context, a *model.Attempt) error {
	a.ID = uuid.New()
	a.CandidateID = p.candidateID
	a.PositionID = p.positionID
	p.store.mu.Lock()
	p.store.rows[a.ID] = cloneAttempt(a)
	p.store.mu.Unlock()
	return nil
}

func (f *fakeAttemptStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAttempt(a), nil
}

func (f *fakeAttemptStore) GetWithResult(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeAttemptStore) GetLatest(ctx context.Context, candidateID, positionID uuid.UUID) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.rows {
		if a.CandidateID == candidateID && a.PositionID == positionID && a.IsLatest {
			return cloneAttempt(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAttemptStore) ListByPair(ctx context.Context, candidateID, positionID uuid.UUID) ([]model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Attempt{}
	for _, a := range f.rows {
		if a.CandidateID == candidateID && a.PositionID == positionID {
			out = append(out, *cloneAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out, nil
}

func (f *fakeAttemptStore) Abandon(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok || !a.InProgress() {
		return repository.ErrStaleState
	}
	a.Status = model.AttemptStatusAbandoned
	return nil
}

func (f *fakeAttemptStore) Delete(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	f.pairMu.Lock()
	defer f.pairMu.Unlock()
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(f.rows, id)

	if a.IsLatest {
		var top *model.Attempt
		for _, o := range f.rows {
			if o.CandidateID == a.CandidateID && o.PositionID == a.PositionID {
				if top == nil || o.AttemptNumber > top.AttemptNumber {
					top = o
				}
			}
		}
		if top != nil {
			top.IsLatest = true
		}
	}
	return a, nil
}

func (f *fakeAttemptStore) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Attempt
	for _, a := range f.rows {
		if a.InProgress() && a.ExpiresAt.Before(cutoff) && len(out) < limit {
			out = append(out, *cloneAttempt(a))
		}
	}
	return out, nil
}

func (f *fakeAttemptStore) List(ctx context.Context, filter model.AttemptFilter) ([]model.AttemptSummary, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AttemptSummary
	for _, a := range f.rows {
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		out = append(out, model.AttemptSummary{Attempt: *cloneAttempt(a)})
	}
	return out, int64(len(out)), nil
}

func (f *fakeAttemptStore) GetSummary(ctx context.Context, id uuid.UUID) (*model.AttemptSummary, error) {
	a, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.AttemptSummary{Attempt: *a}, nil
}

func (f *fakeAttemptStore) ListLive(ctx context.Context, positionID uuid.UUID) ([]model.LiveAttempt, error) {
	return nil, nil
}

func (f *fakeAttemptStore) latestCount(candidateID, positionID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.rows {
		if a.CandidateID == candidateID && a.PositionID == positionID && a.IsLatest {
			n++
		}
	}
	return n
}

// ─── Results ────────────────────────────────────────────────────────────────

type fakeResultStore struct {
	attempts *fakeAttemptStore
	mu       sync.Mutex
	results  map[uuid.UUID]*model.Result
}

func newFakeResultStore(attempts *fakeAttemptStore) *fakeResultStore {
	return &fakeResultStore{attempts: attempts, results: make(map[uuid.UUID]*model.Result)}
}

func (f *fakeResultStore) CompleteWithResult(ctx context.Context, res *model.Result) error {
	f.attempts.mu.Lock()
	defer f.attempts.mu.Unlock()

	a, ok := f.attempts.rows[res.AttemptID]
	if !ok || !a.InProgress() {
		return repository.ErrStaleState
	}

	res.ID = uuid.New()
	res.CreatedAt = time.Now().UTC()
	now := res.CreatedAt
	a.Status = model.AttemptStatusCompleted
	a.CompletedAt = &now
	a.ResultID = &res.ID

	f.mu.Lock()
	stored := *res
	f.results[res.AttemptID] = &stored
	f.mu.Unlock()
	return nil
}

func (f *fakeResultStore) SetRecordingURL(ctx context.Context, resultID uuid.UUID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.results {
		if r.ID == resultID && r.RecordingURL == nil {
			r.RecordingURL = &url
		}
	}
	return nil
}

func (f *fakeResultStore) get(attemptID uuid.UUID) *model.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results[attemptID]
}

// ─── Positions, candidates, questions ───────────────────────────────────────

type fakePositionStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*model.Position
}

func newFakePositionStore(ps ...*model.Position) *fakePositionStore {
	f := &fakePositionStore{rows: make(map[uuid.UUID]*model.Position)}
	for _, p := range ps {
		f.rows[p.ID] = p
	}
	return f
}

func (f *fakePositionStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (f *fakePositionStore) List(ctx context.Context) ([]model.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Position
	for _, p := range f.rows {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakePositionStore) Create(ctx context.Context, p *model.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = uuid.New()
	c := *p
	f.rows[p.ID] = &c
	return nil
}

func (f *fakePositionStore) Update(ctx context.Context, p *model.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[p.ID]; !ok {
		return repository.ErrNotFound
	}
	c := *p
	f.rows[p.ID] = &c
	return nil
}

func (f *fakePositionStore) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeCandidateStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*model.Candidate
}

func newFakeCandidateStore(cs ...*model.Candidate) *fakeCandidateStore {
	f := &fakeCandidateStore{rows: make(map[uuid.UUID]*model.Candidate)}
	for _, c := range cs {
		f.rows[c.ID] = c
	}
	return f
}

func (f *fakeCandidateStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCandidateStore) GetByEmail(ctx context.Context, email string) (*model.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCandidateStore) ListPaginated(ctx context.Context, positionID *uuid.UUID, limit, offset int) ([]model.Candidate, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Candidate
	for _, c := range f.rows {
		if positionID == nil || c.PositionID == *positionID {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (f *fakeCandidateStore) Create(ctx context.Context, c *model.Candidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.rows {
		if o.Email == c.Email {
			return repository.ErrDuplicate
		}
	}
	c.ID = uuid.New()
	cp := *c
	f.rows[c.ID] = &cp
	return nil
}

func (f *fakeCandidateStore) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

type fakeQuestionStore struct {
	mu   sync.Mutex
	rows []model.Question
}

func (f *fakeQuestionStore) ListByPosition(ctx context.Context, positionID uuid.UUID) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Question
	for _, q := range f.rows {
		if q.PositionID == positionID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuestionStore) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Question
	for _, id := range ids {
		for _, q := range f.rows {
			if q.ID == id {
				out = append(out, q)
			}
		}
	}
	return out, nil
}

func (f *fakeQuestionStore) DrawRandomIDs(ctx context.Context, positionID uuid.UUID, n int) ([]uuid.UUID, error) {
	qs, _ := f.ListByPosition(ctx, positionID)
	ids := []uuid.UUID{}
	for i := 0; i < len(qs) && i < n; i++ {
		ids = append(ids, qs[i].ID)
	}
	return ids, nil
}

func (f *fakeQuestionStore) Create(ctx context.Context, q *model.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q.ID = uuid.New()
	f.rows = append(f.rows, *q)
	return nil
}

func (f *fakeQuestionStore) Delete(ctx context.Context, positionID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, q := range f.rows {
		if q.ID == id && q.PositionID == positionID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// ─── Progress ───────────────────────────────────────────────────────────────

type fakeProgressCache struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]model.Progress
	queue []uuid.UUID
}

func newFakeProgressCache() *fakeProgressCache {
	return &fakeProgressCache{rows: make(map[uuid.UUID]model.Progress)}
}

func (f *fakeProgressCache) Get(ctx context.Context, attemptID uuid.UUID) (*model.Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[attemptID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProgressCache) Set(ctx context.Context, p *model.Progress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[p.AttemptID] = *p
	return nil
}

func (f *fakeProgressCache) Delete(ctx context.Context, attemptID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, attemptID)
	return nil
}

func (f *fakeProgressCache) EnqueuePersist(ctx context.Context, attemptID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, attemptID)
	return nil
}

type fakeProgressStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.Progress
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{rows: make(map[uuid.UUID]model.Progress)}
}

func (f *fakeProgressStore) Upsert(ctx context.Context, p *model.Progress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[p.AttemptID] = *p
	return nil
}

func (f *fakeProgressStore) Get(ctx context.Context, attemptID uuid.UUID) (*model.Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[attemptID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProgressStore) Delete(ctx context.Context, attemptID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, attemptID)
	return nil
}

// ─── Side effects ───────────────────────────────────────────────────────────

type fakePublisher struct {
	mu     sync.Mutex
	events []model.MonitorEvent
}

func (f *fakePublisher) Publish(ctx context.Context, evt model.MonitorEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
}

func (f *fakePublisher) types() []model.MonitorEventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.MonitorEventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type fakePapers struct {
	mu          sync.Mutex
	invalidated []uuid.UUID
}

func (f *fakePapers) InvalidatePaper(ctx context.Context, attemptID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, attemptID)
}

type fakeProctorCounter struct{}

func (fakeProctorCounter) CountsByAttempt(ctx context.Context, attemptID uuid.UUID) (map[model.ProctorEventType]int64, error) {
	return map[model.ProctorEventType]int64{model.ProctorTabSwitch: 2}, nil
}

type mockSpooler struct {
	mock.Mock
}

func (m *mockSpooler) SpoolRecording(ctx context.Context, resultID, attemptID uuid.UUID, rec *RecordingUpload) error {
	args := m.Called(ctx, resultID, attemptID, rec)
	return args.Error(0)
}

type mockProgressCache struct {
	mock.Mock
}

func (m *mockProgressCache) Get(ctx context.Context, attemptID uuid.UUID) (*model.Progress, error) {
	args := m.Called(ctx, attemptID)
	p, _ := args.Get(0).(*model.Progress)
	return p, args.Error(1)
}

func (m *mockProgressCache) Set(ctx context.Context, p *model.Progress) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProgressCache) Delete(ctx context.Context, attemptID uuid.UUID) error {
	return m.Called(ctx, attemptID).Error(0)
}

func (m *mockProgressCache) EnqueuePersist(ctx context.Context, attemptID uuid.UUID) error {
	return m.Called(ctx, attemptID).Error(0)
}

// ─── Fixture ────────────────────────────────────────────────────────────────

type fixture struct {
	position   *model.Position
	candidate  *model.Candidate
	attempts   *fakeAttemptStore
	results    *fakeResultStore
	questions  *fakeQuestionStore
	cache      *fakeProgressCache
	store      *fakeProgressStore
	publisher  *fakePublisher
	papers     *fakePapers
	spooler    *mockSpooler
	attemptSvc *AttemptService
	progress   *ProgressService
	submission *SubmissionService
}

// newFixture wires the services to in-memory stores. The position draws
// questionCount questions out of a bank of the same size; every question's
// correct option is "a".
func newFixture(questionCount int) *fixture {
	pos := &model.Position{ID: uuid.New(), Name: "Backend Engineer", QuestionCount: questionCount, DurationMinutes: 30}
	cand := &model.Candidate{ID: uuid.New(), Name: "Sam Doe", Email: "sam@example.com", PositionID: pos.ID}

	questions := &fakeQuestionStore{}
	for i := 0; i < questionCount; i++ {
		questions.rows = append(questions.rows, model.Question{
			ID:           uuid.New(),
			PositionID:   pos.ID,
			QuestionText: "Question",
			Options: []model.Option{
				{ID: "a", Text: "Right"},
				{ID: "b", Text: "Wrong"},
				{ID: "c", Text: "Also wrong"},
			},
			CorrectOption: "a",
		})
	}

	f := &fixture{
		position:  pos,
		candidate: cand,
		attempts:  newFakeAttemptStore(),
		questions: questions,
		cache:     newFakeProgressCache(),
		store:     newFakeProgressStore(),
		publisher: &fakePublisher{},
		papers:    &fakePapers{},
		spooler:   &mockSpooler{},
	}
	f.results = newFakeResultStore(f.attempts)
	f.progress = NewProgressService(f.attempts, f.cache, f.store, f.publisher, nopLog)
	f.attemptSvc = NewAttemptService(
		f.attempts,
		newFakePositionStore(pos),
		newFakeCandidateStore(cand),
		questions,
		f.progress,
		f.papers,
		fakeProctorCounter{},
		f.publisher,
		nopLog,
	)
	f.submission = NewSubmissionService(f.attempts, questions, f.results, f.progress, f.spooler, f.publisher, testAutoSkew, nopLog)
	return f
}

const testAutoSkew = 5 * time.Second

// pastDeadline moves the submission clock just beyond the attempt's deadline.
func (f *fixture) pastDeadline(a *model.Attempt) {
	f.submission.now = func() time.Time { return a.ExpiresAt.Add(time.Second) }
}

func (f *fixture) create() *model.Attempt {
	a, err := f.attemptSvc.CreateAttempt(context.Background(), f.candidate.ID, f.position.ID)
	if err != nil {
		panic(err)
	}
	return a
}

// answers answers the first n questions of the attempt, the first correct of them correctly.
func answers(a *model.Attempt, n, correct int) []model.SubmittedAnswer {
	out := make([]model.SubmittedAnswer, 0, n)
	for i := 0; i < n && i < len(a.QuestionIDs); i++ {
		opt := "b"
		if i < correct {
			opt = "a"
		}
		out = append(out, model.SubmittedAnswer{QuestionID: a.QuestionIDs[i], SelectedOptionID: opt})
	}
	return out
}
