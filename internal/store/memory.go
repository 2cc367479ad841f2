package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/baisoku/sonar/internal/answer"
	"github.com/baisoku/sonar/internal/survey"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Memory keeps sessions in process. Sessions idle for longer than the TTL
// are evicted together with their questions, answers and reports.
type Memory struct {
	mu    sync.Mutex
	cache *cache.Cache
}

var _ survey.Store = (*Memory)(nil)

type memSession struct {
	session   survey.Session
	questions []survey.Question
	answers   map[uuid.UUID]answer.Record
	analyses  map[int]survey.Analysis
	reports   []survey.Report
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &Memory{cache: cache.New(ttl, 10*time.Minute)}
}

func (m *Memory) get(id uuid.UUID) (*memSession, bool) {
	x, found := m.cache.Get(id.String())
	if !found {
		return nil, false
	}
	return x.(*memSession), true
}

// touch resets the entry's expiration after a write.
func (m *Memory) touch(ms *memSession) {
	m.cache.Set(ms.session.ID.String(), ms, cache.DefaultExpiration)
}

func (m *Memory) CreateSession(_ context.Context, s *survey.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms := &memSession{
		session:  *s,
		answers:  make(map[uuid.UUID]answer.Record),
		analyses: make(map[int]survey.Analysis),
	}
	return m.cache.Add(s.ID.String(), ms, cache.DefaultExpiration)
}

func (m *Memory) GetSession(_ context.Context, id uuid.UUID) (*survey.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.get(id)
	if !ok {
		return nil, survey.ErrNotFound
	}
	s := ms.session
	return &s, nil
}

func (m *Memory) UpdateProgress(_ context.Context, id uuid.UUID, currentIndex int) error {
	return m.update(id, func(ms *memSession) error {
		ms.session.CurrentQuestionIndex = currentIndex
		return nil
	})
}

func (m *Memory) UpdateStatus(_ context.Context, id uuid.UUID, status survey.Status) error {
	return m.update(id, func(ms *memSession) error {
		ms.session.Status = status
		return nil
	})
}

func (m *Memory) update(id uuid.UUID, fn func(*memSession) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.get(id)
	if !ok {
		return survey.ErrNotFound
	}
	if err := fn(ms); err != nil {
		return err
	}
	ms.session.UpdatedAt = time.Now().UTC()
	m.touch(ms)
	return nil
}

func (m *Memory) InsertQuestions(_ context.Context, qs []survey.Question) error {
	if len(qs) == 0 {
		return nil
	}
	return m.update(qs[0].SessionID, func(ms *memSession) error {
		ms.questions = append(ms.questions, qs...)
		sort.SliceStable(ms.questions, func(i, j int) bool {
			return ms.questions[i].Index < ms.questions[j].Index
		})
		return nil
	})
}

func (m *Memory) ListQuestions(_ context.Context, sessionID uuid.UUID) ([]survey.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.get(sessionID)
	if !ok {
		return nil, survey.ErrNotFound
	}
	return append([]survey.Question(nil), ms.questions...), nil
}

func (m *Memory) GetQuestion(_ context.Context, sessionID, questionID uuid.UUID) (*survey.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.get(sessionID)
	if !ok {
		return nil, survey.ErrNotFound
	}
	for _, q := range ms.questions {
		if q.ID == questionID {
			return &q, nil
		}
	}
	return nil, survey.ErrNotFound
}

func (m *Memory) UpsertAnswer(_ context.Context, rec answer.Record) error {
	return m.update(rec.SessionID, func(ms *memSession) error {
		rec.SelectedOptions = append([]int(nil), rec.SelectedOptions...)
		ms.answers[rec.QuestionID] = rec
		return nil
	})
}

func (m *Memory) ListAnswers(_ context.Context, sessionID uuid.UUID) ([]answer.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.get(sessionID)
	if !ok {
		return nil, survey.ErrNotFound
	}
	out := make([]answer.Record, 0, len(ms.answers))
	for _, q := range ms.questions {
		if rec, ok := ms.answers[q.ID]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *Memory) UpsertAnalysis(_ context.Context, a *survey.Analysis) error {
	return m.update(a.SessionID, func(ms *memSession) error {
		ms.analyses[a.BatchIndex] = *a
		return nil
	})
}

func (m *Memory) ListAnalyses(_ context.Context, sessionID uuid.UUID) ([]survey.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.get(sessionID)
	if !ok {
		return nil, survey.ErrNotFound
	}
	out := make([]survey.Analysis, 0, len(ms.analyses))
	for _, a := range ms.analyses {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchIndex < out[j].BatchIndex })
	return out, nil
}

func (m *Memory) CreateReport(_ context.Context, sessionID uuid.UUID, text string) (*survey.Report, error) {
	var r survey.Report
	err := m.update(sessionID, func(ms *memSession) error {
		r = survey.Report{
			ID:        uuid.New(),
			SessionID: sessionID,
			Version:   len(ms.reports) + 1,
			Text:      text,
			CreatedAt: time.Now().UTC(),
		}
		ms.reports = append(ms.reports, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (m *Memory) LatestReport(_ context.Context, sessionID uuid.UUID) (*survey.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.get(sessionID)
	if !ok || len(ms.reports) == 0 {
		return nil, survey.ErrNotFound
	}
	r := ms.reports[len(ms.reports)-1]
	return &r, nil
}
