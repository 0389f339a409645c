package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"learn-quiz-service/internal/domain"
)

// QuizLoader fetches quiz content from a backing store (e.g., Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID, lang string) (domain.Quiz, error)
}

// QuizRepository caches quizzes per language with TTL to avoid repeated DB hits.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID, lang string) (domain.Quiz, error) {
	key := cacheKey(quizID, lang)
	if quiz, ok := r.lookup(key); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		if quiz, ok := r.lookup(key); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID, lang)
		if err != nil {
			return domain.Quiz{}, err
		}

		r.mu.Lock()
		r.cache[key] = cachedQuiz{
			quiz:      quiz,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate drops every cached language of a quiz.
func (r *QuizRepository) Invalidate(quizID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, entry := range r.cache {
		if entry.quiz.ID == quizID {
			delete(r.cache, key)
		}
	}
}

func (r *QuizRepository) lookup(key string) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[key]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

func cacheKey(quizID, lang string) string {
	return quizID + "|" + lang
}

// StaticQuizLoader is a simple loader backed by an in-memory slice (useful for tests/demos).
// The first quiz listed for an id is its default language.
type StaticQuizLoader struct {
	mu       sync.RWMutex
	quizzes  map[string]map[string]domain.Quiz
	defaults map[string]string
}

func NewStaticQuizLoader(quizzes ...domain.Quiz) *StaticQuizLoader {
	l := &StaticQuizLoader{
		quizzes:  make(map[string]map[string]domain.Quiz),
		defaults: make(map[string]string),
	}
	for _, q := range quizzes {
		l.Put(q)
	}
	return l
}

// Put adds or replaces a quiz translation.
func (l *StaticQuizLoader) Put(quiz domain.Quiz) {
	l.mu.Lock()
	defer l.mu.Unlock()
	langs, ok := l.quizzes[quiz.ID]
	if !ok {
		langs = make(map[string]domain.Quiz)
		l.quizzes[quiz.ID] = langs
		l.defaults[quiz.ID] = quiz.Lang
	}
	langs[quiz.Lang] = quiz
}

// Remove unpublishes a quiz in every language.
func (l *StaticQuizLoader) Remove(quizID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.quizzes, quizID)
	delete(l.defaults, quizID)
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID, lang string) (domain.Quiz, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	langs, ok := l.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if quiz, ok := langs[lang]; ok {
		return quiz, nil
	}
	return langs[l.defaults[quizID]], nil
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
