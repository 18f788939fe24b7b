package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizlive-service/internal/domain"
)

// QuizLoader fetches quiz content from a backing store (e.g., postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository caches quiz definitions with TTL to avoid repeated
// store hits on every answer submission. Only what grading needs is
// kept: title, subject and the correct option per question. Prompts
// and option text are dropped; reads rebuild a skeletal Quiz from the
// compact entry.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]quizEntry
}

// quizEntry is the cached validation view of one quiz. correct[i] is
// the correct option index of question i.
type quizEntry struct {
	title     string
	subject   string
	correct   []int
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]quizEntry),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.fromCache(quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if quiz, ok := r.fromCache(quizID); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		entry := quizEntry{
			title:     quiz.Title,
			subject:   quiz.Subject,
			correct:   make([]int, len(quiz.Questions)),
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		for i, q := range quiz.Questions {
			entry.correct[i] = q.CorrectIndex
		}

		r.mu.Lock()
		r.cache[quizID] = entry
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *QuizRepository) fromCache(quizID string) (domain.Quiz, bool) {
	r.mu.RLock()
	entry, ok := r.cache[quizID]
	r.mu.RUnlock()
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Quiz{}, false
	}

	questions := make([]domain.Question, len(entry.correct))
	for i, correct := range entry.correct {
		questions[i] = domain.Question{CorrectIndex: correct}
	}
	return domain.Quiz{
		ID:        quizID,
		Title:     entry.title,
		Subject:   entry.subject,
		Questions: questions,
	}, true
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuizLoader is a loader backed by an in-memory map (tests/demos).
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}
