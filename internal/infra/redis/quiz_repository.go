package redis

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizlive-service/internal/domain"
)

// QuizLoader fetches quiz content from a backing store (e.g., postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository caches quiz definitions in Redis and falls back to a
// loader on cache miss. Only what validation needs is cached:
//
//	HSET quiz:{quizID}:answers {questionIndex} {correctIndex}
//	HSET quiz:{quizID}:meta    title/subject/questions
//
// Prompts and option text are not cached in this lightweight form.
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.fromCache(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if quiz, ok := r.fromCache(ctx, quizID); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		ttl := r.ttlWithJitter()
		pipe := r.client.Pipeline()
		for i, q := range quiz.Questions {
			pipe.HSet(ctx, r.answersKey(quizID), strconv.Itoa(i), q.CorrectIndex)
		}
		pipe.HSet(ctx, r.metaKey(quizID),
			"title", quiz.Title,
			"subject", quiz.Subject,
			"questions", len(quiz.Questions),
		)
		if ttl > 0 {
			pipe.Expire(ctx, r.answersKey(quizID), ttl)
			pipe.Expire(ctx, r.metaKey(quizID), ttl)
		}
		_, _ = pipe.Exec(ctx)

		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *QuizRepository) fromCache(ctx context.Context, quizID string) (domain.Quiz, bool) {
	answers, err := r.client.HGetAll(ctx, r.answersKey(quizID)).Result()
	if err != nil || len(answers) == 0 {
		return domain.Quiz{}, false
	}
	meta, _ := r.client.HGetAll(ctx, r.metaKey(quizID)).Result()

	count := len(answers)
	if raw, ok := meta["questions"]; ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			count = n
		}
	}

	questions := make([]domain.Question, count)
	for idxStr, correctStr := range answers {
		idx, err := strconv.Atoi(idxStr)
		if err != nil || idx < 0 || idx >= count {
			continue
		}
		correct, err := strconv.Atoi(correctStr)
		if err != nil {
			continue
		}
		questions[idx] = domain.Question{CorrectIndex: correct}
	}

	return domain.Quiz{
		ID:        quizID,
		Title:     meta["title"],
		Subject:   meta["subject"],
		Questions: questions,
	}, true
}

func (r *QuizRepository) answersKey(quizID string) string {
	return "quiz:" + quizID + ":answers"
}

func (r *QuizRepository) metaKey(quizID string) string {
	return "quiz:" + quizID + ":meta"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
