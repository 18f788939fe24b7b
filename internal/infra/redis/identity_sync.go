package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"quizlive-service/internal/domain"
)

// IdentitySync publishes profile summaries into the identity
// directory's Redis keyspace. One hash per user:
//
//	HSET {prefix}{userID} role/totalXP/currentStreak/...
//
// Callers treat failures as non-fatal; this type just reports them.
type IdentitySync struct {
	client *redis.Client
	prefix string
}

func NewIdentitySync(client *redis.Client, prefix string) *IdentitySync {
	if prefix == "" {
		prefix = "identity:profile:"
	}
	return &IdentitySync{client: client, prefix: prefix}
}

func (s *IdentitySync) PublishProfileSummary(ctx context.Context, userID string, summary domain.ProfileSummary) error {
	return s.client.HSet(ctx, s.prefix+userID,
		"role", summary.Role,
		"totalXP", summary.TotalXP,
		"currentStreak", summary.CurrentStreak,
		"maxStreak", summary.MaxStreak,
		"totalQuizzes", summary.TotalQuizzes,
		"averageAccuracy", strconv.FormatFloat(summary.AverageAccuracy, 'f', -1, 64),
		"badgeCount", summary.BadgeCount,
		"level", summary.Level,
	).Err()
}
