package memory

import (
	"context"
	"sync"

	"quizlive-service/internal/domain"
)

// Gateway is an in-memory persistence gateway for profiles and score
// records, used standalone in tests and as the default when no postgres
// URL is configured.
type Gateway struct {
	mu       sync.RWMutex
	profiles map[string]domain.UserGamificationProfile
	scores   map[string][]domain.ScoreRecord
}

func NewGateway() *Gateway {
	return &Gateway{
		profiles: make(map[string]domain.UserGamificationProfile),
		scores:   make(map[string][]domain.ScoreRecord),
	}
}

func (g *Gateway) GetUser(_ context.Context, userID string) (*domain.UserGamificationProfile, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	profile, ok := g.profiles[userID]
	if !ok {
		return nil, nil
	}
	copied := profile
	copied.SubjectStats = make(map[string]domain.SubjectStat, len(profile.SubjectStats))
	for k, v := range profile.SubjectStats {
		copied.SubjectStats[k] = v
	}
	copied.Badges = append([]domain.UserBadge(nil), profile.Badges...)
	return &copied, nil
}

func (g *Gateway) SaveUser(_ context.Context, profile *domain.UserGamificationProfile) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.profiles[profile.UserID] = *profile
	return nil
}

func (g *Gateway) FindScoreRecords(_ context.Context, userID string) ([]domain.ScoreRecord, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]domain.ScoreRecord(nil), g.scores[userID]...), nil
}

func (g *Gateway) SaveScoreRecord(_ context.Context, record domain.ScoreRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scores[record.UserID] = append(g.scores[record.UserID], record)
	return nil
}
