package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"quizlive-service/internal/domain"
)

type profileRow struct {
	bun.BaseModel `bun:"table:user_profiles"`

	UserID    string    `bun:"user_id,pk"`
	Data      []byte    `bun:"data,type:jsonb"`
	UpdatedAt time.Time `bun:"updated_at"`
}

type scoreRow struct {
	bun.BaseModel `bun:"table:score_records"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    string    `bun:"user_id"`
	QuizID    string    `bun:"quiz_id"`
	Data      []byte    `bun:"data,type:jsonb"`
	CreatedAt time.Time `bun:"created_at"`
}

// Gateway is the durable persistence gateway: profiles and score
// records stored as JSONB rows through bun.
type Gateway struct {
	db *bun.DB
}

func NewGateway(db *bun.DB) *Gateway {
	return &Gateway{db: db}
}

func (g *Gateway) GetUser(ctx context.Context, userID string) (*domain.UserGamificationProfile, error) {
	row := new(profileRow)
	err := g.db.NewSelect().Model(row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	var profile domain.UserGamificationProfile
	if err := json.Unmarshal(row.Data, &profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile %s: %w", userID, err)
	}
	return &profile, nil
}

func (g *Gateway) SaveUser(ctx context.Context, profile *domain.UserGamificationProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile %s: %w", profile.UserID, err)
	}
	row := &profileRow{UserID: profile.UserID, Data: data, UpdatedAt: time.Now()}
	_, err = g.db.NewInsert().
		Model(row).
		On("CONFLICT (user_id) DO UPDATE").
		Set("data = EXCLUDED.data, updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save user %s: %w", profile.UserID, err)
	}
	return nil
}

func (g *Gateway) FindScoreRecords(ctx context.Context, userID string) ([]domain.ScoreRecord, error) {
	var rows []scoreRow
	err := g.db.NewSelect().Model(&rows).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find scores %s: %w", userID, err)
	}
	records := make([]domain.ScoreRecord, 0, len(rows))
	for _, row := range rows {
		var rec domain.ScoreRecord
		if err := json.Unmarshal(row.Data, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal score %d: %w", row.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (g *Gateway) SaveScoreRecord(ctx context.Context, record domain.ScoreRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}
	row := &scoreRow{
		UserID:    record.UserID,
		QuizID:    record.QuizID,
		Data:      data,
		CreatedAt: record.Timestamp,
	}
	if _, err := g.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("save score: %w", err)
	}
	return nil
}
