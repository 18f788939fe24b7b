package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"quizlive-service/internal/domain"
)

func TestIdentitySyncWritesProfileHash(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	idsync := NewIdentitySync(newClient(mr), "")
	err = idsync.PublishProfileSummary(context.Background(), "u1", domain.ProfileSummary{
		Role:            "student",
		TotalXP:         340,
		CurrentStreak:   4,
		MaxStreak:       6,
		TotalQuizzes:    3,
		AverageAccuracy: 87.5,
		BadgeCount:      2,
		Level:           4,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	key := "identity:profile:u1"
	if got := mr.HGet(key, "role"); got != "student" {
		t.Fatalf("role = %q", got)
	}
	if got := mr.HGet(key, "totalXP"); got != "340" {
		t.Fatalf("totalXP = %q", got)
	}
	if got := mr.HGet(key, "averageAccuracy"); got != "87.5" {
		t.Fatalf("averageAccuracy = %q", got)
	}
	if got := mr.HGet(key, "level"); got != "4" {
		t.Fatalf("level = %q", got)
	}
}

func TestIdentitySyncCustomPrefix(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	idsync := NewIdentitySync(newClient(mr), "users:")
	if err := idsync.PublishProfileSummary(context.Background(), "u1", domain.ProfileSummary{Role: "student"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !mr.Exists("users:u1") {
		t.Fatalf("expected hash under the configured prefix")
	}
}
