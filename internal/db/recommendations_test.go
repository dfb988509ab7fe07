package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// openTestDB connects to SIREN_TEST_DATABASE_URL or skips the test.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("SIREN_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SIREN_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := New(ctx, url)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(database.Close)

	if err := database.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return database
}

func TestRecommendationRepository_SaveAndRecent(t *testing.T) {
	database := openTestDB(t)
	repo := database.Recommendations()
	ctx := context.Background()

	sessionID := "test-" + uuid.NewString()
	t.Cleanup(func() { _ = repo.DeleteForSession(ctx, sessionID) })

	base := time.Date(2025, 4, 17, 12, 0, 0, 0, time.UTC)
	for i, mood := range []string{"Calm", "Happy", "Sexy"} {
		rec := &Recommendation{
			SessionID:      sessionID,
			StartDate:      time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
			PeriodDuration: 5,
			CycleDay:       8,
			Phase:          "Follicular",
			Mood:           mood,
			PlaylistURL:    "https://open.spotify.com/playlist/" + mood,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Save(ctx, rec); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if rec.ID == uuid.Nil {
			t.Fatal("Save() did not assign an ID")
		}
	}

	recs, err := repo.Recent(ctx, sessionID, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Recent() returned %d rows, want 2", len(recs))
	}
	if recs[0].Mood != "Sexy" || recs[1].Mood != "Happy" {
		t.Errorf("Recent() moods = [%s %s], want [Sexy Happy]", recs[0].Mood, recs[1].Mood)
	}

	got, err := repo.Get(ctx, recs[0].ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.PlaylistURL != "https://open.spotify.com/playlist/Sexy" {
		t.Errorf("Get() PlaylistURL = %q", got.PlaylistURL)
	}
}

func TestRecommendationRepository_GetMissing(t *testing.T) {
	database := openTestDB(t)

	_, err := database.Recommendations().Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}
