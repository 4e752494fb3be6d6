package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func seedSeason(t *testing.T, store *MemoryStore) *SeasonRecord {
	t.Helper()
	season := &SeasonRecord{
		ID:       "s1",
		Name:     "Season One",
		StartsAt: time.Now().Add(-time.Hour),
		EndsAt:   time.Now().Add(time.Hour),
	}
	if err := store.ActivateSeason(context.Background(), season); err != nil {
		t.Fatalf("ActivateSeason failed: %v", err)
	}
	return season
}

func TestMemoryStoreActiveSeason(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	active, err := store.ActiveSeason(ctx)
	if err != nil || active != nil {
		t.Fatalf("Expected no active season, got %+v (%v)", active, err)
	}

	seedSeason(t, store)
	next := &SeasonRecord{ID: "s2", Name: "Season Two", StartsAt: time.Now(), EndsAt: time.Now().Add(time.Hour)}
	if err := store.ActivateSeason(ctx, next); err != nil {
		t.Fatalf("ActivateSeason failed: %v", err)
	}

	active, _ = store.ActiveSeason(ctx)
	if active == nil || active.ID != "s2" {
		t.Errorf("Expected s2 active, got %+v", active)
	}
}

func TestMemoryStoreConsumeRunToken(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	season := seedSeason(t, store)
	now := time.Now()

	store.InsertRunToken(ctx, &RunTokenRecord{
		TokenID:   "tok",
		UserID:    "u1",
		SeasonID:  season.ID,
		ExpiresAt: now.Add(2 * time.Minute),
		CreatedAt: now,
	})

	t.Run("WrongOwner", func(t *testing.T) {
		if _, ok, _ := store.ConsumeRunToken(ctx, "tok", "u2", now); ok {
			t.Error("Token claimed by a different user")
		}
	})

	t.Run("AfterExpiry", func(t *testing.T) {
		if _, ok, _ := store.ConsumeRunToken(ctx, "tok", "u1", now.Add(2*time.Minute)); ok {
			t.Error("Token claimed at its expiry instant")
		}
	})

	t.Run("ConcurrentClaims", func(t *testing.T) {
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				seasonID, ok, _ := store.ConsumeRunToken(ctx, "tok", "u1", now)
				if ok {
					if seasonID != season.ID {
						t.Errorf("Expected season %s, got %s", season.ID, seasonID)
					}
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		if wins != 1 {
			t.Errorf("Expected one winner, got %d", wins)
		}

		token, _ := store.GetRunToken(ctx, "tok")
		if token == nil || !token.Used || token.ConsumedAt == nil {
			t.Errorf("Expected token marked used, got %+v", token)
		}
	})

	t.Run("Prune", func(t *testing.T) {
		removed, _ := store.DeleteExpiredRunTokens(ctx, now.Add(time.Hour))
		if removed != 1 {
			t.Errorf("Expected 1 pruned token, got %d", removed)
		}
	})
}

func TestMemoryStoreLedger(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	season := seedSeason(t, store)
	base := time.Now()
	n := 0

	record := func(userID string, score int64, at time.Time) *LedgerResult {
		n++
		result, err := store.RecordRun(ctx, &RunRecord{
			ID:        fmt.Sprintf("run-%d", n),
			UserID:    userID,
			SeasonID:  season.ID,
			Score:     score,
			CreatedAt: at,
		})
		if err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
		return result
	}

	record("u1", 32, base)
	record("u2", 64, base.Add(time.Second))
	if r := record("u3", 16, base.Add(2*time.Second)); !r.NewBest || r.CrownStolen {
		t.Errorf("Expected new best without crown, got %+v", r)
	}
	if r := record("u2", 8, base.Add(3*time.Second)); r.NewBest || r.CrownStolen {
		t.Errorf("Lower score must not change ledger, got %+v", r)
	}
	if r := record("u1", 32, base.Add(4*time.Second)); r.NewBest {
		t.Error("Equal score must not replace best")
	}

	records, _ := store.SeasonLeaderboard(ctx, season.ID, 50)
	want := []string{"u2", "u1", "u3"}
	for i, r := range records {
		if r.UserID != want[i] || r.Rank != i+1 {
			t.Errorf("Position %d: expected %s, got %s rank %d", i+1, want[i], r.UserID, r.Rank)
		}
	}
	if !records[0].HasCrown || records[1].HasCrown {
		t.Error("Crown flag on wrong entry")
	}

	top, _ := store.SeasonLeaderboard(ctx, season.ID, 2)
	if len(top) != 2 {
		t.Errorf("Expected limit 2, got %d", len(top))
	}

	rank, _ := store.PlayerSeasonRank(ctx, season.ID, "u3")
	if rank == nil || rank.Rank != 3 || rank.Score != 16 {
		t.Errorf("Expected u3 rank 3 with 16, got %+v", rank)
	}
	if missing, _ := store.PlayerSeasonRank(ctx, season.ID, "nobody"); missing != nil {
		t.Errorf("Expected nil rank, got %+v", missing)
	}

	events, _ := store.RecentSocialEvents(ctx, season.ID, 2)
	if len(events) != 2 || events[0].UserID != "u3" {
		t.Errorf("Expected newest events first, got %+v", events)
	}
}

func TestMemoryStoreTieRanksEarlierFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	season := seedSeason(t, store)
	base := time.Now()

	store.RecordRun(ctx, &RunRecord{ID: "a", UserID: "late", SeasonID: season.ID, Score: 64, CreatedAt: base.Add(time.Second)})
	store.RecordRun(ctx, &RunRecord{ID: "b", UserID: "early", SeasonID: season.ID, Score: 64, CreatedAt: base})

	records, _ := store.SeasonLeaderboard(ctx, season.ID, 10)
	if records[0].UserID != "early" {
		t.Errorf("Expected earlier achiever first, got %s", records[0].UserID)
	}
	crown, _ := store.SeasonCrown(ctx, season.ID)
	if crown.UserID != "late" {
		t.Errorf("Crown stays with the first to reach 64, got %s", crown.UserID)
	}
}

func TestMemoryStoreExactTieSharesRank(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	season := seedSeason(t, store)
	at := time.Now()

	store.RecordRun(ctx, &RunRecord{ID: "a", UserID: "u2", SeasonID: season.ID, Score: 32, CreatedAt: at})
	store.RecordRun(ctx, &RunRecord{ID: "b", UserID: "u1", SeasonID: season.ID, Score: 32, CreatedAt: at})
	store.RecordRun(ctx, &RunRecord{ID: "c", UserID: "u3", SeasonID: season.ID, Score: 8, CreatedAt: at})

	records, _ := store.SeasonLeaderboard(ctx, season.ID, 10)
	if len(records) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(records))
	}
	if records[0].UserID != "u1" || records[1].UserID != "u2" {
		t.Errorf("Expected user id listing order on exact ties, got %s, %s", records[0].UserID, records[1].UserID)
	}

	for _, r := range records {
		rank, _ := store.PlayerSeasonRank(ctx, season.ID, r.UserID)
		if rank == nil || rank.Rank != r.Rank {
			t.Errorf("%s: board rank %d, player rank %+v", r.UserID, r.Rank, rank)
		}
	}
	if records[0].Rank != 1 || records[1].Rank != 1 || records[2].Rank != 3 {
		t.Errorf("Expected ranks 1, 1, 3, got %d, %d, %d", records[0].Rank, records[1].Rank, records[2].Rank)
	}
}

func TestMemoryStoreProfiles(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.UpsertProfile(ctx, &ProfileRecord{ID: "u1", Username: "alice", Theme: "dark"}); err != nil {
		t.Fatalf("UpsertProfile failed: %v", err)
	}
	_, err := store.UpsertProfile(ctx, &ProfileRecord{ID: "u2", Username: "alice", Theme: "light"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("Expected ErrUsernameTaken, got %v", err)
	}

	updated, err := store.UpsertProfile(ctx, &ProfileRecord{ID: "u1", Username: "alice", Theme: "light"})
	if err != nil || updated.Theme != "light" {
		t.Errorf("Expected theme update, got %+v (%v)", updated, err)
	}

	profile, _ := store.GetProfile(ctx, "u1")
	if profile == nil || profile.Username != "alice" {
		t.Errorf("Expected alice, got %+v", profile)
	}
}

func TestLeaderboardCacheDisabled(t *testing.T) {
	var cache *LeaderboardCache
	ctx := context.Background()

	if err := cache.Set(ctx, "s1", []byte("{}")); err != nil {
		t.Errorf("Set on nil cache: %v", err)
	}
	if body, err := cache.Get(ctx, "s1"); body != nil || err != nil {
		t.Errorf("Expected miss, got %q (%v)", body, err)
	}
	if err := NewLeaderboardCache(nil).Invalidate(ctx, "s1"); err != nil {
		t.Errorf("Invalidate without client: %v", err)
	}
}
