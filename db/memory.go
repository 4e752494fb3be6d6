package db

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"
)

/* =========================
   IN-MEMORY STORE
   Used when DATABASE_URL is absent and by tests. One mutex serializes every
   operation so token claims and ledger updates are atomic.
========================= */

// MemoryStore mirrors PostgresStore without a database
type MemoryStore struct {
	mu          sync.Mutex
	seasons     map[string]*SeasonRecord
	tokens      map[string]*RunTokenRecord
	runs        []*RunRecord
	leaderboard map[string]map[string]*LeaderboardRecord
	crowns      map[string]*CrownRecord
	profiles    map[string]*ProfileRecord
	events      []*SocialEventRecord
	nextEventID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seasons:     make(map[string]*SeasonRecord),
		tokens:      make(map[string]*RunTokenRecord),
		leaderboard: make(map[string]map[string]*LeaderboardRecord),
		crowns:      make(map[string]*CrownRecord),
		profiles:    make(map[string]*ProfileRecord),
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

/* =========================
   SEASONS
========================= */

func (m *MemoryStore) ActiveSeason(ctx context.Context) (*SeasonRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var active *SeasonRecord
	for _, s := range m.seasons {
		if !s.IsActive {
			continue
		}
		if active == nil || s.StartsAt.After(active.StartsAt) {
			active = s
		}
	}
	if active == nil {
		return nil, nil
	}
	season := *active
	return &season, nil
}

func (m *MemoryStore) ActivateSeason(ctx context.Context, season *SeasonRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.seasons {
		s.IsActive = false
	}
	season.IsActive = true
	stored := *season
	m.seasons[season.ID] = &stored

	log.Printf("✅ Activated season %s (%s) in memory", season.ID, season.Name)
	return nil
}

/* =========================
   RUN TOKENS
========================= */

func (m *MemoryStore) InsertRunToken(ctx context.Context, token *RunTokenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *token
	stored.Used = false
	m.tokens[token.TokenID] = &stored
	return nil
}

func (m *MemoryStore) ConsumeRunToken(ctx context.Context, tokenID, userID string, now time.Time) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.tokens[tokenID]
	if !ok || token.UserID != userID || token.Used || !token.ExpiresAt.After(now) {
		return "", false, nil
	}

	consumedAt := now
	token.Used = true
	token.ConsumedAt = &consumedAt
	return token.SeasonID, true, nil
}

func (m *MemoryStore) GetRunToken(ctx context.Context, tokenID string) (*RunTokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.tokens[tokenID]
	if !ok {
		return nil, nil
	}
	copied := *token
	return &copied, nil
}

func (m *MemoryStore) DeleteExpiredRunTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for id, token := range m.tokens {
		if token.ExpiresAt.Before(cutoff) {
			delete(m.tokens, id)
			removed++
		}
	}
	return removed, nil
}

/* =========================
   RUNS
========================= */

func (m *MemoryStore) CountRecentRuns(ctx context.Context, userID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, run := range m.runs {
		if run.UserID == userID && run.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, run := range m.runs {
		if run.ID == runID {
			copied := *run
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) RecordRun(ctx context.Context, run *RunRecord) (*LedgerResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *run
	m.runs = append(m.runs, &stored)

	board, ok := m.leaderboard[run.SeasonID]
	if !ok {
		board = make(map[string]*LeaderboardRecord)
		m.leaderboard[run.SeasonID] = board
	}

	result := &LedgerResult{}
	if existing := board[run.UserID]; BeatsBest(existing, run.Score) {
		board[run.UserID] = &LeaderboardRecord{
			SeasonID:  run.SeasonID,
			UserID:    run.UserID,
			BestScore: run.Score,
			BestRunID: run.ID,
			UpdatedAt: run.CreatedAt,
		}
		result.NewBest = true
		m.appendEvent(run, EventNewBest)
	}

	if TakesCrown(m.crowns[run.SeasonID], run.Score) {
		m.crowns[run.SeasonID] = &CrownRecord{
			SeasonID:  run.SeasonID,
			UserID:    run.UserID,
			Score:     run.Score,
			RunID:     run.ID,
			UpdatedAt: run.CreatedAt,
		}
		result.CrownStolen = true
		m.appendEvent(run, EventCrownStolen)
	}

	return result, nil
}

func (m *MemoryStore) appendEvent(run *RunRecord, kind string) {
	m.nextEventID++
	m.events = append(m.events, &SocialEventRecord{
		ID:        m.nextEventID,
		SeasonID:  run.SeasonID,
		UserID:    run.UserID,
		Kind:      kind,
		Score:     run.Score,
		RunID:     run.ID,
		CreatedAt: run.CreatedAt,
	})
}

/* =========================
   LEADERBOARD
========================= */

func (m *MemoryStore) SeasonLeaderboard(ctx context.Context, seasonID string, limit int) ([]*LeaderboardRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	crown := m.crowns[seasonID]
	entries := make([]*LeaderboardRecord, 0, len(m.leaderboard[seasonID]))
	for _, e := range m.leaderboard[seasonID] {
		copied := *e
		copied.Username = m.usernameOf(e.UserID)
		copied.HasCrown = crown != nil && crown.UserID == e.UserID
		entries = append(entries, &copied)
	}

	sort.Slice(entries, func(i, j int) bool {
		if RanksAbove(entries[i], entries[j]) {
			return true
		}
		if RanksAbove(entries[j], entries[i]) {
			return false
		}
		return entries[i].UserID < entries[j].UserID
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i, e := range entries {
		e.Rank = i + 1
		if i > 0 && !RanksAbove(entries[i-1], e) {
			e.Rank = entries[i-1].Rank
		}
	}
	return entries, nil
}

func (m *MemoryStore) PlayerSeasonRank(ctx context.Context, seasonID, userID string) (*PlayerRankRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	board := m.leaderboard[seasonID]
	target, ok := board[userID]
	if !ok {
		return nil, nil
	}

	entries := make([]*LeaderboardRecord, 0, len(board))
	for _, e := range board {
		entries = append(entries, e)
	}
	return &PlayerRankRecord{Rank: RankOf(entries, target), Score: target.BestScore}, nil
}

func (m *MemoryStore) SeasonCrown(ctx context.Context, seasonID string) (*CrownRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	crown, ok := m.crowns[seasonID]
	if !ok {
		return nil, nil
	}
	copied := *crown
	copied.Username = m.usernameOf(crown.UserID)
	return &copied, nil
}

func (m *MemoryStore) RecentSocialEvents(ctx context.Context, seasonID string, limit int) ([]*SocialEventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]*SocialEventRecord, 0, limit)
	for i := len(m.events) - 1; i >= 0 && len(records) < limit; i-- {
		ev := m.events[i]
		if ev.SeasonID != seasonID {
			continue
		}
		copied := *ev
		copied.Username = m.usernameOf(ev.UserID)
		records = append(records, &copied)
	}
	return records, nil
}

/* =========================
   PROFILES
========================= */

func (m *MemoryStore) GetProfile(ctx context.Context, userID string) (*ProfileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	copied := *profile
	return &copied, nil
}

func (m *MemoryStore) UpsertProfile(ctx context.Context, profile *ProfileRecord) (*ProfileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, p := range m.profiles {
		if id != profile.ID && p.Username == profile.Username {
			return nil, ErrUsernameTaken
		}
	}

	now := time.Now()
	saved, ok := m.profiles[profile.ID]
	if !ok {
		saved = &ProfileRecord{ID: profile.ID, CreatedAt: now}
		m.profiles[profile.ID] = saved
	}
	saved.Username = profile.Username
	saved.Theme = profile.Theme
	saved.UpdatedAt = now

	copied := *saved
	return &copied, nil
}

// usernameOf must be called with mu held
func (m *MemoryStore) usernameOf(userID string) *string {
	profile, ok := m.profiles[userID]
	if !ok {
		return nil
	}
	name := profile.Username
	return &name
}
