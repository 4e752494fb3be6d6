package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"doubleordie/config"
	"doubleordie/db"
)

// LeaderboardEntry is one public leaderboard row
type LeaderboardEntry struct {
	Rank      int       `json:"rank"`
	UserID    string    `json:"user_id"`
	Username  *string   `json:"username"`
	BestScore int64     `json:"best_score"`
	UpdatedAt time.Time `json:"updated_at"`
	HasCrown  bool      `json:"has_crown"`
}

// CrownHolder is the public view of the season crown
type CrownHolder struct {
	UserID    string    `json:"user_id"`
	Username  *string   `json:"username"`
	Score     int64     `json:"score"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LeaderboardView is the getLeaderboard response
type LeaderboardView struct {
	Season      *db.SeasonRecord     `json:"season"`
	Leaderboard []LeaderboardEntry   `json:"leaderboard"`
	Crown       *CrownHolder         `json:"crown"`
	PlayerRank  *db.PlayerRankRecord `json:"player_rank"`
}

// FetchActiveSeason returns the active season or nil
func (s *Service) FetchActiveSeason(ctx context.Context) (*db.SeasonRecord, error) {
	season, err := s.store.ActiveSeason(ctx)
	if err != nil {
		return nil, storageFailure("Failed to load season.", err)
	}
	return season, nil
}

// FetchSeasonLeaderboard returns the top entries of a season
func (s *Service) FetchSeasonLeaderboard(ctx context.Context, seasonID string) ([]LeaderboardEntry, error) {
	records, err := s.store.SeasonLeaderboard(ctx, seasonID, config.LeaderboardLimit)
	if err != nil {
		return nil, storageFailure("Failed to load leaderboard.", err)
	}

	entries := make([]LeaderboardEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, LeaderboardEntry{
			Rank:      r.Rank,
			UserID:    r.UserID,
			Username:  r.Username,
			BestScore: r.BestScore,
			UpdatedAt: r.UpdatedAt,
			HasCrown:  r.HasCrown,
		})
	}
	return entries, nil
}

// FetchPlayerSeasonRank returns a player's rank, or nil without an entry
func (s *Service) FetchPlayerSeasonRank(ctx context.Context, seasonID, userID string) (*db.PlayerRankRecord, error) {
	rank, err := s.store.PlayerSeasonRank(ctx, seasonID, userID)
	if err != nil {
		return nil, storageFailure("Failed to load player rank.", err)
	}
	return rank, nil
}

// Leaderboard assembles the board for the active season. userID is optional.
func (s *Service) Leaderboard(ctx context.Context, userID string) (*LeaderboardView, error) {
	season, err := s.FetchActiveSeason(ctx)
	if err != nil {
		return nil, err
	}

	view := &LeaderboardView{Season: season, Leaderboard: []LeaderboardEntry{}}
	if season == nil {
		return view, nil
	}

	if view.Leaderboard, err = s.FetchSeasonLeaderboard(ctx, season.ID); err != nil {
		return nil, err
	}

	crown, err := s.store.SeasonCrown(ctx, season.ID)
	if err != nil {
		return nil, storageFailure("Failed to load leaderboard.", err)
	}
	if crown != nil {
		view.Crown = &CrownHolder{
			UserID:    crown.UserID,
			Username:  crown.Username,
			Score:     crown.Score,
			UpdatedAt: crown.UpdatedAt,
		}
	}

	if userID != "" {
		if view.PlayerRank, err = s.FetchPlayerSeasonRank(ctx, season.ID, userID); err != nil {
			return nil, err
		}
	}

	return view, nil
}

// PublicLeaderboard returns the encoded credential-free board, served from
// cache while fresh
func (s *Service) PublicLeaderboard(ctx context.Context) ([]byte, error) {
	season, err := s.FetchActiveSeason(ctx)
	if err != nil {
		return nil, err
	}

	if season != nil {
		cached, err := s.cache.Get(ctx, season.ID)
		if err != nil {
			log.Printf("⚠️  %v", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	view, err := s.Leaderboard(ctx, "")
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(view)
	if err != nil {
		return nil, storageFailure("Failed to load leaderboard.", err)
	}

	if season != nil {
		if err := s.cache.Set(ctx, season.ID, body); err != nil {
			log.Printf("⚠️  %v", err)
		}
	}

	log.Printf("📋 Built leaderboard with %d entries", len(view.Leaderboard))
	return body, nil
}

// SocialFeed returns the newest social events of the active season
func (s *Service) SocialFeed(ctx context.Context, limit int) ([]*db.SocialEventRecord, error) {
	if limit <= 0 {
		limit = config.SocialFeedDefaultLimit
	}
	if limit > config.SocialFeedMaxLimit {
		limit = config.SocialFeedMaxLimit
	}

	season, err := s.FetchActiveSeason(ctx)
	if err != nil {
		return nil, err
	}
	if season == nil {
		return []*db.SocialEventRecord{}, nil
	}

	events, err := s.store.RecentSocialEvents(ctx, season.ID, limit)
	if err != nil {
		return nil, storageFailure("Failed to load social feed.", err)
	}
	return events, nil
}
