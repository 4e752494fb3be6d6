package db

/* =========================
   LEADERBOARD & CROWN RULES
   Both stores apply these; PostgresStore expresses them as conditional upserts.
========================= */

// BeatsBest reports whether score replaces a player's stored best
func BeatsBest(existing *LeaderboardRecord, score int64) bool {
	return existing == nil || score > existing.BestScore
}

// TakesCrown reports whether score steals the season crown
func TakesCrown(crown *CrownRecord, score int64) bool {
	return crown == nil || score > crown.Score
}

// RanksAbove orders entries by score desc, then earlier update first
func RanksAbove(a, b *LeaderboardRecord) bool {
	if a.BestScore != b.BestScore {
		return a.BestScore > b.BestScore
	}
	return a.UpdatedAt.Before(b.UpdatedAt)
}

// RankOf computes 1 + entries strictly ahead of target
func RankOf(entries []*LeaderboardRecord, target *LeaderboardRecord) int {
	rank := 1
	for _, e := range entries {
		if e.UserID == target.UserID {
			continue
		}
		if RanksAbove(e, target) {
			rank++
		}
	}
	return rank
}
