package models

import "time"

const (
	GachaRankRedisKey = "gacharank:%s" // board slug
)

// GachaRankEntry is one row of the scraped rarity leaderboard.
type GachaRankEntry struct {
	Rank   int
	Player string
	Rarity float64
	Pulls  int
}

// GachaRankRedisEntry caches a full scraped board between crawls.
type GachaRankRedisEntry struct {
	Entries   []GachaRankEntry
	FetchedAt time.Time
}
