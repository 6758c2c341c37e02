// Package domain contains the core data structures and domain logic for the application.
package domain

// SkillStat holds the experience points for a single language.
type SkillStat struct {
	Name     string `json:"name"`
	TotalXP  int64  `json:"total_xp"`
	Level    int    `json:"level"`
	RecentXP int64  `json:"recent_xp"`
}

// StatsSnapshot is everything one run knows about a user.
// Skills keep the order in which the stats service listed them.
type StatsSnapshot struct {
	Username      string      `json:"username"`
	TotalXP       int64       `json:"total_xp"`
	TotalLevel    int         `json:"total_level"`
	RecentTotalXP int64       `json:"recent_total_xp"`
	Skills        []SkillStat `json:"skills"`
}
