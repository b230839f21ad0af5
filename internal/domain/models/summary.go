package models

import "time"

// DailySummary is the aggregated harvest snapshot persisted once per user
// per day by the scheduler.
type DailySummary struct {
	User        string       `bson:"user" json:"user"`
	Date        time.Time    `bson:"date" json:"date"`
	PerFarm     map[Farm]int `bson:"per_farm" json:"per_farm"`
	TotalBakul  int          `bson:"total_bakul" json:"total_bakul"`
	EstimatedKg float64      `bson:"estimated_kg" json:"estimated_kg"`
	CreatedAt   time.Time    `bson:"created_at" json:"created_at"`
}
