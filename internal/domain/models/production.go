package models

import "time"

// Farm identifies one of the four orchard blocks tracked per harvest day.
type Farm string

const (
	FarmKebunUtara   Farm = "kebun_utara"
	FarmKebunSelatan Farm = "kebun_selatan"
	FarmKebunTimur   Farm = "kebun_timur"
	FarmKebunBarat   Farm = "kebun_barat"
)

// Farms lists every farm in its fixed display order.
var Farms = []Farm{FarmKebunUtara, FarmKebunSelatan, FarmKebunTimur, FarmKebunBarat}

// LegacyFarmNames maps retired column names to their current identifiers.
// Renames apply on read only, and never overwrite an already-present current
// column.
var LegacyFarmNames = map[string]Farm{
	"blok_utara":   FarmKebunUtara,
	"blok_selatan": FarmKebunSelatan,
}

// IsFarm reports whether name is a current-scheme farm identifier.
func IsFarm(name string) bool {
	for _, f := range Farms {
		if string(f) == name {
			return true
		}
	}
	return false
}

// ProductionRecord captures one day of harvest counts, in bakul, per farm.
// A user holds at most one record per calendar date.
type ProductionRecord struct {
	Date       time.Time    `json:"date"`
	Quantities map[Farm]int `json:"quantities"`
}

// TotalBakul sums the harvest across all farms.
func (r ProductionRecord) TotalBakul() int {
	total := 0
	for _, qty := range r.Quantities {
		total += qty
	}
	return total
}
