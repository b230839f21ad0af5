package models

import (
	"fmt"
	"strings"
	"time"
)

// Size is a produce grade bucket. Distribution math walks Sizes in order and
// the final bucket absorbs all rounding remainder.
type Size string

const (
	SizeGradeA Size = "grade_a"
	SizeGradeB Size = "grade_b"
	SizeGradeC Size = "grade_c"
	SizeBS     Size = "bs" // barang sortir, always last
)

// Sizes lists every grade bucket in its fixed allocation order.
var Sizes = []Size{SizeGradeA, SizeGradeB, SizeGradeC, SizeBS}

// Buyer identifies a purchasing counterparty.
type Buyer string

const (
	BuyerPengepul    Buyer = "pengepul"
	BuyerPasarInduk  Buyer = "pasar_induk"
	BuyerSupermarket Buyer = "supermarket"
	BuyerMitraTani   Buyer = "mitra_tani"
)

// Buyers lists every known counterparty in display order.
var Buyers = []Buyer{BuyerPengepul, BuyerPasarInduk, BuyerSupermarket, BuyerMitraTani}

// RevenueLine is one cell of the revenue breakdown for a (buyer, size) pair.
type RevenueLine struct {
	Units   int     `bson:"units" json:"units"`
	MassKg  float64 `bson:"mass_kg" json:"mass_kg"`
	Rate    float64 `bson:"rate" json:"rate"`
	Revenue float64 `bson:"revenue" json:"revenue"`
}

// RevenueEstimate is a stored projection of sale revenue for one harvest
// total under a chosen size and buyer split. Instances are built through the
// allocation engine's validating factory; the bson tags define the persisted
// document shape.
type RevenueEstimate struct {
	ID                string                         `bson:"estimate_id" json:"id"`
	Date              time.Time                      `bson:"date" json:"date"`
	TotalUnits        int                            `bson:"total_units" json:"total_units"`
	SizeDistribution  map[Size]float64               `bson:"size_distribution" json:"size_distribution"`
	UnitAllocation    map[Size]int                   `bson:"unit_allocation_per_size" json:"unit_allocation_per_size"`
	SelectedBuyers    []Buyer                        `bson:"selected_buyers" json:"selected_buyers"`
	BuyerDistribution map[Buyer]float64              `bson:"buyer_distribution" json:"buyer_distribution"`
	BuyerAllocation   map[Buyer]map[Size]int         `bson:"buyer_allocation" json:"buyer_allocation"`
	BuyerPrices       map[Buyer]map[Size]float64     `bson:"buyer_prices" json:"buyer_prices"`
	Breakdown         map[Buyer]map[Size]RevenueLine `bson:"revenue_breakdown" json:"revenue_breakdown"`
	TotalRevenue      float64                        `bson:"total_revenue" json:"total_revenue"`
	CreatedAt         time.Time                      `bson:"created_at" json:"created_at"`
}

// EstimateFields names every persisted key a stored estimate must carry,
// keyed by presence check against the in-memory form.
var EstimateFields = []string{
	"estimate_id",
	"date",
	"total_units",
	"size_distribution",
	"unit_allocation_per_size",
	"selected_buyers",
	"buyer_distribution",
	"buyer_allocation",
	"buyer_prices",
	"revenue_breakdown",
	"total_revenue",
	"created_at",
}

// MissingFields enumerates required fields that are absent or empty on the
// estimate. Consumers must refuse an estimate whose slice is non-empty before
// any detail or scenario computation.
func (e *RevenueEstimate) MissingFields() []string {
	var missing []string
	if e.ID == "" {
		missing = append(missing, "estimate_id")
	}
	if e.Date.IsZero() {
		missing = append(missing, "date")
	}
	if e.SizeDistribution == nil {
		missing = append(missing, "size_distribution")
	}
	if e.UnitAllocation == nil {
		missing = append(missing, "unit_allocation_per_size")
	}
	if len(e.SelectedBuyers) == 0 {
		missing = append(missing, "selected_buyers")
	}
	if e.BuyerDistribution == nil {
		missing = append(missing, "buyer_distribution")
	}
	if e.BuyerAllocation == nil {
		missing = append(missing, "buyer_allocation")
	}
	if e.BuyerPrices == nil {
		missing = append(missing, "buyer_prices")
	}
	if e.Breakdown == nil {
		missing = append(missing, "revenue_breakdown")
	}
	if e.CreatedAt.IsZero() {
		missing = append(missing, "created_at")
	}
	return missing
}

// MalformedEstimateError reports a stored estimate missing required fields.
type MalformedEstimateError struct {
	Missing []string
}

func (e *MalformedEstimateError) Error() string {
	return fmt.Sprintf("estimate is missing required fields: %s", strings.Join(e.Missing, ", "))
}
