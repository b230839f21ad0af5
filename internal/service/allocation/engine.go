// Package allocation is the revenue allocation engine: pure distribution and
// revenue math over harvest totals, plus the validating factory that builds
// revenue estimates.
package allocation

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"salakbook/internal/domain/models"
)

// percentTolerance is how far a distribution may drift from 100 before the
// validity gate rejects it.
const percentTolerance = 0.1

// ValidationError reports which validity condition an input set failed.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// Engine performs estimate construction and scenario comparison. The
// stateless distribution functions live at package level.
type Engine struct {
	kgPerBakul float64
	now        func() time.Time
}

// NewEngine builds an engine using the given bakul-to-kg conversion factor.
func NewEngine(kgPerBakul float64) *Engine {
	return &Engine{kgPerBakul: kgPerBakul, now: time.Now}
}

// Distribute splits totalUnits across the fixed size order. Every size but
// the last gets floor(total * pct / 100); the last size takes the remainder,
// clamped at zero. The sum over all sizes therefore always equals totalUnits
// exactly, with the final bucket absorbing all rounding drift.
func Distribute(totalUnits int, percentages map[models.Size]float64) map[models.Size]int {
	out := make(map[models.Size]int, len(models.Sizes))

	assigned := 0
	for _, size := range models.Sizes[:len(models.Sizes)-1] {
		units := int(math.Floor(float64(totalUnits) * percentages[size] / 100))
		out[size] = units
		assigned += units
	}

	last := models.Sizes[len(models.Sizes)-1]
	remainder := totalUnits - assigned
	if remainder < 0 {
		remainder = 0
	}
	out[last] = remainder
	return out
}

// AllocateToBuyers splits each size bucket across buyers as
// floor(size units * buyer pct / 100). Rounding remainder is NOT handed to
// any buyer, so the per-size sum over buyers may undercount the bucket. The
// reference system behaves this way and callers depend on it; do not mirror
// Distribute's remainder policy here.
func AllocateToBuyers(sizeAllocation map[models.Size]int, buyerPercentages map[models.Buyer]float64) map[models.Buyer]map[models.Size]int {
	out := make(map[models.Buyer]map[models.Size]int, len(buyerPercentages))
	for buyer, pct := range buyerPercentages {
		perSize := make(map[models.Size]int, len(models.Sizes))
		for _, size := range models.Sizes {
			perSize[size] = int(math.Floor(float64(sizeAllocation[size]) * pct / 100))
		}
		out[buyer] = perSize
	}
	return out
}

// ComputeRevenue prices an allocation: per (buyer, size) the mass is
// units * kgPerBakul and the revenue is mass * rate. Sums run on decimals so
// the grand total is not at the mercy of float accumulation order.
func ComputeRevenue(allocation map[models.Buyer]map[models.Size]int, prices map[models.Buyer]map[models.Size]float64, kgPerBakul float64) (map[models.Buyer]map[models.Size]models.RevenueLine, map[models.Buyer]float64, float64) {
	kgFactor := decimal.NewFromFloat(kgPerBakul)

	breakdown := make(map[models.Buyer]map[models.Size]models.RevenueLine, len(allocation))
	perBuyer := make(map[models.Buyer]float64, len(allocation))
	grandTotal := decimal.Zero

	for buyer, perSize := range allocation {
		lines := make(map[models.Size]models.RevenueLine, len(perSize))
		buyerTotal := decimal.Zero

		for _, size := range models.Sizes {
			units := perSize[size]
			rate := decimal.NewFromFloat(prices[buyer][size])
			mass := decimal.NewFromInt(int64(units)).Mul(kgFactor)
			revenue := mass.Mul(rate)

			lines[size] = models.RevenueLine{
				Units:   units,
				MassKg:  mass.InexactFloat64(),
				Rate:    rate.InexactFloat64(),
				Revenue: revenue.InexactFloat64(),
			}
			buyerTotal = buyerTotal.Add(revenue)
		}

		breakdown[buyer] = lines
		perBuyer[buyer] = buyerTotal.InexactFloat64()
		grandTotal = grandTotal.Add(buyerTotal)
	}

	return breakdown, perBuyer, grandTotal.InexactFloat64()
}

// EstimateParams are the validated primitives an estimate is built from.
type EstimateParams struct {
	Date              time.Time
	TotalUnits        int
	SizeDistribution  map[models.Size]float64
	SelectedBuyers    []models.Buyer
	BuyerDistribution map[models.Buyer]float64
	BuyerPrices       map[models.Buyer]map[models.Size]float64
}

// BuildEstimate is the validating factory for revenue estimates. It runs the
// validity gate, then derives the size allocation, buyer allocation and
// revenue breakdown, so a constructed estimate is complete by construction.
func (e *Engine) BuildEstimate(p EstimateParams) (models.RevenueEstimate, error) {
	if err := validateDistributions(p.SizeDistribution, p.SelectedBuyers, p.BuyerDistribution); err != nil {
		return models.RevenueEstimate{}, err
	}

	sizeAllocation := Distribute(p.TotalUnits, p.SizeDistribution)
	buyerAllocation := AllocateToBuyers(sizeAllocation, p.BuyerDistribution)
	breakdown, _, total := ComputeRevenue(buyerAllocation, p.BuyerPrices, e.kgPerBakul)

	return models.RevenueEstimate{
		ID:                uuid.NewString(),
		Date:              p.Date,
		TotalUnits:        p.TotalUnits,
		SizeDistribution:  p.SizeDistribution,
		UnitAllocation:    sizeAllocation,
		SelectedBuyers:    p.SelectedBuyers,
		BuyerDistribution: p.BuyerDistribution,
		BuyerAllocation:   buyerAllocation,
		BuyerPrices:       p.BuyerPrices,
		Breakdown:         breakdown,
		TotalRevenue:      total,
		CreatedAt:         e.now(),
	}, nil
}

// validateDistributions is the validity gate: both percentage sets must total
// 100 within tolerance and at least one buyer must be selected. No revenue
// total may be produced when any condition fails.
func validateDistributions(sizePct map[models.Size]float64, buyers []models.Buyer, buyerPct map[models.Buyer]float64) error {
	if total := percentSum(sizePct); math.Abs(total-100) > percentTolerance {
		return &ValidationError{Reason: fmt.Sprintf("size distribution sums to %.2f, expected 100", total)}
	}
	if len(buyers) == 0 {
		return &ValidationError{Reason: "no buyers selected"}
	}
	if total := buyerPercentSum(buyerPct); math.Abs(total-100) > percentTolerance {
		return &ValidationError{Reason: fmt.Sprintf("buyer distribution sums to %.2f, expected 100", total)}
	}
	return nil
}

func percentSum(pct map[models.Size]float64) float64 {
	total := 0.0
	for _, v := range pct {
		total += v
	}
	return total
}

func buyerPercentSum(pct map[models.Buyer]float64) float64 {
	total := 0.0
	for _, v := range pct {
		total += v
	}
	return total
}
