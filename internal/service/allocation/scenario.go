package allocation

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"salakbook/internal/domain/models"
)

// BuyerDelta compares one buyer's revenue between the stored estimate and a
// hypothetical buyer distribution.
type BuyerDelta struct {
	Buyer           models.Buyer `json:"buyer"`
	OriginalRevenue float64      `json:"original_revenue"`
	NewRevenue      float64      `json:"new_revenue"`
	Difference      float64      `json:"difference"`
	ChangePct       float64      `json:"change_pct"`
}

// ScenarioResult is the outcome of replaying an estimate under a replacement
// buyer distribution.
type ScenarioResult struct {
	PerBuyer        []BuyerDelta                                        `json:"per_buyer"`
	NewAllocation   map[models.Buyer]map[models.Size]int                `json:"new_allocation"`
	NewBreakdown    map[models.Buyer]map[models.Size]models.RevenueLine `json:"new_breakdown"`
	OriginalRevenue float64                                             `json:"original_revenue"`
	NewRevenue      float64                                             `json:"new_revenue"`
	Difference      float64                                             `json:"difference"`
	ChangePct       float64                                             `json:"change_pct"`
}

// CompareScenario reallocates the base estimate's already-fixed size
// allocation under a replacement buyer distribution and prices the result
// with the base estimate's stored rates. The size split is never re-derived.
// A structurally incomplete estimate is rejected before any computation.
func (e *Engine) CompareScenario(base models.RevenueEstimate, newBuyerPct map[models.Buyer]float64) (*ScenarioResult, error) {
	if missing := base.MissingFields(); len(missing) > 0 {
		return nil, &models.MalformedEstimateError{Missing: missing}
	}
	if len(newBuyerPct) == 0 {
		return nil, &ValidationError{Reason: "no buyers selected"}
	}
	if total := buyerPercentSum(newBuyerPct); math.Abs(total-100) > percentTolerance {
		return nil, &ValidationError{Reason: fmt.Sprintf("buyer distribution sums to %.2f, expected 100", total)}
	}

	newAllocation := AllocateToBuyers(base.UnitAllocation, newBuyerPct)
	newBreakdown, newPerBuyer, newTotal := ComputeRevenue(newAllocation, base.BuyerPrices, e.kgPerBakul)

	result := &ScenarioResult{
		NewAllocation: newAllocation,
		NewBreakdown:  newBreakdown,
		NewRevenue:    newTotal,
	}

	originalTotal := decimal.Zero
	for _, buyer := range scenarioBuyers(base, newBuyerPct) {
		original := buyerRevenue(base.Breakdown[buyer])
		replacement := newPerBuyer[buyer]

		result.PerBuyer = append(result.PerBuyer, BuyerDelta{
			Buyer:           buyer,
			OriginalRevenue: original,
			NewRevenue:      replacement,
			Difference:      replacement - original,
			ChangePct:       changePct(original, replacement),
		})
		originalTotal = originalTotal.Add(decimal.NewFromFloat(original))
	}

	result.OriginalRevenue = originalTotal.InexactFloat64()
	result.Difference = result.NewRevenue - result.OriginalRevenue
	result.ChangePct = changePct(result.OriginalRevenue, result.NewRevenue)
	return result, nil
}

// scenarioBuyers walks the fixed buyer order and keeps every buyer present in
// either the base estimate or the replacement distribution, so deltas come
// out in a stable order.
func scenarioBuyers(base models.RevenueEstimate, newBuyerPct map[models.Buyer]float64) []models.Buyer {
	var out []models.Buyer
	for _, buyer := range models.Buyers {
		if _, inNew := newBuyerPct[buyer]; inNew {
			out = append(out, buyer)
			continue
		}
		if _, inBase := base.BuyerDistribution[buyer]; inBase {
			out = append(out, buyer)
		}
	}
	return out
}

func buyerRevenue(lines map[models.Size]models.RevenueLine) float64 {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(decimal.NewFromFloat(line.Revenue))
	}
	return total.InexactFloat64()
}

// changePct is defined as zero when the original revenue is exactly zero.
func changePct(original, replacement float64) float64 {
	if original == 0 {
		return 0
	}
	return (replacement - original) / original * 100
}
