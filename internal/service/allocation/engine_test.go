package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salakbook/internal/domain/models"
)

func TestDistribute_SumEqualsTotal(t *testing.T) {
	cases := []struct {
		name  string
		total int
		pct   map[models.Size]float64
	}{
		{"even split", 100, map[models.Size]float64{
			models.SizeGradeA: 25, models.SizeGradeB: 25, models.SizeGradeC: 25, models.SizeBS: 25,
		}},
		{"rounding drift", 97, map[models.Size]float64{
			models.SizeGradeA: 33.3, models.SizeGradeB: 33.3, models.SizeGradeC: 16.7, models.SizeBS: 16.7,
		}},
		{"zero total", 0, map[models.Size]float64{
			models.SizeGradeA: 40, models.SizeGradeB: 30, models.SizeGradeC: 20, models.SizeBS: 10,
		}},
		{"single unit", 1, map[models.Size]float64{
			models.SizeGradeA: 33, models.SizeGradeB: 33, models.SizeGradeC: 33, models.SizeBS: 1,
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			allocation := Distribute(tc.total, tc.pct)

			sum := 0
			for _, units := range allocation {
				sum += units
			}
			assert.Equal(t, tc.total, sum)
		})
	}
}

func TestDistribute_LastSizeAbsorbsRemainder(t *testing.T) {
	allocation := Distribute(100, map[models.Size]float64{
		models.SizeGradeA: 33,
		models.SizeGradeB: 33,
		models.SizeGradeC: 33,
		models.SizeBS:     1,
	})

	assert.Equal(t, 33, allocation[models.SizeGradeA])
	assert.Equal(t, 33, allocation[models.SizeGradeB])
	assert.Equal(t, 33, allocation[models.SizeGradeC])
	// bs gets 100-99, not floor(100*1/100).
	assert.Equal(t, 1, allocation[models.SizeBS])
}

func TestDistribute_RemainderClampedAtZero(t *testing.T) {
	// Overweight leading buckets can exceed the total; the last bucket must
	// clamp instead of going negative.
	allocation := Distribute(10, map[models.Size]float64{
		models.SizeGradeA: 60,
		models.SizeGradeB: 60,
		models.SizeGradeC: 0,
		models.SizeBS:     0,
	})

	assert.Equal(t, 6, allocation[models.SizeGradeA])
	assert.Equal(t, 6, allocation[models.SizeGradeB])
	assert.Equal(t, 0, allocation[models.SizeBS])
}

func TestAllocateToBuyers_NoRemainderRedistribution(t *testing.T) {
	pct := map[models.Buyer]float64{
		models.BuyerPengepul:   50,
		models.BuyerPasarInduk: 50,
	}

	even := AllocateToBuyers(map[models.Size]int{models.SizeGradeA: 10}, pct)
	assert.Equal(t, 5, even[models.BuyerPengepul][models.SizeGradeA])
	assert.Equal(t, 5, even[models.BuyerPasarInduk][models.SizeGradeA])

	// 11 units split 50/50 floors to 5+5: one unit goes unassigned. That
	// undercount mirrors the reference system and must not be corrected.
	odd := AllocateToBuyers(map[models.Size]int{models.SizeGradeA: 11}, pct)
	assert.Equal(t, 5, odd[models.BuyerPengepul][models.SizeGradeA])
	assert.Equal(t, 5, odd[models.BuyerPasarInduk][models.SizeGradeA])
}

func TestComputeRevenue(t *testing.T) {
	allocation := map[models.Buyer]map[models.Size]int{
		models.BuyerSupermarket: {
			models.SizeGradeA: 10,
			models.SizeGradeB: 4,
		},
	}
	prices := map[models.Buyer]map[models.Size]float64{
		models.BuyerSupermarket: {
			models.SizeGradeA: 1500,
			models.SizeGradeB: 1000,
		},
	}

	breakdown, perBuyer, total := ComputeRevenue(allocation, prices, 20)

	gradeA := breakdown[models.BuyerSupermarket][models.SizeGradeA]
	assert.Equal(t, 10, gradeA.Units)
	assert.InDelta(t, 200, gradeA.MassKg, 1e-9)
	assert.InDelta(t, 300000, gradeA.Revenue, 1e-9)

	gradeB := breakdown[models.BuyerSupermarket][models.SizeGradeB]
	assert.InDelta(t, 80, gradeB.MassKg, 1e-9)
	assert.InDelta(t, 80000, gradeB.Revenue, 1e-9)

	assert.InDelta(t, 380000, perBuyer[models.BuyerSupermarket], 1e-9)
	assert.InDelta(t, 380000, total, 1e-9)
}

func TestBuildEstimate_RejectsOffTotalSizeDistribution(t *testing.T) {
	engine := NewEngine(20)

	_, err := engine.BuildEstimate(EstimateParams{
		TotalUnits: 100,
		SizeDistribution: map[models.Size]float64{
			models.SizeGradeA: 40, models.SizeGradeB: 30, models.SizeGradeC: 15, models.SizeBS: 10,
		},
		SelectedBuyers:    []models.Buyer{models.BuyerPengepul},
		BuyerDistribution: map[models.Buyer]float64{models.BuyerPengepul: 100},
		BuyerPrices:       map[models.Buyer]map[models.Size]float64{models.BuyerPengepul: {}},
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "size distribution")
	assert.Contains(t, vErr.Reason, "95")
}

func TestBuildEstimate_RejectsNoBuyers(t *testing.T) {
	engine := NewEngine(20)

	_, err := engine.BuildEstimate(EstimateParams{
		TotalUnits: 50,
		SizeDistribution: map[models.Size]float64{
			models.SizeGradeA: 40, models.SizeGradeB: 30, models.SizeGradeC: 20, models.SizeBS: 10,
		},
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "no buyers selected", vErr.Reason)
}

func TestBuildEstimate_RejectsOffTotalBuyerDistribution(t *testing.T) {
	engine := NewEngine(20)

	_, err := engine.BuildEstimate(EstimateParams{
		TotalUnits: 50,
		SizeDistribution: map[models.Size]float64{
			models.SizeGradeA: 40, models.SizeGradeB: 30, models.SizeGradeC: 20, models.SizeBS: 10,
		},
		SelectedBuyers: []models.Buyer{models.BuyerPengepul, models.BuyerMitraTani},
		BuyerDistribution: map[models.Buyer]float64{
			models.BuyerPengepul: 60, models.BuyerMitraTani: 30,
		},
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "buyer distribution")
}

func TestBuildEstimate_CompleteByConstruction(t *testing.T) {
	engine := NewEngine(20)

	estimate, err := engine.BuildEstimate(EstimateParams{
		TotalUnits: 120,
		SizeDistribution: map[models.Size]float64{
			models.SizeGradeA: 40, models.SizeGradeB: 30, models.SizeGradeC: 20, models.SizeBS: 10,
		},
		SelectedBuyers: []models.Buyer{models.BuyerPengepul, models.BuyerSupermarket},
		BuyerDistribution: map[models.Buyer]float64{
			models.BuyerPengepul: 70, models.BuyerSupermarket: 30,
		},
		BuyerPrices: map[models.Buyer]map[models.Size]float64{
			models.BuyerPengepul: {
				models.SizeGradeA: 1500, models.SizeGradeB: 1200, models.SizeGradeC: 900, models.SizeBS: 400,
			},
			models.BuyerSupermarket: {
				models.SizeGradeA: 2000, models.SizeGradeB: 1500, models.SizeGradeC: 1100, models.SizeBS: 0,
			},
		},
	})
	require.NoError(t, err)

	assert.Empty(t, estimate.MissingFields())
	assert.NotEmpty(t, estimate.ID)
	assert.False(t, estimate.CreatedAt.IsZero())

	sum := 0
	for _, units := range estimate.UnitAllocation {
		sum += units
	}
	assert.Equal(t, 120, sum)

	// The stored grand total must equal the sum over the breakdown.
	var breakdownTotal float64
	for _, perSize := range estimate.Breakdown {
		for _, line := range perSize {
			breakdownTotal += line.Revenue
		}
	}
	assert.InDelta(t, breakdownTotal, estimate.TotalRevenue, 1e-6)
	assert.Greater(t, estimate.TotalRevenue, 0.0)
}
