package revenue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salakbook/internal/domain/models"
	"salakbook/internal/repository"
	"salakbook/internal/repository/memory"
	"salakbook/internal/service/allocation"
	"salakbook/internal/session"
)

type failingBackend struct{}

func (failingBackend) Name() string { return "failing" }
func (failingBackend) Collection(string) repository.Collection {
	return failingCollection{}
}

type failingCollection struct{}

func (failingCollection) Query(context.Context, repository.Document) ([]repository.Stored, error) {
	return nil, errors.New("connection reset")
}
func (failingCollection) Set(context.Context, string, repository.Document) error {
	return errors.New("connection reset")
}
func (failingCollection) Add(context.Context, repository.Document) (string, error) {
	return "", errors.New("connection reset")
}
func (failingCollection) Delete(context.Context, string) error {
	return errors.New("connection reset")
}

func newSession(t *testing.T, durable repository.Backend, mem *memory.Backend) *session.Session {
	t.Helper()
	selector := repository.NewSelector(durable, mem, nil)
	return session.NewManager(selector).Start("udin")
}

func buildEstimate(t *testing.T, totalUnits int) models.RevenueEstimate {
	t.Helper()

	engine := allocation.NewEngine(20)
	estimate, err := engine.BuildEstimate(allocation.EstimateParams{
		Date:       time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		TotalUnits: totalUnits,
		SizeDistribution: map[models.Size]float64{
			models.SizeGradeA: 40, models.SizeGradeB: 30, models.SizeGradeC: 20, models.SizeBS: 10,
		},
		SelectedBuyers: []models.Buyer{models.BuyerPengepul},
		BuyerDistribution: map[models.Buyer]float64{
			models.BuyerPengepul: 100,
		},
		BuyerPrices: map[models.Buyer]map[models.Size]float64{
			models.BuyerPengepul: {
				models.SizeGradeA: 1500, models.SizeGradeB: 1200, models.SizeGradeC: 900, models.SizeBS: 300,
			},
		},
	})
	require.NoError(t, err)
	return estimate
}

func TestLoad_EmptyForUnknownUser(t *testing.T) {
	sess := newSession(t, nil, memory.New())
	store := NewStore(nil)

	estimates, err := store.Load(context.Background(), sess)
	require.NoError(t, err)
	assert.Empty(t, estimates)
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	sess := newSession(t, nil, memory.New())
	store := NewStore(nil)

	original := buildEstimate(t, 120)
	_, err := store.Save(context.Background(), sess, []models.RevenueEstimate{original})
	require.NoError(t, err)

	loaded, err := store.Load(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded[0]
	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, original.TotalUnits, got.TotalUnits)
	assert.Equal(t, original.UnitAllocation, got.UnitAllocation)
	assert.Equal(t, original.BuyerAllocation, got.BuyerAllocation)
	assert.InDelta(t, original.TotalRevenue, got.TotalRevenue, 1e-6)
	// bson stores timestamps at millisecond precision.
	assert.WithinDuration(t, original.CreatedAt, got.CreatedAt, time.Millisecond)
}

func TestSave_FullReplaceDropsOmittedEstimates(t *testing.T) {
	mem := memory.New()
	sess := newSession(t, nil, mem)
	store := NewStore(nil)

	first := buildEstimate(t, 100)
	second := buildEstimate(t, 200)

	_, err := store.Save(context.Background(), sess, []models.RevenueEstimate{first, second})
	require.NoError(t, err)

	_, err = store.Save(context.Background(), sess, []models.RevenueEstimate{second})
	require.NoError(t, err)

	loaded, err := store.Load(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, second.ID, loaded[0].ID)

	_, found, err := store.Get(context.Background(), sess, first.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoad_SkipsMalformedDocuments(t *testing.T) {
	mem := memory.New()
	sess := newSession(t, nil, mem)
	store := NewStore(nil)

	healthy := buildEstimate(t, 100)
	broken := buildEstimate(t, 50)
	_, err := store.Save(context.Background(), sess, []models.RevenueEstimate{healthy, broken})
	require.NoError(t, err)

	// Strip a required field from the stored copy, simulating a legacy row.
	coll := mem.Collection(collectionName)
	docs, err := coll.Query(context.Background(), repository.Document{"user": "udin", "estimate_id": broken.ID})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	delete(docs[0].Data, "buyer_prices")
	require.NoError(t, coll.Set(context.Background(), docs[0].ID, docs[0].Data))

	loaded, err := store.Load(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, healthy.ID, loaded[0].ID)
}

func TestGet_ReportsMissingFieldsByName(t *testing.T) {
	mem := memory.New()
	sess := newSession(t, nil, mem)
	store := NewStore(nil)

	broken := buildEstimate(t, 50)
	_, err := store.Save(context.Background(), sess, []models.RevenueEstimate{broken})
	require.NoError(t, err)

	coll := mem.Collection(collectionName)
	docs, err := coll.Query(context.Background(), repository.Document{"user": "udin"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	delete(docs[0].Data, "buyer_prices")
	require.NoError(t, coll.Set(context.Background(), docs[0].ID, docs[0].Data))

	_, found, err := store.Get(context.Background(), sess, broken.ID)
	assert.True(t, found)

	var mErr *models.MalformedEstimateError
	require.ErrorAs(t, err, &mErr)
	assert.Equal(t, []string{"buyer_prices"}, mErr.Missing)
}

func TestGet_NotFoundIsNotAnError(t *testing.T) {
	sess := newSession(t, nil, memory.New())
	store := NewStore(nil)

	estimate, found, err := store.Get(context.Background(), sess, "nonexistent")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, estimate)
}

func TestSave_FallsBackWhenDurableFails(t *testing.T) {
	mem := memory.New()
	sess := newSession(t, failingBackend{}, mem)
	store := NewStore(nil)

	estimate := buildEstimate(t, 80)
	fellBack, err := store.Save(context.Background(), sess, []models.RevenueEstimate{estimate})
	require.NoError(t, err)
	assert.True(t, fellBack)

	loaded, err := store.Load(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, estimate.ID, loaded[0].ID)
}
