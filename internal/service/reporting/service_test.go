package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salakbook/internal/domain/models"
	"salakbook/internal/repository"
	"salakbook/internal/repository/memory"
	"salakbook/internal/service/production"
	"salakbook/internal/session"
)

type capturingExporter struct {
	summaries []models.DailySummary
}

func (c *capturingExporter) AppendDailySummary(_ context.Context, summary models.DailySummary) error {
	c.summaries = append(c.summaries, summary)
	return nil
}

func seedRecords(t *testing.T, sess *session.Session) {
	t.Helper()

	store := production.NewStore(nil)
	day1, _ := time.Parse(dateLayout, "2026-08-01")
	day2, _ := time.Parse(dateLayout, "2026-08-02")

	_, err := store.Save(context.Background(), sess, []models.ProductionRecord{
		{Date: day1, Quantities: map[models.Farm]int{models.FarmKebunUtara: 10, models.FarmKebunTimur: 5}},
		{Date: day2, Quantities: map[models.Farm]int{models.FarmKebunUtara: 3}},
	})
	require.NoError(t, err)
}

func TestDailySummary_AggregatesOneDayOnly(t *testing.T) {
	mem := memory.New()
	sess := session.NewManager(repository.NewSelector(nil, mem, nil)).Start("udin")
	seedRecords(t, sess)

	svc := NewService(production.NewStore(nil), nil, 20, nil)

	day, _ := time.Parse(dateLayout, "2026-08-01")
	summary, err := svc.DailySummary(context.Background(), sess, day)
	require.NoError(t, err)

	assert.Equal(t, "udin", summary.User)
	assert.Equal(t, 10, summary.PerFarm[models.FarmKebunUtara])
	assert.Equal(t, 5, summary.PerFarm[models.FarmKebunTimur])
	assert.Equal(t, 0, summary.PerFarm[models.FarmKebunBarat])
	assert.Equal(t, 15, summary.TotalBakul)
	assert.InDelta(t, 300, summary.EstimatedKg, 1e-9)
}

func TestDailySummary_EmptyDayIsZeroed(t *testing.T) {
	mem := memory.New()
	sess := session.NewManager(repository.NewSelector(nil, mem, nil)).Start("udin")

	svc := NewService(production.NewStore(nil), nil, 20, nil)

	day, _ := time.Parse(dateLayout, "2026-08-09")
	summary, err := svc.DailySummary(context.Background(), sess, day)
	require.NoError(t, err)
	assert.Zero(t, summary.TotalBakul)
	assert.Zero(t, summary.EstimatedKg)
}

func TestPublishDailySummary_StoresAndExports(t *testing.T) {
	mem := memory.New()
	sess := session.NewManager(repository.NewSelector(nil, mem, nil)).Start("udin")
	seedRecords(t, sess)

	exporter := &capturingExporter{}
	svc := NewService(production.NewStore(nil), exporter, 20, nil)

	day, _ := time.Parse(dateLayout, "2026-08-01")
	summary, err := svc.PublishDailySummary(context.Background(), sess, day)
	require.NoError(t, err)
	assert.Equal(t, 15, summary.TotalBakul)

	docs, err := mem.Collection(summaryCollection).Query(context.Background(), repository.Document{"user": "udin"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 15, docs[0].Data["total_bakul"])

	require.Len(t, exporter.summaries, 1)
	assert.Equal(t, 15, exporter.summaries[0].TotalBakul)
}
