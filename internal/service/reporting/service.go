// Package reporting aggregates harvest records into daily summaries.
package reporting

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"salakbook/internal/domain/models"
	"salakbook/internal/repository"
	"salakbook/internal/service/production"
	"salakbook/internal/session"
)

const (
	summaryCollection = "daily_summaries"
	dateLayout        = "2006-01-02"
)

// SummaryExporter pushes a finished summary to an external sink. Nil-safe by
// construction: the service simply skips export when none is configured.
type SummaryExporter interface {
	AppendDailySummary(ctx context.Context, summary models.DailySummary) error
}

// Service builds and persists per-user daily harvest summaries.
type Service struct {
	production *production.Store
	exporter   SummaryExporter
	kgPerBakul float64
	logger     *zap.Logger
	now        func() time.Time
}

// NewService wires a reporting service. exporter may be nil.
func NewService(productionStore *production.Store, exporter SummaryExporter, kgPerBakul float64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		production: productionStore,
		exporter:   exporter,
		kgPerBakul: kgPerBakul,
		logger:     logger,
		now:        time.Now,
	}
}

// DailySummary aggregates the user's production for one calendar day. A day
// without records yields a zeroed summary rather than an error.
func (s *Service) DailySummary(ctx context.Context, sess *session.Session, day time.Time) (models.DailySummary, error) {
	records, err := s.production.Load(ctx, sess)
	if err != nil {
		return models.DailySummary{}, fmt.Errorf("load records for summary: %w", err)
	}

	key := day.Format(dateLayout)
	summary := models.DailySummary{
		User:      sess.Username,
		Date:      day,
		PerFarm:   make(map[models.Farm]int, len(models.Farms)),
		CreatedAt: s.now(),
	}
	for _, farm := range models.Farms {
		summary.PerFarm[farm] = 0
	}

	for _, record := range records {
		if record.Date.Format(dateLayout) != key {
			continue
		}
		for farm, qty := range record.Quantities {
			summary.PerFarm[farm] += qty
			summary.TotalBakul += qty
		}
	}
	summary.EstimatedKg = float64(summary.TotalBakul) * s.kgPerBakul

	return summary, nil
}

// PublishDailySummary computes the user's summary for the day, stores it in
// the summaries collection, and forwards it to the exporter when one is set.
func (s *Service) PublishDailySummary(ctx context.Context, sess *session.Session, day time.Time) (models.DailySummary, error) {
	summary, err := s.DailySummary(ctx, sess, day)
	if err != nil {
		return models.DailySummary{}, err
	}

	doc := summaryToDocument(summary)
	fellBack, err := sess.Backend.Run(ctx, summaryCollection, func(ctx context.Context, c repository.Collection) error {
		_, err := c.Add(ctx, doc)
		return err
	})
	if err != nil {
		return models.DailySummary{}, fmt.Errorf("store daily summary: %w", err)
	}
	if fellBack {
		s.logger.Warn("daily summary stored on fallback backend only", zap.String("user", sess.Username))
	}

	if s.exporter != nil {
		if err := s.exporter.AppendDailySummary(ctx, summary); err != nil {
			// Export is best effort; the summary is already persisted.
			s.logger.Warn("daily summary export failed", zap.String("user", sess.Username), zap.Error(err))
		}
	}

	return summary, nil
}

func summaryToDocument(summary models.DailySummary) repository.Document {
	doc := repository.Document{
		"user":         summary.User,
		"date":         summary.Date.Format(dateLayout),
		"total_bakul":  summary.TotalBakul,
		"estimated_kg": summary.EstimatedKg,
		"created_at":   summary.CreatedAt,
	}
	perFarm := make(map[string]any, len(summary.PerFarm))
	for farm, qty := range summary.PerFarm {
		perFarm[string(farm)] = qty
	}
	doc["per_farm"] = perFarm
	return doc
}
