// Package revenue persists a user's revenue estimates. Unlike the production
// store this is a coarse full-replace: delete everything, reinsert the list.
package revenue

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"salakbook/internal/domain/models"
	"salakbook/internal/repository"
	"salakbook/internal/session"
)

const collectionName = "estimates"

// Store is the revenue estimate store.
type Store struct {
	logger *zap.Logger
}

// NewStore wires a revenue estimate store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{logger: logger}
}

// Load returns every well-formed estimate owned by the session user.
// Documents failing the required-field scan are skipped whole; a partial
// estimate is never handed to callers.
func (s *Store) Load(ctx context.Context, sess *session.Session) ([]models.RevenueEstimate, error) {
	var estimates []models.RevenueEstimate

	_, err := sess.Backend.Run(ctx, collectionName, func(ctx context.Context, c repository.Collection) error {
		docs, err := c.Query(ctx, repository.Document{"user": sess.Username})
		if err != nil {
			return err
		}

		estimates = estimates[:0]
		for _, stored := range docs {
			estimate, err := estimateFromDocument(stored.Data)
			if err != nil {
				s.logger.Warn("skipping malformed estimate document",
					zap.String("user", sess.Username),
					zap.String("doc_id", stored.ID),
					zap.Error(err))
				continue
			}
			estimates = append(estimates, estimate)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load revenue estimates: %w", err)
	}
	return estimates, nil
}

// Get fetches a single estimate by id. A malformed stored document surfaces
// as MalformedEstimateError naming the offending fields; a missing id yields
// (nil, false, nil) rather than an error.
func (s *Store) Get(ctx context.Context, sess *session.Session, estimateID string) (*models.RevenueEstimate, bool, error) {
	var (
		estimate *models.RevenueEstimate
		found    bool
		convErr  error
	)

	_, err := sess.Backend.Run(ctx, collectionName, func(ctx context.Context, c repository.Collection) error {
		docs, err := c.Query(ctx, repository.Document{"user": sess.Username, "estimate_id": estimateID})
		if err != nil {
			return err
		}
		estimate, found, convErr = nil, false, nil
		if len(docs) == 0 {
			return nil
		}

		found = true
		parsed, err := estimateFromDocument(docs[0].Data)
		if err != nil {
			convErr = err
			return nil
		}
		estimate = &parsed
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("get revenue estimate: %w", err)
	}
	if convErr != nil {
		return nil, true, convErr
	}
	return estimate, found, nil
}

// Save replaces the user's durable estimate list wholesale: every existing
// document is deleted, then one document per input estimate is inserted with
// the owner tag. The delete-then-insert order is part of the contract: an
// estimate dropped from the list is guaranteed gone once Save returns, so
// this must not be rewritten as a per-id upsert.
func (s *Store) Save(ctx context.Context, sess *session.Session, estimates []models.RevenueEstimate) (fellBack bool, err error) {
	fellBack, err = sess.Backend.Run(ctx, collectionName, func(ctx context.Context, c repository.Collection) error {
		existing, err := c.Query(ctx, repository.Document{"user": sess.Username})
		if err != nil {
			return err
		}
		for _, stored := range existing {
			if err := c.Delete(ctx, stored.ID); err != nil {
				return err
			}
		}

		for _, estimate := range estimates {
			doc, err := estimateToDocument(sess.Username, estimate)
			if err != nil {
				return err
			}
			if _, err := c.Add(ctx, doc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fellBack, fmt.Errorf("save revenue estimates: %w", err)
	}

	if fellBack {
		s.logger.Warn("revenue estimates saved to fallback backend only", zap.String("user", sess.Username))
	}
	return fellBack, nil
}

// estimateToDocument serializes an estimate through bson so both backends
// persist the exact document shape MongoDB would hold, plus the owner tag.
func estimateToDocument(user string, estimate models.RevenueEstimate) (repository.Document, error) {
	raw, err := bson.Marshal(estimate)
	if err != nil {
		return nil, fmt.Errorf("marshal estimate %s: %w", estimate.ID, err)
	}

	var doc repository.Document
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("reshape estimate %s: %w", estimate.ID, err)
	}

	doc["user"] = user
	return doc, nil
}

// estimateFromDocument scans the persisted document for the full required
// field set before decoding. Legacy rows written by older clients can lack
// fields the validating factory now guarantees; they are rejected whole.
func estimateFromDocument(doc repository.Document) (models.RevenueEstimate, error) {
	var missing []string
	for _, field := range models.EstimateFields {
		if value, present := doc[field]; !present || value == nil {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return models.RevenueEstimate{}, &models.MalformedEstimateError{Missing: missing}
	}

	raw, err := bson.Marshal(doc)
	if err != nil {
		return models.RevenueEstimate{}, fmt.Errorf("remarshal estimate document: %w", err)
	}

	var estimate models.RevenueEstimate
	if err := bson.Unmarshal(raw, &estimate); err != nil {
		return models.RevenueEstimate{}, fmt.Errorf("decode estimate document: %w", err)
	}
	return estimate, nil
}
