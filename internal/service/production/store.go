// Package production reconciles a user's dated harvest records against the
// active document backend with per-date upsert semantics.
package production

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"salakbook/internal/domain/models"
	"salakbook/internal/repository"
	"salakbook/internal/session"
)

const (
	collectionName = "harvests"
	dateLayout     = "2006-01-02"
)

// Store is the production record store.
type Store struct {
	logger *zap.Logger
}

// NewStore wires a production record store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{logger: logger}
}

// Load returns every production record owned by the session user, in no
// particular order. An unknown user yields an empty slice, never an error.
func (s *Store) Load(ctx context.Context, sess *session.Session) ([]models.ProductionRecord, error) {
	var records []models.ProductionRecord

	_, err := sess.Backend.Run(ctx, collectionName, func(ctx context.Context, c repository.Collection) error {
		docs, err := c.Query(ctx, repository.Document{"user": sess.Username})
		if err != nil {
			return err
		}

		records = records[:0]
		for _, stored := range docs {
			record, err := recordFromDocument(stored.Data)
			if err != nil {
				s.logger.Warn("skipping unreadable harvest document",
					zap.String("user", sess.Username),
					zap.String("doc_id", stored.ID),
					zap.Error(err))
				continue
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load production records: %w", err)
	}
	return records, nil
}

// Save replaces the user's entire record set with records. Existing documents
// are matched by calendar date and overwritten in place, new dates are
// inserted, and any stored date absent from the input is deleted. Saving the
// same input twice leaves the backend unchanged. When the durable backend
// fails at any step the whole reconciliation reruns on the fallback and
// fellBack reports the degraded outcome.
func (s *Store) Save(ctx context.Context, sess *session.Session, records []models.ProductionRecord) (fellBack bool, err error) {
	fellBack, err = sess.Backend.Run(ctx, collectionName, func(ctx context.Context, c repository.Collection) error {
		existing, err := c.Query(ctx, repository.Document{"user": sess.Username})
		if err != nil {
			return err
		}

		idByDate := make(map[string]string, len(existing))
		for _, stored := range existing {
			if date, ok := stored.Data["date"].(string); ok {
				idByDate[date] = stored.ID
			}
		}

		seen := make(map[string]bool, len(records))
		for _, record := range records {
			key := record.Date.Format(dateLayout)
			doc := recordToDocument(sess.Username, record)
			seen[key] = true

			if id, exists := idByDate[key]; exists {
				if err := c.Set(ctx, id, doc); err != nil {
					return err
				}
				continue
			}

			id, err := c.Add(ctx, doc)
			if err != nil {
				return err
			}
			// Later duplicates of the same date must overwrite, not insert.
			idByDate[key] = id
		}

		for date, id := range idByDate {
			if seen[date] {
				continue
			}
			if err := c.Delete(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fellBack, fmt.Errorf("save production records: %w", err)
	}

	if fellBack {
		s.logger.Warn("production records saved to fallback backend only", zap.String("user", sess.Username))
	}
	return fellBack, nil
}

// recordToDocument flattens a record into the persisted shape: the owner tag,
// an ISO date string, and one numeric column per current-scheme farm.
func recordToDocument(user string, record models.ProductionRecord) repository.Document {
	doc := repository.Document{
		"user": user,
		"date": record.Date.Format(dateLayout),
	}
	for _, farm := range models.Farms {
		doc[string(farm)] = coerceCount(record.Quantities[farm])
	}
	return doc
}

// recordFromDocument rebuilds a record, renaming legacy farm columns to the
// current scheme. A legacy value is used only when the current column is
// absent, so current-scheme data is never overwritten.
func recordFromDocument(doc repository.Document) (models.ProductionRecord, error) {
	rawDate, ok := doc["date"].(string)
	if !ok {
		return models.ProductionRecord{}, fmt.Errorf("document has no date field")
	}
	date, err := parseDate(rawDate)
	if err != nil {
		return models.ProductionRecord{}, fmt.Errorf("parse date %q: %w", rawDate, err)
	}

	quantities := make(map[models.Farm]int, len(models.Farms))
	for _, farm := range models.Farms {
		if value, present := doc[string(farm)]; present {
			quantities[farm] = coerceCount(value)
		}
	}
	for legacy, farm := range models.LegacyFarmNames {
		if _, present := doc[string(farm)]; present {
			continue
		}
		if value, present := doc[legacy]; present {
			quantities[farm] = coerceCount(value)
		}
	}
	for _, farm := range models.Farms {
		if _, present := quantities[farm]; !present {
			quantities[farm] = 0
		}
	}

	return models.ProductionRecord{Date: date, Quantities: quantities}, nil
}

// parseDate accepts plain calendar dates and longer ISO-8601 strings written
// by older clients, keeping only the date part.
func parseDate(value string) (time.Time, error) {
	if len(value) > len(dateLayout) {
		value = value[:len(dateLayout)]
	}
	return time.Parse(dateLayout, value)
}

// coerceCount folds the numeric types either backend may hand back into an
// int. Missing and NaN-like values count as zero.
func coerceCount(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int(v)
	default:
		return 0
	}
}
