package repository

import (
	"context"
	"errors"
)

// ErrBackendUnavailable wraps any failure of the durable backend. Stores
// treat it as recoverable and rerun the operation against the fallback.
var ErrBackendUnavailable = errors.New("durable backend unavailable")

// Document is the generic persisted record shape shared by both backends.
type Document map[string]any

// Stored pairs a document with its backend-assigned identifier.
type Stored struct {
	ID   string
	Data Document
}

// Collection is a keyed document collection. Query matches documents whose
// fields equal every filter entry; Set overwrites the document with the given
// id; Add inserts a new document and returns its id.
type Collection interface {
	Query(ctx context.Context, filter Document) ([]Stored, error)
	Set(ctx context.Context, id string, doc Document) error
	Add(ctx context.Context, doc Document) (string, error)
	Delete(ctx context.Context, id string) error
}

// Backend hands out named collections.
type Backend interface {
	Collection(name string) Collection
	Name() string
}
