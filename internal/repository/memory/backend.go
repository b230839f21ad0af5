// Package memory implements the ephemeral document backend. State lives for
// the lifetime of the process and is lost on restart; it exists so the
// application keeps working while the durable store is unreachable.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"salakbook/internal/repository"
)

// Backend is an in-process document store guarded by a single RW mutex.
type Backend struct {
	mu          sync.RWMutex
	collections map[string]map[string]repository.Document
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{collections: make(map[string]map[string]repository.Document)}
}

// Name identifies this backend in logs and health output.
func (b *Backend) Name() string { return "memory" }

// Collection returns a handle bound to the named collection, creating it on
// first use.
func (b *Backend) Collection(name string) repository.Collection {
	return &collection{backend: b, name: name}
}

// docs lazily creates the named collection. It writes to the collections map,
// so callers must hold the write lock.
func (b *Backend) docs(name string) map[string]repository.Document {
	docs, ok := b.collections[name]
	if !ok {
		docs = make(map[string]repository.Document)
		b.collections[name] = docs
	}
	return docs
}

type collection struct {
	backend *Backend
	name    string
}

func (c *collection) Query(_ context.Context, filter repository.Document) ([]repository.Stored, error) {
	c.backend.mu.RLock()
	defer c.backend.mu.RUnlock()

	// Read-only lookup; a missing collection ranges as empty.
	var out []repository.Stored
	for id, doc := range c.backend.collections[c.name] {
		if matches(doc, filter) {
			out = append(out, repository.Stored{ID: id, Data: clone(doc)})
		}
	}
	return out, nil
}

func (c *collection) Set(_ context.Context, id string, doc repository.Document) error {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()

	c.backend.docs(c.name)[id] = clone(doc)
	return nil
}

func (c *collection) Add(_ context.Context, doc repository.Document) (string, error) {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()

	id := uuid.NewString()
	c.backend.docs(c.name)[id] = clone(doc)
	return id, nil
}

func (c *collection) Delete(_ context.Context, id string) error {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()

	delete(c.backend.docs(c.name), id)
	return nil
}

func matches(doc, filter repository.Document) bool {
	for key, want := range filter {
		if doc[key] != want {
			return false
		}
	}
	return true
}

// clone deep-copies a document so callers never alias stored state.
func clone(doc repository.Document) repository.Document {
	out := make(repository.Document, len(doc))
	for key, value := range doc {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case repository.Document:
		return clone(v)
	case map[string]any:
		return map[string]any(clone(v))
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
