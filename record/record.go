// Package record defines the store boundary for the assistant's two managed
// collections (projects, people). Documents are schema-less field maps plus a
// generated identifier; schema enforcement happens at the agent boundary, not
// here. Implementations wrap a concrete backend (in-memory map, SQLite) and
// offer per-call atomicity only — no transactions span multiple calls.
package record

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Collection names handled by the assistant.
const (
	CollectionProjects = "projects"
	CollectionPeople   = "people"
)

// ErrNotFound indicates an update or lookup targeted an identifier that does
// not exist in the collection.
var ErrNotFound = errors.New("record not found")

// Fields is a free-form field mapping carried by a document.
type Fields map[string]any

// Clone returns a shallow copy safe to hand across store boundaries.
func (f Fields) Clone() Fields {
	c := make(Fields, len(f))
	for k, v := range f {
		c[k] = v
	}
	return c
}

// Matches reports whether every filter entry compares equal to the
// corresponding document field. Comparison is on the rendered string form
// since documents are schema-less.
func (f Fields) Matches(filter Fields) bool {
	for k, want := range filter {
		got, ok := f[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// Document is a stored record: generated identifier plus free-form fields.
type Document struct {
	ID     string `json:"id"`
	Fields Fields `json:"fields"`
}

// Store is the record store boundary. List returns all documents of a
// collection matching the optional filter, Create assigns a new identifier,
// Update merges fields into an existing document and Get resolves a single
// document. Update and Get fail with ErrNotFound for unknown identifiers.
type Store interface {
	List(ctx context.Context, collection string, filter Fields) ([]Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	Create(ctx context.Context, collection string, fields Fields) (string, error)
	Update(ctx context.Context, collection, id string, fields Fields) error
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewDocumentID generates a lexically sortable identifier for a new document.
// ULIDs sort by creation time, which keeps listings in insertion order.
func NewDocumentID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
