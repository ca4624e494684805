// Package store defines the document store abstraction the sync job runs against.
//
// A Store hands out named Collections of schemaless documents. Two backends
// implement it: store/mongodb for production deployments and store/sqlite,
// an embedded JSON document store used for local runs and tests.
package store

import (
	"context"
	"fmt"
	"regexp"
)

// IDField is the key under which a store keeps a document's identity.
const IDField = "_id"

// Document is a schemaless record. Values are whatever the backend decodes
// (strings, numbers, nested maps and slices, backend specific ID types).
type Document map[string]any

// Clone returns a shallow copy of d.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Op is a comparison operator in a Filter.
type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpLt  Op = "lt"
)

// Filter selects documents by comparing one string field against a value.
// The zero Filter matches every document.
type Filter struct {
	Field string
	Op    Op
	Value string
}

// All matches every document in a collection.
var All = Filter{}

// Eq matches documents whose field equals value.
func Eq(field, value string) Filter { return Filter{Field: field, Op: OpEq, Value: value} }

// Gte matches documents whose field sorts at or after value.
func Gte(field, value string) Filter { return Filter{Field: field, Op: OpGte, Value: value} }

// Lt matches documents whose field sorts strictly before value.
func Lt(field, value string) Filter { return Filter{Field: field, Op: OpLt, Value: value} }

// IsAll reports whether f matches every document.
func (f Filter) IsAll() bool {
	return f.Field == ""
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidateField rejects field paths a backend cannot safely embed in a query.
func ValidateField(field string) error {
	if !fieldPattern.MatchString(field) {
		return fmt.Errorf("invalid field name %q", field)
	}
	return nil
}

// Validate checks that f is either the zero filter or a well formed comparison.
func (f Filter) Validate() error {
	if f.IsAll() {
		return nil
	}
	if err := ValidateField(f.Field); err != nil {
		return err
	}
	switch f.Op {
	case OpEq, OpGte, OpLt:
		return nil
	default:
		return fmt.Errorf("unsupported filter operator %q", f.Op)
	}
}

// GroupCount is one bucket of a GroupCount query.
type GroupCount struct {
	Key   string `json:"key" yaml:"key" toml:"key"`
	Count int64  `json:"count" yaml:"count" toml:"count"`
}

// Collection is a named set of documents.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// Find returns every document matching filter. There is no
	// pagination; callers are expected to read small collections.
	Find(ctx context.Context, filter Filter) ([]Document, error)

	// InsertOne stores doc as a new document and returns the identity
	// the store assigned to it.
	InsertOne(ctx context.Context, doc Document) (string, error)

	// DeleteMany removes every document matching filter and returns the
	// number removed.
	DeleteMany(ctx context.Context, filter Filter) (int64, error)

	// Count returns the number of documents matching filter.
	Count(ctx context.Context, filter Filter) (int64, error)

	// GroupCount groups documents that have field by its value and
	// returns at most limit buckets ordered by key, descending.
	GroupCount(ctx context.Context, field string, limit int) ([]GroupCount, error)
}

// Store is an open connection to a document database.
type Store interface {
	// Collection returns a handle to the named collection. Collections
	// are created on first write.
	Collection(name string) Collection

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close(ctx context.Context) error
}
