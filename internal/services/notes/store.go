package notes

import "context"

// QuerySpec selects documents whose Field equals Equals, sorted by OrderBy.
type QuerySpec struct {
	Field      string
	Equals     any
	OrderBy    string
	Descending bool
}

// Store is the remote note store contract. Implementations return documents
// with FieldID populated and report a missing id as ErrNoDocument.
type Store interface {
	Insert(ctx context.Context, doc Document) (string, error)
	Query(ctx context.Context, q QuerySpec) ([]Document, error)
	Get(ctx context.Context, id string) (Document, error)
	Merge(ctx context.Context, id string, fields Document) error
	Delete(ctx context.Context, id string) error
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}
