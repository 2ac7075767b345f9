package domain

import "context"

// DocRepository is the driven port for doc persistence.
type DocRepository interface {
	Create(ctx context.Context, doc Doc) (*Doc, error)
	Get(ctx context.Context, id int64) (*Doc, error)
	FindPending(ctx context.Context, limit int) ([]Doc, error)
	Claim(ctx context.Context, id int64) error
	Complete(ctx context.Context, id int64, resourceID int64) error
	Fail(ctx context.Context, id int64, reason string) error
	Skip(ctx context.Context, id int64) error
	RecoverStale(ctx context.Context) (int64, error)
}

// ResourceRepository looks up previously created resources.
type ResourceRepository interface {
	FindByID(ctx context.Context, apiID int64) (Resource, error)
}

// ResourceStore records resources. CreateResource returns a DuplicateResource
// error when apiID already has one.
type ResourceStore interface {
	ResourceRepository
	CreateResource(ctx context.Context, apiID int64, location string) (Resource, error)
}

// ResourceCreator creates the resource for a doc.
type ResourceCreator interface {
	Create(ctx context.Context, doc Doc) (Resource, error)
}

// CreatorFunc adapts a function to ResourceCreator.
type CreatorFunc func(ctx context.Context, doc Doc) (Resource, error)

func (f CreatorFunc) Create(ctx context.Context, doc Doc) (Resource, error) {
	return f(ctx, doc)
}

// SourceCreator is a creator backend selected by doc source.
type SourceCreator interface {
	ResourceCreator
	Name() string
	Match(source string) bool
}
