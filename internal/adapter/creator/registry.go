package creator

import (
	"context"
	"fmt"

	"github.com/cwygoda/feedhandler/internal/domain"
)

// Registry holds registered source creators.
type Registry struct {
	creators []domain.SourceCreator
}

// NewRegistry creates a new creator registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a creator to the registry.
func (r *Registry) Register(c domain.SourceCreator) {
	r.creators = append(r.creators, c)
}

// Match returns the first creator that matches the source, or nil.
func (r *Registry) Match(source string) domain.SourceCreator {
	for _, c := range r.creators {
		if c.Match(source) {
			return c
		}
	}
	return nil
}

// Creators returns all registered creators.
func (r *Registry) Creators() []domain.SourceCreator {
	return r.creators
}

// Create dispatches doc to the first creator matching its source.
func (r *Registry) Create(ctx context.Context, doc domain.Doc) (domain.Resource, error) {
	c := r.Match(doc.Source)
	if c == nil {
		return domain.Resource{}, fmt.Errorf("%w %q", domain.ErrNoCreator, doc.Source)
	}
	return c.Create(ctx, doc)
}
