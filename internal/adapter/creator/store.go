package creator

import (
	"context"
	"fmt"

	"github.com/cwygoda/feedhandler/internal/config"
	"github.com/cwygoda/feedhandler/internal/domain"
)

// StoreCreator records a resource directly in the store. It matches every source.
type StoreCreator struct {
	store domain.ResourceStore
}

// NewStoreCreator creates a StoreCreator.
func NewStoreCreator(store domain.ResourceStore) *StoreCreator {
	return &StoreCreator{store: store}
}

func (c *StoreCreator) Name() string { return "store" }

func (c *StoreCreator) Match(source string) bool { return true }

func (c *StoreCreator) Create(ctx context.Context, doc domain.Doc) (domain.Resource, error) {
	return c.store.CreateResource(ctx, doc.APIID, Location(doc))
}

// Location is the resource location used when no command supplies one.
func Location(doc domain.Doc) string {
	return fmt.Sprintf("feed://%s/%d", doc.Source, doc.APIID)
}

// persisted records every resource its inner creator makes.
type persisted struct {
	domain.SourceCreator
	store domain.ResourceStore
}

// Persisted wraps c so created resources are recorded in store. A resource
// already recorded for the api id surfaces as a duplicate.
func Persisted(store domain.ResourceStore, c domain.SourceCreator) domain.SourceCreator {
	return &persisted{SourceCreator: c, store: store}
}

func (p *persisted) Create(ctx context.Context, doc domain.Doc) (domain.Resource, error) {
	res, err := p.SourceCreator.Create(ctx, doc)
	if err != nil {
		return domain.Resource{}, err
	}
	location := res.Location
	if location == "" {
		location = Location(doc)
	}
	return p.store.CreateResource(ctx, doc.APIID, location)
}

// FromConfig builds the registry for the configured creators. Without any
// configured creator every doc is handled by a StoreCreator.
func FromConfig(store domain.ResourceStore, ccs []config.CreatorConfig) (*Registry, error) {
	registry := NewRegistry()
	for _, cc := range ccs {
		c, err := NewCommandCreator(cc)
		if err != nil {
			return nil, fmt.Errorf("creator %q: %w", cc.Name, err)
		}
		registry.Register(Persisted(store, c))
	}
	if len(ccs) == 0 {
		registry.Register(NewStoreCreator(store))
	}
	return registry, nil
}
