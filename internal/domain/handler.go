package domain

import (
	"context"
	"fmt"
)

type recoverFunc func(ctx context.Context, doc Doc, cause error) (Resource, error)

// FeedHandler turns a batch of feed docs into terminal outcome docs.
//
// Only important docs are emitted, in input order, each either processed
// (with its resource) or failed (with the creation error). Duplicate and
// special-condition failures are recovered before a doc is marked failed.
type FeedHandler struct {
	resources  ResourceRepository
	recoverers map[ErrorKind]recoverFunc
}

// NewFeedHandler creates a FeedHandler that resolves duplicates through resources.
func NewFeedHandler(resources ResourceRepository) *FeedHandler {
	h := &FeedHandler{resources: resources}
	h.recoverers = map[ErrorKind]recoverFunc{
		KindDuplicateResource: h.recoverDuplicate,
		KindSpecialCondition:  recoverSpecial,
	}
	return h
}

// Handle processes docs in order and never fails as a whole.
func (h *FeedHandler) Handle(ctx context.Context, docs []Doc, creator ResourceCreator) []Doc {
	out := make([]Doc, 0, len(docs))
	for _, doc := range docs {
		if !doc.IsImportant() {
			continue
		}
		out = append(out, h.handleDoc(ctx, doc, creator))
	}
	return out
}

func (h *FeedHandler) handleDoc(ctx context.Context, doc Doc, creator ResourceCreator) Doc {
	res, err := create(ctx, doc, creator)
	if err != nil {
		res, err = h.recoverFrom(ctx, doc, err)
	}
	if err != nil {
		return doc.WithFailed(err)
	}
	return doc.WithProcessed(res)
}

func (h *FeedHandler) recoverFrom(ctx context.Context, doc Doc, cause error) (Resource, error) {
	fn, ok := h.recoverers[KindOf(cause)]
	if !ok {
		return Resource{}, cause
	}
	return fn(ctx, doc, cause)
}

func (h *FeedHandler) recoverDuplicate(ctx context.Context, doc Doc, cause error) (Resource, error) {
	res, err := h.resources.FindByID(ctx, doc.APIID)
	if err != nil {
		return Resource{}, fmt.Errorf("%w: lookup existing resource: %w", cause, err)
	}
	return res, nil
}

// TODO: replace the placeholder once the special-condition resource has a defined shape.
func recoverSpecial(ctx context.Context, doc Doc, cause error) (Resource, error) {
	return Resource{}, nil
}

// create calls the creator, turning a panic into an unclassified failure.
func create(ctx context.Context, doc Doc, creator ResourceCreator) (res Resource, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = Resource{}, fmt.Errorf("%w: %v", ErrCreatorPanic, r)
		}
	}()
	return creator.Create(ctx, doc)
}
