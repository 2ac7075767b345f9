package domain

import "context"

// DocService orchestrates stored doc operations.
type DocService struct {
	repo DocRepository
}

// NewDocService creates a new DocService.
func NewDocService(repo DocRepository) *DocService {
	return &DocService{repo: repo}
}

// Submit validates doc and stores it as pending.
func (s *DocService) Submit(ctx context.Context, doc Doc) (*Doc, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, doc)
}

// Get retrieves a doc by ID.
func (s *DocService) Get(ctx context.Context, id int64) (*Doc, error) {
	return s.repo.Get(ctx, id)
}

// GetPending retrieves pending docs up to the limit, oldest first.
func (s *DocService) GetPending(ctx context.Context, limit int) ([]Doc, error) {
	return s.repo.FindPending(ctx, limit)
}

// MarkProcessing claims a doc for processing.
func (s *DocService) MarkProcessing(ctx context.Context, id int64) error {
	return s.repo.Claim(ctx, id)
}

// MarkProcessed records a processed doc. resourceID is zero for placeholder resources.
func (s *DocService) MarkProcessed(ctx context.Context, id int64, resourceID int64) error {
	return s.repo.Complete(ctx, id, resourceID)
}

// MarkFailed records a failed doc.
func (s *DocService) MarkFailed(ctx context.Context, id int64, reason string) error {
	return s.repo.Fail(ctx, id, reason)
}

// MarkSkipped records a doc the feed handler did not act on.
func (s *DocService) MarkSkipped(ctx context.Context, id int64) error {
	return s.repo.Skip(ctx, id)
}

// RecoverStale resets docs left in processing (crash recovery).
func (s *DocService) RecoverStale(ctx context.Context) (int64, error) {
	return s.repo.RecoverStale(ctx)
}
