package domain

import (
	"fmt"
	"time"
)

// TypeImportant is the only document type the feed handler acts on.
const TypeImportant = "important"

// DocStatus represents the processing state of a document.
type DocStatus string

const (
	StatusPending    DocStatus = "pending"
	StatusProcessing DocStatus = "processing"
	StatusProcessed  DocStatus = "processed"
	StatusFailed     DocStatus = "failed"
	StatusSkipped    DocStatus = "skipped"
)

// Doc is a unit of work received from a feed.
type Doc struct {
	ID        int64
	Type      string
	APIID     int64
	Source    string
	Status    DocStatus
	Resource  *Resource
	Err       error
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsImportant reports whether the feed handler should create a resource for the doc.
func (d Doc) IsImportant() bool {
	return d.Type == TypeImportant
}

// Validate checks the fields a doc needs before it can be stored.
func (d Doc) Validate() error {
	if d.Type == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidDoc)
	}
	if d.APIID <= 0 {
		return fmt.Errorf("%w: api_id must be positive", ErrInvalidDoc)
	}
	return nil
}

// WithProcessed returns a copy of the doc marked processed with r attached.
func (d Doc) WithProcessed(r Resource) Doc {
	d.Status = StatusProcessed
	d.Resource = &r
	d.Err = nil
	return d
}

// WithFailed returns a copy of the doc marked failed with err attached.
func (d Doc) WithFailed(err error) Doc {
	d.Status = StatusFailed
	d.Resource = nil
	d.Err = err
	return d
}

// Resource is the downstream artifact created for an important doc.
// The zero value is the placeholder resource.
type Resource struct {
	ID        int64
	APIID     int64
	Location  string
	CreatedAt time.Time
}

// IsZero reports whether r is the placeholder resource.
func (r Resource) IsZero() bool {
	return r == Resource{}
}
