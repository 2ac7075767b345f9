package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDoc       = errors.New("invalid doc")
	ErrDocNotFound      = errors.New("doc not found")
	ErrResourceNotFound = errors.New("resource not found")
	ErrNoCreator        = errors.New("no creator for source")
	ErrCreatorPanic     = errors.New("creator panicked")
)

// ErrorKind classifies resource creation failures.
type ErrorKind int

const (
	KindUnclassified ErrorKind = iota
	KindDuplicateResource
	KindSpecialCondition
)

func (k ErrorKind) String() string {
	switch k {
	case KindDuplicateResource:
		return "duplicate_resource"
	case KindSpecialCondition:
		return "special_condition"
	default:
		return "unclassified"
	}
}

// CreateError is a resource creation failure tagged with its kind.
type CreateError struct {
	Kind  ErrorKind
	APIID int64
	Err   error
}

func (e *CreateError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s for api id %d", e.Kind, e.APIID)
	}
	return fmt.Sprintf("%s for api id %d: %v", e.Kind, e.APIID, e.Err)
}

func (e *CreateError) Unwrap() error {
	return e.Err
}

// DuplicateResource reports that a resource for apiID already exists.
func DuplicateResource(apiID int64, cause error) error {
	return &CreateError{Kind: KindDuplicateResource, APIID: apiID, Err: cause}
}

// SpecialCondition reports the recoverable special case for apiID.
func SpecialCondition(apiID int64, cause error) error {
	return &CreateError{Kind: KindSpecialCondition, APIID: apiID, Err: cause}
}

// KindOf returns the kind of the first CreateError in err's chain.
func KindOf(err error) ErrorKind {
	var ce *CreateError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnclassified
}
