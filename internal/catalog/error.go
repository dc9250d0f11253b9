package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrGroupNotFound   = errors.New("product group not found")

	// ErrHydrationFailed matches every *HydrationError.
	ErrHydrationFailed = errors.New("catalog hydration failed")
)

type Kind string

const (
	KindProduct Kind = "product"
	KindGroup   Kind = "group"
)

// HydrationError reports a failed catalog fetch. The entry stays absent from
// the cache so the fetch can be retried.
type HydrationError struct {
	Kind Kind
	ID   int64
	Err  error
}

func (e *HydrationError) Error() string {
	return fmt.Sprintf("failed to hydrate %s %d: %v", e.Kind, e.ID, e.Err)
}

func (e *HydrationError) Unwrap() error {
	return e.Err
}

func (e *HydrationError) Is(target error) bool {
	return target == ErrHydrationFailed
}
