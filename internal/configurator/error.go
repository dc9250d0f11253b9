package configurator

import (
	"errors"
	"fmt"

	"gastronomia-be/internal/selection"
)

var (
	// -- Validation & Input --
	ErrProductRequired      = errors.New("product is required")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrInvalidConfiguration = errors.New("configuration is incomplete")
	ErrOptionNotAvailable   = errors.New("option is not available at the current step")
	ErrNodeNotFound         = errors.New("selection not found")
	ErrInvalidSelection     = errors.New("initial selection does not match the catalog")

	// -- Session State --
	ErrSessionClosed      = errors.New("configuration session already ended")
	ErrSessionNotFound    = errors.New("configuration session not found")
	ErrEditModeRestricted = errors.New("operation not allowed while editing existing selections")
)

// GroupViolation describes one group whose minimum is not met.
type GroupViolation struct {
	ItemIndex   int            `json:"itemIndex"`
	Path        selection.Path `json:"path"`
	GroupID     int64          `json:"groupId"`
	GroupName   string         `json:"groupName"`
	Selected    int            `json:"selected"`
	MinQuantity int            `json:"minQuantity"`
	Hydrated    bool           `json:"hydrated"`
}

// ValidationError is returned by Confirm when the session is not valid.
// It matches ErrInvalidConfiguration.
type ValidationError struct {
	Violations []GroupViolation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %d unsatisfied group(s)", ErrInvalidConfiguration, len(e.Violations))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}
