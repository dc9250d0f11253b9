package orderline

import "errors"

var (
	ErrOrderRequired     = errors.New("order id is required")
	ErrNothingToSubmit   = errors.New("no configured copies to submit")
	ErrProductNotFound   = errors.New("product or option no longer exists")
	ErrOrderItemNotFound = errors.New("order item not found")
	ErrItemCountMismatch = errors.New("order item ids do not match the number of copies")
)

// foreign_key_violation
const pqForeignKeyViolation = "23503"
