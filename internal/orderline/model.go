package orderline

import "gastronomia-be/internal/selection"

// Request is one order line for a single configured copy.
type Request struct {
	ProductID  int64            `json:"productId"`
	Quantity   int              `json:"quantity"`
	Selections []selection.Line `json:"selections"`
	Comment    string           `json:"comment,omitempty"`
}

// Copy is one confirmed item of a session.
type Copy struct {
	ProductID  int64
	Selections []selection.SelectedOption
}

// NewRequests turns confirmed copies into one request each, with quantity
// 1, so a failing copy never affects its siblings.
func NewRequests(copies []Copy, comment string) []Request {
	out := make([]Request, len(copies))
	for i, c := range copies {
		out[i] = Request{
			ProductID:  c.ProductID,
			Quantity:   1,
			Selections: selection.Lower(c.Selections),
			Comment:    comment,
		}
	}
	return out
}

// SubmitInput carries a confirmed session to persistence. With
// OrderItemIDs set (edit mode) the selections of those lines are replaced
// instead of creating new lines.
type SubmitInput struct {
	OrderID      int64
	Copies       []Copy
	Comment      string
	OrderItemIDs []int64
}

// Validate checks the input without touching storage, so callers can
// reject a request before committing to it.
func (in SubmitInput) Validate() error {
	if len(in.Copies) == 0 {
		return ErrNothingToSubmit
	}
	if len(in.OrderItemIDs) > 0 {
		if len(in.OrderItemIDs) != len(in.Copies) {
			return ErrItemCountMismatch
		}
		return nil
	}
	if in.OrderID <= 0 {
		return ErrOrderRequired
	}
	return nil
}

type Result struct {
	OrderItemIDs []int64 `json:"orderItemIds"`
	Failed       []int   `json:"failed,omitempty"`
}
