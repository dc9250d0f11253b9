// Package selection holds the choice tree a user builds while configuring a
// product, and the pure path-addressed functions that edit it.
//
// Every function returns a new tree and leaves its input untouched. Invalid
// paths never fail: reads return nil and writes return the input unchanged.
package selection

import (
	"strconv"
	"strings"

	"gastronomia-be/internal/catalog"
)

// SelectedOption is a node of the choice tree. SelectedOptions holds the
// choices made inside the option's own product.
type SelectedOption struct {
	ProductOption   catalog.ProductOption `json:"productOption"`
	Quantity        int                   `json:"quantity"`
	SelectedOptions []SelectedOption      `json:"selectedOptions"`
}

// Path addresses a node by the index taken at every level, starting from the
// root selections of an item.
type Path []int

// Parent returns the path one level up, nil for root-level nodes.
func (p Path) Parent() Path {
	if len(p) <= 1 {
		return nil
	}
	return p.clone()[:len(p)-1]
}

// Append returns a new path extended by i; p is not modified.
func (p Path) Append(i int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, i)
}

func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (p Path) Equal(o Path) bool {
	return len(p) == len(o) && p.HasPrefix(o)
}

// String renders the path as "0/2/1"; the empty path renders as "".
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, "/")
}

func (p Path) clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// ParsePath is the inverse of Path.String.
func ParsePath(s string) (Path, bool) {
	if s == "" {
		return nil, true
	}
	parts := strings.Split(s, "/")
	out := make(Path, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}
