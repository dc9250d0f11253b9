package configurator

import (
	"context"
	"fmt"

	"gastronomia-be/internal/catalog"
	"gastronomia-be/internal/selection"
)

// ResolveSelections rebuilds a caller-supplied tree for product from the
// catalog. Options are looked up by id so prices and limits always come
// from the catalog. An option the product does not offer, a repeated
// option, or a quantity above the option's or the group's maximum fails
// with ErrInvalidSelection.
func ResolveSelections(
	ctx context.Context,
	cat Catalog,
	product *catalog.Product,
	sels []selection.SelectedOption,
) ([]selection.SelectedOption, error) {
	out := make([]selection.SelectedOption, 0, len(sels))
	if len(sels) == 0 {
		return out, nil
	}
	if !product.IsConfigurable() {
		return nil, fmt.Errorf("%w: product %d takes no options", ErrInvalidSelection, product.ID)
	}

	groups := make([]*catalog.ProductGroup, len(product.ProductGroups))
	for i, g := range product.ProductGroups {
		hydrated, err := cat.GetGroup(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		groups[i] = hydrated
	}

	totals := make([]int, len(groups))
	seen := make(map[int64]struct{}, len(sels))
	for _, sel := range sels {
		id := sel.ProductOption.ID
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: option %d repeated", ErrInvalidSelection, id)
		}
		seen[id] = struct{}{}

		gi, opt, found := findInGroups(groups, id)
		if !found {
			return nil, fmt.Errorf("%w: option %d not offered by product %d", ErrInvalidSelection, id, product.ID)
		}
		if sel.Quantity < 1 || sel.Quantity > opt.MaxQuantity {
			return nil, fmt.Errorf("%w: option %d quantity %d outside 1..%d",
				ErrInvalidSelection, id, sel.Quantity, opt.MaxQuantity)
		}
		totals[gi] += sel.Quantity
		if totals[gi] > groups[gi].MaxQuantity {
			return nil, fmt.Errorf("%w: group %d exceeds %d", ErrInvalidSelection, groups[gi].ID, groups[gi].MaxQuantity)
		}

		children := []selection.SelectedOption{}
		if len(sel.SelectedOptions) > 0 {
			child, err := cat.GetProduct(ctx, opt.ProductID)
			if err != nil {
				return nil, err
			}
			if children, err = ResolveSelections(ctx, cat, child, sel.SelectedOptions); err != nil {
				return nil, err
			}
		}

		out = append(out, selection.SelectedOption{
			ProductOption:   opt,
			Quantity:        sel.Quantity,
			SelectedOptions: children,
		})
	}
	return out, nil
}

func findInGroups(groups []*catalog.ProductGroup, optionID int64) (int, catalog.ProductOption, bool) {
	for i, g := range groups {
		if o, ok := g.Option(optionID); ok {
			return i, o, true
		}
	}
	return -1, catalog.ProductOption{}, false
}
