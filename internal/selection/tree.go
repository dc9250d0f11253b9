package selection

import "gastronomia-be/internal/catalog"

// Clone deep-copies a tree.
func Clone(selections []SelectedOption) []SelectedOption {
	if selections == nil {
		return nil
	}
	out := make([]SelectedOption, len(selections))
	for i, s := range selections {
		out[i] = SelectedOption{
			ProductOption:   s.ProductOption,
			Quantity:        s.Quantity,
			SelectedOptions: Clone(s.SelectedOptions),
		}
	}
	return out
}

// GetByPath returns a copy of the node at path, or nil when path is empty or
// out of range.
func GetByPath(selections []SelectedOption, path Path) *SelectedOption {
	if len(path) == 0 {
		return nil
	}

	level := selections
	var node *SelectedOption
	for _, idx := range path {
		if idx < 0 || idx >= len(level) {
			return nil
		}
		node = &level[idx]
		level = node.SelectedOptions
	}

	out := Clone([]SelectedOption{*node})
	return &out[0]
}

func FindIndex(selections []SelectedOption, option catalog.ProductOption) int {
	for i, s := range selections {
		if s.ProductOption.ID == option.ID {
			return i
		}
	}
	return -1
}

// AddOrIncrement adds one unit of option. An existing entry is incremented,
// otherwise a new entry with quantity 1 is appended. The option's own
// MaxQuantity is never exceeded.
func AddOrIncrement(selections []SelectedOption, option catalog.ProductOption) []SelectedOption {
	out := Clone(selections)

	if i := FindIndex(out, option); i >= 0 {
		if out[i].Quantity < option.MaxQuantity {
			out[i].Quantity++
		}
		return out
	}

	if option.MaxQuantity < 1 {
		return out
	}
	return append(out, SelectedOption{
		ProductOption:   option,
		Quantity:        1,
		SelectedOptions: []SelectedOption{},
	})
}

// AddAtPath applies AddOrIncrement to the children of the node at path.
func AddAtPath(selections []SelectedOption, path Path, option catalog.ProductOption) []SelectedOption {
	if len(path) == 0 || !validPath(selections, path) {
		return selections
	}
	return updateAt(selections, path, func(children []SelectedOption) []SelectedOption {
		return AddOrIncrement(children, option)
	})
}

// RemoveAtPath deletes the node at path together with its subtree.
func RemoveAtPath(selections []SelectedOption, path Path) []SelectedOption {
	if len(path) == 0 || !validPath(selections, path) {
		return selections
	}

	parent, last := path[:len(path)-1], path[len(path)-1]
	remove := func(level []SelectedOption) []SelectedOption {
		out := make([]SelectedOption, 0, len(level)-1)
		out = append(out, level[:last]...)
		return append(out, level[last+1:]...)
	}

	if len(parent) == 0 {
		return remove(Clone(selections))
	}
	return updateAt(selections, parent, remove)
}

// updateAt returns a copy of the tree where the children of the node at path
// are replaced by fn(children). path must be valid and non-empty.
func updateAt(selections []SelectedOption, path Path, fn func([]SelectedOption) []SelectedOption) []SelectedOption {
	out := Clone(selections)
	node := &out[path[0]]
	for _, idx := range path[1:] {
		node = &node.SelectedOptions[idx]
	}
	node.SelectedOptions = fn(node.SelectedOptions)
	return out
}

func validPath(selections []SelectedOption, path Path) bool {
	level := selections
	for _, idx := range path {
		if idx < 0 || idx >= len(level) {
			return false
		}
		level = level[idx].SelectedOptions
	}
	return true
}

// OptionQuantity is the quantity already chosen of optionID at this level.
func OptionQuantity(selections []SelectedOption, optionID int64) int {
	for _, s := range selections {
		if s.ProductOption.ID == optionID {
			return s.Quantity
		}
	}
	return 0
}

// GroupTotal sums the quantities at this level whose option belongs to group.
// An unhydrated group has no known options and always totals zero.
func GroupTotal(selections []SelectedOption, group catalog.ProductGroup) int {
	total := 0
	for _, s := range selections {
		if group.HasOption(s.ProductOption.ID) {
			total += s.Quantity
		}
	}
	return total
}

// Walk visits every node in pre-order with its path. Returning false from fn
// skips the node's children.
func Walk(selections []SelectedOption, fn func(path Path, node SelectedOption) bool) {
	walk(selections, nil, fn)
}

func walk(selections []SelectedOption, prefix Path, fn func(Path, SelectedOption) bool) {
	for i, s := range selections {
		p := prefix.Append(i)
		if fn(p, s) {
			walk(s.SelectedOptions, p, fn)
		}
	}
}
