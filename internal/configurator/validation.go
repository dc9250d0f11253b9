package configurator

import (
	"gastronomia-be/internal/catalog"
	"gastronomia-be/internal/selection"
)

// IsGroupSatisfied reports whether selections meet group's minimum. An
// unhydrated group is only satisfied when it is optional. The maximum is
// enforced when selecting, so it is not rechecked here.
func IsGroupSatisfied(group catalog.ProductGroup, selections []selection.SelectedOption) bool {
	if !group.Hydrated() {
		return group.MinQuantity == 0
	}
	return selection.GroupTotal(selections, group) >= group.MinQuantity
}

// resolveGroups returns p's groups, replacing shallow groups with their
// hydrated cache entries. Non-configurable and unknown products have none.
func (s *Session) resolveGroups(p *catalog.Product) []catalog.ProductGroup {
	if !p.IsConfigurable() {
		return nil
	}
	out := make([]catalog.ProductGroup, len(p.ProductGroups))
	for i, g := range p.ProductGroups {
		if hydrated, ok := s.catalog.CachedGroup(g.ID); ok {
			out[i] = *hydrated
		} else {
			out[i] = g
		}
	}
	return out
}

// nodeGroups resolves the groups of the product behind node. A product that
// is not cached yet is treated as having no groups; one whose fetch failed
// is reported by inspectLevel instead.
func (s *Session) nodeGroups(node selection.SelectedOption) []catalog.ProductGroup {
	p, _ := s.catalog.CachedProduct(node.ProductOption.ProductID)
	return s.resolveGroups(p)
}

// inspectLevel checks groups against sels and then every child node,
// calling visit for each unsatisfied group. It stops and returns false as
// soon as visit returns false.
func (s *Session) inspectLevel(
	itemIndex int,
	path selection.Path,
	groups []catalog.ProductGroup,
	sels []selection.SelectedOption,
	visit func(GroupViolation) bool,
) bool {
	for _, g := range groups {
		if IsGroupSatisfied(g, sels) {
			continue
		}
		v := GroupViolation{
			ItemIndex:   itemIndex,
			Path:        path,
			GroupID:     g.ID,
			GroupName:   g.Name,
			Selected:    selection.GroupTotal(sels, g),
			MinQuantity: g.MinQuantity,
			Hydrated:    g.Hydrated(),
		}
		if !visit(v) {
			return false
		}
	}

	for i, child := range sels {
		childPath := path.Append(i)
		if s.hydrationFailed(child.ProductOption.ProductID) {
			v := GroupViolation{
				ItemIndex: itemIndex,
				Path:      childPath,
				GroupName: child.ProductOption.ProductName,
			}
			if !visit(v) {
				return false
			}
			continue
		}
		if !s.inspectLevel(itemIndex, childPath, s.nodeGroups(child), child.SelectedOptions, visit) {
			return false
		}
	}
	return true
}

func (s *Session) isItemValid(itemIndex int) bool {
	item := s.items[itemIndex]
	valid := true
	s.inspectLevel(itemIndex, nil, s.resolveGroups(item.Product), item.Selections, func(GroupViolation) bool {
		valid = false
		return false
	})
	return valid
}

// IsNodeValid reports whether the node at path of item itemIndex and its
// whole subtree are complete.
func (s *Session) IsNodeValid(itemIndex int, path selection.Path) bool {
	if !s.validItem(itemIndex) {
		return false
	}
	node := selection.GetByPath(s.items[itemIndex].Selections, path)
	if node == nil {
		return false
	}
	valid := true
	s.inspectLevel(itemIndex, path, s.nodeGroups(*node), node.SelectedOptions, func(GroupViolation) bool {
		valid = false
		return false
	})
	return valid
}

func (s *Session) IsItemValid(itemIndex int) bool {
	return s.validItem(itemIndex) && s.isItemValid(itemIndex)
}

// IsValid is true when every item is complete. It gates Confirm.
func (s *Session) IsValid() bool {
	for i := range s.items {
		if !s.isItemValid(i) {
			return false
		}
	}
	return true
}

// Violations lists every unsatisfied group across all items.
func (s *Session) Violations() []GroupViolation {
	var out []GroupViolation
	for i, item := range s.items {
		s.inspectLevel(i, nil, s.resolveGroups(item.Product), item.Selections, func(v GroupViolation) bool {
			out = append(out, v)
			return true
		})
	}
	return out
}
