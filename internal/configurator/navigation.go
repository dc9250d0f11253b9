package configurator

import (
	"context"
	"slices"

	"gastronomia-be/internal/catalog"
	"gastronomia-be/internal/selection"
)

// currentLevel returns the groups and selections edited in the current
// context. ok is false in category mode or when the context no longer
// points at a node.
func (s *Session) currentLevel() (groups []catalog.ProductGroup, sels []selection.SelectedOption, ok bool) {
	c := s.current
	if c.Type != ContextOption || !s.validItem(c.ItemIndex) {
		return nil, nil, false
	}
	item := s.items[c.ItemIndex]
	if len(c.OptionPath) == 0 {
		return s.resolveGroups(item.Product), item.Selections, true
	}
	node := selection.GetByPath(item.Selections, c.OptionPath)
	if node == nil {
		return nil, nil, false
	}
	return s.nodeGroups(*node), node.SelectedOptions, true
}

// locateOption finds the group at the current level offering optionID,
// preferring the active tab.
func (s *Session) locateOption(groups []catalog.ProductGroup, optionID int64) (int, catalog.ProductOption, bool) {
	if s.activeGroup < len(groups) {
		if o, ok := groups[s.activeGroup].Option(optionID); ok {
			return s.activeGroup, o, true
		}
	}
	for i, g := range groups {
		if o, ok := g.Option(optionID); ok {
			return i, o, true
		}
	}
	return -1, catalog.ProductOption{}, false
}

// FindOption looks optionID up among the hydrated groups of the current
// level.
func (s *Session) FindOption(optionID int64) (catalog.ProductOption, bool) {
	groups, _, ok := s.currentLevel()
	if !ok {
		return catalog.ProductOption{}, false
	}
	_, o, found := s.locateOption(groups, optionID)
	return o, found
}

// SelectOption adds one unit of option at the current level. It returns
// false without changing anything when the group or the option is already
// at capacity.
func (s *Session) SelectOption(ctx context.Context, option catalog.ProductOption) (bool, error) {
	if s.closed {
		return false, ErrSessionClosed
	}
	groups, sels, ok := s.currentLevel()
	if !ok {
		return false, ErrOptionNotAvailable
	}
	groupIndex, opt, found := s.locateOption(groups, option.ID)
	if !found {
		return false, ErrOptionNotAvailable
	}

	group := groups[groupIndex]
	if group.MaxQuantity-selection.GroupTotal(sels, group) <= 0 {
		return false, nil
	}
	if selection.OptionQuantity(sels, opt.ID) >= opt.MaxQuantity {
		return false, nil
	}

	c := s.current
	item := &s.items[c.ItemIndex]
	var level []selection.SelectedOption
	if len(c.OptionPath) == 0 {
		item.Selections = selection.AddOrIncrement(item.Selections, opt)
		level = item.Selections
	} else {
		item.Selections = selection.AddAtPath(item.Selections, c.OptionPath, opt)
		level = selection.GetByPath(item.Selections, c.OptionPath).SelectedOptions
	}
	s.autoExpand(c.ItemIndex, c.OptionPath)
	s.activeGroup = groupIndex

	child := c.OptionPath.Append(selection.FindIndex(level, opt))
	if p, cached := s.catalog.CachedProduct(opt.ProductID); cached && p.RequiresConfiguration() {
		s.current.OptionPath = child
		s.activeGroup = 0
		s.catalog.HydrateGroups(p.GroupIDs()...)
		return true, nil
	}

	// Unknown products are fetched in the background and treated as having
	// nothing to configure for now.
	s.hydrateOptionProduct(opt.ProductID)
	s.autoNavigate()
	return true, nil
}

// autoNavigate moves to the next place that still takes selections: a
// later tab at this level, then the parent levels, then another item.
func (s *Session) autoNavigate() {
	for {
		groups, sels, ok := s.currentLevel()
		if !ok {
			return
		}
		for t := s.activeGroup + 1; t < len(groups); t++ {
			if selection.GroupTotal(sels, groups[t]) < groups[t].MaxQuantity {
				s.activeGroup = t
				return
			}
		}

		path := s.current.OptionPath
		if len(path) == 0 {
			break
		}
		optionID := selection.GetByPath(s.items[s.current.ItemIndex].Selections, path).ProductOption.ID
		s.current.OptionPath = path.Parent()
		s.activeGroup = 0
		if parentGroups, _, ok := s.currentLevel(); ok {
			if i, _, found := s.locateOption(parentGroups, optionID); found {
				s.activeGroup = i
			}
		}
	}

	if !s.isItemValid(s.current.ItemIndex) {
		return
	}
	if next := s.nextIncompleteItem(); next >= 0 {
		s.current = NavContext{Type: ContextOption, ItemIndex: next}
		s.activeGroup = 0
		return
	}
	if s.editMode {
		return
	}
	s.current = NavContext{Type: ContextCategory}
	s.activeGroup = 0
}

// nextIncompleteItem searches the other items, forward from the current one
// and wrapping around, for one that needs configuration and is not valid.
func (s *Session) nextIncompleteItem() int {
	n := len(s.items)
	for k := 1; k < n; k++ {
		j := (s.current.ItemIndex + k) % n
		if s.items[j].Product.RequiresConfiguration() && !s.isItemValid(j) {
			return j
		}
	}
	return -1
}

// ClickNode re-opens the editing context of an item (empty path) or of a
// nested selection. It does nothing when the product behind the node has no
// groups.
func (s *Session) ClickNode(ctx context.Context, itemIndex int, path selection.Path) error {
	if s.closed {
		return ErrSessionClosed
	}
	if !s.validItem(itemIndex) {
		return ErrNodeNotFound
	}

	product := s.items[itemIndex].Product
	if len(path) > 0 {
		node := selection.GetByPath(s.items[itemIndex].Selections, path)
		if node == nil {
			return ErrNodeNotFound
		}
		p, err := s.catalog.GetProduct(ctx, node.ProductOption.ProductID)
		if err != nil {
			return err
		}
		product = p
	}
	if !product.IsConfigurable() {
		return nil
	}

	s.current = NavContext{Type: ContextOption, ItemIndex: itemIndex}
	if len(path) > 0 {
		s.current.OptionPath = append(selection.Path{}, path...)
	}
	s.activeGroup = 0
	s.catalog.HydrateGroups(product.GroupIDs()...)
	return nil
}

// BrowseCatalog returns to category browsing. Not available in edit mode.
func (s *Session) BrowseCatalog() bool {
	if s.closed || s.editMode {
		return false
	}
	s.current = NavContext{Type: ContextCategory}
	s.activeGroup = 0
	return true
}

// SelectTab makes group index the active tab at the current level and
// requests its options if they are missing.
func (s *Session) SelectTab(index int) bool {
	if s.closed {
		return false
	}
	groups, _, ok := s.currentLevel()
	if !ok || index < 0 || index >= len(groups) {
		return false
	}
	s.activeGroup = index
	if !groups[index].Hydrated() {
		s.catalog.HydrateGroups(groups[index].ID)
	}
	return true
}

// AddItem appends a new copy of productID while browsing. Configurable
// products are opened right away.
func (s *Session) AddItem(ctx context.Context, productID int64) (bool, error) {
	if s.closed {
		return false, ErrSessionClosed
	}
	if s.editMode {
		return false, nil
	}
	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return false, err
	}

	s.items = append(s.items, ItemContext{Product: p, Selections: []selection.SelectedOption{}})
	if p.IsConfigurable() {
		s.current = NavContext{Type: ContextOption, ItemIndex: len(s.items) - 1}
		s.activeGroup = 0
		s.catalog.HydrateGroups(p.GroupIDs()...)
	}
	return true, nil
}

// RemoveItem drops a whole item. Not available in edit mode.
func (s *Session) RemoveItem(index int) bool {
	if s.closed || s.editMode || !s.validItem(index) {
		return false
	}
	s.items = slices.Delete(s.items, index, index+1)

	s.rekeyExpanded(func(k nodeKey) (nodeKey, bool) {
		switch {
		case k.item == index:
			return k, false
		case k.item > index:
			k.item--
		}
		return k, true
	})

	switch {
	case len(s.items) == 0:
		s.current = NavContext{Type: ContextCategory}
		s.activeGroup = 0
	case s.current.Type != ContextOption:
	case s.current.ItemIndex == index:
		s.current = NavContext{Type: ContextOption, ItemIndex: min(index, len(s.items)-1)}
		s.activeGroup = 0
	case s.current.ItemIndex > index:
		s.current.ItemIndex--
	}
	return true
}

// RemoveOption deletes the selection at path and its subtree.
func (s *Session) RemoveOption(itemIndex int, path selection.Path) bool {
	if s.closed || !s.validItem(itemIndex) || len(path) == 0 {
		return false
	}
	if selection.GetByPath(s.items[itemIndex].Selections, path) == nil {
		return false
	}
	s.items[itemIndex].Selections = selection.RemoveAtPath(s.items[itemIndex].Selections, path)

	s.rekeyExpanded(func(k nodeKey) (nodeKey, bool) {
		if k.item != itemIndex {
			return k, true
		}
		p, _ := selection.ParsePath(k.path)
		moved, ok := readdress(p, path)
		k.path = moved.String()
		return k, ok
	})

	c := s.current
	if c.Type == ContextOption && c.ItemIndex == itemIndex && len(c.OptionPath) > 0 {
		if moved, ok := readdress(c.OptionPath, path); ok {
			s.current.OptionPath = moved
		} else {
			s.current.OptionPath = path.Parent()
			s.activeGroup = 0
		}
	}
	return true
}

// readdress maps p to the path of the same node after removed is deleted.
// ok is false when p was inside the removed subtree.
func readdress(p, removed selection.Path) (selection.Path, bool) {
	if p.HasPrefix(removed) {
		return nil, false
	}
	depth := len(removed) - 1
	if len(p) <= depth || !p[:depth].Equal(removed[:depth]) || p[depth] < removed[depth] {
		return p, true
	}
	out := append(selection.Path{}, p...)
	out[depth]--
	return out, true
}

func (s *Session) rekeyExpanded(fn func(nodeKey) (nodeKey, bool)) {
	for _, set := range []*map[nodeKey]struct{}{&s.expanded, &s.autoExpanded} {
		next := make(map[nodeKey]struct{}, len(*set))
		for k := range *set {
			if nk, ok := fn(k); ok {
				next[nk] = struct{}{}
			}
		}
		*set = next
	}
}

// autoExpand opens a node the first time it gains a selection. A node the
// user collapsed afterwards stays collapsed.
func (s *Session) autoExpand(itemIndex int, path selection.Path) {
	k := nodeKey{item: itemIndex, path: path.String()}
	if _, seen := s.autoExpanded[k]; seen {
		return
	}
	s.autoExpanded[k] = struct{}{}
	s.expanded[k] = struct{}{}
}

// ToggleExpanded flips the presentation state of an item or nested node.
func (s *Session) ToggleExpanded(itemIndex int, path selection.Path) bool {
	if !s.validItem(itemIndex) {
		return false
	}
	if len(path) > 0 && selection.GetByPath(s.items[itemIndex].Selections, path) == nil {
		return false
	}
	k := nodeKey{item: itemIndex, path: path.String()}
	if _, open := s.expanded[k]; open {
		delete(s.expanded, k)
	} else {
		s.expanded[k] = struct{}{}
	}
	return true
}

type ExpandedNode struct {
	ItemIndex int            `json:"itemIndex"`
	Path      selection.Path `json:"path"`
}

// Expanded lists the open nodes ordered by item and path.
func (s *Session) Expanded() []ExpandedNode {
	out := make([]ExpandedNode, 0, len(s.expanded))
	for k := range s.expanded {
		p, _ := selection.ParsePath(k.path)
		out = append(out, ExpandedNode{ItemIndex: k.item, Path: p})
	}
	slices.SortFunc(out, func(a, b ExpandedNode) int {
		if a.ItemIndex != b.ItemIndex {
			return a.ItemIndex - b.ItemIndex
		}
		return slices.Compare(a.Path, b.Path)
	})
	return out
}
