package configurator

import (
	"gastronomia-be/internal/catalog"
	"gastronomia-be/internal/selection"
)

// GroupSummary is the tab strip entry for one group at the current level.
type GroupSummary struct {
	Group     catalog.ProductGroup `json:"group"`
	Selected  int                  `json:"selected"`
	Remaining int                  `json:"remaining"`
	Satisfied bool                 `json:"satisfied"`
	Hydrated  bool                 `json:"hydrated"`
	Active    bool                 `json:"active"`
}

// GroupSummaries derives the tabs of the current level. It is recomputed on
// every call, so hosts just call it again after Revision changes.
func (s *Session) GroupSummaries() []GroupSummary {
	groups, sels, ok := s.currentLevel()
	if !ok {
		return nil
	}
	out := make([]GroupSummary, len(groups))
	for i, g := range groups {
		total := selection.GroupTotal(sels, g)
		out[i] = GroupSummary{
			Group:     g,
			Selected:  total,
			Remaining: max(g.MaxQuantity-total, 0),
			Satisfied: IsGroupSatisfied(g, sels),
			Hydrated:  g.Hydrated(),
			Active:    i == s.activeGroup,
		}
	}
	return out
}

type ItemView struct {
	Product    *catalog.Product           `json:"product"`
	Selections []selection.SelectedOption `json:"selections"`
	Price      float64                    `json:"price"`
	Valid      bool                       `json:"valid"`
}

// SessionView is a snapshot of everything a client renders.
type SessionView struct {
	ID          string           `json:"id,omitempty"`
	Items       []ItemView       `json:"items"`
	Context     NavContext       `json:"context"`
	ActiveGroup int              `json:"activeGroup"`
	Groups      []GroupSummary   `json:"groups"`
	Expanded    []ExpandedNode   `json:"expanded"`
	Violations  []GroupViolation `json:"violations"`
	Total       float64          `json:"total"`
	Valid       bool             `json:"valid"`
	EditMode    bool             `json:"editMode"`
	Closed      bool             `json:"closed"`
	Revision    uint64           `json:"revision"`
}

func (s *Session) View() SessionView {
	items := make([]ItemView, len(s.items))
	for i, it := range s.items {
		items[i] = ItemView{
			Product:    it.Product,
			Selections: selection.Clone(it.Selections),
			Price:      it.Price(),
			Valid:      s.isItemValid(i),
		}
	}
	violations := s.Violations()
	return SessionView{
		Items:       items,
		Context:     s.Context(),
		ActiveGroup: s.activeGroup,
		Groups:      s.GroupSummaries(),
		Expanded:    s.Expanded(),
		Violations:  violations,
		Total:       s.Total(),
		Valid:       len(violations) == 0,
		EditMode:    s.editMode,
		Closed:      s.closed,
		Revision:    s.Revision(),
	}
}
