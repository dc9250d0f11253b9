package selection

// Line is the persisted form of a SelectedOption: only ids and quantities.
type Line struct {
	ProductOptionID int64  `json:"productOptionId"`
	Quantity        int    `json:"quantity"`
	SelectedOptions []Line `json:"selectedOptions"`
}

// Lower strips a tree down to Lines.
func Lower(selections []SelectedOption) []Line {
	out := make([]Line, 0, len(selections))
	for _, s := range selections {
		out = append(out, Line{
			ProductOptionID: s.ProductOption.ID,
			Quantity:        s.Quantity,
			SelectedOptions: Lower(s.SelectedOptions),
		})
	}
	return out
}
