package catalog

type CompositionType string

const (
	CompositionSimple          CompositionType = "SIMPLE"
	CompositionSelectable      CompositionType = "SELECTABLE"
	CompositionFixedSelectable CompositionType = "FIXED_SELECTABLE"
)

// Product is a catalog entry. Products are immutable once fetched and are
// shared through the Cache, so callers must not modify them.
type Product struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Price           float64         `json:"price"`
	CompositionType CompositionType `json:"compositionType"`
	ProductGroups   []ProductGroup  `json:"productGroups"`
}

// IsConfigurable reports whether the product takes part in the recursive
// configuration flow.
func (p *Product) IsConfigurable() bool {
	if p == nil || len(p.ProductGroups) == 0 {
		return false
	}
	return p.CompositionType == CompositionSelectable ||
		p.CompositionType == CompositionFixedSelectable
}

// RequiresConfiguration reports whether at least one group must be filled
// before the product is complete.
func (p *Product) RequiresConfiguration() bool {
	if !p.IsConfigurable() {
		return false
	}
	for _, g := range p.ProductGroups {
		if g.MinQuantity > 0 {
			return true
		}
	}
	return false
}

// GroupIDs lists the ids of the product's groups in display order.
func (p *Product) GroupIDs() []int64 {
	if p == nil {
		return nil
	}
	ids := make([]int64, 0, len(p.ProductGroups))
	for _, g := range p.ProductGroups {
		ids = append(ids, g.ID)
	}
	return ids
}

// ProductGroup is a constraint bucket over its options. A group fetched as
// part of a product is shallow (no options); GetGroup returns it hydrated.
type ProductGroup struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	MinQuantity int             `json:"minQuantity"`
	MaxQuantity int             `json:"maxQuantity"`
	Options     []ProductOption `json:"options,omitempty"`
}

func (g ProductGroup) Hydrated() bool {
	return len(g.Options) > 0
}

func (g ProductGroup) HasOption(optionID int64) bool {
	_, ok := g.Option(optionID)
	return ok
}

func (g ProductGroup) Option(optionID int64) (ProductOption, bool) {
	for _, o := range g.Options {
		if o.ID == optionID {
			return o, true
		}
	}
	return ProductOption{}, false
}

// ProductOption is one choice inside a group. ProductID points at the
// product the option stands for, which may itself be configurable.
type ProductOption struct {
	ID            int64   `json:"id"`
	ProductID     int64   `json:"productId"`
	ProductName   string  `json:"productName"`
	MaxQuantity   int     `json:"maxQuantity"`
	PriceIncrease float64 `json:"priceIncrease"`
}
