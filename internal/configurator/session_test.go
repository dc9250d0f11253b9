package configurator

import (
	"context"
	"errors"
	"testing"

	"gastronomia-be/internal/catalog"
	"gastronomia-be/internal/selection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBegin(t *testing.T) {
	ctx := context.Background()

	t.Run("RequiresProduct", func(t *testing.T) {
		_, err := Begin(ctx, newFakeCatalog(), nil, 1, nil)
		assert.ErrorIs(t, err, ErrProductRequired)
	})

	t.Run("RequiresPositiveQuantity", func(t *testing.T) {
		_, err := Begin(ctx, newFakeCatalog(), simpleBurger(), 0, nil)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("OneItemPerCopy", func(t *testing.T) {
		s := mustBegin(t, newFakeCatalog(), simpleBurger(), 3)

		assert.Equal(t, 3, s.Len())
		assert.False(t, s.EditMode())
		assert.Equal(t, NavContext{Type: ContextOption, ItemIndex: 0}, s.Context())
		for _, it := range s.Items() {
			assert.Equal(t, int64(1), it.Product.ID)
			assert.Empty(t, it.Selections)
		}
	})

	t.Run("HydratesMissingGroupsAndProducts", func(t *testing.T) {
		cat := newFakeCatalog()
		product := &catalog.Product{
			ID: 8, Name: "Wrap", Price: 40, CompositionType: catalog.CompositionSelectable,
			ProductGroups: []catalog.ProductGroup{{ID: 99, Name: "Filling", MinQuantity: 1, MaxQuantity: 1}},
		}
		unknown := option(500, 90, "Falafel", 2, 1)

		s := mustBegin(t, cat, product, 1, []selection.SelectedOption{node(unknown, 1)})

		assert.True(t, s.EditMode())
		assert.Contains(t, cat.groupRequests, int64(99))
		assert.Contains(t, cat.productRequests, int64(90))
	})

	t.Run("EmptyInitialTreesAreNotEditMode", func(t *testing.T) {
		s := mustBegin(t, newFakeCatalog(), simpleBurger(), 2, []selection.SelectedOption{}, nil)
		assert.False(t, s.EditMode())
	})
}

func TestBeginBrowsing(t *testing.T) {
	s := BeginBrowsing(newFakeCatalog())

	assert.Equal(t, NavContext{Type: ContextCategory}, s.Context())
	assert.Zero(t, s.Len())
	assert.Nil(t, s.GroupSummaries())
}

// Product with one exactly-one group: pick the +10 option and confirm.
func TestScenario_SimpleValidConfiguration(t *testing.T) {
	ctx := context.Background()
	s := mustBegin(t, newFakeCatalog(), simpleBurger(), 1)

	applied, err := s.SelectOption(ctx, optLarge)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 110.0, s.Price(0))
	assert.True(t, s.IsValid())
	assert.Equal(t, ContextCategory, s.Context().Type)

	trees, err := s.Confirm()
	require.NoError(t, err)
	assert.Equal(t, [][]selection.SelectedOption{{node(optLarge, 1)}}, trees)
	assert.True(t, s.Closed())
}

func TestScenario_RequiredGroupUnmet(t *testing.T) {
	s := mustBegin(t, newFakeCatalog(), simpleBurger(), 1)

	assert.False(t, IsGroupSatisfied(sizeGroup(), s.Items()[0].Selections))

	trees, err := s.Confirm()
	assert.Nil(t, trees)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Violations, 1)
	assert.Equal(t, GroupViolation{
		ItemIndex:   0,
		GroupID:     10,
		GroupName:   "Size",
		Selected:    0,
		MinQuantity: 1,
		Hydrated:    true,
	}, verr.Violations[0])
	assert.False(t, s.Closed())
}

func TestScenario_NestedRequiredOption(t *testing.T) {
	ctx := context.Background()
	s := mustBegin(t, newFakeCatalog(), simpleBurger(), 1)

	applied, err := s.SelectOption(ctx, optDouble)
	require.NoError(t, err)
	require.True(t, applied)

	assert.Equal(t, NavContext{Type: ContextOption, ItemIndex: 0, OptionPath: selection.Path{0}}, s.Context())
	assert.Equal(t, 0, s.ActiveGroup())

	_, err = s.Confirm()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 1)
	assert.Equal(t, selection.Path{0}, verr.Violations[0].Path)
	assert.Equal(t, int64(20), verr.Violations[0].GroupID)

	_, err = s.SelectOption(ctx, optKetchup)
	require.NoError(t, err)
	assert.Equal(t, ContextCategory, s.Context().Type)
	assert.Equal(t, 120.0, s.Price(0))

	trees, err := s.Confirm()
	require.NoError(t, err)
	assert.Equal(t, [][]selection.SelectedOption{{node(optDouble, 1, node(optKetchup, 1))}}, trees)
}

func TestScenario_AutoNavigationAcrossItems(t *testing.T) {
	ctx := context.Background()
	s := mustBegin(t, newFakeCatalog(), simpleBurger(), 2)

	_, err := s.SelectOption(ctx, optRegular)
	require.NoError(t, err)

	assert.Equal(t, NavContext{Type: ContextOption, ItemIndex: 1}, s.Context())
	assert.Equal(t, 0, s.ActiveGroup())
	assert.True(t, s.IsItemValid(0))
	assert.False(t, s.IsItemValid(1))

	_, err = s.SelectOption(ctx, optLarge)
	require.NoError(t, err)
	assert.Equal(t, ContextCategory, s.Context().Type)
	assert.Equal(t, 210.0, s.Total())
}

func TestScenario_EditModeForbidsItemRemoval(t *testing.T) {
	ctx := context.Background()
	s := mustBegin(t, newFakeCatalog(), simpleBurger(), 2, []selection.SelectedOption{node(optLarge, 1)})

	require.True(t, s.EditMode())
	for _, i := range []int{0, 1, 7, -1} {
		assert.False(t, s.RemoveItem(i))
	}
	assert.Equal(t, 2, s.Len())

	assert.False(t, s.BrowseCatalog())
	added, err := s.AddItem(ctx, 1)
	require.NoError(t, err)
	assert.False(t, added)

	// Completing the last open copy never falls back to browsing.
	require.NoError(t, s.ClickNode(ctx, 1, nil))
	_, err = s.SelectOption(ctx, optRegular)
	require.NoError(t, err)
	assert.Equal(t, NavContext{Type: ContextOption, ItemIndex: 1}, s.Context())
	assert.True(t, s.IsValid())
}

func TestPrice_SumsEveryLevel(t *testing.T) {
	extra := option(1, 10, "Extra", 20, 5)
	sub := option(2, 11, "Sub", 5, 5)
	item := ItemContext{
		Product:    &catalog.Product{ID: 9, Price: 100},
		Selections: []selection.SelectedOption{node(extra, 2, node(sub, 1))},
	}

	assert.Equal(t, 145.0, item.Price())
}

func TestSession_PriceOutOfRange(t *testing.T) {
	s := mustBegin(t, newFakeCatalog(), simpleBurger(), 1)
	assert.Zero(t, s.Price(3))
	assert.Equal(t, 100.0, s.Price(0))
}

func TestSession_Cancel(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	s := mustBegin(t, cat, simpleBurger(), 1)
	require.Equal(t, 1, cat.subscribers())

	require.NoError(t, s.Cancel())
	assert.True(t, s.Closed())
	assert.Zero(t, cat.subscribers())

	assert.ErrorIs(t, s.Cancel(), ErrSessionClosed)
	_, err := s.Confirm()
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = s.SelectOption(ctx, optLarge)
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, s.ClickNode(ctx, 0, nil), ErrSessionClosed)
}

func TestSession_ItemsIsACopy(t *testing.T) {
	s := mustBegin(t, newFakeCatalog(), simpleBurger(), 1, []selection.SelectedOption{node(optLarge, 1)})

	items := s.Items()
	items[0].Selections[0].Quantity = 9

	assert.Equal(t, 1, s.Items()[0].Selections[0].Quantity)
}

// A nested product that has not arrived yet counts as having nothing to
// configure. Once it arrives its required group makes the item invalid.
func TestSession_LateProductHydration(t *testing.T) {
	cat := newFakeCatalog()
	falafel := option(500, 90, "Falafel", 2, 1)
	cat.remote[90] = &catalog.Product{
		ID: 90, Name: "Falafel", CompositionType: catalog.CompositionSelectable,
		ProductGroups: []catalog.ProductGroup{{ID: 21, Name: "Dressing", MinQuantity: 1, MaxQuantity: 1}},
	}

	s := mustBegin(t, cat, simpleBurger(), 1, []selection.SelectedOption{node(optLarge, 1, node(falafel, 1))})
	require.Contains(t, cat.productRequests, int64(90))
	assert.True(t, s.IsValid())
	assert.Zero(t, s.Revision())

	cat.deliverProduct(cat.remote[90])

	assert.Equal(t, uint64(1), s.Revision())
	assert.Contains(t, cat.groupRequests, int64(21))
	assert.False(t, s.IsValid())

	violations := s.Violations()
	require.Len(t, violations, 1)
	assert.Equal(t, selection.Path{0, 0}, violations[0].Path)
	assert.False(t, violations[0].Hydrated)

	cat.deliverGroup(catalog.ProductGroup{
		ID: 21, Name: "Dressing", MinQuantity: 1, MaxQuantity: 1,
		Options: []catalog.ProductOption{option(510, 60, "Tahini", 0, 1)},
	})
	assert.Equal(t, uint64(2), s.Revision())
	assert.True(t, s.Violations()[0].Hydrated)
}

func TestSession_IgnoresEventsAfterClose(t *testing.T) {
	cat := newFakeCatalog()
	s := mustBegin(t, cat, simpleBurger(), 1)
	require.NoError(t, s.Cancel())

	cat.deliverProduct(simple(77, "Fries"))
	assert.Zero(t, s.Revision())
}

func TestSession_GroupSummaries(t *testing.T) {
	ctx := context.Background()
	s := mustBegin(t, newFakeCatalog(), comboBurger(), 1)

	sums := s.GroupSummaries()
	require.Len(t, sums, 2)
	assert.Equal(t, "Size", sums[0].Group.Name)
	assert.True(t, sums[0].Active)
	assert.True(t, sums[0].Hydrated)
	assert.False(t, sums[0].Satisfied)
	assert.Equal(t, 1, sums[0].Remaining)
	assert.True(t, sums[1].Satisfied)
	assert.False(t, sums[1].Active)

	_, err := s.SelectOption(ctx, optRegular)
	require.NoError(t, err)

	sums = s.GroupSummaries()
	assert.Equal(t, 1, sums[0].Selected)
	assert.Zero(t, sums[0].Remaining)
	assert.True(t, sums[0].Satisfied)
	assert.True(t, sums[1].Active)
}

func TestSession_GroupSummariesUnhydrated(t *testing.T) {
	cat := newFakeCatalog()
	cat.forgetGroup(10)
	s := mustBegin(t, cat, simpleBurger(), 1)

	sums := s.GroupSummaries()
	require.Len(t, sums, 1)
	assert.False(t, sums[0].Hydrated)
	assert.False(t, sums[0].Satisfied)
	assert.Contains(t, cat.groupRequests, int64(10))
	assert.Equal(t, ErrOptionNotAvailable, func() error {
		_, err := s.SelectOption(context.Background(), optLarge)
		return err
	}())
}

func TestSession_View(t *testing.T) {
	ctx := context.Background()
	s := mustBegin(t, newFakeCatalog(), simpleBurger(), 2)
	_, err := s.SelectOption(ctx, optLarge)
	require.NoError(t, err)

	v := s.View()
	require.Len(t, v.Items, 2)
	assert.Equal(t, 110.0, v.Items[0].Price)
	assert.True(t, v.Items[0].Valid)
	assert.False(t, v.Items[1].Valid)
	assert.Equal(t, 210.0, v.Total)
	assert.False(t, v.Valid)
	assert.Len(t, v.Violations, 1)
	assert.Equal(t, 1, v.Context.ItemIndex)
	assert.Equal(t, []ExpandedNode{{ItemIndex: 0}}, v.Expanded)
}
