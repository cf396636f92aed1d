package view

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kalambet/glowkit/internal/catalog"
	"github.com/kalambet/glowkit/internal/selection"
)

var products = []catalog.Product{
	{ID: 1, Name: "Revitalift Serum", Brand: "L'Oréal Paris", Category: "skincare", Description: "Hyaluronic serum", Image: "1.png"},
	{ID: 2, Name: "Elvive Shampoo", Brand: "L'Oréal Paris", Category: "haircare", Description: "For damaged hair", Image: "2.png"},
	{ID: 3, Name: "Toleriane Cleanser", Brand: "La Roche-Posay", Category: "cleanser", Description: "Gentle face wash", Image: "3.png"},
	{ID: 4, Name: "Hydra Cream", Brand: "CeraVe", Category: "skincare", Description: "Moisturizing cream", Image: "4.png"},
}

func cardIDs(cards []Card) []int {
	ids := make([]int, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

func TestBuild_NoFilterShowsPrompt(t *testing.T) {
	page := Build(State{Selected: selection.NewSet(2)}, products)

	if len(page.Grid.Cards) != 0 || page.Grid.Placeholder != PromptText {
		t.Errorf("grid = %+v, want prompt placeholder", page.Grid)
	}
	// The selected panel renders regardless of the filter.
	if diff := cmp.Diff([]int{2}, cardIDs(page.Selected.Cards)); diff != "" {
		t.Errorf("selected ids (-want +got):\n%s", diff)
	}
}

func TestBuild_BlankSearchIsNoFilter(t *testing.T) {
	page := Build(State{Filter: catalog.Criteria{Search: "   "}}, products)
	if page.Grid.Placeholder != PromptText {
		t.Errorf("placeholder = %q, want %q", page.Grid.Placeholder, PromptText)
	}
}

func TestBuild_GridFilteredAndFlagged(t *testing.T) {
	state := State{
		Filter:   catalog.Criteria{Category: "skincare"},
		Selected: selection.NewSet(4),
		Overlay:  Overlay{ID: 1},
	}
	page := Build(state, products)

	want := []Card{
		{ID: 1, Name: "Revitalift Serum", Brand: "L'Oréal Paris", Category: "skincare", Description: "Hyaluronic serum", Image: "1.png", Toggleable: true, OverlayOpen: true, InfoKey: "1"},
		{ID: 4, Name: "Hydra Cream", Brand: "CeraVe", Category: "skincare", Description: "Moisturizing cream", Image: "4.png", Selected: true, Toggleable: true, InfoKey: "4"},
	}
	if diff := cmp.Diff(want, page.Grid.Cards); diff != "" {
		t.Errorf("grid cards (-want +got):\n%s", diff)
	}
	if page.Grid.Placeholder != "" {
		t.Errorf("unexpected placeholder %q", page.Grid.Placeholder)
	}
}

func TestBuild_NoMatch(t *testing.T) {
	page := Build(State{Filter: catalog.Criteria{Category: "haircare", Search: "cream"}}, products)
	if len(page.Grid.Cards) != 0 || page.Grid.Placeholder != NoMatchText {
		t.Errorf("grid = %+v, want no-match placeholder", page.Grid)
	}
}

func TestBuild_SelectedPanelUsesFullCatalog(t *testing.T) {
	state := State{
		Filter:   catalog.Criteria{Category: "haircare"},
		Selected: selection.NewSet(3, 1),
	}
	page := Build(state, products)

	// Neither selected product is in the filtered grid; both still show, in
	// catalog order.
	if diff := cmp.Diff([]int{1, 3}, cardIDs(page.Selected.Cards)); diff != "" {
		t.Errorf("selected ids (-want +got):\n%s", diff)
	}
	for _, c := range page.Selected.Cards {
		if c.Toggleable {
			t.Errorf("selected-panel card %d is toggleable", c.ID)
		}
		if !c.Selected {
			t.Errorf("selected-panel card %d not marked selected", c.ID)
		}
	}
	if page.Selected.Empty {
		t.Error("Empty = true with selected products")
	}
}

func TestBuild_PanelPlaceholderIffEmpty(t *testing.T) {
	tests := []struct {
		name      string
		selected  selection.Set
		wantEmpty bool
	}{
		{"zero set", selection.Set{}, true},
		{"empty set", selection.NewSet(), true},
		{"only unknown ids", selection.NewSet(99, 100), true},
		{"one known", selection.NewSet(2), false},
		{"known and unknown", selection.NewSet(2, 99), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Build(State{Selected: tt.selected}, products).Selected
			if p.Empty != tt.wantEmpty {
				t.Errorf("Empty = %v, want %v", p.Empty, tt.wantEmpty)
			}
			if (p.Placeholder == NoSelectionText) != tt.wantEmpty {
				t.Errorf("Placeholder = %q with Empty=%v", p.Placeholder, p.Empty)
			}
			if tt.wantEmpty && len(p.Cards) != 0 {
				t.Errorf("cards = %v, want none", cardIDs(p.Cards))
			}
		})
	}
}

func TestBuild_OverlayIsPerView(t *testing.T) {
	state := State{
		Filter:   catalog.Criteria{Search: "serum"},
		Selected: selection.NewSet(1),
		Overlay:  Overlay{ID: 1},
	}
	page := Build(state, products)
	if !page.Grid.Cards[0].OverlayOpen {
		t.Error("grid card overlay not open")
	}
	if page.Selected.Cards[0].OverlayOpen {
		t.Error("grid overlay also opened the panel card")
	}

	state.Overlay = Overlay{InPanel: true, ID: 1}
	page = Build(state, products)
	if page.Grid.Cards[0].OverlayOpen {
		t.Error("panel overlay also opened the grid card")
	}
	if !page.Selected.Cards[0].OverlayOpen {
		t.Error("panel card overlay not open")
	}
	if page.Selected.Cards[0].InfoKey != "sel-1" {
		t.Errorf("panel InfoKey = %q", page.Selected.Cards[0].InfoKey)
	}
	if page.Overlay != state.Overlay {
		t.Errorf("page.Overlay = %+v", page.Overlay)
	}
}

func TestParseOverlay(t *testing.T) {
	tests := []struct {
		key  string
		want Overlay
	}{
		{"", Overlay{}},
		{"3", Overlay{ID: 3}},
		{"sel-3", Overlay{InPanel: true, ID: 3}},
		{"0", Overlay{}},
		{"sel-", Overlay{}},
		{"-2", Overlay{}},
		{"abc", Overlay{}},
	}
	for _, tt := range tests {
		got := ParseOverlay(tt.key)
		if got != tt.want {
			t.Errorf("ParseOverlay(%q) = %+v, want %+v", tt.key, got, tt.want)
		}
		if tt.want.ID != 0 && got.Key() != tt.key {
			t.Errorf("Key() = %q, want %q", got.Key(), tt.key)
		}
	}
	if k := (Overlay{}).Key(); k != "" {
		t.Errorf("zero Key() = %q", k)
	}
}

func TestBuild_ToggleChangesBothViews(t *testing.T) {
	state := State{Filter: catalog.Criteria{Category: "skincare"}, Selected: selection.NewSet()}
	before := Build(state, products)

	state.Selected, _ = state.Selected.Toggle(4)
	after := Build(state, products)

	if before.Grid.Cards[1].Selected || !after.Grid.Cards[1].Selected {
		t.Error("grid selected flag did not follow toggle")
	}
	if !before.Selected.Empty || after.Selected.Empty {
		t.Error("panel did not follow toggle")
	}
}
