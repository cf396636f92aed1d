// Package view builds the catalog grid and selected-items panel from the
// product list and a visitor's state. It does no I/O.
package view

import (
	"strconv"
	"strings"

	"github.com/kalambet/glowkit/internal/catalog"
	"github.com/kalambet/glowkit/internal/selection"
)

// Placeholder texts.
const (
	PromptText      = "Select a category to view products"
	NoMatchText     = "No products match your filters."
	NoSelectionText = "No products selected yet."
)

// State is everything a render depends on besides the catalog.
type State struct {
	Filter   catalog.Criteria
	Selected selection.Set
	Overlay  Overlay
}

const selectedKeyPrefix = "sel-"

// Overlay names the card whose detail overlay is open. The grid and the
// selected panel each have their own card for a product, so the panel is part
// of the key. The zero value means no overlay.
type Overlay struct {
	InPanel bool
	ID      int
}

// ParseOverlay reads an overlay key: "<id>" for a grid card, "sel-<id>" for a
// selected-panel card. Anything else means no overlay.
func ParseOverlay(key string) Overlay {
	raw, inPanel := strings.CutPrefix(key, selectedKeyPrefix)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return Overlay{}
	}
	return Overlay{InPanel: inPanel, ID: id}
}

// Key is the inverse of ParseOverlay. It is empty for no overlay.
func (o Overlay) Key() string {
	if o.ID <= 0 {
		return ""
	}
	if o.InPanel {
		return selectedKeyPrefix + strconv.Itoa(o.ID)
	}
	return strconv.Itoa(o.ID)
}

// Card is one rendered product.
type Card struct {
	ID          int
	Name        string
	Brand       string
	Category    string
	Description string
	Image       string
	Selected    bool
	// Toggleable cards carry the select/deselect control.
	Toggleable  bool
	OverlayOpen bool
	// InfoKey opens this card's overlay.
	InfoKey string
}

// Grid is the filtered catalog view.
type Grid struct {
	Cards       []Card
	Placeholder string
}

// Panel is the selected-items view.
type Panel struct {
	Cards       []Card
	Empty       bool
	Placeholder string
}

// Page holds both views built from the same state, so they never disagree.
type Page struct {
	Filter   catalog.Criteria
	Overlay  Overlay
	Grid     Grid
	Selected Panel
}

// Build computes the grid and the selected panel. The panel looks selected
// ids up in all, not in the filtered subset.
func Build(state State, all []catalog.Product) Page {
	return Page{
		Filter:   state.Filter,
		Overlay:  state.Overlay,
		Grid:     buildGrid(state, all),
		Selected: buildPanel(state, all),
	}
}

func buildGrid(state State, all []catalog.Product) Grid {
	if !state.Filter.Active() {
		return Grid{Placeholder: PromptText}
	}
	matched := state.Filter.Apply(all)
	if len(matched) == 0 {
		return Grid{Placeholder: NoMatchText}
	}

	cards := make([]Card, len(matched))
	for i, p := range matched {
		cards[i] = newCard(p, Overlay{ID: p.ID}, state.Overlay)
		cards[i].Selected = state.Selected.Has(p.ID)
		cards[i].Toggleable = true
	}
	return Grid{Cards: cards}
}

func buildPanel(state State, all []catalog.Product) Panel {
	var cards []Card
	for _, p := range all {
		if !state.Selected.Has(p.ID) {
			continue
		}
		c := newCard(p, Overlay{InPanel: true, ID: p.ID}, state.Overlay)
		c.Selected = true
		cards = append(cards, c)
	}
	if len(cards) == 0 {
		return Panel{Empty: true, Placeholder: NoSelectionText}
	}
	return Panel{Cards: cards}
}

func newCard(p catalog.Product, self, open Overlay) Card {
	return Card{
		ID:          p.ID,
		Name:        p.Name,
		Brand:       p.Brand,
		Category:    p.Category,
		Description: p.Description,
		Image:       p.Image,
		OverlayOpen: open.ID != 0 && open == self,
		InfoKey:     self.Key(),
	}
}
