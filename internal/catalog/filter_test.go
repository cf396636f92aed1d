package catalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleProducts() []Product {
	return []Product{
		{ID: 1, Name: "Elvive Total Repair 5 Shampoo", Brand: "L'Oréal Paris", Category: "hair", Description: "Repairs damaged hair."},
		{ID: 2, Name: "Revitalift Night Cream", Brand: "L'Oréal Paris", Category: "skin", Description: "Anti-wrinkle moisturizer."},
		{ID: 3, Name: "Hydrating Facial Cleanser", Brand: "CeraVe", Category: "cleanser", Description: "Gentle cleanser with ceramides."},
		{ID: 4, Name: "Curl Cream", Brand: "Garnier", Category: "hair", Description: "Defines curls without crunch."},
		{ID: 5, Name: "Lash Paradise", Brand: "Maybelline", Category: "makeup", Description: "Volumizing mascara."},
	}
}

func ids(ps []Product) []int {
	out := make([]int, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		category string
		search   string
		want     []int
	}{
		{"no filter", "", "", []int{1, 2, 3, 4, 5}},
		{"category only", "hair", "", []int{1, 4}},
		{"category is exact", "Hair", "", []int{}},
		{"search name", "", "cream", []int{2, 4}},
		{"search brand case-insensitive", "", "cerave", []int{3}},
		{"search description", "", "CERAMIDES", []int{3}},
		{"search trimmed", "", "  mascara  ", []int{5}},
		{"whitespace search passes through", "", "   ", []int{1, 2, 3, 4, 5}},
		{"conjunctive", "hair", "cream", []int{4}},
		{"no match", "skin", "mascara", []int{}},
		{"unknown category", "fragrance", "", []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(sampleProducts(), tt.category, tt.search))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Filter(%q, %q) mismatch (-want +got):\n%s", tt.category, tt.search, diff)
			}
		})
	}
}

func TestFilter_SubsetPreservesOrder(t *testing.T) {
	products := sampleProducts()
	position := make(map[int]int)
	for i, p := range products {
		position[p.ID] = i
	}

	for _, category := range []string{"", "hair", "skin", "makeup", "none"} {
		for _, search := range []string{"", "a", "e", "oréal", "cream", "zzz"} {
			got := Filter(products, category, search)
			last := -1
			for _, p := range got {
				pos, ok := position[p.ID]
				if !ok {
					t.Fatalf("Filter(%q, %q) returned unknown product %d", category, search, p.ID)
				}
				if pos <= last {
					t.Fatalf("Filter(%q, %q) broke input order: %v", category, search, ids(got))
				}
				last = pos
			}
		}
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	products := sampleProducts()
	before := append([]Product(nil), products...)
	_ = Filter(products, "hair", "cream")
	if diff := cmp.Diff(before, products); diff != "" {
		t.Errorf("input mutated (-before +after):\n%s", diff)
	}
}

func TestFilter_SelectsCategory(t *testing.T) {
	products := []Product{{ID: 1, Category: "hair"}, {ID: 2, Category: "skin"}}
	got := Filter(products, "hair", "")
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("Filter(hair) = %v, want exactly product 1", ids(got))
	}
}

func TestCriteria(t *testing.T) {
	if (Criteria{}).Active() {
		t.Error("empty criteria should be inactive")
	}
	if (Criteria{Search: "  "}).Active() {
		t.Error("whitespace search should be inactive")
	}
	c := Criteria{Category: "hair"}
	if !c.Active() {
		t.Error("category criteria should be active")
	}
	if diff := cmp.Diff([]int{1, 4}, ids(c.Apply(sampleProducts()))); diff != "" {
		t.Errorf("Apply mismatch (-want +got):\n%s", diff)
	}
}
