package catalog

import "strings"

// Criteria is the category and keyword filter applied to the catalog view.
// Empty fields do not filter.
type Criteria struct {
	Category string `json:"category"`
	Search   string `json:"search"`
}

// Active reports whether any filter is set.
func (c Criteria) Active() bool {
	return c.Category != "" || strings.TrimSpace(c.Search) != ""
}

// Apply is shorthand for Filter(products, c.Category, c.Search).
func (c Criteria) Apply(products []Product) []Product {
	return Filter(products, c.Category, c.Search)
}

// Filter returns the products matching category and search, in input order.
// Category must match exactly. Search is trimmed and matched
// case-insensitively as a substring of the name, brand or description.
func Filter(products []Product, category, search string) []Product {
	keyword := strings.ToLower(strings.TrimSpace(search))

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if category != "" && p.Category != category {
			continue
		}
		if keyword != "" && !matches(p, keyword) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matches(p Product, keyword string) bool {
	return strings.Contains(strings.ToLower(p.Name), keyword) ||
		strings.Contains(strings.ToLower(p.Brand), keyword) ||
		strings.Contains(strings.ToLower(p.Description), keyword)
}
