package dimension

import (
	"strings"
)

// Brand is a reference entity keyed by surrogate id.
type Brand struct {
	ID   int64  `json:"brand_id"`
	Name string `json:"brand_name"`
}

// Category is a reference entity keyed by surrogate id.
// Levels are the dotted segments of the category code ("electronics.smartphone").
type Category struct {
	ID     int64  `json:"category_id"`
	Code   string `json:"category_code"`
	Level1 string `json:"category_level_1,omitempty"`
	Level2 string `json:"category_level_2,omitempty"`
	Level3 string `json:"category_level_3,omitempty"`
}

// Path renders the first two category levels the way dashboards show them.
func (c Category) Path() string {
	switch {
	case c.Level1 != "" && c.Level2 != "":
		return c.Level1 + "/" + c.Level2
	case c.Level1 != "":
		return c.Level1
	case c.Level2 != "":
		return c.Level2
	default:
		return "Uncategorized"
	}
}

// SplitCode fills the level fields from a dotted category code.
func SplitCode(id int64, code string) Category {
	c := Category{ID: id, Code: code}
	parts := strings.SplitN(code, ".", 3)
	if len(parts) > 0 {
		c.Level1 = parts[0]
	}
	if len(parts) > 1 {
		c.Level2 = parts[1]
	}
	if len(parts) > 2 {
		c.Level3 = parts[2]
	}
	return c
}

// Product is a reference entity. View/cart/purchase totals are not stored here:
// they are derived from the event log on every refresh.
type Product struct {
	ID         int64 `json:"product_id"`
	CategoryID int64 `json:"category_id,omitempty"`
	BrandID    int64 `json:"brand_id,omitempty"`
}

// Catalog is an immutable in-memory copy of the dimension tables, loaded once
// per refresh and shared read-only by every compute function.
type Catalog struct {
	products   map[int64]Product
	brands     map[int64]Brand
	categories map[int64]Category
}

// NewCatalog indexes the given dimension rows.
func NewCatalog(products []Product, brands []Brand, categories []Category) *Catalog {
	c := &Catalog{
		products:   make(map[int64]Product, len(products)),
		brands:     make(map[int64]Brand, len(brands)),
		categories: make(map[int64]Category, len(categories)),
	}
	for _, p := range products {
		c.products[p.ID] = p
	}
	for _, b := range brands {
		c.brands[b.ID] = b
	}
	for _, cat := range categories {
		c.categories[cat.ID] = cat
	}
	return c
}

func (c *Catalog) Product(id int64) (Product, bool) {
	p, ok := c.products[id]
	return p, ok
}

func (c *Catalog) Brand(id int64) (Brand, bool) {
	b, ok := c.brands[id]
	return b, ok
}

func (c *Catalog) Category(id int64) (Category, bool) {
	cat, ok := c.categories[id]
	return cat, ok
}

// Counts reports the number of rows per dimension.
func (c *Catalog) Counts() (products, brands, categories int) {
	return len(c.products), len(c.brands), len(c.categories)
}

// Resolve checks that every dimension the event references exists.
// brandID/categoryID of 0 mean "none" and always resolve.
// It returns the name of the first missing dimension, or "" when all resolve.
func (c *Catalog) Resolve(productID, brandID, categoryID int64) string {
	if _, ok := c.products[productID]; !ok {
		return "product"
	}
	if brandID != 0 {
		if _, ok := c.brands[brandID]; !ok {
			return "brand"
		}
	}
	if categoryID != 0 {
		if _, ok := c.categories[categoryID]; !ok {
			return "category"
		}
	}
	return ""
}
