package aggregation

import (
	"sort"

	v1 "github.com/aevon-lab/storefront-insights/internal/api/v1"
	"github.com/aevon-lab/storefront-insights/internal/core/dimension"
)

// ProductFold derives per-product counters. current_price is taken from the
// latest event by (event_time, ingest_seq).
type ProductFold struct {
	counters map[int64]*ProductCounters
}

func NewProductFold() *ProductFold {
	return &ProductFold{counters: make(map[int64]*ProductCounters)}
}

func (f *ProductFold) counter(id int64) *ProductCounters {
	c, ok := f.counters[id]
	if !ok {
		c = &ProductCounters{ProductID: id}
		f.counters[id] = c
	}
	return c
}

func (f *ProductFold) Add(e *v1.Event) {
	c := f.counter(e.ProductID)
	switch e.Type {
	case v1.EventView:
		c.Views++
	case v1.EventCart:
		c.Carts++
	case v1.EventPurchase:
		c.Purchases++
	}
	if c.priceAt.IsZero() || later(e.EventTime, e.IngestSeq, c.priceAt, c.priceSeq) {
		c.CurrentPrice = e.Price
		c.priceAt = e.EventTime
		c.priceSeq = e.IngestSeq
	}
}

func (f *ProductFold) Merge(o *ProductFold) {
	for id, oc := range o.counters {
		c := f.counter(id)
		c.Views += oc.Views
		c.Carts += oc.Carts
		c.Purchases += oc.Purchases
		if c.priceAt.IsZero() || later(oc.priceAt, oc.priceSeq, c.priceAt, c.priceSeq) {
			c.CurrentPrice = oc.CurrentPrice
			c.priceAt = oc.priceAt
			c.priceSeq = oc.priceSeq
		}
	}
}

// Counters returns every product's totals ordered by product id.
func (f *ProductFold) Counters() []ProductCounters {
	out := make([]ProductCounters, 0, len(f.counters))
	for _, c := range f.counters {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// TopConverting ranks products by purchases/views.
// Products below def.MinViews (always including zero views) do not qualify.
// Order: conversion rate desc, views desc, product id asc. MaxRows truncates after ranking.
func TopConverting(f *ProductFold, cat *dimension.Catalog, def ViewDefinition) []ProductConversion {
	minViews := def.MinViews
	if minViews < 1 {
		minViews = 1
	}

	qualifying := make([]ProductCounters, 0, len(f.counters))
	for _, c := range f.counters {
		if c.Views >= minViews {
			qualifying = append(qualifying, *c)
		}
	}

	sort.Slice(qualifying, func(i, j int) bool {
		a, b := qualifying[i], qualifying[j]
		// Compare clamped ratios exactly: pa/va vs pb/vb.
		pa, pb := min(a.Purchases, a.Views), min(b.Purchases, b.Views)
		if lhs, rhs := pa*b.Views, pb*a.Views; lhs != rhs {
			return lhs > rhs
		}
		if a.Views != b.Views {
			return a.Views > b.Views
		}
		return a.ProductID < b.ProductID
	})

	if def.MaxRows > 0 && len(qualifying) > def.MaxRows {
		qualifying = qualifying[:def.MaxRows]
	}

	out := make([]ProductConversion, len(qualifying))
	for i, c := range qualifying {
		row := ProductConversion{
			ProductID:      c.ProductID,
			CurrentPrice:   c.CurrentPrice,
			Views:          c.Views,
			Carts:          c.Carts,
			Purchases:      c.Purchases,
			ConversionRate: ClampedRatio(c.Purchases, c.Views),
			CartRate:       ClampedRatio(c.Carts, c.Views),
		}
		row.BrandID, row.BrandName, row.CategoryID, row.Category = describe(cat, c.ProductID)
		out[i] = row
	}
	return out
}

// describe resolves the brand and category labels of a product.
func describe(cat *dimension.Catalog, productID int64) (brandID int64, brandName string, categoryID int64, category string) {
	category = dimension.Category{}.Path()
	if cat == nil {
		return
	}
	p, ok := cat.Product(productID)
	if !ok {
		return
	}
	if b, ok := cat.Brand(p.BrandID); ok {
		brandID, brandName = b.ID, b.Name
	}
	if c, ok := cat.Category(p.CategoryID); ok {
		categoryID, category = c.ID, c.Path()
	}
	return
}
