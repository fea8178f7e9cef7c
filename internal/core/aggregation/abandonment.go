package aggregation

import (
	"sort"
	"time"

	v1 "github.com/aevon-lab/storefront-insights/internal/api/v1"
	"github.com/aevon-lab/storefront-insights/internal/core/dimension"
)

type cartKey struct {
	session string
	product int64
}

type cartActivity struct {
	carts     []time.Time
	purchases []time.Time
}

// AbandonmentFold records, per (session, product), when the product was carted and bought.
type AbandonmentFold struct {
	pairs map[cartKey]*cartActivity
}

func NewAbandonmentFold() *AbandonmentFold {
	return &AbandonmentFold{pairs: make(map[cartKey]*cartActivity)}
}

func (f *AbandonmentFold) activity(k cartKey) *cartActivity {
	a, ok := f.pairs[k]
	if !ok {
		a = &cartActivity{}
		f.pairs[k] = a
	}
	return a
}

func (f *AbandonmentFold) Add(e *v1.Event) {
	switch e.Type {
	case v1.EventCart:
		a := f.activity(cartKey{e.SessionID, e.ProductID})
		a.carts = append(a.carts, e.EventTime)
	case v1.EventPurchase:
		a := f.activity(cartKey{e.SessionID, e.ProductID})
		a.purchases = append(a.purchases, e.EventTime)
	}
}

func (f *AbandonmentFold) Merge(o *AbandonmentFold) {
	for k, oa := range o.pairs {
		a := f.activity(k)
		a.carts = append(a.carts, oa.carts...)
		a.purchases = append(a.purchases, oa.purchases...)
	}
}

// abandoned reports whether some cart of the pair was never followed by a purchase.
// A purchase at the same instant as the cart counts as following it. With ScopeWindow
// the purchase must also land within window of the cart.
func (a *cartActivity) abandoned(scope AbandonmentScope, window time.Duration) bool {
	if len(a.carts) == 0 {
		return false
	}
	purchases := make([]time.Time, len(a.purchases))
	copy(purchases, a.purchases)
	sort.Slice(purchases, func(i, j int) bool { return purchases[i].Before(purchases[j]) })

	for _, c := range a.carts {
		i := sort.Search(len(purchases), func(i int) bool { return !purchases[i].Before(c) })
		if i == len(purchases) {
			return true
		}
		if scope == ScopeWindow && purchases[i].Sub(c) > window {
			return true
		}
	}
	return false
}

type abandonTotals struct {
	carts, purchases, sessions, score int64
}

// AbandonedCarts scores each product by the number of sessions that abandoned it.
// Only products with a positive score are listed. Order: score desc, product id asc.
func AbandonedCarts(f *AbandonmentFold, cat *dimension.Catalog, def ViewDefinition) []AbandonedCart {
	totals := make(map[int64]*abandonTotals)
	for k, a := range f.pairs {
		t, ok := totals[k.product]
		if !ok {
			t = &abandonTotals{}
			totals[k.product] = t
		}
		t.carts += int64(len(a.carts))
		t.purchases += int64(len(a.purchases))
		if len(a.carts) > 0 {
			t.sessions++
		}
		if a.abandoned(def.AbandonmentScope, def.AbandonmentWindow) {
			t.score++
		}
	}

	out := make([]AbandonedCart, 0, len(totals))
	for id, t := range totals {
		if t.score == 0 {
			continue
		}
		row := AbandonedCart{
			ProductID:        id,
			Carts:            t.carts,
			Purchases:        t.purchases,
			CartingSessions:  t.sessions,
			AbandonmentScore: t.score,
			AbandonmentRate:  ClampedRatio(t.score, t.sessions),
		}
		row.BrandID, row.BrandName, _, row.Category = describe(cat, id)
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].AbandonmentScore != out[j].AbandonmentScore {
			return out[i].AbandonmentScore > out[j].AbandonmentScore
		}
		return out[i].ProductID < out[j].ProductID
	})

	if def.MaxRows > 0 && len(out) > def.MaxRows {
		out = out[:def.MaxRows]
	}
	return out
}
