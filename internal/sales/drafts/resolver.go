package drafts

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Tishkos/arbatis-pos/internal/catalog/motorcycles"
	"github.com/Tishkos/arbatis-pos/internal/catalog/products"
	"github.com/Tishkos/arbatis-pos/internal/inventory"
)

// ItemMatch is the catalog data a resolution copies onto a line item.
type ItemMatch struct {
	ItemID         int64
	Kind           inventory.ItemKind
	Name           string
	RetailPrice    float64
	WholesalePrice float64
	Stock          float64
}

// Rate returns the price for the given sale type.
func (m *ItemMatch) Rate(saleType SaleType) float64 {
	if saleType == SaleTypeWholesale {
		return m.WholesalePrice
	}
	return m.RetailPrice
}

// ProductSource looks up products by free-text name.
type ProductSource interface {
	FindByName(ctx context.Context, name string) (*products.Product, error)
}

// MotorcycleSource looks up motorcycles by free-text name.
type MotorcycleSource interface {
	FindByName(ctx context.Context, name string) (*motorcycles.Motorcycle, error)
}

// Resolver matches typed line-item names against the catalog. Each line id
// carries a monotonically increasing token; only the response matching the
// latest token for that line is applied, so a slow early lookup can never
// overwrite a newer one.
type Resolver struct {
	products    ProductSource
	motorcycles MotorcycleSource

	mu     sync.Mutex
	tokens map[string]uint64
}

// NewResolver builds a Resolver.
func NewResolver(products ProductSource, motorcycles MotorcycleSource) *Resolver {
	return &Resolver{
		products:    products,
		motorcycles: motorcycles,
		tokens:      make(map[string]uint64),
	}
}

// NextToken issues a new resolution token for the line.
func (r *Resolver) NextToken(lineID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[lineID]++
	return r.tokens[lineID]
}

// Current returns the latest token issued for the line.
func (r *Resolver) Current(lineID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokens[lineID]
}

// Forget drops token state for a line, typically when the line or its tab
// is removed.
func (r *Resolver) Forget(lineIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range lineIDs {
		delete(r.tokens, id)
	}
}

// Lookup searches the catalog for the line's kind and name. A no-match is
// reported as (nil, nil); the caller flags the line instead of failing.
func (r *Resolver) Lookup(ctx context.Context, kind inventory.ItemKind, name string) (*ItemMatch, error) {
	switch kind {
	case inventory.ItemKindProduct:
		p, err := r.products.FindByName(ctx, name)
		if err != nil {
			if errors.Is(err, products.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return &ItemMatch{
			ItemID:         p.ID,
			Kind:           inventory.ItemKindProduct,
			Name:           p.Name,
			RetailPrice:    p.RetailPrice,
			WholesalePrice: p.WholesalePrice,
			Stock:          p.Stock,
		}, nil
	case inventory.ItemKindMotorcycle:
		m, err := r.motorcycles.FindByName(ctx, name)
		if err != nil {
			if errors.Is(err, motorcycles.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return &ItemMatch{
			ItemID:         m.ID,
			Kind:           inventory.ItemKindMotorcycle,
			Name:           m.Name,
			RetailPrice:    m.RetailPrice,
			WholesalePrice: m.WholesalePrice,
			Stock:          m.Stock,
		}, nil
	default:
		return nil, errors.New("drafts: unknown item kind")
	}
}

// Apply copies a match onto the draft's line if the token is still the
// latest for that line. It returns false when the response was stale or
// the line no longer exists.
//
// A user-edited rate survives the resolution unless the item identity
// changed or no rate was set yet.
func (r *Resolver) Apply(d *Draft, lineID string, token uint64, match *ItemMatch) bool {
	if r.Current(lineID) != token {
		return false
	}
	line := d.Line(lineID)
	if line == nil {
		return false
	}

	if match == nil {
		line.ItemID = nil
		line.InDatabase = false
		line.NotFound = true
		return true
	}

	identityChanged := line.ItemID != nil && *line.ItemID != match.ItemID
	if identityChanged || !line.RateEdited || line.Rate == 0 {
		line.Rate = match.Rate(d.SaleType)
		line.RateEdited = false
	}

	id := match.ItemID
	line.ItemID = &id
	line.Name = match.Name
	line.StockSnapshot = match.Stock
	line.InDatabase = true
	line.NotFound = false
	line.ResolveToken = token
	return true
}

// ResolveLine performs a single lookup-and-apply for the line.
func (r *Resolver) ResolveLine(ctx context.Context, d *Draft, lineID string) error {
	line := d.Line(lineID)
	if line == nil {
		return ErrNotFound
	}
	token := r.NextToken(lineID)
	match, err := r.Lookup(ctx, line.ItemKind, line.Name)
	if err != nil {
		return err
	}
	r.Apply(d, lineID, token, match)
	return nil
}

// ResolveAll fans the unresolved lines out in parallel and applies each
// result under its own token. Lookups share the request context, so
// closing the tab cancels them all.
func (r *Resolver) ResolveAll(ctx context.Context, d *Draft) error {
	type result struct {
		lineID string
		token  uint64
		match  *ItemMatch
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	var mu sync.Mutex
	var results []result

	for i := range d.Lines {
		line := d.Lines[i]
		if line.InDatabase || line.Name == "" {
			continue
		}
		token := r.NextToken(line.ID)
		g.Go(func() error {
			match, err := r.Lookup(ctx, line.ItemKind, line.Name)
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, result{lineID: line.ID, token: token, match: match})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	for _, res := range results {
		r.Apply(d, res.lineID, res.token, res.match)
	}
	return nil
}
