package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/aevon-lab/storefront-insights/internal/core/dimension"
)

// LoadDimensions implements storage.DimensionStore. The three tables are read
// in one read-only transaction so the catalog is internally consistent.
func (a *Adapter) LoadDimensions(ctx context.Context) (*dimension.Catalog, error) {
	tx, err := a.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("failed to begin dimension read: %w", err)
	}
	defer tx.Rollback()

	var brands []dimension.Brand
	if err := queryAll(ctx, tx, queryLoadBrands, func(s scanner) error {
		var b dimension.Brand
		if err := s.Scan(&b.ID, &b.Name); err != nil {
			return err
		}
		brands = append(brands, b)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to load brands: %w", err)
	}

	var categories []dimension.Category
	if err := queryAll(ctx, tx, queryLoadCategories, func(s scanner) error {
		var c dimension.Category
		if err := s.Scan(&c.ID, &c.Code, &c.Level1, &c.Level2, &c.Level3); err != nil {
			return err
		}
		categories = append(categories, c)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	var products []dimension.Product
	if err := queryAll(ctx, tx, queryLoadProducts, func(s scanner) error {
		var p dimension.Product
		if err := s.Scan(&p.ID, &p.CategoryID, &p.BrandID); err != nil {
			return err
		}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	slog.Debug("[Postgres] Loaded dimensions",
		"products", len(products),
		"brands", len(brands),
		"categories", len(categories))

	return dimension.NewCatalog(products, brands, categories), nil
}

func queryAll(ctx context.Context, tx *sql.Tx, query string, each func(scanner) error) error {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := each(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
