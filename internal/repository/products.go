package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shopbot/internal/domain"
)

var productColumns = map[domain.ProductField]string{
	domain.FieldName:     "name",
	domain.FieldPrice:    "price",
	domain.FieldVariants: "variants",
	domain.FieldImage:    "image_ref",
}

type productScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s productScanner) (*domain.Product, error) {
	p := &domain.Product{}
	var variants string
	if err := s.Scan(&p.ID, &p.Name, &p.Price, &variants, &p.ImageRef, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Variants = domain.ParseVariants(variants)
	return p, nil
}

func (r *Repository) CreateProduct(ctx context.Context, p *domain.Product) (int64, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO products (name, price, variants, image_ref, created_at)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		p.Name,
		p.Price,
		domain.JoinVariants(p.Variants),
		p.ImageRef,
		p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return p.ID, nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT id, name, price, variants, image_ref, created_at
		FROM products
		WHERE id = $1
	`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

// GetAllProducts returns the catalog newest first.
func (r *Repository) GetAllProducts(ctx context.Context) ([]*domain.Product, error) {
	query := `
		SELECT id, name, price, variants, image_ref, created_at
		FROM products
		ORDER BY id DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

// UpdateProductField overwrites a single attribute. Variants are passed as
// []string, price as int64, name and image as string.
func (r *Repository) UpdateProductField(ctx context.Context, id int64, field domain.ProductField, value any) error {
	column, ok := productColumns[field]
	if !ok {
		return fmt.Errorf("unknown product field %q", field)
	}

	if variants, isList := value.([]string); isList {
		value = domain.JoinVariants(variants)
	}

	query := fmt.Sprintf(`UPDATE products SET %s = $1 WHERE id = $2`, column)
	res, err := r.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("update product %s: %w", field, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DeleteProduct removes the product together with every cart line referencing it.
func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE product_id = $1`, id); err != nil {
			return fmt.Errorf("delete cart lines: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return ErrProductNotFound
		}
		return nil
	})
}
