package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fjod/go_shopbot/internal/domain"
)

// AddToCart creates the line or adds qty to it in one statement. The insert
// selects from products so that unknown product ids add nothing.
func (r *Repository) AddToCart(ctx context.Context, userID, productID int64, variant string, qty int) error {
	if qty < 1 {
		return fmt.Errorf("add to cart: quantity must be positive, got %d", qty)
	}

	query := `INSERT INTO cart_lines (user_id, product_id, variant, quantity)
	          SELECT CAST($1 AS BIGINT), CAST($2 AS BIGINT), CAST($3 AS TEXT), CAST($4 AS INTEGER)
	          FROM products WHERE id = $5
	          ON CONFLICT (user_id, product_id, variant)
	          DO UPDATE SET quantity = cart_lines.quantity + excluded.quantity`

	res, err := r.db.ExecContext(ctx, query, userID, productID, domain.NormalizeVariant(variant), qty, productID)
	if err != nil {
		return fmt.Errorf("add to cart: %w", err)
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

// IncrementLine adds one to an existing line; a missing line is left absent.
func (r *Repository) IncrementLine(ctx context.Context, userID, productID int64, variant string) error {
	query := `UPDATE cart_lines SET quantity = quantity + 1
	          WHERE user_id = $1 AND product_id = $2 AND variant = $3`

	if _, err := r.db.ExecContext(ctx, query, userID, productID, domain.NormalizeVariant(variant)); err != nil {
		return fmt.Errorf("increment cart line: %w", err)
	}
	return nil
}

// DecrementLine subtracts one, deleting the line instead when it would reach zero.
func (r *Repository) DecrementLine(ctx context.Context, userID, productID int64, variant string) error {
	variant = domain.NormalizeVariant(variant)

	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE cart_lines SET quantity = quantity - 1
			 WHERE user_id = $1 AND product_id = $2 AND variant = $3 AND quantity > 1`,
			userID, productID, variant)
		if err != nil {
			return fmt.Errorf("decrement cart line: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n > 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`DELETE FROM cart_lines
			 WHERE user_id = $1 AND product_id = $2 AND variant = $3 AND quantity <= 1`,
			userID, productID, variant)
		if err != nil {
			return fmt.Errorf("delete cart line: %w", err)
		}
		return nil
	})
}

func (r *Repository) RemoveLine(ctx context.Context, userID, productID int64, variant string) error {
	query := `DELETE FROM cart_lines WHERE user_id = $1 AND product_id = $2 AND variant = $3`

	if _, err := r.db.ExecContext(ctx, query, userID, productID, domain.NormalizeVariant(variant)); err != nil {
		return fmt.Errorf("remove cart line: %w", err)
	}
	return nil
}

func (r *Repository) ClearCart(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

const cartRowsQuery = `
	SELECT c.product_id, c.variant, c.quantity, p.name, p.price
	FROM cart_lines c
	JOIN products p ON p.id = c.product_id
	WHERE c.user_id = $1
	ORDER BY c.product_id DESC, c.variant
`

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *Repository) GetCartRows(ctx context.Context, userID int64) ([]domain.CartRow, error) {
	return cartRows(ctx, r.db, userID)
}

func cartRows(ctx context.Context, q queryer, userID int64) ([]domain.CartRow, error) {
	rows, err := q.QueryContext(ctx, cartRowsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart rows: %w", err)
	}
	defer rows.Close()

	var out []domain.CartRow
	for rows.Next() {
		var row domain.CartRow
		if err := rows.Scan(&row.ProductID, &row.Variant, &row.Quantity, &row.Name, &row.Price); err != nil {
			return nil, fmt.Errorf("scan cart row: %w", err)
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}
