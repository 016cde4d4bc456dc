package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/fjod/go_shopbot/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// statsWindow bounds how many recent orders feed the top products tally.
const statsWindow = 2000

type orderConfirmedPayload struct {
	OrderID   int64              `json:"order_id"`
	UserID    int64              `json:"user_id"`
	Items     []domain.OrderItem `json:"items"`
	Total     int64              `json:"total"`
	CreatedAt time.Time          `json:"created_at"`
}

// ConfirmOrder turns the user's cart into an order in a single transaction:
// snapshot rows with live prices, insert the order and its outbox event, and
// delete the cart lines. Returns ErrNoCartLines when the cart is empty.
func (r *Repository) ConfirmOrder(ctx context.Context, userID int64) (*domain.Order, error) {
	var order *domain.Order

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := cartRows(ctx, tx, userID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return ErrNoCartLines
		}

		order = domain.OrderSnapshot(userID, rows)
		order.CreatedAt = time.Now().UTC()

		itemsJSON, err := json.Marshal(order.Items)
		if err != nil {
			return fmt.Errorf("failed to marshal order items: %w", err)
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (user_id, items, total, created_at)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			order.UserID, string(itemsJSON), order.Total, order.CreatedAt,
		).Scan(&order.ID)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		payload, err := json.Marshal(orderConfirmedPayload{
			OrderID:   order.ID,
			UserID:    order.UserID,
			Items:     order.Items,
			Total:     order.Total,
			CreatedAt: order.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal order event: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO outbox_events (id, aggregate_id, event_type, payload, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			uuid.NewString(), strconv.FormatInt(order.ID, 10), domain.EventOrderConfirmed, string(payload), order.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateEvent
			}
			return fmt.Errorf("insert outbox event: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("delete cart lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("order confirmed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.Int64("total", order.Total))
	return order, nil
}

// ListOrdersByUserID returns the user's orders newest first.
func (r *Repository) ListOrdersByUserID(ctx context.Context, userID int64) ([]*domain.Order, error) {
	query := `SELECT id, user_id, items, total, created_at
	          FROM orders WHERE user_id = $1 ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var order domain.Order
		var itemsJSON []byte
		if err := rows.Scan(
			&order.ID,
			&order.UserID,
			&itemsJSON,
			&order.Total,
			&order.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
		orders = append(orders, &order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

// GetStats counts users, orders and revenue, and tallies the top products by
// ordered quantity over the most recent orders.
func (r *Repository) GetStats(ctx context.Context, top int) (*domain.Stats, error) {
	stats := &domain.Stats{}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&stats.Users); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(total), 0) FROM orders`).
		Scan(&stats.Orders, &stats.Revenue)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT items FROM orders ORDER BY id DESC LIMIT $1`, statsWindow)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var itemsJSON []byte
		if err := rows.Scan(&itemsJSON); err != nil {
			return nil, fmt.Errorf("scan order items: %w", err)
		}
		var items []domain.OrderItem
		if err := json.Unmarshal(itemsJSON, &items); err != nil {
			r.log.Warn("skipping unreadable order items", zap.Error(err))
			continue
		}
		for _, it := range items {
			counts[it.Name] += it.Quantity
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for name, qty := range counts {
		stats.TopProducts = append(stats.TopProducts, domain.ProductTally{Name: name, Quantity: qty})
	}
	sort.Slice(stats.TopProducts, func(i, j int) bool {
		a, b := stats.TopProducts[i], stats.TopProducts[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		return a.Name < b.Name
	})
	if top > 0 && len(stats.TopProducts) > top {
		stats.TopProducts = stats.TopProducts[:top]
	}

	return stats, nil
}
