package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_shopbot/internal/domain"
	"github.com/fjod/go_shopbot/internal/notify"
	"github.com/fjod/go_shopbot/internal/repository"
	"go.uber.org/zap"
)

// TopProductsLimit bounds the product tally in admin statistics.
const TopProductsLimit = 8

type AdminNotifier interface {
	NotifyAdmins(ctx context.Context, admins []int64, text string) notify.Result
}

type OrderService struct {
	users    repository.UserRepository
	orders   repository.OrderRepository
	notifier AdminNotifier
	admins   []int64
	log      *zap.Logger
}

func NewOrderService(
	users repository.UserRepository,
	orders repository.OrderRepository,
	notifier AdminNotifier,
	admins []int64,
	log *zap.Logger,
) *OrderService {
	return &OrderService{users: users, orders: orders, notifier: notifier, admins: admins, log: log}
}

// Confirm converts the user's cart into an order and notifies the admins.
// Notification failures never undo the order.
func (s *OrderService) Confirm(ctx context.Context, userID int64) (*domain.Order, error) {
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	order, err := s.orders.ConfirmOrder(ctx, userID)
	if errors.Is(err, repository.ErrNoCartLines) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		s.log.Error("confirm order failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}

	res := s.notifier.NotifyAdmins(ctx, s.admins, OrderSummary(user, order))
	if res.Failed > 0 {
		s.log.Warn("some admins were not notified",
			zap.Int64("order_id", order.ID),
			zap.Int("failed", res.Failed))
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID int64) ([]*domain.Order, error) {
	return s.orders.ListOrdersByUserID(ctx, userID)
}

func (s *OrderService) Stats(ctx context.Context) (*domain.Stats, error) {
	return s.orders.GetStats(ctx, TopProductsLimit)
}

// OrderSummary is the admin-facing description of a new order.
func OrderSummary(user *domain.User, order *domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New order #%d\n", order.ID)
	fmt.Fprintf(&b, "Customer: %s\n", user.Name)
	fmt.Fprintf(&b, "Phone: %s\n", user.Phone)
	fmt.Fprintf(&b, "User ID: %d\n\n", user.ID)
	for _, it := range order.Items {
		name := it.Name
		if it.Variant != "" && it.Variant != domain.NoVariant {
			name = fmt.Sprintf("%s (%s)", it.Name, it.Variant)
		}
		fmt.Fprintf(&b, "- %s x %d = %s\n", name, it.Quantity, domain.FormatMoney(it.Subtotal()))
	}
	fmt.Fprintf(&b, "\nTotal: %s", domain.FormatMoney(order.Total))
	return b.String()
}
