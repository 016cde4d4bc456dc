package service

import (
	"context"
	"fmt"

	"github.com/fjod/go_shopbot/internal/domain"
	"github.com/fjod/go_shopbot/internal/repository"
	"go.uber.org/zap"
)

type CartService struct {
	repo repository.CartRepository
	log  *zap.Logger
}

func NewCartService(repo repository.CartRepository, log *zap.Logger) *CartService {
	return &CartService{repo: repo, log: log}
}

func (s *CartService) Add(ctx context.Context, userID, productID int64, variant string, qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidValue)
	}
	if err := s.repo.AddToCart(ctx, userID, productID, variant, qty); err != nil {
		s.log.Error("repo add to cart error", zap.Int64("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

func (s *CartService) Increment(ctx context.Context, userID, productID int64, variant string) error {
	if err := s.repo.IncrementLine(ctx, userID, productID, variant); err != nil {
		s.log.Error("repo increment error", zap.Int64("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

func (s *CartService) Decrement(ctx context.Context, userID, productID int64, variant string) error {
	if err := s.repo.DecrementLine(ctx, userID, productID, variant); err != nil {
		s.log.Error("repo decrement error", zap.Int64("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

func (s *CartService) Remove(ctx context.Context, userID, productID int64, variant string) error {
	if err := s.repo.RemoveLine(ctx, userID, productID, variant); err != nil {
		s.log.Error("repo remove line error", zap.Int64("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

func (s *CartService) Clear(ctx context.Context, userID int64) error {
	if err := s.repo.ClearCart(ctx, userID); err != nil {
		s.log.Error("repo clear cart error", zap.Int64("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

func (s *CartService) Rows(ctx context.Context, userID int64) ([]domain.CartRow, error) {
	return s.repo.GetCartRows(ctx, userID)
}

func (s *CartService) Total(rows []domain.CartRow) int64 {
	return domain.CartTotal(rows)
}
