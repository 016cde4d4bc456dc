package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fjod/go_shopbot/internal/domain"
	"github.com/fjod/go_shopbot/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// MinNameLength is the shortest accepted user or product name, in runes.
const MinNameLength = 2

const productsKey = "products"

type CatalogService struct {
	repo repository.ProductRepository
	sfg  singleflight.Group // collapses concurrent catalog reads
	log  *zap.Logger
}

func NewCatalogService(repo repository.ProductRepository, log *zap.Logger) *CatalogService {
	return &CatalogService{repo: repo, log: log}
}

func ValidName(s string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= MinNameLength
}

// CreateProduct inserts a product built from a finished draft. Variants are
// ignored unless the draft was started in variant mode.
func (s *CatalogService) CreateProduct(ctx context.Context, draft domain.ProductDraft) (*domain.Product, error) {
	if !draft.Complete() {
		return nil, ErrIncompleteDraft
	}

	p := &domain.Product{
		Name:     strings.TrimSpace(draft.Name),
		Price:    draft.Price,
		ImageRef: draft.ImageRef,
	}
	if draft.WithVariants {
		p.Variants = draft.Variants
	}

	if _, err := s.repo.CreateProduct(ctx, p); err != nil {
		s.log.Error("create product failed", zap.Error(err))
		return nil, err
	}

	s.log.Info("product created", zap.Int64("product_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// UpdateField parses raw admin input for field and stores it. Blank or "-"
// variants clear the product's variants.
func (s *CatalogService) UpdateField(ctx context.Context, id int64, field domain.ProductField, value string) error {
	var parsed any
	switch field {
	case domain.FieldName:
		if !ValidName(value) {
			return fmt.Errorf("%w: name too short", ErrInvalidValue)
		}
		parsed = strings.TrimSpace(value)
	case domain.FieldPrice:
		price, ok := domain.ParseAmount(value)
		if !ok {
			return fmt.Errorf("%w: price must be a positive integer", ErrInvalidValue)
		}
		parsed = price
	case domain.FieldVariants:
		parsed = domain.ParseVariants(value)
	case domain.FieldImage:
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: empty image reference", ErrInvalidValue)
		}
		parsed = value
	default:
		return fmt.Errorf("%w: unknown field %q", ErrInvalidValue, field)
	}

	if err := s.repo.UpdateProductField(ctx, id, field, parsed); err != nil {
		return err
	}

	s.log.Info("product updated", zap.Int64("product_id", id), zap.String("field", string(field)))
	return nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.log.Info("product deleted", zap.Int64("product_id", id))
	return nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListProducts returns the catalog newest first.
func (s *CatalogService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	// the shared load must not fail for everyone when its first caller gives up
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := s.sfg.Do(productsKey, func() (interface{}, error) {
		return s.repo.GetAllProducts(loadCtx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*domain.Product), nil
}
