package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_shopbot/internal/domain"
	"github.com/fjod/go_shopbot/internal/repository"
	"go.uber.org/zap"
)

type UserService struct {
	repo repository.UserRepository
	log  *zap.Logger
}

func NewUserService(repo repository.UserRepository, log *zap.Logger) *UserService {
	return &UserService{repo: repo, log: log}
}

// Register creates or overwrites the user's record.
func (s *UserService) Register(ctx context.Context, userID int64, name, phone string) (*domain.User, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: name too short", ErrInvalidValue)
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, fmt.Errorf("%w: empty phone", ErrInvalidValue)
	}

	u := &domain.User{ID: userID, Name: strings.TrimSpace(name), Phone: phone}
	if err := s.repo.UpsertUser(ctx, u); err != nil {
		s.log.Error("upsert user failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.log.Info("user registered", zap.Int64("user_id", userID))
	return u, nil
}

// IsRegistered reports whether a user record exists.
func (s *UserService) IsRegistered(ctx context.Context, userID int64) (bool, error) {
	_, err := s.repo.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
