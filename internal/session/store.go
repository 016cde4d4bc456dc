// Package session persists per-user dialog sessions.
package session

import (
	"context"
	"errors"

	"github.com/fjod/go_shopbot/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

// Store loads and saves one session record per user.
type Store interface {
	Get(ctx context.Context, userID int64) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
	Delete(ctx context.Context, userID int64) error
}

// clone deep-copies the slices so stored sessions never alias caller state.
func clone(s *domain.Session) *domain.Session {
	c := *s
	if s.Nav != nil {
		c.Nav = append([]domain.View(nil), s.Nav...)
	}
	if s.Draft.Variants != nil {
		c.Draft.Variants = append([]string(nil), s.Draft.Variants...)
	}
	return &c
}
