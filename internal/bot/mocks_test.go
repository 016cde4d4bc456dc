package bot

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_shopbot/internal/domain"
)

var errDeliveryFailed = errors.New("delivery failed")

type sentMessage struct {
	UserID   int64
	Text     string
	ImageRef string
}

// recordingSender implements notify.Sender and remembers every delivery
type recordingSender struct {
	mu     sync.Mutex
	sent   []sentMessage
	failOn map[int64]bool
}

func newRecordingSender(failOn ...int64) *recordingSender {
	s := &recordingSender{failOn: map[int64]bool{}}
	for _, id := range failOn {
		s.failOn[id] = true
	}
	return s
}

func (s *recordingSender) SendText(_ context.Context, userID int64, text string) error {
	return s.record(sentMessage{UserID: userID, Text: text})
}

func (s *recordingSender) SendImage(_ context.Context, userID int64, imageRef, caption string) error {
	return s.record(sentMessage{UserID: userID, Text: caption, ImageRef: imageRef})
}

func (s *recordingSender) record(m sentMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[m.UserID] {
		return errDeliveryFailed
	}
	s.sent = append(s.sent, m)
	return nil
}

func (s *recordingSender) messagesTo(userID int64) []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sentMessage
	for _, m := range s.sent {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out
}

// panickingCatalog blows up on every read
type panickingCatalog struct {
	Catalog
}

func (panickingCatalog) ListProducts(context.Context) ([]*domain.Product, error) {
	panic("catalog exploded")
}
