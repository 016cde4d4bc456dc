package http

import (
	"context"

	"github.com/fjod/go_shopbot/internal/bot"
)

// mockBot implements EventHandler for testing
type mockBot struct {
	got     []bot.Event
	replies []bot.Reply
	err     error
}

func (m *mockBot) Handle(_ context.Context, ev bot.Event) ([]bot.Reply, error) {
	m.got = append(m.got, ev)
	if m.err != nil {
		return nil, m.err
	}
	return m.replies, nil
}
