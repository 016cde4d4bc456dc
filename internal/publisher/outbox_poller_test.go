package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_shopbot/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	gotestassert "gotest.tools/v3/assert"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockOutbox struct {
	mu        sync.Mutex
	events    []*domain.OutboxEvent
	processed []string
	fetchErr  error
}

func (m *mockOutbox) GetUnprocessedEvents(context.Context, int) ([]*domain.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var pending []*domain.OutboxEvent
	for _, e := range m.events {
		if !m.isProcessed(e.ID) {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

func (m *mockOutbox) MarkEventAsProcessed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed = append(m.processed, id)
	return nil
}

func (m *mockOutbox) isProcessed(id string) bool {
	for _, p := range m.processed {
		if p == id {
			return true
		}
	}
	return false
}

func (m *mockOutbox) Processed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.processed...)
}

type mockWriter struct {
	mu      sync.Mutex
	msgs    []kafka.Message
	failKey string
	closed  bool
}

func (w *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, m := range msgs {
		if string(m.Key) == w.failKey {
			return errors.New("broker unavailable")
		}
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *mockWriter) Close() error {
	w.closed = true
	return nil
}

func newEvent(id, orderID string) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:          id,
		AggregateID: orderID,
		EventType:   domain.EventOrderConfirmed,
		Payload:     []byte(`{"order_id":` + orderID + `}`),
		CreatedAt:   time.Now(),
	}
}

func TestProcessUnpublishedEvents_PublishesAndMarks(t *testing.T) {
	repo := &mockOutbox{events: []*domain.OutboxEvent{newEvent("e1", "1"), newEvent("e2", "2")}}
	writer := &mockWriter{}
	p := NewOutboxPoller(repo, writer, time.Second, nil)

	p.processUnpublishedEvents(context.Background())

	require.Len(t, writer.msgs, 2)
	assert.Equal(t, []byte("1"), writer.msgs[0].Key)
	assert.Equal(t, "event_type", writer.msgs[0].Headers[0].Key)
	assert.Equal(t, []byte(domain.EventOrderConfirmed), writer.msgs[0].Headers[0].Value)
	assert.Equal(t, []string{"e1", "e2"}, repo.Processed())
}

func TestProcessUnpublishedEvents_FailedPublishStaysPending(t *testing.T) {
	repo := &mockOutbox{events: []*domain.OutboxEvent{newEvent("e1", "1"), newEvent("e2", "2")}}
	writer := &mockWriter{failKey: "1"}
	p := NewOutboxPoller(repo, writer, time.Second, nil)

	p.processUnpublishedEvents(context.Background())

	gotestassert.DeepEqual(t, repo.Processed(), []string{"e2"})

	pending, err := repo.GetUnprocessedEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "e1", pending[0].ID)
}

func TestProcessUnpublishedEvents_FetchError(t *testing.T) {
	repo := &mockOutbox{fetchErr: errors.New("db down")}
	writer := &mockWriter{}
	p := NewOutboxPoller(repo, writer, time.Second, nil)

	p.processUnpublishedEvents(context.Background())

	assert.Empty(t, writer.msgs)
}

func TestRun_StopsOnCancel(t *testing.T) {
	repo := &mockOutbox{events: []*domain.OutboxEvent{newEvent("e1", "1")}}
	writer := &mockWriter{}
	p := NewOutboxPoller(repo, writer, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(repo.Processed()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}
