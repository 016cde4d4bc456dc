package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fjod/go_shopbot/internal/domain"
	"github.com/fjod/go_shopbot/internal/notify"
	"github.com/fjod/go_shopbot/internal/repository"
)

// mockUserRepository implements repository.UserRepository for testing
type mockUserRepository struct {
	mu    sync.Mutex
	users map[int64]*domain.User
	err   error
}

func newMockUserRepository(users ...*domain.User) *mockUserRepository {
	m := &mockUserRepository{users: map[int64]*domain.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepository) UpsertUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepository) GetUser(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserRepository) ListUserIDs(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var ids []int64
	for id := range m.users {
		ids = append(ids, id)
	}
	return ids, nil
}

// mockProductRepository implements repository.ProductRepository for testing
type mockProductRepository struct {
	Products     []*domain.Product
	Created      *domain.Product
	UpdatedField domain.ProductField
	UpdatedValue any
	Err          error
	ListCalls    atomic.Int32
	ListGate     chan struct{} // when set, GetAllProducts blocks until closed
}

func (m *mockProductRepository) CreateProduct(_ context.Context, p *domain.Product) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	p.ID = int64(len(m.Products) + 1)
	m.Created = p
	m.Products = append(m.Products, p)
	return p.ID, nil
}

func (m *mockProductRepository) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	for _, p := range m.Products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockProductRepository) GetAllProducts(ctx context.Context) ([]*domain.Product, error) {
	m.ListCalls.Add(1)
	if m.ListGate != nil {
		<-m.ListGate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.Products, m.Err
}

func (m *mockProductRepository) UpdateProductField(_ context.Context, _ int64, field domain.ProductField, value any) error {
	m.UpdatedField = field
	m.UpdatedValue = value
	return m.Err
}

func (m *mockProductRepository) DeleteProduct(context.Context, int64) error {
	return m.Err
}

// mockOrderRepository implements repository.OrderRepository for testing
type mockOrderRepository struct {
	Order        *domain.Order
	ConfirmErr   error
	ConfirmCalls int
	Stats        *domain.Stats
	StatsTop     int
}

func (m *mockOrderRepository) ConfirmOrder(_ context.Context, userID int64) (*domain.Order, error) {
	m.ConfirmCalls++
	if m.ConfirmErr != nil {
		return nil, m.ConfirmErr
	}
	m.Order.UserID = userID
	return m.Order, nil
}

func (m *mockOrderRepository) ListOrdersByUserID(context.Context, int64) ([]*domain.Order, error) {
	if m.Order == nil {
		return nil, nil
	}
	return []*domain.Order{m.Order}, nil
}

func (m *mockOrderRepository) GetStats(_ context.Context, top int) (*domain.Stats, error) {
	m.StatsTop = top
	return m.Stats, nil
}

// mockNotifier implements AdminNotifier and Fanout for testing
type mockNotifier struct {
	Admins     []int64
	Text       string
	Recipients []int64
	Message    notify.Message
	Result     notify.Result
}

func (m *mockNotifier) NotifyAdmins(_ context.Context, admins []int64, text string) notify.Result {
	m.Admins = admins
	m.Text = text
	return m.Result
}

func (m *mockNotifier) Broadcast(_ context.Context, recipients []int64, msg notify.Message) notify.Result {
	m.Recipients = recipients
	m.Message = msg
	return m.Result
}

// mockReporter implements Reporter for testing
type mockReporter struct {
	mu    sync.Mutex
	texts map[int64][]string
}

func (m *mockReporter) SendText(_ context.Context, userID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.texts == nil {
		m.texts = map[int64][]string{}
	}
	m.texts[userID] = append(m.texts[userID], text)
	return nil
}

func (m *mockReporter) sentTo(userID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.texts[userID]
}

// blockingFanout holds every broadcast until its context ends
type blockingFanout struct {
	started chan struct{}
}

func (b *blockingFanout) Broadcast(ctx context.Context, recipients []int64, _ notify.Message) notify.Result {
	close(b.started)
	<-ctx.Done()
	return notify.Result{Failed: len(recipients)}
}
