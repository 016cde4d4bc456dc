package repository

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_shopbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Repository {
	// Use in-memory database for tests
	repo, err := NewRepository(&Credentials{Driver: DriverSQLite, Path: ":memory:"}, nil)
	require.NoError(t, err)

	require.NoError(t, repo.RunMigrations("./migrations"))

	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedProduct(t *testing.T, repo *Repository, name string, price int64, variants ...string) int64 {
	id, err := repo.CreateProduct(context.Background(), &domain.Product{
		Name:     name,
		Price:    price,
		Variants: variants,
	})
	require.NoError(t, err)
	return id
}

func TestUpsertUser_OverwritesExisting(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertUser(ctx, &domain.User{ID: 42, Name: "Ali", Phone: "+998901234567"}))
	require.NoError(t, repo.UpsertUser(ctx, &domain.User{ID: 42, Name: "Vali", Phone: "+998900000000"}))

	u, err := repo.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Vali", u.Name)
	assert.Equal(t, "+998900000000", u.Phone)

	ids, err := repo.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, ids)
}

func TestGetUser_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.GetUser(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestProducts_NewestFirstAndVariants(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	first := seedProduct(t, repo, "Brick", 1000, "S", "M")
	second := seedProduct(t, repo, "Cement", 50000)

	products, err := repo.GetAllProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, second, products[0].ID)
	assert.Equal(t, first, products[1].ID)
	assert.Equal(t, []string{"S", "M"}, products[1].Variants)
	assert.False(t, products[0].HasVariants())
	assert.WithinDuration(t, time.Now(), products[0].CreatedAt, time.Minute)
}

func TestGetProduct_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.GetProduct(context.Background(), 99)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestUpdateProductField(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	id := seedProduct(t, repo, "Brick", 1000, "S")

	require.NoError(t, repo.UpdateProductField(ctx, id, domain.FieldName, "Red brick"))
	require.NoError(t, repo.UpdateProductField(ctx, id, domain.FieldPrice, int64(1200)))
	require.NoError(t, repo.UpdateProductField(ctx, id, domain.FieldVariants, []string(nil)))
	require.NoError(t, repo.UpdateProductField(ctx, id, domain.FieldImage, "img-2"))

	p, err := repo.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Red brick", p.Name)
	assert.Equal(t, int64(1200), p.Price)
	assert.Empty(t, p.Variants)
	assert.Equal(t, "img-2", p.ImageRef)

	err = repo.UpdateProductField(ctx, id+100, domain.FieldName, "x")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCart_SentinelAndEmptyVariantAreOneLine(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	pid := seedProduct(t, repo, "Cement", 50000)

	require.NoError(t, repo.AddToCart(ctx, 1, pid, "", 2))
	require.NoError(t, repo.AddToCart(ctx, 1, pid, "-", 1))
	require.NoError(t, repo.IncrementLine(ctx, 1, pid, " "))

	rows, err := repo.GetCartRows(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.NoVariant, rows[0].Variant)
	assert.Equal(t, 4, rows[0].Quantity)
	assert.Equal(t, "Cement", rows[0].Name)
}

func TestCart_VariantsAreSeparateLines(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	pid := seedProduct(t, repo, "Brick", 1000, "S", "M")

	require.NoError(t, repo.AddToCart(ctx, 1, pid, "S", 1))
	require.NoError(t, repo.AddToCart(ctx, 1, pid, "M", 3))

	rows, err := repo.GetCartRows(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(4000), domain.CartTotal(rows))
}

func TestAddToCart_UnknownProduct(t *testing.T) {
	repo := setupTestDB(t)

	err := repo.AddToCart(context.Background(), 1, 404, "", 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestDecrementLine_DeletesAtOne(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	pid := seedProduct(t, repo, "Brick", 1000)

	require.NoError(t, repo.AddToCart(ctx, 1, pid, "", 2))
	require.NoError(t, repo.DecrementLine(ctx, 1, pid, ""))

	rows, err := repo.GetCartRows(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Quantity)

	require.NoError(t, repo.DecrementLine(ctx, 1, pid, "-"))
	rows, err = repo.GetCartRows(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, rows)

	// missing line is a no-op
	require.NoError(t, repo.DecrementLine(ctx, 1, pid, ""))
	require.NoError(t, repo.IncrementLine(ctx, 1, pid, ""))
	rows, err = repo.GetCartRows(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCart_RemoveAndClear(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	a := seedProduct(t, repo, "Brick", 1000, "S")
	b := seedProduct(t, repo, "Cement", 50000)

	require.NoError(t, repo.AddToCart(ctx, 1, a, "S", 1))
	require.NoError(t, repo.AddToCart(ctx, 1, b, "", 1))
	require.NoError(t, repo.AddToCart(ctx, 2, b, "", 1))

	require.NoError(t, repo.RemoveLine(ctx, 1, a, "S"))
	rows, err := repo.GetCartRows(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, b, rows[0].ProductID)

	require.NoError(t, repo.ClearCart(ctx, 1))
	rows, err = repo.GetCartRows(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = repo.GetCartRows(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDeleteProduct_CascadesCartLines(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	pid := seedProduct(t, repo, "Brick", 1000, "S", "M")
	keep := seedProduct(t, repo, "Cement", 50000)

	require.NoError(t, repo.AddToCart(ctx, 1, pid, "S", 1))
	require.NoError(t, repo.AddToCart(ctx, 2, pid, "M", 5))
	require.NoError(t, repo.AddToCart(ctx, 2, keep, "", 1))

	require.NoError(t, repo.DeleteProduct(ctx, pid))

	var remaining int
	require.NoError(t, repo.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cart_lines WHERE product_id = $1`, pid).Scan(&remaining))
	assert.Zero(t, remaining)

	rows, err := repo.GetCartRows(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	assert.ErrorIs(t, repo.DeleteProduct(ctx, pid), ErrProductNotFound)
}

func TestConfirmOrder_SnapshotsLivePricesAndClearsCart(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	pid := seedProduct(t, repo, "Brick", 1000, "S", "M")

	require.NoError(t, repo.AddToCart(ctx, 7, pid, "M", 3))
	require.NoError(t, repo.UpdateProductField(ctx, pid, domain.FieldPrice, int64(1500)))

	order, err := repo.ConfirmOrder(ctx, 7)
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
	assert.Equal(t, int64(4500), order.Total)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "M", order.Items[0].Variant)
	assert.Equal(t, int64(1500), order.Items[0].UnitPrice)

	rows, err := repo.GetCartRows(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, rows)

	orders, err := repo.ListOrdersByUserID(ctx, 7)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.Items, orders[0].Items)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventOrderConfirmed, events[0].EventType)
	assert.Equal(t, strconv.FormatInt(order.ID, 10), events[0].AggregateID)
	assert.Contains(t, string(events[0].Payload), `"total":4500`)
}

func TestConfirmOrder_EmptyCart(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.ConfirmOrder(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNoCartLines)
}

func TestConfirmOrder_FailureLeavesCartIntact(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	pid := seedProduct(t, repo, "Brick", 1000)
	require.NoError(t, repo.AddToCart(ctx, 7, pid, "", 2))

	// the order insert succeeds, the outbox insert fails
	_, err := repo.db.ExecContext(ctx, `DROP TABLE outbox_events`)
	require.NoError(t, err)

	_, err = repo.ConfirmOrder(ctx, 7)
	require.Error(t, err)

	rows, err := repo.GetCartRows(ctx, 7)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Quantity)

	orders, err := repo.ListOrdersByUserID(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOutbox_MarkProcessed(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	pid := seedProduct(t, repo, "Brick", 1000)
	require.NoError(t, repo.AddToCart(ctx, 7, pid, "", 1))
	_, err := repo.ConfirmOrder(ctx, 7)
	require.NoError(t, err)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))

	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestGetStats(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	brick := seedProduct(t, repo, "Brick", 1000, "S", "M")
	cement := seedProduct(t, repo, "Cement", 50000)

	require.NoError(t, repo.UpsertUser(ctx, &domain.User{ID: 1, Name: "Ali", Phone: "1"}))
	require.NoError(t, repo.UpsertUser(ctx, &domain.User{ID: 2, Name: "Vali", Phone: "2"}))

	require.NoError(t, repo.AddToCart(ctx, 1, brick, "S", 2))
	require.NoError(t, repo.AddToCart(ctx, 1, brick, "M", 3))
	_, err := repo.ConfirmOrder(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, repo.AddToCart(ctx, 2, cement, "", 1))
	_, err = repo.ConfirmOrder(ctx, 2)
	require.NoError(t, err)

	stats, err := repo.GetStats(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Users)
	assert.Equal(t, 2, stats.Orders)
	assert.Equal(t, int64(55000), stats.Revenue)
	assert.Equal(t, []domain.ProductTally{{Name: "Brick", Quantity: 5}, {Name: "Cement", Quantity: 1}}, stats.TopProducts)
}

func TestAddToCart_ConcurrentIncrementsAreNotLost(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	pid := seedProduct(t, repo, "Brick", 1000)
	require.NoError(t, repo.AddToCart(ctx, 1, pid, "", 1))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.IncrementLine(ctx, 1, pid, ""))
		}()
	}
	wg.Wait()

	rows, err := repo.GetCartRows(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 21, rows[0].Quantity)
}
