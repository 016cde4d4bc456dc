package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_shopbot/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func sampleSession(uid int64) *domain.Session {
	s := domain.NewSession(uid, domain.StateAddVariants)
	s.Draft = domain.ProductDraft{WithVariants: true, Name: "Brick", Price: 1000, Variants: []string{"S", "M"}}
	s.Push(domain.View{Kind: domain.ViewCatalog})
	s.Push(domain.View{Kind: domain.ViewProduct, ProductID: 3})
	return s
}

// runStoreContract exercises behavior every Store must share.
func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	in := sampleSession(1)
	require.NoError(t, store.Save(ctx, in))

	out, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, in.State, out.State)
	assert.Equal(t, in.Draft, out.Draft)
	assert.Equal(t, in.Nav, out.Nav)

	out.Reset()
	out.ClearNav()
	require.NoError(t, store.Save(ctx, out))

	again, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StateIdle, again.State)
	assert.Empty(t, again.Nav)
	assert.Empty(t, again.Draft.Name)

	require.NoError(t, store.Delete(ctx, 1))
	_, err = store.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_Contract(t *testing.T) {
	store := NewMemoryStore(time.Hour, time.Hour)
	defer store.Close()

	runStoreContract(t, store)
}

func TestMemoryStore_CopiesOnSaveAndGet(t *testing.T) {
	store := NewMemoryStore(time.Hour, time.Hour)
	defer store.Close()
	ctx := context.Background()

	in := sampleSession(1)
	require.NoError(t, store.Save(ctx, in))
	in.Nav[0].Kind = domain.ViewCart
	in.Draft.Variants[0] = "XL"

	out, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.ViewCatalog, out.Nav[0].Kind)
	assert.Equal(t, "S", out.Draft.Variants[0])
}

func TestMemoryStore_ExpiresIdleSessions(t *testing.T) {
	store := NewMemoryStore(time.Minute, time.Hour)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession(1)))
	require.NoError(t, store.Save(ctx, sampleSession(2)))

	store.expireSessions(time.Now().Add(30 * time.Second))
	assert.Equal(t, 2, store.Len())

	store.expireSessions(time.Now().Add(2 * time.Minute))
	assert.Zero(t, store.Len())
}

func TestMemoryStore_CleanupLoopRuns(t *testing.T) {
	store := NewMemoryStore(time.Millisecond, 5*time.Millisecond)
	defer store.Close()

	require.NoError(t, store.Save(context.Background(), sampleSession(1)))

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
}

// setupTestRedis creates a miniredis server and returns a RedisStore instance
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStore(client, time.Hour)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return store, mr, cleanup
}

func TestRedisStore_Contract(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()

	runStoreContract(t, store)
}

func TestRedisStore_SetsJitteredTTL(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, store.Save(context.Background(), sampleSession(5)))

	ttl := mr.TTL(sessionKey(5))
	assert.GreaterOrEqual(t, ttl, time.Hour)
	assert.Less(t, ttl, time.Hour+5*time.Minute)

	mr.FastForward(2 * time.Hour)
	_, err := store.Get(context.Background(), 5)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, mr.Set(sessionKey(9), "{not json"))

	_, err := store.Get(context.Background(), 9)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func setupTestMongo(t *testing.T) (*MongoStore, func()) {
	if testing.Short() {
		t.Skip("skipping mongo integration test in short mode")
	}
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	store := NewMongoStore(db, time.Hour)
	require.NoError(t, store.CreateIndexes(ctx))

	cleanup := func() {
		_ = db.Client().Disconnect(ctx)
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return store, cleanup
}

func TestMongoStore_Contract(t *testing.T) {
	store, cleanup := setupTestMongo(t)
	defer cleanup()

	runStoreContract(t, store)
}
