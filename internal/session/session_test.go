package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehouse-assistant/internal/nlp/entity"
	"warehouse-assistant/internal/nlp/intent"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func laptopEntity() entity.Entity {
	return entity.Entity{
		Kind:       entity.KindProductName,
		Value:      "Gaming Laptop",
		Normalized: "gaming laptop",
		Resolved:   true,
		CatalogRef: "LAPTOP001",
		MatchScore: 1,
	}
}

// ==========================
// MemoryStore
// ==========================

func TestMemoryStore_UpdateAndGet(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(30*time.Minute, WithClock(clock.Now))

	_, ok, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	c, err := s.Update(ctx, "s1", "u1", intent.InventoryCheck, []entity.Entity{laptopEntity()})
	require.NoError(t, err)
	assert.Equal(t, 1, c.TurnCount)
	assert.Equal(t, "u1", c.UserID)

	clock.Advance(time.Minute)
	c, err = s.Update(ctx, "s1", "", intent.Gratitude, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, c.TurnCount)
	assert.Equal(t, "u1", c.UserID)
	assert.Equal(t, intent.Gratitude, c.LastIntent)
	require.Len(t, c.LastEntities, 1, "empty turns keep the remembered product")

	got, ok, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, clock.Now(), got.LastSeenAt)

	p, ok := got.LastProduct()
	require.True(t, ok)
	assert.Equal(t, "LAPTOP001", p.CatalogRef)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	_, err := s.Update(ctx, "s1", "u1", intent.InventoryCheck, []entity.Entity{laptopEntity()})
	require.NoError(t, err)

	c, _, _ := s.Get(ctx, "s1")
	c.LastEntities[0].CatalogRef = "CHANGED"
	c.TurnCount = 99

	again, _, _ := s.Get(ctx, "s1")
	assert.Equal(t, "LAPTOP001", again.LastEntities[0].CatalogRef)
	assert.Equal(t, 1, again.TurnCount)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(10*time.Minute, WithClock(clock.Now))

	_, err := s.Update(ctx, "old", "u1", intent.InventoryCheck, []entity.Entity{laptopEntity()})
	require.NoError(t, err)
	clock.Advance(5 * time.Minute)
	_, err = s.Update(ctx, "fresh", "u2", intent.Greeting, nil)
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)

	_, ok, _ := s.Get(ctx, "old")
	assert.False(t, ok, "idle session is invisible before the sweep")
	_, ok, _ = s.Get(ctx, "fresh")
	assert.True(t, ok)

	assert.Equal(t, 1, s.Sweep(clock.Now()))
	assert.Equal(t, 1, s.Len())

	c, err := s.Update(ctx, "old", "u1", intent.Greeting, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.TurnCount, "expired session starts over")
	assert.Empty(t, c.LastEntities)
}

func TestMemoryStore_Janitor(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := NewMemoryStore(time.Minute, WithClock(clock.Now))

	_, err := s.Update(context.Background(), "s1", "u1", intent.Greeting, nil)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := s.StartJanitor(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestMemoryStore_ConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			for j := 0; j < 10; j++ {
				_, err := s.Update(ctx, id, "u", intent.InventoryCheck, nil)
				assert.NoError(t, err)
				_, _, err = s.Get(ctx, id)
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		c, ok, err := s.Get(ctx, fmt.Sprintf("s%d", i))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 10, c.TurnCount)
	}
}

// ==========================
// RedisStore
// ==========================

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_UpdateAndGet(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	s := NewRedisStore(client, 30*time.Minute, "")

	_, ok, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Update(ctx, "s1", "u1", intent.InventoryCheck, []entity.Entity{laptopEntity()})
	require.NoError(t, err)
	c, err := s.Update(ctx, "s1", "u1", intent.StockUpdate, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, c.TurnCount)

	assert.True(t, mr.Exists("warehouse:session:s1"))
	assert.Equal(t, 30*time.Minute, mr.TTL("warehouse:session:s1"))

	got, ok, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, intent.StockUpdate, got.LastIntent)
	p, ok := got.LastProduct()
	require.True(t, ok)
	assert.Equal(t, "LAPTOP001", p.CatalogRef)
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	s := NewRedisStore(client, time.Minute, "test:")

	_, err := s.Update(ctx, "s1", "u1", intent.Greeting, nil)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:s1"))

	mr.FastForward(2 * time.Minute)

	_, ok, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("get error", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		s := NewRedisStore(db, time.Minute, "")
		mock.ExpectGet("warehouse:session:s1").SetErr(errors.New("connection refused"))

		_, _, err := s.Get(ctx, "s1")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrStore))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt value", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		s := NewRedisStore(db, time.Minute, "")
		mock.ExpectGet("warehouse:session:s1").SetVal("not-json")

		_, err := s.Update(ctx, "s1", "u1", intent.Greeting, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrStore))
	})

	t.Run("missing key", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		s := NewRedisStore(db, time.Minute, "")
		mock.ExpectGet("warehouse:session:s1").RedisNil()

		_, ok, err := s.Get(ctx, "s1")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
