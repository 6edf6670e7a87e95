package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Tooro-byte/Kings-Collection-App-sub001/internal/cart/cache"
	"github.com/Tooro-byte/Kings-Collection-App-sub001/internal/cart/domain"
	"github.com/Tooro-byte/Kings-Collection-App-sub001/internal/cart/repository"
	catalogdomain "github.com/Tooro-byte/Kings-Collection-App-sub001/internal/catalog/domain"
	catalogrepo "github.com/Tooro-byte/Kings-Collection-App-sub001/internal/catalog/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	m       sync.RWMutex
	carts   map[string]*domain.Cart
	err     error
	upserts int
}

func newMockRepository() *mockRepository {
	return &mockRepository{carts: map[string]*domain.Cart{}}
}

func (m *mockRepository) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	cart, ok := m.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	// Copy so callers cannot mutate stored state without saving
	clone := *cart
	clone.Items = append([]domain.ItemEntry(nil), cart.Items...)
	return &clone, nil
}

func (m *mockRepository) UpsertCart(_ context.Context, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	clone := *cart
	clone.Items = append([]domain.ItemEntry(nil), cart.Items...)
	m.carts[cart.UserID] = &clone
	m.upserts++
	return nil
}

func (m *mockRepository) DeleteCart(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.carts, userID)
	return nil
}

type mockCache struct {
	m       sync.RWMutex
	cart    *domain.Cart
	err     error
	deletes int
}

func (m *mockCache) Get(context.Context, string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, cache.ErrCacheMiss
	}
	return m.cart, nil
}

func (m *mockCache) Set(_ context.Context, _ string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = cart
	return m.err
}

func (m *mockCache) Delete(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = nil
	m.deletes++
	return m.err
}

type mockCatalog struct {
	products map[int64]*catalogdomain.Product
}

func (m *mockCatalog) GetProduct(_ context.Context, id int64) (*catalogdomain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, catalogrepo.ErrProductNotFound
	}
	return p, nil
}

type mockPublisher struct {
	m      sync.Mutex
	events []CartUpdatedEvent
	err    error
}

func (m *mockPublisher) PublishCartUpdated(_ context.Context, event CartUpdatedEvent) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) published() []CartUpdatedEvent {
	m.m.Lock()
	defer m.m.Unlock()
	return append([]CartUpdatedEvent(nil), m.events...)
}

func newTestService() (*CartService, *mockRepository, *mockCache, *mockPublisher) {
	repo := newMockRepository()
	c := &mockCache{}
	catalog := &mockCatalog{products: map[int64]*catalogdomain.Product{
		1: {ID: 1, Title: "Classic Shirt", Price: 20000, Images: []string{"a.jpg"}},
		2: {ID: 2, Title: "Wool Beanie", Price: 8599},
	}}
	pub := &mockPublisher{}
	return NewCartService(repo, c, catalog, pub), repo, c, pub
}

func TestGetCart_FromCache(t *testing.T) {
	svc, _, c, _ := newTestService()

	cached := domain.NewCart("user1")
	require.NoError(t, c.Set(context.Background(), "user1", cached))

	cart, err := svc.GetCart(context.Background(), "user1")
	require.NoError(t, err)
	assert.Same(t, cached, cart)
}

func TestGetCart_CacheMissFallsBackToRepo(t *testing.T) {
	svc, repo, _, _ := newTestService()

	stored := domain.NewCart("user1")
	require.NoError(t, stored.AddItem(domain.ProductSnapshot{ID: 1, Title: "Classic Shirt", Price: 20000}, 2, "L"))
	require.NoError(t, repo.UpsertCart(context.Background(), stored))

	cart, err := svc.GetCart(context.Background(), "user1")
	require.NoError(t, err)
	assert.Equal(t, 2, cart.TotalProducts)
	assert.Equal(t, int64(40000), cart.TotalPrice)
}

func TestGetCart_UnknownUserGetsEmptyCart(t *testing.T) {
	svc, _, _, _ := newTestService()

	cart, err := svc.GetCart(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, "nobody", cart.UserID)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.TotalProducts)
}

func TestAddItem_CreatesCartLazily(t *testing.T) {
	svc, repo, c, pub := newTestService()

	cart, err := svc.AddItem(context.Background(), "user1", 1, 2, "L")
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, "Classic Shirt", cart.Items[0].Title)
	assert.Equal(t, int64(20000), cart.Items[0].Price)
	assert.Equal(t, "a.jpg", cart.Items[0].Image)
	assert.Equal(t, int64(40000), cart.TotalPrice)

	// Persisted, cache invalidated, event out
	stored, err := repo.GetCart(context.Background(), "user1")
	require.NoError(t, err)
	assert.Equal(t, int64(40000), stored.TotalPrice)
	assert.Equal(t, 1, c.deletes)

	events := pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, "user1", events[0].UserID)
	assert.Equal(t, 2, events[0].TotalProducts)
	assert.Equal(t, int64(40000), events[0].TotalPrice)
}

func TestAddItem_ProductNotFound(t *testing.T) {
	svc, repo, _, pub := newTestService()

	cart, err := svc.AddItem(context.Background(), "user1", 999, 1, "")

	assert.ErrorIs(t, err, catalogrepo.ErrProductNotFound)
	assert.Nil(t, cart)
	assert.Equal(t, 0, repo.upserts)
	assert.Empty(t, pub.published())
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	svc, repo, _, pub := newTestService()

	cart, err := svc.AddItem(context.Background(), "user1", 1, 0, "")

	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Nil(t, cart)
	assert.Equal(t, 0, repo.upserts)
	assert.Empty(t, pub.published())
}

func TestAddItem_MergesAcrossRequests(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "user1", 1, 2, "L")
	require.NoError(t, err)
	cart, err := svc.AddItem(ctx, "user1", 1, 1, "L")
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, int64(60000), cart.TotalPrice)
}

func TestUpdateQuantity_Overwrites(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, "user1", 1, 3, "L")
	require.NoError(t, err)
	handle := cart.Items[0].EntryID

	cart, err = svc.UpdateQuantity(ctx, "user1", handle, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.Equal(t, int64(20000), cart.TotalPrice)
}

func TestUpdateQuantity_ZeroRemoves(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, "user1", 1, 3, "L")
	require.NoError(t, err)
	handle := cart.Items[0].EntryID

	cart, err = svc.UpdateQuantity(ctx, "user1", handle, 0)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, int64(0), cart.TotalPrice)
}

func TestRemoveItem_UnknownHandleStillSucceeds(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "user1", 1, 2, "")
	require.NoError(t, err)

	cart, err := svc.RemoveItem(ctx, "user1", "no-such-handle")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestClearCart_KeepsDocument(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "user1", 1, 2, "")
	require.NoError(t, err)

	cart, err := svc.ClearCart(ctx, "user1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	// The document survives with zeroed totals; it is not deleted.
	stored, err := repo.GetCart(ctx, "user1")
	require.NoError(t, err)
	assert.Empty(t, stored.Items)
	assert.Equal(t, 0, stored.TotalProducts)
	assert.Equal(t, int64(0), stored.TotalPrice)
}

func TestPublisherFailureDoesNotFailMutation(t *testing.T) {
	svc, _, _, pub := newTestService()
	pub.err = assert.AnError

	cart, err := svc.AddItem(context.Background(), "user1", 1, 1, "")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

// Concurrent adds for the same user must not lose updates: the per-user lock
// serializes each load-mutate-save cycle.
func TestAddItem_ConcurrentSameUser(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	const goroutines = 20
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddItem(ctx, "user1", 1, 1, "L")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	cart, err := svc.GetCart(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, goroutines, cart.Items[0].Quantity)
	assert.Equal(t, int64(20000*goroutines), cart.TotalPrice)
}

func TestAddItem_ConcurrentDifferentUsers(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	users := []string{"a", "b", "c", "d"}
	var wg sync.WaitGroup
	for _, u := range users {
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func(u string) {
				defer wg.Done()
				_, err := svc.AddItem(ctx, u, 2, 1, "")
				assert.NoError(t, err)
			}(u)
		}
	}
	wg.Wait()

	for _, u := range users {
		cart, err := svc.GetCart(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, 5, cart.TotalProducts, "user %s", u)
	}
}

func TestGetCart_SetsCacheAfterMiss(t *testing.T) {
	svc, repo, c, _ := newTestService()
	ctx := context.Background()

	stored := domain.NewCart("user1")
	require.NoError(t, repo.UpsertCart(ctx, stored))

	_, err := svc.GetCart(ctx, "user1")
	require.NoError(t, err)

	// The cache fill happens in the background
	assert.Eventually(t, func() bool {
		_, err := c.Get(ctx, "user1")
		return err == nil
	}, time.Second, 10*time.Millisecond)
}
