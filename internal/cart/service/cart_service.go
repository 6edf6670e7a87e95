package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Tooro-byte/Kings-Collection-App-sub001/internal/cart/cache"
	"github.com/Tooro-byte/Kings-Collection-App-sub001/internal/cart/domain"
	"github.com/Tooro-byte/Kings-Collection-App-sub001/internal/cart/repository"
	catalogdomain "github.com/Tooro-byte/Kings-Collection-App-sub001/internal/catalog/domain"
	"golang.org/x/sync/singleflight"
)

// ProductGetter is the product lookup capability the cart needs at add time.
// Consumers define this interface, not the catalog implementation.
type ProductGetter interface {
	GetProduct(ctx context.Context, id int64) (*catalogdomain.Product, error)
}

// CartUpdatedEvent is published after every successful cart mutation.
type CartUpdatedEvent struct {
	UserID        string    `json:"user_id"`
	TotalProducts int       `json:"total_products"`
	TotalPrice    int64     `json:"total_price"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type EventPublisher interface {
	PublishCartUpdated(ctx context.Context, event CartUpdatedEvent) error
}

// CartService serializes all writes for a user behind a per-user lock, so the
// load-mutate-save cycle below never loses updates between concurrent
// requests. The aggregator itself holds no locks.
type CartService struct {
	repo    repository.CartRepository
	cache   cache.CartCache
	catalog ProductGetter
	events  EventPublisher
	sfg     singleflight.Group // Prevents cache stampede
	locks   userLocks
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, catalog ProductGetter, events EventPublisher) *CartService {
	return &CartService{
		repo:    repo,
		cache:   cache,
		catalog: catalog,
		events:  events,
	}
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {

		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v \n", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, userID)
		if errGet != nil && errors.Is(errGet, repository.ErrCartNotFound) {
			// Carts are created lazily on first add; an unknown user
			// just has an empty one.
			return domain.NewCart(userID), nil
		}
		if errGet != nil {
			return nil, errGet
		}

		// set cache
		go func() {
			errSet := s.cache.Set(context.Background(), userID, cart)
			if errSet != nil {
				log.Printf("cache set error: %v \n", errSet)
			}
		}()

		return cart, nil // cart was not in cache, return it from repo
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

func (s *CartService) AddItem(ctx context.Context, userID string, productID int64, quantity int, size string) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("product lookup failed: %w", err)
	}
	snapshot := domain.ProductSnapshot{
		ID:     product.ID,
		Title:  product.Title,
		Price:  product.Price,
		Images: product.Images,
	}

	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		return cart.AddItem(snapshot, quantity, size)
	})
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID, entryID string, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		cart.UpdateQuantity(entryID, quantity)
		return nil
	})
}

func (s *CartService) RemoveItem(ctx context.Context, userID, entryID string) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		cart.RemoveItem(entryID)
		return nil
	})
}

func (s *CartService) ClearCart(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		cart.Clear()
		return nil
	})
}

// mutate runs one load-mutate-save cycle under the user's lock and returns
// the updated cart. The mutation happens entirely in memory; nothing is
// persisted if fn fails.
func (s *CartService) mutate(ctx context.Context, userID string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	cart, err := s.repo.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		cart = domain.NewCart(userID)
	} else if err != nil {
		return nil, err
	}

	if err := fn(cart); err != nil {
		return nil, err
	}

	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		log.Printf("repo upsert cart error: %v \n", err)
		return nil, err
	}

	s.invalidateCache(userID)
	s.publishUpdated(cart)

	return cart, nil
}

func (s *CartService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cache invalidate error: %v \n", err)
	}
}

// publishUpdated is best effort: the cart is already saved, a lost event only
// delays downstream consumers until the next mutation.
func (s *CartService) publishUpdated(cart *domain.Cart) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	err := s.events.PublishCartUpdated(ctx, CartUpdatedEvent{
		UserID:        cart.UserID,
		TotalProducts: cart.TotalProducts,
		TotalPrice:    cart.TotalPrice,
		UpdatedAt:     cart.UpdatedAt,
	})
	if err != nil {
		log.Printf("publish cart updated error: %v \n", err)
	}
}
