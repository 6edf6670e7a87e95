package repository

import (
	"context"
	"errors"

	"github.com/Tooro-byte/Kings-Collection-App-sub001/internal/cart/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository defines the interface for cart persistence.
// Consumers define this interface, not the MongoDB implementation.
// All merge and totals logic lives in the domain aggregator; the repository
// only loads and stores whole cart documents.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error

	// DeleteCart removes the cart document entirely. Reserved for the
	// user-deletion cascade; clearing a cart persists an emptied document.
	DeleteCart(ctx context.Context, userID string) error
}
