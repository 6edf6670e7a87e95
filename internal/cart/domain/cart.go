package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidQuantity        = errors.New("quantity must be at least 1")
	ErrInvalidProductSnapshot = errors.New("product snapshot missing required fields")
)

// ProductSnapshot carries the catalog fields frozen onto a cart line at add
// time. Price is in minor currency units.
type ProductSnapshot struct {
	ID     int64
	Title  string
	Price  int64
	Images []string
}

// ItemEntry is one product+size line in a cart. Title, Price and Image are
// captured from the catalog when the line is created and never refreshed.
// EntryID is the handle used to address the line for update and removal.
type ItemEntry struct {
	EntryID   string    `bson:"entry_id" json:"entry_id"`
	ProductID int64     `bson:"product_id" json:"product_id"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	Size      string    `bson:"size,omitempty" json:"size,omitempty"`
	Title     string    `bson:"title" json:"title"`
	Price     int64     `bson:"price" json:"price"`
	Image     string    `bson:"image,omitempty" json:"image,omitempty"`
	AddedAt   time.Time `bson:"added_at" json:"added_at"`
}

// Cart holds the ordered line items of one user plus the derived totals.
// TotalProducts and TotalPrice are recomputed by every mutating method, so
// they always equal the sums over Items.
type Cart struct {
	UserID        string      `bson:"user_id" json:"user_id"`
	Items         []ItemEntry `bson:"items" json:"items"`
	TotalProducts int         `bson:"total_products" json:"total_products"`
	TotalPrice    int64       `bson:"total_price" json:"total_price"`
	CreatedAt     time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time   `bson:"updated_at" json:"updated_at"`
}

func NewCart(userID string) *Cart {
	return &Cart{UserID: userID}
}

func (c *Cart) recomputeTotals() {
	var products int
	var price int64
	for _, item := range c.Items {
		products += item.Quantity
		price += item.Price * int64(item.Quantity)
	}
	c.TotalProducts = products
	c.TotalPrice = price
}

// AddItem merges the quantity into an existing (product, size) line or
// appends a new line with a snapshot of the product. Validation happens
// before any state change.
func (c *Cart) AddItem(p ProductSnapshot, quantity int, size string) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if p.ID <= 0 || p.Title == "" || p.Price < 0 {
		return ErrInvalidProductSnapshot
	}

	for i := range c.Items {
		if c.Items[i].ProductID == p.ID && c.Items[i].Size == size {
			c.Items[i].Quantity += quantity
			c.recomputeTotals()
			return nil
		}
	}

	var image string
	if len(p.Images) > 0 {
		image = p.Images[0]
	}

	c.Items = append(c.Items, ItemEntry{
		EntryID:   uuid.New().String(),
		ProductID: p.ID,
		Quantity:  quantity,
		Size:      size,
		Title:     p.Title,
		Price:     p.Price,
		Image:     image,
		AddedAt:   time.Now(),
	})
	c.recomputeTotals()
	return nil
}

// RemoveItem drops the line with the given handle. An unknown handle is a
// no-op, not an error.
func (c *Cart) RemoveItem(entryID string) {
	for i := range c.Items {
		if c.Items[i].EntryID == entryID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.recomputeTotals()
			return
		}
	}
}

// UpdateQuantity overwrites the quantity of the line with the given handle.
// A quantity of zero or less removes the line. An unknown handle is a no-op.
func (c *Cart) UpdateQuantity(entryID string, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(entryID)
		return
	}
	for i := range c.Items {
		if c.Items[i].EntryID == entryID {
			c.Items[i].Quantity = quantity
			c.recomputeTotals()
			return
		}
	}
}

// Clear empties the cart and resets both totals.
func (c *Cart) Clear() {
	c.Items = nil
	c.TotalProducts = 0
	c.TotalPrice = 0
}

// FindItem returns the line with the given handle, or nil.
func (c *Cart) FindItem(entryID string) *ItemEntry {
	for i := range c.Items {
		if c.Items[i].EntryID == entryID {
			return &c.Items[i]
		}
	}
	return nil
}
