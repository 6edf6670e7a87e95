package domain

import "time"

// Product is a catalog entry. Price is in minor currency units; the catalog
// repository converts from the stored decimal representation.
type Product struct {
	ID          int64
	Title       string
	Description string
	Price       int64
	Images      []string
	CreatedAt   time.Time
}
