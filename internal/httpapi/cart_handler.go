package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/Tooro-byte/Kings-Collection-App-sub001/internal/cart/domain"
	catalogrepo "github.com/Tooro-byte/Kings-Collection-App-sub001/internal/catalog/repository"
	"github.com/go-chi/chi/v5"
)

const timeFormat string = "2006-01-02T15:04:05Z07:00"

// CartService is what the handler needs from the cart layer.
type CartService interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID string, productID int64, quantity int, size string) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, userID, entryID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, entryID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID string) (*domain.Cart, error)
}

type CartHandler struct {
	service CartService
	timeout time.Duration
}

func NewCartHandler(service CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		service: service,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	// Pointer so an omitted quantity (defaults to 1) is distinguishable
	// from an explicit zero (rejected).
	Quantity *int   `json:"quantity"`
	Size     string `json:"size,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartItemDTO struct {
	EntryID   string `json:"entry_id"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Title     string `json:"title"`
	Price     int64  `json:"price"`
	Image     string `json:"image,omitempty"`
	AddedAt   string `json:"added_at"`
}

type CartResponseDTO struct {
	UserID        string        `json:"user_id"`
	Items         []CartItemDTO `json:"items"`
	TotalProducts int           `json:"total_products"`
	TotalPrice    int64         `json:"total_price"`
	UpdatedAt     string        `json:"updated_at,omitempty"`
}

func convertCart(c *domain.Cart) CartResponseDTO {
	resp := CartResponseDTO{
		UserID:        c.UserID,
		Items:         make([]CartItemDTO, len(c.Items)),
		TotalProducts: c.TotalProducts,
		TotalPrice:    c.TotalPrice,
	}
	if !c.UpdatedAt.IsZero() {
		resp.UpdatedAt = c.UpdatedAt.Format(timeFormat)
	}

	for i, item := range c.Items {
		resp.Items[i] = CartItemDTO{
			EntryID:   item.EntryID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Size:      item.Size,
			Title:     item.Title,
			Price:     item.Price,
			Image:     item.Image,
			AddedAt:   item.AddedAt.Format(timeFormat),
		}
	}

	return resp
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	cart, err := h.service.GetCart(ctx, userID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, convertCart(cart))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity <= 0 || quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	cart, err := h.service.AddItem(ctx, userID, req.ProductID, quantity, req.Size)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, convertCart(cart))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	entryID := chi.URLParam(r, "entry_id")
	if entryID == "" {
		respondError(w, http.StatusBadRequest, "invalid_entry_id", "entry_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	// Quantity of zero or less removes the line; the service handles it.
	cart, err := h.service.UpdateQuantity(ctx, userID, entryID, req.Quantity)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, convertCart(cart))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	entryID := chi.URLParam(r, "entry_id")
	if entryID == "" {
		respondError(w, http.StatusBadRequest, "invalid_entry_id", "entry_id is required")
		return
	}

	cart, err := h.service.RemoveItem(ctx, userID, entryID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, convertCart(cart))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	cart, err := h.service.ClearCart(ctx, userID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, convertCart(cart))
}

func (h *CartHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, domain.ErrInvalidProductSnapshot):
		respondError(w, http.StatusBadRequest, "invalid_product", err.Error())
	case errors.Is(err, catalogrepo.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
	default:
		log.Printf("request %s: cart service error: %v", getRequestID(r.Context()), err)
		respondError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}
