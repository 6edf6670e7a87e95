package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	catalogdomain "github.com/Tooro-byte/Kings-Collection-App-sub001/internal/catalog/domain"
	catalogrepo "github.com/Tooro-byte/Kings-Collection-App-sub001/internal/catalog/repository"
	"github.com/go-chi/chi/v5"
)

// ProductCatalog is what the handler needs from the catalog layer.
type ProductCatalog interface {
	ListProducts(ctx context.Context) ([]*catalogdomain.Product, error)
	GetProduct(ctx context.Context, id int64) (*catalogdomain.Product, error)
}

type ProductHandler struct {
	catalog ProductCatalog
	timeout time.Duration
}

func NewProductHandler(catalog ProductCatalog, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

type ProductDTO struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Price       int64    `json:"price"`
	Images      []string `json:"images"`
}

type ProductsResponse struct {
	Products []ProductDTO `json:"products"`
}

func convertProduct(p *catalogdomain.Product) ProductDTO {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return ProductDTO{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Images:      images,
	}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		log.Printf("request %s: list products error: %v", getRequestID(r.Context()), err)
		respondError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
		return
	}

	resp := ProductsResponse{Products: make([]ProductDTO, 0, len(products))}
	for _, p := range products {
		resp.Products = append(resp.Products, convertProduct(p))
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product id must be a positive integer")
		return
	}

	product, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, catalogrepo.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "product_not_found", "product not found")
			return
		}
		log.Printf("request %s: get product error: %v", getRequestID(r.Context()), err)
		respondError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
		return
	}

	respondJSON(w, http.StatusOK, convertProduct(product))
}
