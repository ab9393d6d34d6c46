package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"watch-tryon/internal/store"
)

// defaultProductLimit and maxProductLimit bound listing page sizes.
const (
	defaultProductLimit = 50
	maxProductLimit     = 100
)

// ProductHandler handles HTTP requests for the watch catalog.
type ProductHandler struct {
	store *store.Store
}

// NewProductHandler creates a new ProductHandler with the given store.
func NewProductHandler(s *store.Store) *ProductHandler {
	return &ProductHandler{store: s}
}

// ServeHTTP routes /api/products, /api/products/{brands,categories}, and
// /api/products/{id}.
func (h *ProductHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/products")
	path = strings.TrimPrefix(path, "/")

	switch path {
	case "":
		h.list(w, r)
	case "brands":
		h.distinct(w, "brands", h.store.Products().Brands)
	case "categories":
		h.distinct(w, "categories", h.store.Products().Categories)
	default:
		h.get(w, r, path)
	}
}

type productResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Brand       string  `json:"brand"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Stock       int     `json:"stock"`
	Rating      float64 `json:"rating"`
	CreatedAt   string  `json:"created_at"`
}

type listProductsResponse struct {
	Products []productResponse `json:"products"`
}

func toProductResponse(p *store.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Brand:       p.Brand,
		Category:    p.Category,
		Price:       p.Price,
		Image:       p.Image,
		Stock:       p.Stock,
		Rating:      p.Rating,
		CreatedAt:   p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// listFilter parses the listing query parameters. It returns a written=true
// sentinel after answering a validation failure itself.
func listFilter(w http.ResponseWriter, r *http.Request) (store.ProductFilter, bool) {
	q := r.URL.Query()
	filter := store.ProductFilter{
		Search:   q.Get("search"),
		Brand:    q.Get("brand"),
		Category: q.Get("category"),
		SortBy:   q.Get("sort_by"),
		Limit:    defaultProductLimit,
	}

	bad := func(param string) (store.ProductFilter, bool) {
		writeError(w, http.StatusBadRequest, "Invalid "+param)
		return store.ProductFilter{}, false
	}

	if v := q.Get("min_price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || price < 0 {
			return bad("min_price")
		}
		filter.MinPrice = price
	}
	if v := q.Get("max_price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || price < 0 {
			return bad("max_price")
		}
		filter.MaxPrice = price
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxProductLimit {
			return bad("limit")
		}
		filter.Limit = limit
	}
	if v := q.Get("skip"); v != "" {
		skip, err := strconv.Atoi(v)
		if err != nil || skip < 0 {
			return bad("skip")
		}
		filter.Offset = skip
	}

	switch q.Get("sort_order") {
	case "", "desc":
	case "asc":
		filter.Ascending = true
	default:
		return bad("sort_order")
	}

	return filter, true
}

// list handles GET /api/products with optional search, brand, category,
// and price filters plus sorting and paging.
func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request) {
	filter, ok := listFilter(w, r)
	if !ok {
		return
	}

	products, err := h.store.Products().List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}

	response := listProductsResponse{
		Products: make([]productResponse, 0, len(products)),
	}
	for _, p := range products {
		response.Products = append(response.Products, toProductResponse(p))
	}

	writeJSON(w, http.StatusOK, response)
}

// distinct handles GET /api/products/brands and /api/products/categories.
func (h *ProductHandler) distinct(w http.ResponseWriter, field string, load func() ([]string, error)) {
	values, err := load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list "+field)
		return
	}
	if values == nil {
		values = []string{}
	}

	writeJSON(w, http.StatusOK, map[string][]string{field: values})
}

// get handles GET /api/products/{id}.
func (h *ProductHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	product, err := h.store.Products().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get product")
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}
