package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"watch-tryon/internal/auth"
	"watch-tryon/internal/store"
)

// CartHandler handles the authenticated cart endpoints.
type CartHandler struct {
	store *store.Store
	auth  *auth.Service
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(s *store.Store, svc *auth.Service) *CartHandler {
	return &CartHandler{store: s, auth: svc}
}

// ServeHTTP routes /api/cart and /api/cart/{productID}.
func (h *CartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := bearerClaims(r, h.auth)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	userID := claims.Subject

	path := strings.TrimPrefix(r.URL.Path, "/api/cart")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, userID)
		case http.MethodPost:
			h.add(w, r, userID)
		case http.MethodDelete:
			h.clear(w, userID)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	productID := path
	switch r.Method {
	case http.MethodPut:
		h.update(w, r, userID, productID)
	case http.MethodDelete:
		h.remove(w, userID, productID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

type addCartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateCartRequest struct {
	Quantity int `json:"quantity"`
}

type cartItemResponse struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Brand     string  `json:"brand"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
}

type cartResponse struct {
	Items      []cartItemResponse `json:"items"`
	TotalItems int                `json:"total_items"`
	TotalPrice float64            `json:"total_price"`
}

// list handles GET /api/cart.
func (h *CartHandler) list(w http.ResponseWriter, userID string) {
	items, err := h.store.Cart().ListByUser(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load cart")
		return
	}

	summary, err := h.store.Cart().Summary(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load cart")
		return
	}

	response := cartResponse{
		Items:      make([]cartItemResponse, 0, len(items)),
		TotalItems: summary.TotalItems,
		TotalPrice: summary.TotalPrice,
	}
	for _, item := range items {
		response.Items = append(response.Items, cartItemResponse{
			ProductID: item.ProductID,
			Name:      item.ProductName,
			Brand:     item.ProductBrand,
			Price:     item.ProductPrice,
			Image:     item.ProductImage,
			Quantity:  item.Quantity,
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// add handles POST /api/cart.
func (h *CartHandler) add(w http.ResponseWriter, r *http.Request, userID string) {
	var req addCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	if _, err := h.store.Products().GetByID(req.ProductID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to add to cart")
		return
	}

	if err := h.store.Cart().Add(userID, req.ProductID, req.Quantity); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to add to cart")
		return
	}

	h.list(w, userID)
}

// update handles PUT /api/cart/{productID}.
func (h *CartHandler) update(w http.ResponseWriter, r *http.Request, userID, productID string) {
	var req updateCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.store.Cart().UpdateQuantity(userID, productID, req.Quantity); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Not in cart")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update cart")
		return
	}

	h.list(w, userID)
}

// remove handles DELETE /api/cart/{productID}.
func (h *CartHandler) remove(w http.ResponseWriter, userID, productID string) {
	if err := h.store.Cart().Remove(userID, productID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Not in cart")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update cart")
		return
	}

	h.list(w, userID)
}

// clear handles DELETE /api/cart.
func (h *CartHandler) clear(w http.ResponseWriter, userID string) {
	if err := h.store.Cart().Clear(userID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear cart")
		return
	}

	h.list(w, userID)
}
