package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"watch-tryon/internal/auth"
	"watch-tryon/internal/store"
)

// WishlistHandler handles the authenticated wishlist endpoints.
type WishlistHandler struct {
	store *store.Store
	auth  *auth.Service
}

// NewWishlistHandler creates a new WishlistHandler.
func NewWishlistHandler(s *store.Store, svc *auth.Service) *WishlistHandler {
	return &WishlistHandler{store: s, auth: svc}
}

// ServeHTTP routes /api/wishlist and /api/wishlist/{productID}.
func (h *WishlistHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := bearerClaims(r, h.auth)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	userID := claims.Subject

	path := strings.TrimPrefix(r.URL.Path, "/api/wishlist")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, userID)
		case http.MethodPost:
			h.toggle(w, r, userID)
		case http.MethodDelete:
			h.clear(w, userID)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	productID := path
	switch r.Method {
	case http.MethodGet:
		h.check(w, userID, productID)
	case http.MethodDelete:
		h.remove(w, userID, productID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

type toggleWishlistRequest struct {
	ProductID string `json:"product_id"`
}

type wishlistItemResponse struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Brand     string  `json:"brand"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
}

type wishlistResponse struct {
	Items []wishlistItemResponse `json:"items"`
}

type toggleWishlistResponse struct {
	ProductID string `json:"product_id"`
	Wished    bool   `json:"wished"`
}

type checkWishlistResponse struct {
	ProductID     string `json:"product_id"`
	ProductExists bool   `json:"product_exists"`
	Wished        bool   `json:"wished"`
}

// list handles GET /api/wishlist.
func (h *WishlistHandler) list(w http.ResponseWriter, userID string) {
	items, err := h.store.Wishlist().ListByUser(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load wishlist")
		return
	}

	response := wishlistResponse{
		Items: make([]wishlistItemResponse, 0, len(items)),
	}
	for _, item := range items {
		response.Items = append(response.Items, wishlistItemResponse{
			ProductID: item.ProductID,
			Name:      item.ProductName,
			Brand:     item.ProductBrand,
			Price:     item.ProductPrice,
			Image:     item.ProductImage,
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// toggle handles POST /api/wishlist: a product not on the list is added,
// one already there is removed.
func (h *WishlistHandler) toggle(w http.ResponseWriter, r *http.Request, userID string) {
	var req toggleWishlistRequest
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
		writeError(w, http.StatusInternalServerError, "Failed to update wishlist")
		return
	}

	wished, err := h.store.Wishlist().Toggle(userID, req.ProductID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update wishlist")
		return
	}

	writeJSON(w, http.StatusOK, toggleWishlistResponse{
		ProductID: req.ProductID,
		Wished:    wished,
	})
}

// check handles GET /api/wishlist/{productID}. An unknown product answers
// 200 with product_exists false rather than 404.
func (h *WishlistHandler) check(w http.ResponseWriter, userID, productID string) {
	if _, err := h.store.Products().GetByID(productID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, checkWishlistResponse{ProductID: productID})
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to check wishlist")
		return
	}

	wished, err := h.store.Wishlist().Contains(userID, productID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check wishlist")
		return
	}

	writeJSON(w, http.StatusOK, checkWishlistResponse{
		ProductID:     productID,
		ProductExists: true,
		Wished:        wished,
	})
}

// remove handles DELETE /api/wishlist/{productID}.
func (h *WishlistHandler) remove(w http.ResponseWriter, userID, productID string) {
	if err := h.store.Wishlist().Remove(userID, productID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Not on wishlist")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update wishlist")
		return
	}

	h.list(w, userID)
}

// clear handles DELETE /api/wishlist.
func (h *WishlistHandler) clear(w http.ResponseWriter, userID string) {
	if err := h.store.Wishlist().Clear(userID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear wishlist")
		return
	}

	h.list(w, userID)
}
