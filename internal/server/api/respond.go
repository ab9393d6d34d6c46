// Package api provides HTTP API handlers for the watch try-on shop.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"watch-tryon/internal/auth"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// bearerClaims verifies the request's bearer token and returns its claims.
func bearerClaims(r *http.Request, svc *auth.Service) (*auth.Claims, error) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || token == "" {
		return nil, auth.ErrInvalidToken
	}
	return svc.ParseToken(token)
}
