package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rl1809/storefront/internal/adapter/auth"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

type HTTPHandler struct {
	registry *SessionRegistry
	verifier *auth.TokenVerifier
}

type cartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type settingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewHTTPHandler(registry *SessionRegistry, verifier *auth.TokenVerifier) *HTTPHandler {
	return &HTTPHandler{registry: registry, verifier: verifier}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/api/auth/signin", h.SignIn)
	mux.HandleFunc("/api/auth/signout", h.SignOut)
	mux.HandleFunc("/api/cart", h.Cart)
	mux.HandleFunc("/api/cart/add", h.AddToCart)
	mux.HandleFunc("/api/cart/update", h.UpdateQuantity)
	mux.HandleFunc("/api/cart/remove", h.RemoveFromCart)
	mux.HandleFunc("/api/cart/clear", h.ClearCart)
	mux.HandleFunc("/api/settings", h.Settings)
}

func (h *HTTPHandler) Cart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	bundle, ok := h.bundle(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, bundle.Cart.View())
}

func (h *HTTPHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	h.cartMutation(w, r, func(bundle *EngineBundle, req cartRequest) error {
		return bundle.Cart.AddToCart(r.Context(), req.ProductID)
	}, "product added to cart")
}

func (h *HTTPHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	h.cartMutation(w, r, func(bundle *EngineBundle, req cartRequest) error {
		return bundle.Cart.UpdateQuantity(r.Context(), req.ProductID, req.Quantity)
	}, "quantity updated")
}

func (h *HTTPHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	h.cartMutation(w, r, func(bundle *EngineBundle, req cartRequest) error {
		return bundle.Cart.RemoveFromCart(r.Context(), req.ProductID)
	}, "product removed from cart")
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	bundle, ok := h.bundle(w, r)
	if !ok {
		return
	}
	if err := bundle.Cart.ClearCart(r.Context()); err != nil {
		writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "cart cleared"})
}

func (h *HTTPHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	bundle, ok := h.bundle(w, r)
	if !ok {
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	userID, err := h.verifier.Verify(token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, apiResponse{Success: false, Message: "invalid token"})
		return
	}

	bundle.Sessions.Dispatch(r.Context(), domain.SessionEvent{Kind: domain.SessionSignedIn, UserID: userID})
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "signed in"})
}

func (h *HTTPHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	bundle, ok := h.bundle(w, r)
	if !ok {
		return
	}
	bundle.Sessions.Dispatch(r.Context(), domain.SessionEvent{Kind: domain.SessionSignedOut})
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "signed out"})
}

func (h *HTTPHandler) Settings(w http.ResponseWriter, r *http.Request) {
	bundle, ok := h.bundle(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, bundle.Settings.Snapshot())
	case http.MethodPut:
		if !bundle.Settings.Admin() {
			writeJSON(w, http.StatusForbidden, apiResponse{Success: false, Message: "admin only"})
			return
		}
		var req settingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
			writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: "invalid request body"})
			return
		}
		if !bundle.Settings.UpdateSetting(r.Context(), req.Key, req.Value) {
			writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Message: "could not update setting"})
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "setting updated"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) cartMutation(w http.ResponseWriter, r *http.Request, run func(*EngineBundle, cartRequest) error, success string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	bundle, ok := h.bundle(w, r)
	if !ok {
		return
	}

	var req cartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: "invalid request body"})
		return
	}

	if err := run(bundle, req); err != nil {
		writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: success})
}

func (h *HTTPHandler) bundle(w http.ResponseWriter, r *http.Request) (*EngineBundle, bool) {
	bundle, err := h.registry.Bundle(w, r)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Message: "internal error"})
		return nil, false
	}
	return bundle, true
}

func writeCartError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	if errors.Is(err, service.ErrProductNotFound) {
		status = http.StatusNotFound
		message = "product not found"
	} else if errors.Is(err, service.ErrUnauthenticated) {
		status = http.StatusUnauthorized
		message = "not authenticated"
	}

	writeJSON(w, status, apiResponse{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
