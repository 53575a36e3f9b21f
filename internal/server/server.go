// Package server exposes a cart store over HTTP. Handlers only call store
// operations and render the resulting view as JSON.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eightbitcafe/cart_sdk_go/internal/live"
	"github.com/eightbitcafe/cart_sdk_go/pkg/cart"
)

const maxBodyBytes = 64 << 10

// StoreProvider resolves the store serving a request. cafecart.Runtime
// implements it.
type StoreProvider interface {
	StoreFor(w http.ResponseWriter, r *http.Request) *cart.Store
}

// Server holds the HTTP handlers.
type Server struct {
	stores StoreProvider
	hub    *live.Hub
	log    *zap.Logger
}

// New returns a Server. hub may be nil when views cannot be pushed, as with
// per-request cookie stores.
func New(stores StoreProvider, hub *live.Hub, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{stores: stores, hub: hub, log: log}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /cart", s.handleView)
	mux.HandleFunc("DELETE /cart", s.handleClear)
	mux.HandleFunc("POST /cart/items", s.handleAddItem)
	mux.HandleFunc("POST /cart/items/{name}/quantity", s.handleChangeQuantity)
	mux.HandleFunc("POST /cart/order", s.handlePlaceOrder)
	if s.hub != nil {
		mux.Handle("/cart/live", s.hub.Handler())
	}
	return mux
}

type addItemRequest struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
}

type changeQuantityRequest struct {
	Delta int `json:"delta"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stores.StoreFor(w, r).View())
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	store := s.stores.StoreFor(w, r)
	store.Clear(r.Context())
	writeJSON(w, http.StatusOK, store.View())
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}
	if req.Price.IsNegative() {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "price must not be negative")
		return
	}
	store := s.stores.StoreFor(w, r)
	store.AddItem(r.Context(), name, req.Price, cart.ParseCategory(req.Category))
	writeJSON(w, http.StatusOK, store.View())
}

func (s *Server) handleChangeQuantity(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	var req changeQuantityRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	store := s.stores.StoreFor(w, r)
	store.ChangeQuantity(r.Context(), name, req.Delta)
	writeJSON(w, http.StatusOK, store.View())
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.stores.StoreFor(w, r).PlaceOrder(r.Context())
	if errors.Is(err, cart.ErrEmptyCart) {
		writeJSONError(w, http.StatusConflict, "empty_cart", cart.EmptyCartMessage)
		return
	}
	if err != nil {
		s.log.Error("place order failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal", "could not place order")
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
