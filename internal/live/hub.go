// Package live pushes cart views to browsers over websockets. Every connected
// peer receives the current view on connect and again after each change,
// including reloads caused by writes made elsewhere.
package live

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"github.com/eightbitcafe/cart_sdk_go/pkg/cart"
)

// Frame is the message written to peers.
type Frame struct {
	Type string    `json:"type"`
	View cart.View `json:"view"`
}

const frameTypeView = "view"

type peer struct {
	// views holds at most the latest undelivered view.
	views chan cart.View
}

func (p *peer) offer(v cart.View) {
	for {
		select {
		case p.views <- v:
			return
		default:
		}
		select {
		case <-p.views:
		default:
		}
	}
}

// Hub fans views out to connected peers.
type Hub struct {
	log *zap.Logger

	mu     sync.Mutex
	peers  map[*peer]struct{}
	last   *cart.View
	closed bool
	done   chan struct{}
}

// NewHub returns an empty hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:   log,
		peers: make(map[*peer]struct{}),
		done:  make(chan struct{}),
	}
}

// Publish records v as the current view and queues it for every peer. It
// never blocks on slow peers; they skip to the latest view.
func (h *Hub) Publish(v cart.View) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &v
	for p := range h.peers {
		p.offer(v)
	}
}

// Len returns the number of connected peers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

// Close disconnects every peer. Later connections are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.done)
}

// Handler serves the websocket endpoint.
func (h *Hub) Handler() http.Handler {
	ws := websocket.Handler(h.serve)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ws.ServeHTTP(w, r)
	})
}

func (h *Hub) join() (*peer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	p := &peer{views: make(chan cart.View, 1)}
	if h.last != nil {
		p.views <- *h.last
	}
	h.peers[p] = struct{}{}
	return p, true
}

func (h *Hub) leave(p *peer) {
	h.mu.Lock()
	delete(h.peers, p)
	h.mu.Unlock()
}

func (h *Hub) serve(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()
	p, ok := h.join()
	if !ok {
		return
	}
	defer h.leave(p)
	h.log.Debug("live peer connected", zap.String("remote", conn.Request().RemoteAddr))

	// Peers never send anything meaningful; reading only detects disconnects.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		_, _ = io.Copy(io.Discard, conn)
	}()

	enc := json.NewEncoder(conn)
	for {
		select {
		case <-h.done:
			return
		case <-gone:
			return
		case v := <-p.views:
			if err := enc.Encode(Frame{Type: frameTypeView, View: v}); err != nil {
				if !errors.Is(err, io.EOF) {
					h.log.Debug("live peer write failed", zap.Error(err))
				}
				return
			}
		}
	}
}
