package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eightbitcafe/cart_sdk_go/pkg/slot/memory"
)

type failConfig struct {
	rate float64
	code int
}

type options struct {
	latency       time.Duration
	fail          failConfig
	maxValueBytes int
	// chance returns a number in [0, 1); defaults to rand.Float64.
	chance func() float64
}

func newHandler(store *memory.Memory, opts options, log *zap.Logger) http.Handler {
	if opts.chance == nil {
		opts.chance = rand.Float64
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/get_status", withMiddleware(opts, log, "status", func(w http.ResponseWriter, r *http.Request) {
		handleStatus(w, r, store)
	}))
	mux.HandleFunc("/set", withMiddleware(opts, log, "set", func(w http.ResponseWriter, r *http.Request) {
		handleSet(w, r, store, opts.maxValueBytes)
	}))
	mux.HandleFunc("/get", withMiddleware(opts, log, "get", func(w http.ResponseWriter, r *http.Request) {
		handleGet(w, r, store)
	}))
	mux.HandleFunc("/delete", withMiddleware(opts, log, "delete", func(w http.ResponseWriter, r *http.Request) {
		handleDelete(w, r, store)
	}))
	return mux
}

func withMiddleware(opts options, log *zap.Logger, op string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("exec request", zap.String("op", op), zap.String("query", r.URL.RawQuery))
		if opts.latency > 0 {
			time.Sleep(opts.latency)
		}
		if opts.fail.rate > 0 && opts.chance() < opts.fail.rate {
			status := opts.fail.code
			if status == 0 {
				status = http.StatusInternalServerError
			}
			log.Info("failure injected", zap.String("op", op), zap.Int("status", status))
			http.Error(w, "failure injected", status)
			return
		}
		next(w, r)
	}
}

func handleStatus(w http.ResponseWriter, r *http.Request, store *memory.Memory) {
	keys, err := store.Keys(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeResult(w, map[string]any{"keys": keys})
}

// handleSet stores a value. if_absent and if_etag_match turn the write into a
// compare-and-set answered with 412 on mismatch; the new ETag is returned in
// the ETag header.
func handleSet(w http.ResponseWriter, r *http.Request, store *memory.Memory, maxValueBytes int) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Key         string `json:"key"`
		Value       string `json:"value"`
		IfETagMatch string `json:"if_etag_match,omitempty"`
		IfAbsent    bool   `json:"if_absent,omitempty"`
		TTLSeconds  *int   `json:"ttl_seconds,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}
	if maxValueBytes > 0 && len(payload.Value) > maxValueBytes {
		http.Error(w, "value too large", http.StatusRequestEntityTooLarge)
		return
	}
	item, err := store.Put(r.Context(), payload.Key, []byte(payload.Value), &memory.PutOptions{
		TTLSeconds:  payload.TTLSeconds,
		IfETagMatch: payload.IfETagMatch,
		IfAbsent:    payload.IfAbsent,
	})
	if errors.Is(err, memory.ErrPreconditionFailed) {
		http.Error(w, err.Error(), http.StatusPreconditionFailed)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("ETag", item.ETag)
	writeResult(w, true)
}

func handleGet(w http.ResponseWriter, r *http.Request, store *memory.Memory) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "missing key parameter", http.StatusBadRequest)
		return
	}
	item, err := store.Lookup(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if item == nil {
		writeResult(w, nil)
		return
	}
	w.Header().Set("ETag", item.ETag)
	writeResult(w, string(item.Value))
}

func handleDelete(w http.ResponseWriter, r *http.Request, store *memory.Memory) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}
	err := store.Delete(r.Context(), payload.Key)
	if errors.Is(err, memory.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeResult(w, true)
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"result": result}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func parseFailConfig(raw string) (failConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return failConfig{}, nil
	}
	cfg := failConfig{code: http.StatusInternalServerError}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return failConfig{}, fmt.Errorf("invalid fail segment %q", part)
		}
		val = strings.TrimSpace(val)
		switch strings.TrimSpace(key) {
		case "rate":
			rate, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return failConfig{}, err
			}
			if rate < 0 || rate > 1 {
				return failConfig{}, fmt.Errorf("fail rate %v out of range [0,1]", rate)
			}
			cfg.rate = rate
		case "code":
			code, err := strconv.Atoi(val)
			if err != nil {
				return failConfig{}, err
			}
			cfg.code = code
		default:
			return failConfig{}, fmt.Errorf("unknown fail key %q", key)
		}
	}
	return cfg, nil
}
