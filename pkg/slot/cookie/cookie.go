// Package cookie keeps a slot in an HTTP cookie, so the cart travels with the
// visitor's browser instead of living on the server. A Jar is bound to one
// request/response pair; writes set a Set-Cookie header and are visible to
// later reads through the same Jar.
package cookie

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/eightbitcafe/cart_sdk_go/pkg/slot"
)

// MaxCookieSize is the conventional per-cookie limit browsers enforce,
// covering name, value and attributes.
const MaxCookieSize = 4096

// Options control the emitted cookie attributes.
type Options struct {
	MaxAge   time.Duration
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// DefaultOptions keeps the cart for 30 days on the whole site.
var DefaultOptions = Options{
	MaxAge:   30 * 24 * time.Hour,
	Path:     "/",
	SameSite: http.SameSiteLaxMode,
}

// Jar is a cookie-backed slot for a single request.
type Jar struct {
	r    *http.Request
	w    http.ResponseWriter
	opts Options

	mu      sync.Mutex
	written map[string][]byte
}

// New binds a Jar to the request and its response writer.
func New(r *http.Request, w http.ResponseWriter, opts Options) *Jar {
	if opts.Path == "" {
		opts.Path = "/"
	}
	return &Jar{r: r, w: w, opts: opts, written: make(map[string][]byte)}
}

// Get implements slot.Backend. Cookies that are not valid base64 read as a
// corrupt slot value rather than an error.
func (j *Jar) Get(ctx context.Context, key string) ([]byte, error) {
	if strings.TrimSpace(key) == "" {
		return nil, slot.ErrKeyRequired
	}
	j.mu.Lock()
	raw, ok := j.written[key]
	j.mu.Unlock()
	if ok {
		return append([]byte(nil), raw...), nil
	}

	c, err := j.r.Cookie(key)
	if err != nil {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return []byte(c.Value), nil
	}
	return data, nil
}

// Set implements slot.Backend. Values that would exceed MaxCookieSize fail
// with slot.ErrQuotaExceeded and no header is written.
func (j *Jar) Set(ctx context.Context, key string, raw []byte) error {
	if strings.TrimSpace(key) == "" {
		return slot.ErrKeyRequired
	}
	c := &http.Cookie{
		Name:     key,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     j.opts.Path,
		Domain:   j.opts.Domain,
		MaxAge:   int(j.opts.MaxAge / time.Second),
		Secure:   j.opts.Secure,
		HttpOnly: true,
		SameSite: j.opts.SameSite,
	}
	if j.opts.MaxAge > 0 {
		c.Expires = time.Now().Add(j.opts.MaxAge).UTC()
	}
	header := c.String()
	if header == "" {
		return fmt.Errorf("cookie slot: invalid cookie name %q", key)
	}
	if len(header) > MaxCookieSize {
		return fmt.Errorf("cookie slot: %d bytes: %w", len(header), slot.ErrQuotaExceeded)
	}

	j.w.Header().Add("Set-Cookie", header)
	j.mu.Lock()
	j.written[key] = append([]byte(nil), raw...)
	j.mu.Unlock()
	return nil
}

var _ slot.Backend = (*Jar)(nil)
