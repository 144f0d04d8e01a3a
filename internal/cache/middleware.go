package cache

import (
	"bytes"
	"encoding/json"
	"net/http"
)

const HeaderCache = "X-Cache"

type storedResponse struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Middleware caches successful GET responses of the wrapped handler.
func (c *Cache) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		key := Key(r.URL.Path, r.Method, r.URL.Query())
		if raw, ok := c.Get(r.Context(), key); ok {
			var stored storedResponse
			if err := json.Unmarshal(raw, &stored); err == nil {
				w.Header().Set("Content-Type", stored.ContentType)
				w.Header().Set(HeaderCache, "HIT")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(stored.Body)
				return
			}
		}

		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		w.Header().Set(HeaderCache, "MISS")
		next.ServeHTTP(rec, r)

		if rec.status != http.StatusOK {
			return
		}
		raw, err := json.Marshal(storedResponse{
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		})
		if err != nil {
			return
		}
		if err := c.Put(r.Context(), key, raw, c.policy.TTL(r.URL.Path)); err != nil {
			c.logger.Warn("Failed to cache response", "path", r.URL.Path, "error", err)
		}
	})
}

// recorder tees the response body so it can be cached after it is written.
type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
