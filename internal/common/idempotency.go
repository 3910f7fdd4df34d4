package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem replays-protects write endpoints via the Idempotency-Key header.
// The first request holding a key wins; repeats inside TTL get a 409
// so a retried POST cannot create a second university or award.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

// idemRedisKey hashes the client-supplied header so arbitrary input
// never lands verbatim in the keyspace.
func idemRedisKey(header string) string {
	sum := sha256.Sum256([]byte(header))
	return "univ:idem:" + hex.EncodeToString(sum[:])
}

// Middleware claims the idempotency key before the handler runs.
// Requests without the header, or deployments without Redis, pass
// straight through.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := idemRedisKey(header)
		claimed, err := i.R.SetNX(r.Context(), key, "locked", i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", map[string]any{"error": err.Error()})
			return
		}
		if !claimed {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, "{\"error\":{\"code\":\"IDEMPOTENT_REPLAY\",\"message\":\"duplicate request\"}}")
			return
		}
		defer func() {
			// re-arm the expiry even if the handler panics
			_ = i.R.Expire(context.Background(), key, i.TTL).Err()
		}()
		next.ServeHTTP(w, r)
	})
}
