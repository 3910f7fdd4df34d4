package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// Policy describes how to bucket requests and how many to admit per window.
type Policy struct {
	KeyFor func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler enforces the policy before delegating to the next handler.
// Limiter failures fail open: an admin API outage is worse than a short
// burst over the limit.
type Handler struct {
	Limiter SlidingWindow
	Policy  Policy
	OnError func(error)
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Policy.KeyFor == nil {
			next.ServeHTTP(w, r)
			return
		}
		verdict, err := h.Limiter.Admit(r.Context(), h.Policy.KeyFor(r), h.Policy.Window, h.Policy.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		writeQuotaHeaders(w, h.Policy.Max, verdict)
		if !verdict.Allowed {
			retryAfter := int(time.Until(verdict.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeQuotaHeaders(w http.ResponseWriter, max int, v Verdict) {
	if max < 0 {
		max = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(max))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(v.Remaining))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(v.ResetAt.Unix(), 10))
}
