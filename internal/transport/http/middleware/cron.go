package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/baechuer/curation-service/internal/domain"
	"github.com/baechuer/curation-service/internal/transport/http/response"
)

// CronSecret guards internal endpoints with a shared bearer secret.
// An empty secret rejects everything.
func CronSecret(secret string) func(http.Handler) http.Handler {
	want := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := strings.TrimSpace(r.Header.Get("Authorization"))
			got := []byte(strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")))
			if len(want) == 0 || !strings.HasPrefix(h, "Bearer ") || subtle.ConstantTimeCompare(got, want) != 1 {
				response.Err(w, r, domain.ErrUnauthorized("invalid cron secret"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
