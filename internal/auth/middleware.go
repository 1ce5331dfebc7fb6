package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"licensedesk/internal/apperr"
	"licensedesk/internal/config"
	"licensedesk/internal/models"
)

// JWTAuth accepts a bearer token only while its session row exists, is not
// revoked and has not expired. A failing session lookup is answered as 503,
// not as a bad token.
func JWTAuth(db *gorm.DB, cfg config.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				unauthorized(w, "missing bearer token")
				return
			}
			raw := strings.TrimPrefix(h, "Bearer ")
			claims, err := Verify(cfg, raw)
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}
			var sess models.Session
			err = db.WithContext(r.Context()).First(&sess, "jti = ?", claims.JWTID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				unauthorized(w, "session not found")
				return
			}
			if err != nil {
				meta := apperr.MetadataFor(apperr.CodeStoreUnavailable)
				writeError(w, meta.HTTPStatus, meta.PublicMessage)
				return
			}
			if sess.RevokedAt != nil || time.Now().After(sess.ExpiresAt) || sess.UserID != claims.Subject {
				unauthorized(w, "session expired/revoked")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusUnauthorized, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"message":"` + msg + `"}`))
}
