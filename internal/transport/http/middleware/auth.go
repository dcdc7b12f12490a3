package httpmw

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const (
	ctxKeySubject ctxKey = "subject"
	ctxKeyReqID   ctxKey = "req_id"
)

type TokenVerifier interface {
	Verify(token string) (subject string, err error)
}

// Auth requires "Authorization: Bearer <jwt>" and stores the token subject in the context.
func Auth(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r)
			if !ok {
				unauthorized(w, "missing bearer token")
				return
			}
			subject, err := tokens.Verify(token)
			if err != nil {
				unauthorized(w, "invalid bearer token")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeySubject, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SubjectFromCtx(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeySubject).(string)
	return v
}

func bearer(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"message":"` + msg + `"}}`))
}
