package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/shopdesk/internal/platform/httpx"
	"github.com/odyssey-erp/shopdesk/internal/shared"
)

type principalKey struct{}

// PrincipalFromContext returns the verified principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Authenticate verifies the request token and stores the principal and actor in context.
func (v *Verifier) Authenticate(r *http.Request) (*http.Request, error) {
	raw, err := TokenFromRequest(r)
	if err != nil {
		return r, ErrInvalidToken
	}
	p, err := v.Verify(raw)
	if err != nil {
		return r, err
	}
	ctx := context.WithValue(r.Context(), principalKey{}, p)
	ctx = shared.ContextWithActor(ctx, p.Subject)
	return r.WithContext(ctx), nil
}

// Middleware rejects requests without a valid token.
func Middleware(v *Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authed, err := v.Authenticate(r)
			if err != nil {
				if logger != nil {
					logger.Debug("rejected request", slog.String("path", r.URL.Path), slog.Any("error", err))
				}
				w.Header().Set("WWW-Authenticate", `Bearer realm="shopdesk"`)
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, authed)
		})
	}
}
