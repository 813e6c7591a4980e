package httppresentation

import (
	"context"
	"net/http"
	"strings"

	"github.com/Zhima-Mochi/minishop-commerce/internal/application"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability"
	"github.com/Zhima-Mochi/minishop-commerce/internal/observability/logctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type callerKey struct{}

// withAuth resolves the bearer token to a Caller and rejects the request otherwise.
func (h *Handler) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok || h.auth == nil {
			writeAppError(w, r, application.Unauthorized("bearer token is required"))
			return
		}
		caller, err := h.auth.Verify(token)
		if err != nil {
			logctx.FromOr(ctx, h.log).Debug("auth_rejected", observability.Err(err))
			writeAppError(w, r, application.Unauthorized("invalid or expired token"))
			return
		}

		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("enduser.id", caller.UserID),
			attribute.String("enduser.role", string(caller.Role)),
		)
		ctx = logctx.WithFields(ctx, h.log, observability.F("user_id", caller.UserID))
		ctx = context.WithValue(ctx, callerKey{}, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerFromContext(ctx context.Context) (application.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(application.Caller)
	return c, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
