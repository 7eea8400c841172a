package auth

import (
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	"github.com/frahmantamala/instrumentalist-payouts/internal/transport"
	"github.com/frahmantamala/instrumentalist-payouts/pkg/logger"
)

type Validator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

type Handler struct {
	*transport.BaseHandler
	Validator Validator
}

func NewHandler(validator Validator, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Validator:   validator,
	}
}

// AuthMiddleware rejects requests without a valid operator token and puts the
// operator id on the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.HandleError(w, errors.NewUnauthorizedError("missing authorization token", errors.ErrCodeInvalidToken))
			return
		}

		claims, err := h.Validator.ValidateToken(token)
		if err != nil {
			h.Logger.Warn("auth middleware: token rejected", "error", err, "path", r.URL.Path)
			h.HandleServiceError(w, err)
			return
		}

		ctx := errors.ContextWithUserID(r.Context(), claims.OperatorID)
		ctx = logger.With(ctx, "operator_id", claims.OperatorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
