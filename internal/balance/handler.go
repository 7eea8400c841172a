package balance

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/instrumentalist-payouts/internal/transport"
)

type ServiceAPI interface {
	GetBalance(ctx context.Context) (*Balance, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		Service:     service,
	}
}

// GetBalance handles GET /api/v1/payouts/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.GetBalance(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, b)
}
