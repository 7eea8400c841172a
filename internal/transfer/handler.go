package transfer

import (
	"context"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	"github.com/frahmantamala/instrumentalist-payouts/internal/transport"
)

type ProcessorAPI interface {
	ProcessPayment(ctx context.Context, id int64, req ProcessRequest) (*Outcome, error)
}

type Handler struct {
	*transport.BaseHandler
	Processor ProcessorAPI
}

func NewHandler(processor ProcessorAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		Processor:   processor,
	}
}

// ProcessPayment handles POST /api/v1/payments/{id}/process
//
// A payment that ended in failed is still a completed request: the response is
// 200 with the failure attached so the caller sees the stored record.
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	operatorID := errors.UserIDFromContext(r.Context())
	if operatorID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var req ProcessRequest
	if err := h.DecodeJSONBody(r, &req); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	req.Actor = operatorID

	outcome, err := h.Processor.ProcessPayment(r.Context(), id, req)
	if err != nil {
		h.Logger.Warn("ProcessPayment: rejected", "payment_id", id, "operator_id", operatorID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, outcome)
}
