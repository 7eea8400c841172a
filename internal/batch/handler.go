package batch

import (
	"context"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	"github.com/frahmantamala/instrumentalist-payouts/internal/transport"
)

type CoordinatorAPI interface {
	RunBatch(ctx context.Context, ids []int64, op Operation) (*Result, error)
}

type RunBatchRequest struct {
	Operation       string  `json:"operation" validate:"required,oneof=approve process"`
	PaymentIDs      []int64 `json:"payment_ids" validate:"required,min=1"`
	Method          string  `json:"method,omitempty"`
	ReferenceNumber string  `json:"reference_number,omitempty" validate:"max=100"`
}

type Handler struct {
	*transport.BaseHandler
	Coordinator CoordinatorAPI
}

func NewHandler(coordinator CoordinatorAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		Coordinator: coordinator,
	}
}

// RunBatch handles POST /api/v1/payments/batch
func (h *Handler) RunBatch(w http.ResponseWriter, r *http.Request) {
	operatorID := errors.UserIDFromContext(r.Context())
	if operatorID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	var req RunBatchRequest
	if err := h.DecodeJSONBody(r, &req); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	result, err := h.Coordinator.RunBatch(r.Context(), req.PaymentIDs, Operation{
		Kind:            req.Operation,
		Actor:           operatorID,
		Method:          req.Method,
		ReferenceNumber: req.ReferenceNumber,
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}
