package payment

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	"github.com/frahmantamala/instrumentalist-payouts/internal/transport"
)

type ServiceAPI interface {
	CreatePayment(ctx context.Context, dto CreatePaymentDTO) (*Payment, error)
	GetPayment(ctx context.Context, id int64) (*Payment, error)
	ListByStatus(ctx context.Context, query ListPaymentsQuery) ([]*Payment, error)
	Approve(ctx context.Context, id int64, approver string) (*Payment, error)
	Retry(ctx context.Context, id int64, actor string) (*Payment, error)
	Cancel(ctx context.Context, id int64, actor, reason string) (*Payment, error)
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

// operator returns the authenticated operator, writing a 401 when there is none.
func (h *Handler) operator(w http.ResponseWriter, r *http.Request) (string, bool) {
	operatorID := errors.UserIDFromContext(r.Context())
	if operatorID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return "", false
	}
	return operatorID, true
}

// CreatePayment handles POST /api/v1/payments
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := h.operator(w, r)
	if !ok {
		return
	}

	var dto CreatePaymentDTO
	if err := h.DecodeJSONBody(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	p, err := h.Service.CreatePayment(r.Context(), dto)
	if err != nil {
		h.Logger.Warn("CreatePayment: service error", "error", err, "operator_id", operatorID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreatePayment: payment created",
		"payment_id", p.ID,
		"operator_id", operatorID,
		"amount", p.Amount.StringFixed(2))
	h.WriteJSON(w, http.StatusCreated, p)
}

// ListPayments handles GET /api/v1/payments?status=approved&limit=&offset=
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.operator(w, r); !ok {
		return
	}

	q := r.URL.Query()
	query := ListPaymentsQuery{Status: q.Get("status")}
	if query.Status == "" {
		query.Status = StatusApproved
	}
	if v := q.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			query.Limit = limit
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err := strconv.Atoi(v); err == nil {
			query.Offset = offset
		}
	}

	payments, err := h.Service.ListByStatus(r.Context(), query)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"payments": payments,
		"count":    len(payments),
	})
}

// GetPayment handles GET /api/v1/payments/{id}
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.operator(w, r); !ok {
		return
	}
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	p, err := h.Service.GetPayment(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

// ApprovePayment handles POST /api/v1/payments/{id}/approve
func (h *Handler) ApprovePayment(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := h.operator(w, r)
	if !ok {
		return
	}
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	p, err := h.Service.Approve(r.Context(), id, operatorID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

// RetryPayment handles POST /api/v1/payments/{id}/retry
func (h *Handler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := h.operator(w, r)
	if !ok {
		return
	}
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	p, err := h.Service.Retry(r.Context(), id, operatorID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

// CancelPayment handles POST /api/v1/payments/{id}/cancel
func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := h.operator(w, r)
	if !ok {
		return
	}
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto CancelPaymentDTO
	if r.ContentLength != 0 {
		if err := h.DecodeJSONBody(r, &dto); err != nil {
			h.HandleServiceError(w, err)
			return
		}
	}

	p, err := h.Service.Cancel(r.Context(), id, operatorID, dto.Reason)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CancelPayment: payment cancelled", "payment_id", id, "operator_id", operatorID)
	h.WriteJSON(w, http.StatusOK, p)
}
