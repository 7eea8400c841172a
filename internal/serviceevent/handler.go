package serviceevent

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	"github.com/frahmantamala/instrumentalist-payouts/internal/transport"
)

type ServiceAPI interface {
	GetServiceEvent(ctx context.Context, id int64) (*ServiceEvent, error)
	ListRecent(ctx context.Context, limit int) ([]*ServiceEvent, error)
}

type ServiceEventsResponse struct {
	ServiceEvents []*ServiceEvent `json:"service_events"`
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

// ListServiceEvents handles GET /api/v1/service-events
func (h *Handler) ListServiceEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.HandleError(w, errors.NewValidationFieldError("limit", "limit must be a non-negative integer", errors.ErrCodeInvalidInput))
			return
		}
		limit = n
	}

	events, err := h.Service.ListRecent(r.Context(), limit)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if events == nil {
		events = []*ServiceEvent{}
	}

	h.WriteJSON(w, http.StatusOK, ServiceEventsResponse{ServiceEvents: events})
}

// GetServiceEvent handles GET /api/v1/service-events/{id}
func (h *Handler) GetServiceEvent(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	event, err := h.Service.GetServiceEvent(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, event)
}
