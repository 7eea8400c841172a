package transfer_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	"github.com/frahmantamala/instrumentalist-payouts/internal/payment"
	"github.com/frahmantamala/instrumentalist-payouts/internal/transfer"
)

type stubProcessor struct {
	lastID  int64
	lastReq transfer.ProcessRequest
	outcome *transfer.Outcome
	err     error
}

func (s *stubProcessor) ProcessPayment(ctx context.Context, id int64, req transfer.ProcessRequest) (*transfer.Outcome, error) {
	s.lastID, s.lastReq = id, req
	return s.outcome, s.err
}

var _ = Describe("Handler", func() {
	var (
		processor *stubProcessor
		router    chi.Router
	)

	BeforeEach(func() {
		processor = &stubProcessor{}
		testLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		router = chi.NewRouter()
		router.Post("/payments/{id}/process", transfer.NewHandler(processor, testLogger).ProcessPayment)
	})

	post := func(body, operator string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/payments/7/process", bytes.NewBufferString(body))
		if operator != "" {
			req = req.WithContext(errors.ContextWithUserID(req.Context(), operator))
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("should pass the operator as the actor", func() {
		processor.outcome = &transfer.Outcome{Payment: &payment.Payment{ID: 7, Status: payment.StatusPaid}}

		rec := post(`{"method":"gateway_transfer"}`, "treasurer")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(processor.lastID).To(Equal(int64(7)))
		Expect(processor.lastReq.Actor).To(Equal("treasurer"))
		Expect(processor.lastReq.Method).To(Equal(payment.MethodGatewayTransfer))
	})

	It("should return the failure alongside the failed payment", func() {
		processor.outcome = &transfer.Outcome{
			Payment: &payment.Payment{ID: 7, Status: payment.StatusFailed},
			Failure: errors.NewExternalError("try later", errors.ErrCodeGatewayRejected),
		}

		rec := post(`{"method":"gateway_transfer"}`, "treasurer")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"failure"`))
		Expect(rec.Body.String()).To(ContainSubstring(string(errors.ErrCodeGatewayRejected)))
	})

	It("should require a method", func() {
		rec := post(`{}`, "treasurer")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should map rejections to their status", func() {
		processor.err = errors.NewStateTransitionError(payment.StatusPending, payment.StatusPaid)

		rec := post(`{"method":"cash"}`, "treasurer")

		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("should require authentication", func() {
		rec := post(`{"method":"cash"}`, "")

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})
})
