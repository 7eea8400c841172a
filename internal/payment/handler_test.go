package payment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	"github.com/frahmantamala/instrumentalist-payouts/internal/payment"
)

var _ = Describe("Handler", func() {
	var (
		repo   *mockPaymentRepository
		router chi.Router
	)

	BeforeEach(func() {
		repo = newMockPaymentRepository()
		testLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service := payment.NewService(
			repo,
			staticChecker{known: map[int64]bool{1: true}},
			staticChecker{known: map[int64]bool{10: true}},
			&recordingPublisher{},
			"GHS",
			testLogger,
		)
		handler := payment.NewHandler(service, testLogger)

		router = chi.NewRouter()
		router.Post("/payments", handler.CreatePayment)
		router.Get("/payments", handler.ListPayments)
		router.Get("/payments/{id}", handler.GetPayment)
		router.Post("/payments/{id}/approve", handler.ApprovePayment)
		router.Post("/payments/{id}/retry", handler.RetryPayment)
		router.Post("/payments/{id}/cancel", handler.CancelPayment)
	})

	do := func(method, path, body, operator string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		if operator != "" {
			req = req.WithContext(errors.ContextWithUserID(context.Background(), operator))
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("should reject anonymous requests", func() {
		rec := do(http.MethodGet, "/payments", "", "")

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should create a payment", func() {
		rec := do(http.MethodPost, "/payments", `{"instrumentalist_id":1,"service_event_id":10,"amount":"200.00"}`, "treasurer")

		Expect(rec.Code).To(Equal(http.StatusCreated))
		var body map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body["status"]).To(Equal(payment.StatusPending))
		Expect(body["amount"]).To(Equal("200"))
	})

	It("should reject unknown fields", func() {
		rec := do(http.MethodPost, "/payments", `{"instrumentalist_id":1,"service_event_id":10,"amount":"5","tip":1}`, "treasurer")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should map a duplicate to 409", func() {
		payload := `{"instrumentalist_id":1,"service_event_id":10,"amount":"50"}`
		Expect(do(http.MethodPost, "/payments", payload, "treasurer").Code).To(Equal(http.StatusCreated))

		rec := do(http.MethodPost, "/payments", payload, "treasurer")

		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(rec.Body.String()).To(ContainSubstring(string(errors.ErrCodeDuplicatePayment)))
	})

	It("should approve with the caller as approver", func() {
		p := repo.seed(&payment.Payment{Status: payment.StatusPending})

		rec := do(http.MethodPost, "/payments/1/approve", "", "treasurer")

		Expect(rec.Code).To(Equal(http.StatusOK))
		stored, _ := repo.GetByID(context.Background(), p.ID)
		Expect(*stored.ApprovedBy).To(Equal("treasurer"))
	})

	It("should return 409 for a disallowed transition", func() {
		repo.seed(&payment.Payment{Status: payment.StatusPaid})

		rec := do(http.MethodPost, "/payments/1/cancel", `{"reason":"late"}`, "treasurer")

		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(rec.Body.String()).To(ContainSubstring(string(errors.ErrCodeInvalidStateTransition)))
	})

	It("should retry a failed payment", func() {
		repo.seed(&payment.Payment{Status: payment.StatusFailed})

		rec := do(http.MethodPost, "/payments/1/retry", "", "treasurer")

		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("should return 404 for unknown payments", func() {
		rec := do(http.MethodGet, "/payments/77", "", "treasurer")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should reject malformed ids", func() {
		rec := do(http.MethodGet, "/payments/abc", "", "treasurer")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should list approved payments by default", func() {
		repo.seed(&payment.Payment{Status: payment.StatusApproved})
		repo.seed(&payment.Payment{Status: payment.StatusPending})

		rec := do(http.MethodGet, "/payments", "", "treasurer")

		Expect(rec.Code).To(Equal(http.StatusOK))
		var body struct {
			Count int `json:"count"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Count).To(Equal(1))
	})
})
