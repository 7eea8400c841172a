package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	errors "github.com/frahmantamala/instrumentalist-payouts/internal"
	"github.com/frahmantamala/instrumentalist-payouts/internal/payment"
	"github.com/frahmantamala/instrumentalist-payouts/internal/transfer"
	"github.com/frahmantamala/instrumentalist-payouts/pkg/metrics"
)

const (
	OperationApprove = "approve"
	OperationProcess = "process"

	defaultMaxWorkers = 4
	defaultMaxItems   = 200
)

type Approver interface {
	Approve(ctx context.Context, id int64, approver string) (*payment.Payment, error)
}

type Processor interface {
	ProcessPayment(ctx context.Context, id int64, req transfer.ProcessRequest) (*transfer.Outcome, error)
}

type Config struct {
	MaxWorkers int
	MaxItems   int
}

type Operation struct {
	Kind            string
	Actor           string
	Method          string
	ReferenceNumber string
}

type ItemFailure struct {
	ID     int64  `json:"id"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Result lists item outcomes in the order the ids were given.
type Result struct {
	Operation string        `json:"operation"`
	Succeeded []int64       `json:"succeeded"`
	Failed    []ItemFailure `json:"failed"`
}

type job struct {
	index int
	id    int64
}

type itemResult struct {
	ok      bool
	failure ItemFailure
}

type Coordinator struct {
	approver  Approver
	processor Processor
	config    Config
	metrics   *metrics.PayoutMetrics
	logger    *slog.Logger
}

func NewCoordinator(approver Approver, processor Processor, config Config, m *metrics.PayoutMetrics, logger *slog.Logger) *Coordinator {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = defaultMaxWorkers
	}
	if config.MaxItems <= 0 {
		config.MaxItems = defaultMaxItems
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		approver:  approver,
		processor: processor,
		config:    config,
		metrics:   m,
		logger:    logger,
	}
}

// RunBatch applies op to every id. Item failures are collected, never returned;
// the error is only for a batch that was rejected before any item ran.
func (c *Coordinator) RunBatch(ctx context.Context, ids []int64, op Operation) (*Result, error) {
	op.Kind = strings.ToLower(strings.TrimSpace(op.Kind))
	if err := c.validate(ids, op); err != nil {
		return nil, err
	}

	results := make([]itemResult, len(ids))
	jobs := make(chan job)

	workers := c.config.MaxWorkers
	if workers > len(ids) {
		workers = len(ids)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobs {
				c.logger.DebugContext(ctx, "batch worker processing item", "worker_id", workerID, "payment_id", j.id)
				results[j.index] = c.runItem(ctx, j.id, op)
			}
		}(w)
	}

	for i, id := range ids {
		jobs <- job{index: i, id: id}
	}
	close(jobs)
	wg.Wait()

	result := &Result{Operation: op.Kind, Succeeded: []int64{}, Failed: []ItemFailure{}}
	for i, r := range results {
		if r.ok {
			result.Succeeded = append(result.Succeeded, ids[i])
			c.metrics.IncBatchItem(op.Kind, "succeeded")
			continue
		}
		result.Failed = append(result.Failed, r.failure)
		c.metrics.IncBatchItem(op.Kind, "failed")
	}

	c.logger.InfoContext(ctx, "batch completed",
		"operation", op.Kind,
		"actor", op.Actor,
		"items", len(ids),
		"succeeded", len(result.Succeeded),
		"failed", len(result.Failed))
	return result, nil
}

func (c *Coordinator) validate(ids []int64, op Operation) error {
	switch op.Kind {
	case OperationApprove:
	case OperationProcess:
		if op.Method == "" {
			return errors.NewValidationFieldError("method", "method is required for process batches", errors.ErrCodeInvalidInput)
		}
		if !payment.IsValidPayoutMethod(op.Method) {
			return errors.NewValidationFieldError("method", fmt.Sprintf("unknown payout method %q", op.Method), errors.ErrCodeInvalidInput)
		}
	default:
		return errors.NewValidationFieldError("operation",
			fmt.Sprintf("operation must be one of: %s, %s", OperationApprove, OperationProcess),
			errors.ErrCodeInvalidInput)
	}
	if strings.TrimSpace(op.Actor) == "" {
		return errors.NewValidationFieldError("actor", "actor is required", errors.ErrCodeInvalidInput)
	}

	if len(ids) == 0 {
		return errors.NewValidationFieldError("payment_ids", "at least one payment id is required", errors.ErrCodeInvalidInput)
	}
	if len(ids) > c.config.MaxItems {
		return errors.NewValidationFieldError("payment_ids",
			fmt.Sprintf("a batch may contain at most %d payments", c.config.MaxItems),
			errors.ErrCodeInvalidInput)
	}

	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return errors.NewValidationFieldError("payment_ids", fmt.Sprintf("invalid payment id %d", id), errors.ErrCodeInvalidInput)
		}
		if _, dup := seen[id]; dup {
			return errors.NewValidationFieldError("payment_ids", fmt.Sprintf("payment id %d appears more than once", id), errors.ErrCodeInvalidInput)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (c *Coordinator) runItem(ctx context.Context, id int64, op Operation) (res itemResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.ErrorContext(ctx, "batch item panicked", "payment_id", id, "panic", r)
			res = itemResult{failure: ItemFailure{ID: id, Code: "INTERNAL_ERROR", Reason: fmt.Sprintf("unexpected error: %v", r)}}
		}
	}()

	if err := ctx.Err(); err != nil {
		return itemResult{failure: ItemFailure{ID: id, Code: "CANCELLED", Reason: "batch cancelled before item ran"}}
	}

	switch op.Kind {
	case OperationApprove:
		if _, err := c.approver.Approve(ctx, id, op.Actor); err != nil {
			return itemResult{failure: failureFrom(id, err)}
		}
	case OperationProcess:
		outcome, err := c.processor.ProcessPayment(ctx, id, transfer.ProcessRequest{
			Method:          op.Method,
			ReferenceNumber: op.ReferenceNumber,
			Actor:           op.Actor,
		})
		if err != nil {
			return itemResult{failure: failureFrom(id, err)}
		}
		if !outcome.Succeeded() {
			return itemResult{failure: failureFrom(id, outcome.Failure)}
		}
	}
	return itemResult{ok: true}
}

func failureFrom(id int64, err error) ItemFailure {
	if appErr, ok := errors.IsAppError(err); ok {
		return ItemFailure{ID: id, Code: string(appErr.Code), Reason: appErr.GetDetailedMessage()}
	}
	return ItemFailure{ID: id, Code: "INTERNAL_ERROR", Reason: err.Error()}
}
