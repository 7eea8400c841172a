package transfer

import (
	"strconv"

	"github.com/google/uuid"
)

var referenceNamespace = uuid.MustParse("6f2b7c1e-4d0a-5b8e-9c3f-1a2d3e4f5a6b")

// Reference is the idempotency key sent with every transfer for a payment.
// It is stable across retries so the gateway can refuse a second debit.
func Reference(paymentID int64) string {
	return "ipay-" + uuid.NewSHA1(referenceNamespace, []byte(strconv.FormatInt(paymentID, 10))).String()
}
