package paymentsrepo

import (
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("payment not found")
	ErrAlreadyFinalized = errors.New("payment already finalized")
)

type Method string

const (
	MethodMpesa Method = "mpesa"
	MethodCash  Method = "cash"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Payment is one attempt to collect money against a booking. STK pushes are
// created pending and finalized by the gateway callback; cash payments are
// recorded completed by staff in one step.
type Payment struct {
	ID          int64     `json:"id"`
	BookingID   int64     `json:"booking_id"`
	Amount      int64     `json:"amount"`
	Method      Method    `json:"method"`
	Status      Status    `json:"status"`
	ProviderRef *string   `json:"provider_ref,omitempty"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
	ReceiptNo   *string   `json:"receipt_no,omitempty"`
	FailReason  *string   `json:"fail_reason,omitempty"`
	RecordedBy  *int64    `json:"recorded_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
