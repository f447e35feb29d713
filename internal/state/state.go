package state

import "time"

// Flow is the single conversation mode a user is in. Exactly one flow is
// active at a time; starting a new flow replaces the previous one.
type Flow string

const (
	// FlowIdle means no conversation is in progress.
	FlowIdle Flow = "idle"
	// FlowDepositAmount means the bot is waiting for a deposit amount.
	FlowDepositAmount Flow = "deposit_amount"
	// FlowDepositMethod means the bot is waiting for a payment method choice.
	FlowDepositMethod Flow = "deposit_method"
	// FlowDepositReference means the bot is waiting for the payment reference.
	FlowDepositReference Flow = "deposit_reference"
	// FlowUsernameChange means the bot is waiting for a new display name.
	FlowUsernameChange Flow = "username_change"
	// FlowReceiptUpload means the bot is waiting for a receipt photo.
	FlowReceiptUpload Flow = "receipt_upload"
)

// DepositContext accumulates the deposit flow inputs step by step.
type DepositContext struct {
	Amount int64  `json:"amount,omitempty"` // minor units
	Method string `json:"method,omitempty"`
}

// ReceiptContext carries what the receipt forwarder needs alongside the photo.
type ReceiptContext struct {
	Method      string `json:"method,omitempty"`
	Amount      int64  `json:"amount,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Destination string `json:"destination,omitempty"`
}

// Session is the per-user conversation record. The payload pointers are a
// tagged union keyed by Flow: only the context matching the active flow is
// populated.
type Session struct {
	UserID    int64           `json:"user_id"`
	Flow      Flow            `json:"flow"`
	Deposit   *DepositContext `json:"deposit,omitempty"`
	Receipt   *ReceiptContext `json:"receipt,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Idle reports whether no conversation is in progress. A nil session is idle.
func (s *Session) Idle() bool {
	return s == nil || s.Flow == "" || s.Flow == FlowIdle
}
