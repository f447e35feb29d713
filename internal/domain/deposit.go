package domain

import (
	"strings"
	"time"
)

// DepositStatus is the lifecycle state of a funding claim.
type DepositStatus string

const (
	// DepositPending means the claim is waiting in the moderation queue.
	DepositPending DepositStatus = "pending"
	// DepositApproved means the balance credit for the claim has been applied.
	DepositApproved DepositStatus = "approved"
)

// MinReferenceLen rejects obviously malformed payment references before they
// reach storage. Real bank references are never shorter than this.
const MinReferenceLen = 8

// supportedMethods is the fixed allow-list of payment methods.
var supportedMethods = map[string]struct{}{
	"telebirr": {},
	"cbe":      {},
	"boa":      {},
	"cbe-birr": {},
}

// NormalizeMethod lower-cases and trims a user-supplied method name.
func NormalizeMethod(method string) string {
	return strings.ToLower(strings.TrimSpace(method))
}

// IsSupportedMethod reports whether the (already normalized) method is on the
// allow-list.
func IsSupportedMethod(method string) bool {
	_, ok := supportedMethods[method]
	return ok
}

// SupportedMethods returns the allow-list in a stable order for keyboards and
// error messages.
func SupportedMethods() []string {
	return []string{"telebirr", "cbe", "boa", "cbe-birr"}
}

// Deposit is a user's funding claim. Amount is immutable after creation and
// status only ever moves pending -> approved.
type Deposit struct {
	ID         int64
	UserID     int64
	Amount     int64 // minor units
	Method     string
	Reference  string
	Status     DepositStatus
	CreatedAt  time.Time
	ApprovedAt *time.Time
}
