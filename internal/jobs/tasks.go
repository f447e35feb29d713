// Package jobs runs fire-and-forget side effects on asynq: support-channel
// notifications, receipt forwarding, and the periodic bot bio refresh. Jobs
// are enqueued after ledger transactions commit and never participate in
// them; a failed delivery retries without touching balances.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeNotifySupport  = "notify:support"
	TaskTypeReceiptForward = "receipt:forward"
	TaskTypeBioUpdate      = "bio:update"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// NotifySupportPayload is a plain text message for the support channel,
// typically a pending-deposit alert.
type NotifySupportPayload struct {
	Text string `json:"text"`
}

// ReceiptForwardPayload relays an uploaded receipt photo to the support
// channel together with the claim details collected in the conversation.
type ReceiptForwardPayload struct {
	UserID      int64  `json:"user_id"`
	Username    string `json:"username,omitempty"`
	Method      string `json:"method,omitempty"`
	Amount      int64  `json:"amount,omitempty"` // minor units
	Phone       string `json:"phone,omitempty"`
	Destination string `json:"destination,omitempty"`
	PhotoFileID string `json:"photo_file_id,omitempty"`
}

func NewNotifySupportTask(text string) (*asynq.Task, error) {
	payload, err := json.Marshal(NotifySupportPayload{Text: text})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeNotifySupport, payload, asynq.Queue(QueueDefault)), nil
}

func NewReceiptForwardTask(p ReceiptForwardPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeReceiptForward, payload, asynq.Queue(QueueDefault)), nil
}

// NewBioUpdateTask carries no payload; the handler reads the current month's
// user count itself.
func NewBioUpdateTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskTypeBioUpdate, nil, asynq.Queue(QueueLow)), nil
}
