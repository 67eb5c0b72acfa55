package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// SpendingCheckMessage asks the watchdog worker to re-evaluate the current
// period. It carries no amounts; the worker always reads totals from the store.
type SpendingCheckMessage struct {
	Reason    string    `json:"reason"`
	ExpenseID string    `json:"expense_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSpendingCheckMessage(reason, expenseID string) *SpendingCheckMessage {
	return &SpendingCheckMessage{
		Reason:    reason,
		ExpenseID: expenseID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SpendingCheckMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SpendingCheckMessageFromJSON decodes a message. A message without a
// reason is rejected.
func SpendingCheckMessageFromJSON(data []byte) (*SpendingCheckMessage, error) {
	var msg SpendingCheckMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Reason == "" {
		return nil, errors.New("missing reason")
	}
	return &msg, nil
}
