package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidMessage = errors.New("invalid message")

// TransactionAddedMessage announces a durable add. It carries only the
// record ID; consumers read the record itself from the shared snapshot.
type TransactionAddedMessage struct {
	ID        string    `json:"id"`
	Ledger    string    `json:"ledger"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionAddedMessage(ledger, id string) *TransactionAddedMessage {
	return &TransactionAddedMessage{
		ID:        id,
		Ledger:    ledger,
		Timestamp: time.Now().UTC(),
	}
}

func (m *TransactionAddedMessage) Validate() error {
	var problems []string
	if strings.TrimSpace(m.ID) == "" {
		problems = append(problems, "missing id")
	}
	if strings.TrimSpace(m.Ledger) == "" {
		problems = append(problems, "missing ledger")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidMessage, strings.Join(problems, ", "))
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *TransactionAddedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionAddedMessageFromJSON decodes and validates a message body.
func TransactionAddedMessageFromJSON(data []byte) (*TransactionAddedMessage, error) {
	var msg TransactionAddedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
