package amqp

import (
	"encoding/json"
	"time"
)

// LedgerChangedMessage announces that a ledger slot was rewritten. It carries
// only the revision and headline figures; consumers reload the slot itself.
type LedgerChangedMessage struct {
	Slot       string    `json:"slot"`
	Revision   int64     `json:"revision"`
	ItemCount  int       `json:"item_count"`
	GrandTotal float64   `json:"grand_total"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage creates a message stamped with the current time.
func NewLedgerChangedMessage(slot string, revision int64, itemCount int, grandTotal float64) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Slot:       slot,
		Revision:   revision,
		ItemCount:  itemCount,
		GrandTotal: grandTotal,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes a message body.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
