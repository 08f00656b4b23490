package streaming

import (
	"encoding/json"
	"errors"
)

type MessageType string

const (
	MessageTypeTransaction MessageType = "txn"
	MessageTypeListUpdate  MessageType = "list_update"
)

// Message is the popup payload published for downstream consumers.
type Message struct {
	Type    MessageType `json:"type"`
	TraceID string      `json:"trace_id,omitempty"`

	TxHash  string `json:"tx_hash,omitempty"`
	Success bool   `json:"success"`
	Summary string `json:"summary,omitempty"`

	ListURL  string   `json:"list_url,omitempty"`
	OldCount int      `json:"old_count,omitempty"`
	NewCount int      `json:"new_count,omitempty"`
	Added    []string `json:"added,omitempty"`
	Removed  []string `json:"removed,omitempty"`
	Updated  []string `json:"updated,omitempty"`
	Auto     bool     `json:"auto,omitempty"`
}

func Encode(msg Message) ([]byte, error) {
	if err := validate(msg); err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

func validate(msg Message) error {
	switch msg.Type {
	case "":
		return errors.New("message type is required")
	case MessageTypeTransaction:
		if msg.TxHash == "" {
			return errors.New("tx_hash is required")
		}
	case MessageTypeListUpdate:
		if msg.ListURL == "" {
			return errors.New("list_url is required")
		}
	default:
		return errors.New("unknown message type")
	}
	return nil
}
