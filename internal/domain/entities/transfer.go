package entities

import "time"

// Action defines what kind of operation produced a transfer record
type Action string

const (
	ActionSend    Action = "send"
	ActionReceive Action = "receive"
	ActionDelete  Action = "delete"
)

// Outcome defines the result of a recorded operation
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// TransferRecord is one entry of the transfer log. Records are immutable
// once appended.
type TransferRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	Filename  string    `json:"filename"`
	Outcome   Outcome   `json:"outcome"`
	URL       string    `json:"url,omitempty"`
	Size      int64     `json:"size,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Succeeded reports whether the record has a success outcome
func (r TransferRecord) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}
