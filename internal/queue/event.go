// Package queue defines the domain events published to the message broker
// and the background consumer that records them. Event payloads never carry
// journal text: only identifiers, dates and flags.
package queue

// Queue names. Each event type has its own durable queue.
const (
	EntrySubmittedQueue = "entry.submitted"
	SignupCreatedQueue  = "signup.created"
)

// Event is a payload that knows which queue it belongs on.
type Event interface {
	QueueName() string
}

// EntrySubmittedEvent is published after a check-in entry has been stored.
type EntrySubmittedEvent struct {
	EntryID     string `json:"entry_id"`
	UserID      string `json:"user_id"`
	Date        string `json:"date"`
	EntryNumber int    `json:"entry_number"`
	IsFollowUp  bool   `json:"is_follow_up"`
	OccurredAt  string `json:"occurred_at"`
}

func (EntrySubmittedEvent) QueueName() string { return EntrySubmittedQueue }

// SignupCreatedEvent is published after a new beta signup has been stored.
type SignupCreatedEvent struct {
	SignupID   string `json:"signup_id"`
	Email      string `json:"email"`
	OccurredAt string `json:"occurred_at"`
}

func (SignupCreatedEvent) QueueName() string { return SignupCreatedQueue }
