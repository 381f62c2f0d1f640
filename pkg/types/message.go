package types

import "time"

// Message is the payload a producer hands to the journal.
type Message struct {
	Headers map[string]string `codec:"headers"`
	Body    []byte            `codec:"body"`
}

func (m Message) String() string {
	return string(m.Body)
}

// JournalEntry is a record handed back by Store.Read after a sweep republished it.
type JournalEntry struct {
	MessageID string
	Timestamp time.Time
	Deleted   bool
	Message   *Message
}

// Event is one in-flight delivery attempt tracked by the redelivery policy.
type Event struct {
	MessageID string
	Message   *Message
}
