package types

// MessageLocation points at the start of a record inside a journal file.
type MessageLocation struct {
	File     string
	Position int64
}

// Journal is what the delivery pipeline needs from a durable store.
type Journal interface {
	Create(messageID string, msg *Message) error
	Delete(messageID string) (bool, error)
	Read() (*JournalEntry, bool)
}
