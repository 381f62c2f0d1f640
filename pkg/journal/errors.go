package journal

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrStoreNotOpen   = errors.New("journal store is not open")
	ErrIndexCorrupted = errors.New("journal index corrupted")
	ErrEmptyMessageID = errors.New("message id must not be empty")
)

// StoreError carries the store identity and the file/message an I/O failure hit.
type StoreError struct {
	Op        string
	Group     string
	Unique    string
	File      string
	MessageID string
	Err       error
}

func (e *StoreError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "journal %s/%s: %s", e.Group, e.Unique, e.Op)
	if e.MessageID != "" {
		fmt.Fprintf(&b, " message=%s", e.MessageID)
	}
	if e.File != "" {
		fmt.Fprintf(&b, " file=%s", e.File)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (s *Store) wrapErr(op, file, messageID string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{
		Op:        op,
		Group:     s.groupID,
		Unique:    s.UniqueID(),
		File:      file,
		MessageID: messageID,
		Err:       err,
	}
}
