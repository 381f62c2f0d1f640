package util

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// ProcessIdentity returns "<hostname>-<pid>", the default store uniqueId.
// A random uuid stands in for the hostname when it cannot be resolved.
func ProcessIdentity() string {
	host, err := os.Hostname()
	host = strings.TrimSpace(host)
	if err != nil || host == "" {
		host = uuid.NewString()
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// NewMessageID returns a random identifier for messages created without one.
func NewMessageID() string {
	return uuid.NewString()
}
