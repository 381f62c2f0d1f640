package util_test

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/downfa11-org/go-journal/util"
)

func TestProcessIdentity(t *testing.T) {
	id := util.ProcessIdentity()
	if !strings.HasSuffix(id, fmt.Sprintf("-%d", os.Getpid())) {
		t.Errorf("expected pid suffix, got %q", id)
	}
	if id != util.ProcessIdentity() {
		t.Errorf("identity should be stable within a process")
	}
}

func TestNewMessageID(t *testing.T) {
	a, b := util.NewMessageID(), util.NewMessageID()
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty ids, got %q and %q", a, b)
	}
}
