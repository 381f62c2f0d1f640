package controller

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/downfa11-org/go-journal/pkg/journal"
	"github.com/downfa11-org/go-journal/pkg/types"
	"github.com/downfa11-org/go-journal/util"
)

// handleGroup processes GROUP command
func (ch *CommandHandler) handleGroup(args string, ctx *ClientContext) string {
	kv := parseKeyValueArgs(args)
	group, ok := kv["group"]
	if !ok || group == "" {
		return "ERROR: missing group parameter. Expected: GROUP group=<name>"
	}
	if _, err := ch.Manager.GetStore(group); err != nil {
		return "ERROR: " + err.Error()
	}
	ctx.SetGroup(group)
	return fmt.Sprintf("switched to group '%s'", group)
}

// handleCreate processes CREATE command
func (ch *CommandHandler) handleCreate(args string, ctx *ClientContext) string {
	kv := parseKeyValueArgs(args)
	message, ok := kv["message"]
	if !ok || message == "" {
		return "ERROR: missing message parameter. Expected: CREATE [id=<id>] message=<text>"
	}
	id := kv["id"]
	if id == "" {
		id = util.NewMessageID()
	}

	st, errResp := ch.store(ctx)
	if st == nil {
		return errResp
	}
	if err := st.Create(id, &types.Message{Body: []byte(message)}); err != nil {
		return "ERROR: " + err.Error()
	}
	return fmt.Sprintf("created %s", id)
}

// handleDelete processes DELETE command
func (ch *CommandHandler) handleDelete(args string, ctx *ClientContext) string {
	kv := parseKeyValueArgs(args)
	id, ok := kv["id"]
	if !ok || id == "" {
		return "ERROR: missing id parameter. Expected: DELETE id=<id>"
	}

	st, errResp := ch.store(ctx)
	if st == nil {
		return errResp
	}
	deleted, err := st.Delete(id)
	if err != nil {
		if errors.Is(err, journal.ErrIndexCorrupted) {
			return "ERROR: index corrupted: " + err.Error()
		}
		return "ERROR: " + err.Error()
	}
	if !deleted {
		return fmt.Sprintf("%s not found or already deleted", id)
	}
	return fmt.Sprintf("deleted %s", id)
}

// handleRead processes READ command
func (ch *CommandHandler) handleRead(args string, ctx *ClientContext) string {
	kv := parseKeyValueArgs(args)
	limit := 1
	if maxStr, ok := kv["max"]; ok {
		n := util.ParseInt(maxStr, 0)
		if n <= 0 {
			return "ERROR: max must be a positive integer"
		}
		limit = n
	}

	st, errResp := ch.store(ctx)
	if st == nil {
		return errResp
	}

	var lines []string
	for len(lines) < limit {
		entry, ok := st.Read()
		if !ok {
			break
		}
		lines = append(lines, fmt.Sprintf("%s %s %s",
			entry.MessageID, entry.Timestamp.Format(time.RFC3339), entry.Message))
	}
	if len(lines) == 0 {
		return "(nothing to read)"
	}
	return strings.Join(lines, "\n")
}

// handleSweep processes SWEEP command
func (ch *CommandHandler) handleSweep(ctx *ClientContext) string {
	st, errResp := ch.store(ctx)
	if st == nil {
		return errResp
	}
	res, err := st.Sweep()
	summary := fmt.Sprintf("owners=%d candidate=%s takeover=%v swept=%d republished=%d archived=%d purged=%d",
		res.Owners, res.Candidate, res.Takeover, res.FilesSwept, res.Republished, res.Archived, res.Purged)
	if err != nil {
		return "ERROR: " + err.Error() + " (" + summary + ")"
	}
	return summary
}

// handleFiles processes FILES command
func (ch *CommandHandler) handleFiles(ctx *ClientContext) string {
	st, errResp := ch.store(ctx)
	if st == nil {
		return errResp
	}
	files, err := st.Files()
	if err != nil {
		return "ERROR: " + err.Error()
	}
	if len(files) == 0 {
		return "(no journal files)"
	}

	var b strings.Builder
	for i, f := range files {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s owner=%s size=%d modified=%s",
			filepath.Base(f.Path), f.Owner, f.Size, f.ModTime.Format(time.RFC3339))
	}
	return b.String()
}

// handleStats processes STATS command
func (ch *CommandHandler) handleStats(ctx *ClientContext) string {
	st, errResp := ch.store(ctx)
	if st == nil {
		return errResp
	}
	s := st.Stats()
	return fmt.Sprintf("group=%s unique=%s open=%v current=%s indexed=%d deliverable=%d",
		s.GroupID, s.UniqueID, s.Open, filepath.Base(s.CurrentFile), s.Indexed, s.Deliverable)
}

// handleReset processes RESET command
func (ch *CommandHandler) handleReset(ctx *ClientContext) string {
	st, errResp := ch.store(ctx)
	if st == nil {
		return errResp
	}
	if err := st.Reset(); err != nil {
		return "ERROR: " + err.Error()
	}
	return fmt.Sprintf("group '%s' reset", ctx.Group)
}
