package controller

import (
	"strings"

	"github.com/downfa11-org/go-journal/pkg/config"
	"github.com/downfa11-org/go-journal/pkg/journal"
	"github.com/downfa11-org/go-journal/util"
)

const helpText = `Available commands:
GROUP group=<name> - switch the session to another group
CREATE [id=<id>] message=<text> - journal a message (id generated when omitted)
DELETE id=<id> - mark a message consumed
READ [max=<N>] - pop republished entries (default 1)
SWEEP - run one sweep cycle now
FILES - list journal files of the group
STATS - show store state
RESET - remove every journal file of the group
HELP - show this help
EXIT - exit`

type CommandHandler struct {
	Manager *journal.Manager
	Config  *config.Config
}

func NewCommandHandler(m *journal.Manager, cfg *config.Config) *CommandHandler {
	return &CommandHandler{
		Manager: m,
		Config:  cfg,
	}
}

func (ch *CommandHandler) logCommandResult(cmd, response string) {
	status := "SUCCESS"
	if strings.HasPrefix(response, "ERROR:") {
		status = "FAILURE"
	}
	cleanResponse := strings.ReplaceAll(response, "\n", " ")
	util.Debug("status: '%s', command: '%s' to Response '%s'", status, cmd, cleanResponse)
}

// HandleCommand executes one shell line against the session's group store.
func (ch *CommandHandler) HandleCommand(rawCmd string, ctx *ClientContext) string {
	cmd := strings.TrimSpace(rawCmd)
	if cmd == "" {
		resp := "ERROR: empty command"
		ch.logCommandResult(rawCmd, resp)
		return resp
	}

	keyword, rest, _ := strings.Cut(cmd, " ")
	keyword = strings.ToUpper(keyword)

	var resp string
	switch keyword {
	case "HELP":
		resp = helpText
	case "GROUP":
		resp = ch.handleGroup(rest, ctx)
	case "CREATE":
		resp = ch.handleCreate(rest, ctx)
	case "DELETE":
		resp = ch.handleDelete(rest, ctx)
	case "READ":
		resp = ch.handleRead(rest, ctx)
	case "SWEEP":
		resp = ch.handleSweep(ctx)
	case "FILES":
		resp = ch.handleFiles(ctx)
	case "STATS":
		resp = ch.handleStats(ctx)
	case "RESET":
		resp = ch.handleReset(ctx)
	default:
		resp = "ERROR: unknown command: " + keyword
	}

	ch.logCommandResult(cmd, resp)
	return resp
}

func (ch *CommandHandler) store(ctx *ClientContext) (*journal.Store, string) {
	st, err := ch.Manager.GetStore(ctx.Group)
	if err != nil {
		return nil, "ERROR: " + err.Error()
	}
	return st, ""
}

// parseKeyValueArgs splits "k=v k=v message=free text". Everything after message= is
// taken verbatim.
func parseKeyValueArgs(argsStr string) map[string]string {
	result := make(map[string]string)

	messageIdx := strings.Index(argsStr, "message=")
	if messageIdx != -1 {
		beforeMessage := argsStr[:messageIdx]
		for _, part := range strings.Fields(beforeMessage) {
			kv := strings.SplitN(part, "=", 2)
			if len(kv) == 2 {
				result[kv[0]] = kv[1]
			}
		}
		result["message"] = strings.TrimSpace(argsStr[messageIdx+8:])
		return result
	}

	for _, part := range strings.Fields(argsStr) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 {
			result[kv[0]] = kv[1]
		}
	}
	return result
}
