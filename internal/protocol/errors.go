package protocol

import "strings"

const (
	// Command accepted and applied.
	ReplyOK = "R_OK"

	// Command accepted, world not changed.
	ReplyUnchanged = "R_UNCHANGED"

	// Rejected by the server.
	ReplyUnknownCommand = "R_UNKNOWN_COMMAND"
	ReplyOutOfWorld     = "R_OUT_OF_WORLD"
	ReplyNotLoaded      = "R_NOT_LOADED"
	ReplyDenied         = "R_DENIED"
	ReplyOther          = "R_OTHER"
)

var knownCodes = map[string]struct{}{
	ReplyOK:             {},
	ReplyUnchanged:      {},
	ReplyUnknownCommand: {},
	ReplyOutOfWorld:     {},
	ReplyNotLoaded:      {},
	ReplyDenied:         {},
	ReplyOther:          {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

var replyPrefixes = []struct {
	prefix string
	code   string
}{
	{"changed the block", ReplyOK},
	{"could not set the block", ReplyUnchanged},
	{"unknown or incomplete command", ReplyUnknownCommand},
	{"unknown command", ReplyUnknownCommand},
	{"incorrect argument", ReplyUnknownCommand},
	{"cannot place blocks outside of the world", ReplyOutOfWorld},
	{"position is out of the world", ReplyOutOfWorld},
	{"that position is not loaded", ReplyNotLoaded},
	{"you do not have permission", ReplyDenied},
}

// ClassifyReply buckets a console reply. Replies are advisory only: the renderer never
// acts on them. An empty reply (what "say" returns) is ReplyOK.
func ClassifyReply(reply string) string {
	r := strings.ToLower(strings.TrimSpace(reply))
	if r == "" {
		return ReplyOK
	}
	for _, p := range replyPrefixes {
		if strings.HasPrefix(r, p.prefix) {
			return p.code
		}
	}
	return ReplyOther
}

// IsRejected reports whether a reply code means the server refused the command.
func IsRejected(code string) bool {
	switch code {
	case ReplyUnknownCommand, ReplyOutOfWorld, ReplyNotLoaded, ReplyDenied:
		return true
	}
	return false
}
