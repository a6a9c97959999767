package dispatcher

import (
	"fmt"

	"github.com/opsgate/slb-mcp-gateway/internal/rpctransport"
)

// Version is stamped at build time via -ldflags; defaults to "dev".
var Version = "dev"

// The §7 error kinds that travel back as ordinary successful JSON-RPC
// responses carrying {success:false, reason:...}, rather than as a
// transport-level error. Declared as string constants (not sentinel
// errors) since they are wire values, not Go errors propagated by %w.
const (
	ReasonBlocked               = "blocked"
	ReasonConfirmationRequired  = "confirmation_required"
	ReasonRateLimited           = "rate_limited"
	ReasonWorkingDirNotFound    = "working_dir_not_found"
	ReasonWorkingDirOutOfRoot   = "working_dir_out_of_root"
	ReasonSpawnFailed           = "spawn_failed"
)

// invalidParams builds the transport-level INVALID_ARGS response (§7, §4.9
// "errors are returned with an InvalidParams kind").
func invalidParams(msg string) *rpctransport.Error {
	return &rpctransport.Error{Code: rpctransport.CodeInvalidParams, Message: msg}
}

func internalErr(format string, args ...any) *rpctransport.Error {
	return &rpctransport.Error{Code: rpctransport.CodeInternalError, Message: fmt.Sprintf(format, args...)}
}

func methodNotFoundTool(name string) *rpctransport.Error {
	return &rpctransport.Error{Code: rpctransport.CodeMethodNotFound, Message: "unknown tool: " + name}
}
