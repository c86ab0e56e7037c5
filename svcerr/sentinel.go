package svcerr

// Predefined wire error codes.
const (
	CodeBadMsg     = "BADMSG"
	CodeNoMsg      = "NOMSG"
	CodeNoParams   = "NOPARAMS"
	CodeNoProg     = "NOPROG"
	CodeNoAction   = "NOACTION"
	CodeBadCmd     = "BADCMD"
	CodeBadAuth    = "BADAUTH"
	CodeEPerm      = "EPERM"
	CodeBusy       = "BUSY"
	CodeNotRunning = "NOTRUNNING"
	CodeNoCmd      = "NOCMD"
)

// Sentinel Protocol errors for the common, code-only cases.
var (
	ErrBadMsg     = Protocol("decode", CodeBadMsg, "invalid message")
	ErrNoMsg      = Protocol("decode", CodeNoMsg, "empty message")
	ErrNoParams   = Protocol("validate", CodeNoParams, "missing parameters")
	ErrNoProg     = Protocol("lookup", CodeNoProg, "no such program")
	ErrNoAction   = Protocol("lookup", CodeNoAction, "no such action")
	ErrBadCmd     = Protocol("dispatch", CodeBadCmd, "unknown verb")
	ErrBadAuth    = Protocol("authorize", CodeBadAuth, "permission denied")
	ErrEPerm      = Protocol("authorize", CodeEPerm, "permission denied")
	ErrBusy       = Protocol("precheck", CodeBusy, "program is running")
	ErrNotRunning = Protocol("precheck", CodeNotRunning, "program is not running")
	ErrNoCmd      = Protocol("policy", CodeNoCmd, "no command configured")
)
