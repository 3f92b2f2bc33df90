package core

// Error codes for protocol precondition failures.
const (
	ErrCodeNicknameTaken      = "nickname_taken"
	ErrCodeNicknameTooLong    = "nickname_too_long"
	ErrCodeInvalidChannelName = "invalid_channel_name"
	ErrCodeAdminLocked        = "admin_locked"
	ErrCodeNotAdmin           = "not_admin"
	ErrCodeSelfTarget         = "self_target"
	ErrCodeNotInChannel       = "not_in_channel"
	ErrCodeTargetNotInChannel = "target_not_in_channel"
	ErrCodeAlreadyMuted       = "already_muted"
	ErrCodeAlreadyUnmuted     = "already_unmuted"
	ErrCodeMuted              = "muted"
	ErrCodeMessageTooLong     = "message_too_long"
)

// Error wraps a code and the descriptive line sent back to the offending
// session. Precondition failures are reported this way, never as a fault:
// the session receives exactly one line and no state changes.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}
