package chat

import "errors"

// Terminal-for-the-turn errors. The
// session itself continues — only the in-flight turn ends.
var (
	ErrLmTimeout           = errors.New("chat: language model request timed out")
	ErrLmProtocolError     = errors.New("chat: language model adapter protocol error")
	ErrChannelDisconnected = errors.New("chat: language model stream channel closed unexpectedly")
	ErrNoPendingApproval   = errors.New("chat: no pending approval for this session")
	ErrApprovalMismatch    = errors.New("chat: approval decision does not match the pending tool")
)
