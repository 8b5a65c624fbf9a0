package seat

import "errors"

var (
	ErrProtocol     = errors.New("protocol_error")
	ErrReplyPending = errors.New("reply_pending")
	ErrDisconnected = errors.New("occupant_disconnected")
)
